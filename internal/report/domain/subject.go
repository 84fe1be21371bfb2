// Package domain provides the report-side model: encrypted subject records as
// the backend exports them, their decrypted payload schemas, and batch
// decryption statistics.
package domain

import (
	cryptoDomain "github.com/priotag/fieldcrypt/internal/crypto/domain"
)

// Subject is one encrypted record from the backend's admin listing.
//
// Regular subjects carry two independent field groups: an identity group
// (display name) and a schedule group (weekly priorities). Manual,
// admin-entered subjects have only the schedule group, with the display name
// embedded inside its payload.
type Subject struct {
	// ID identifies the subject across listings and keys the cache.
	ID string `json:"subjectId"`

	// UserName is the subject's login name. It is stored in plaintext by the
	// backend and passed through for report labelling.
	UserName string `json:"userName"`

	// WrappedDek is the subject's DEK wrapped under the admin public key.
	WrappedDek cryptoDomain.WrappedDek `json:"adminWrappedDek"`

	// IdentityGroup is the encrypted identity field group. Empty for manual
	// subjects.
	IdentityGroup cryptoDomain.FieldGroup `json:"userEncryptedFields,omitempty"`

	// ScheduleGroup is the encrypted schedule field group.
	ScheduleGroup cryptoDomain.FieldGroup `json:"prioritiesEncryptedFields"`

	// Manual marks admin-entered records (paper submissions).
	Manual bool `json:"manual"`
}

// IdentityPayload is the decrypted identity field group.
type IdentityPayload struct {
	Name string `json:"name"`
}

// Week is one week of priority choices. Day values are priorities or null
// when no choice was made for that day.
type Week struct {
	WeekNumber int  `json:"weekNumber"`
	Monday     *int `json:"monday"`
	Tuesday    *int `json:"tuesday"`
	Wednesday  *int `json:"wednesday"`
	Thursday   *int `json:"thursday"`
	Friday     *int `json:"friday"`
}

// SchedulePayload is the decrypted schedule field group. Name is set only for
// manual subjects, where no separate identity group exists.
type SchedulePayload struct {
	Weeks []Week `json:"weeks"`
	Name  string `json:"name,omitempty"`
}

// DecryptedSubject is the plaintext view of one subject produced by a batch
// decryption.
type DecryptedSubject struct {
	SubjectID  string          `json:"subjectId"`
	UserName   string          `json:"userName,omitempty"`
	Name       string          `json:"name"`
	Manual     bool            `json:"manual,omitempty"`
	Priorities SchedulePayload `json:"priorities"`
}

// SubjectFailure reports a per-subject decryption failure. Failures never
// abort a batch; the subject is skipped and reported here.
type SubjectFailure struct {
	SubjectID string
	Err       error
}

// BatchStats counts what a batch run did, for observability.
type BatchStats struct {
	// CacheHits is the number of subjects served from cache without any
	// cryptographic work.
	CacheHits int

	// NewDecryptions is the number of subjects decrypted for the first time
	// in this cache's lifetime.
	NewDecryptions int

	// Redecryptions is the number of subjects re-decrypted because their
	// ciphertext changed since they were cached.
	Redecryptions int

	// Failures is the number of subjects skipped due to a decryption error.
	Failures int
}

// BatchResult is the outcome of one batch decryption call. Subjects appear in
// input order; failed subjects are absent from Subjects and listed in
// Failures instead.
type BatchResult struct {
	Subjects []DecryptedSubject
	Failures []SubjectFailure
	Stats    BatchStats
}
