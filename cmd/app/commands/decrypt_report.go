package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	keyaccessDomain "github.com/priotag/fieldcrypt/internal/keyaccess/domain"
	keyaccessService "github.com/priotag/fieldcrypt/internal/keyaccess/service"
	reportDomain "github.com/priotag/fieldcrypt/internal/report/domain"
	reportUsecase "github.com/priotag/fieldcrypt/internal/report/usecase"
)

// DecryptorFactory builds a batch decryptor bound to a key session.
type DecryptorFactory func(session *keyaccessDomain.Session) (reportUsecase.ReportDecryptor, error)

// reportOutput is the JSON document written by RunDecryptReport.
type reportOutput struct {
	Subjects []reportDomain.DecryptedSubject `json:"subjects"`
	Failures []failureOutput                 `json:"failures,omitempty"`
	Stats    statsOutput                     `json:"stats"`
}

// failureOutput reports a skipped subject. Only the error kind ends up here;
// decrypted data never does.
type failureOutput struct {
	SubjectID string `json:"subjectId"`
	Error     string `json:"error"`
}

type statsOutput struct {
	CacheHits      int `json:"cacheHits"`
	NewDecryptions int `json:"newDecryptions"`
	Redecryptions  int `json:"redecryptions"`
	Failures       int `json:"failures"`
}

// RunDecryptReport decrypts an exported subject listing and writes the
// plaintext report as JSON. Loads the admin key through the given provider,
// decrypts every subject in the listing, and writes the result to outputPath
// (or to the command writer when outputPath is "-").
//
// Per-subject decryption failures do not abort the run; failed subjects are
// listed in the output with their error.
func RunDecryptReport(
	ctx context.Context,
	keyProvider keyaccessService.KeyProvider,
	loader *keyaccessService.Loader,
	newDecryptor DecryptorFactory,
	logger *slog.Logger,
	inputPath, outputPath string,
	io IOTuple,
) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read subject listing: %w", err)
	}

	var subjects []reportDomain.Subject
	if err := json.Unmarshal(data, &subjects); err != nil {
		return fmt.Errorf("failed to parse subject listing: %w", err)
	}

	session, err := loader.Load(ctx, keyProvider)
	if err != nil {
		return err
	}
	defer loader.Clear()

	decryptor, err := newDecryptor(session)
	if err != nil {
		return err
	}

	result, err := decryptor.DecryptAll(ctx, subjects)
	if err != nil {
		return err
	}

	output := reportOutput{
		Subjects: result.Subjects,
		Stats: statsOutput{
			CacheHits:      result.Stats.CacheHits,
			NewDecryptions: result.Stats.NewDecryptions,
			Redecryptions:  result.Stats.Redecryptions,
			Failures:       result.Stats.Failures,
		},
	}
	for _, failure := range result.Failures {
		output.Failures = append(output.Failures, failureOutput{
			SubjectID: failure.SubjectID,
			Error:     failure.Err.Error(),
		})
	}

	if outputPath == "-" || outputPath == "" {
		if err := outputJSON(output, io.Writer); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	} else {
		encoded, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		// Decrypted subject data: keep the report private to the admin user.
		if err := os.WriteFile(outputPath, encoded, 0o600); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	logger.Info("report decrypted",
		slog.Int("subjects", len(subjects)),
		slog.Int("failures", result.Stats.Failures),
	)

	return nil
}
