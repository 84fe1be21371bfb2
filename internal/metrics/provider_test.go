package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("Success_CreateProvider", func(t *testing.T) {
		provider, err := NewProvider("fieldcrypt")

		require.NoError(t, err)
		assert.NotNil(t, provider)
		assert.NotNil(t, provider.MeterProvider())
	})
}

func TestProvider_BusinessMetrics(t *testing.T) {
	provider, err := NewProvider("fieldcrypt")
	require.NoError(t, err)

	bm, err := provider.BusinessMetrics()

	require.NoError(t, err)
	assert.NotNil(t, bm)
}

func TestProvider_Handler(t *testing.T) {
	provider, err := NewProvider("fieldcrypt")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
}

func TestProvider_Shutdown(t *testing.T) {
	provider, err := NewProvider("fieldcrypt")
	require.NoError(t, err)

	assert.NoError(t, provider.Shutdown(context.Background()))

	t.Run("Success_NilMeterProvider", func(t *testing.T) {
		p := &Provider{}
		assert.NoError(t, p.Shutdown(context.Background()))
	})
}
