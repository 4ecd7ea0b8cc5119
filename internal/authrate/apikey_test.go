package authrate

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
)

func TestAPIKeyCheckAcceptsHeader(t *testing.T) {
	check := APIKeyCheck{Want: "secret123"}
	req, err := http.NewRequest(http.MethodGet, "http://example.test/cam/store", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret123")
	assert.NoError(t, check.Validate(req))
}

func TestAPIKeyCheckAcceptsBearer(t *testing.T) {
	check := APIKeyCheck{Want: "secret123"}
	req, _ := http.NewRequest(http.MethodGet, "http://example.test/cam/store", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	assert.NoError(t, check.Validate(req))
}

func TestAPIKeyCheckAcceptsQueryParam(t *testing.T) {
	check := APIKeyCheck{Want: "secret123"}
	req, _ := http.NewRequest(http.MethodGet, "http://example.test/cam/store?"+url.Values{"api_key": {"secret123"}}.Encode(), nil)
	assert.NoError(t, check.Validate(req))
}

func TestAPIKeyCheckRejectsWrongKey(t *testing.T) {
	check := APIKeyCheck{Want: "secret123"}
	req, _ := http.NewRequest(http.MethodGet, "http://example.test/cam/store", nil)
	req.Header.Set("X-API-Key", "wrong")
	err := check.Validate(req)
	require.Error(t, err)
	assert.True(t, engramerr.Is(err, engramerr.KindUnauthorized))
}

func TestAPIKeyCheckRejectsMissingKey(t *testing.T) {
	check := APIKeyCheck{Want: "secret123"}
	req, _ := http.NewRequest(http.MethodGet, "http://example.test/cam/store", nil)
	err := check.Validate(req)
	require.Error(t, err)
	assert.True(t, engramerr.Is(err, engramerr.KindUnauthorized))
}
