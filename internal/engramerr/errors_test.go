package engramerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[*Error]int{
		Invalid("bad"):              400,
		Unauthorized("no key"):      401,
		Forbidden("not a witness"):  403,
		NotFound("no such memory"):  404,
		AlreadyExists("dup"):        409,
		RateLimited(5):              429,
		Timeout("slow", nil):        504,
		Storage("backend down", nil): 503,
		Upstream("curator failed", nil): 502,
	}
	for err, want := range cases {
		assert.Equal(t, want, err.HTTPStatus(), "kind %s", err.Kind)
	}
}

func TestRateLimitedCarriesRetryAfter(t *testing.T) {
	err := RateLimited(12)
	assert.Equal(t, 12, err.RetryAfterSeconds)
	assert.Equal(t, KindRateLimited, err.Kind)
}

func TestIsAndAs(t *testing.T) {
	base := errors.New("boom")
	wrapped := Storage("store failed", base)

	assert.True(t, Is(wrapped, KindStorageError))
	assert.False(t, Is(wrapped, KindNotFound))

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindStorageError, got.Kind)
	assert.ErrorIs(t, wrapped, base)
}

func TestEachErrorHasUniqueCorrelationID(t *testing.T) {
	a := NotFound("x")
	b := NotFound("x")
	assert.NotEqual(t, a.CorrelationID, b.CorrelationID)
}

func TestInvalidCarriesDetails(t *testing.T) {
	err := Invalid("schema violation", "content.text", "vector")
	assert.Equal(t, []string{"content.text", "vector"}, err.Details)
}
