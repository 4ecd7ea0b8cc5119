package authrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeCommentRejectsScriptTag(t *testing.T) {
	err := SanitizeComment(`hello <script>alert(1)</script>`, 0)
	require.Error(t, err)
}

func TestSanitizeCommentRejectsJavascriptURI(t *testing.T) {
	err := SanitizeComment(`click here: JAVASCRIPT:doEvil()`, 0)
	require.Error(t, err)
}

func TestSanitizeCommentRejectsEventHandler(t *testing.T) {
	err := SanitizeComment(`<div onmouseover=alert(1)>hi</div>`, 0)
	require.Error(t, err)
}

func TestSanitizeCommentAllowsPlainText(t *testing.T) {
	assert.NoError(t, SanitizeComment("just a normal note about the meeting", 0))
}

func TestSanitizeCommentRejectsOversize(t *testing.T) {
	err := SanitizeComment(strings.Repeat("a", DefaultCommentMaxBytes+1), 0)
	require.Error(t, err)
}

func TestSanitizeRequestBodyRejectsOversize(t *testing.T) {
	err := SanitizeRequestBody(make([]byte, DefaultRequestMaxBytes+1), 0)
	require.Error(t, err)
}
