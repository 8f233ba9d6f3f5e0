package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorErrorMessagePath(t *testing.T) {
	err := NewEditorError("field not found").AddSession("sess-1").AddField("field-7")
	assert.Equal(t, "session 'sess-1' -> field 'field-7': field not found", err.Error())

	bare := NewEditorError("nothing to save")
	assert.Equal(t, "nothing to save", bare.Error())
}

func TestNewEditorErrorfHandlesWrapVerb(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewEditorErrorf("create phase failed: %w", cause)
	assert.Equal(t, "create phase failed: connection refused", err.Message)
}

func TestWrapEditorError(t *testing.T) {
	assert.Nil(t, WrapEditorError(nil))

	original := NewEditorError("boom").AddPartner("Buyer")
	assert.Same(t, original, WrapEditorError(original))

	wrapped := WrapEditorError(fmt.Errorf("plain failure"))
	require.NotNil(t, wrapped)
	assert.Equal(t, "plain failure", wrapped.Message)
}

func TestToHTTPError(t *testing.T) {
	httpErr := NewEditorError("partner has no fields").AddPartner("Seller").ToHTTPError()
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(httpErr))
}

func TestIsEditorError(t *testing.T) {
	assert.True(t, IsEditorError(NewEditorError("x")))
	assert.False(t, IsEditorError(fmt.Errorf("x")))
	assert.False(t, IsEditorError(nil))
}
