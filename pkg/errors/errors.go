package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// EditorError carries the editing context (session, field, partner) a
// failure happened in, so the API can hand the front end something it can
// point at.
type EditorError struct {
	Session string
	Field   string
	Partner string
	Message string
}

func NewEditorError(msg string) *EditorError {
	return &EditorError{
		Message: msg,
	}
}

// NewEditorErrorf creates a new EditorError with a formatted message
func NewEditorErrorf(format string, args ...any) *EditorError {
	for i, arg := range args {
		if err, ok := arg.(error); ok && strings.Contains(format, "%w") {
			format = strings.Replace(format, "%w", "%v", 1)
			args[i] = err.Error()
		}
	}

	return &EditorError{
		Message: fmt.Sprintf(format, args...),
	}
}

func WrapEditorError(e error) *EditorError {
	if e == nil {
		return nil
	}

	if editorError, ok := e.(*EditorError); ok {
		return editorError
	}

	return &EditorError{
		Message: e.Error(),
	}
}

func (e *EditorError) Error() string {
	path := []string{}
	if e.Session != "" {
		path = append(path, fmt.Sprintf("session '%s'", e.Session))
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}
	if e.Partner != "" {
		path = append(path, fmt.Sprintf("partner '%s'", e.Partner))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *EditorError) AddSession(sessionID string) *EditorError {
	e.Session = sessionID
	return e
}

func (e *EditorError) AddField(tempID string) *EditorError {
	e.Field = tempID
	return e
}

func (e *EditorError) AddPartner(name string) *EditorError {
	e.Partner = name
	return e
}

func (e *EditorError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).AddMetaValue("session_id", e.Session).AddMetaValue("field_temp_id", e.Field).AddMetaValue("partner", e.Partner)
}

func IsEditorError(err error) bool {
	_, ok := err.(*EditorError)
	return ok
}
