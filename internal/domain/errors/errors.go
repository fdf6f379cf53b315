package errors

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid")

// Failure kinds raised while importing a post corpus. Everything except
// ErrSyncFailure is scoped to a single document.
var (
	ErrInvalidDocumentName  = errors.New("invalid document name")
	ErrInvalidDate          = errors.New("invalid date")
	ErrMalformedFrontMatter = errors.New("malformed front matter")
	ErrSourceAssetMissing   = errors.New("source asset missing")
	ErrUploadTransport      = errors.New("upload transport error")
	ErrRenderFailure        = errors.New("render failure")
	ErrPersistenceFailure   = errors.New("persistence failure")
	ErrSyncFailure          = errors.New("sync failure")
)

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationError struct {
	Items []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Items) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	b.WriteString("validation failed:\n")
	for _, item := range e.Items {
		b.WriteString(" - ")
		b.WriteString(item.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e *ValidationError) Add(field, msg string) {
	e.Items = append(e.Items, FieldError{
		Field:   field,
		Message: msg,
	})
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func (e ValidationError) HasAny() bool {
	return len(e.Items) > 0
}

// DocumentError ties a per-document failure to the document it came from.
type DocumentError struct {
	Key  string
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Key, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Kind wraps err so that errors.Is matches both kind and err.
func Kind(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
