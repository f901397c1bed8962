package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yourorg/listing-editor/listingapi"
)

var (
	// ErrSubmitInProgress means a submit for the same listing is already in
	// flight; the caller must wait for it to settle.
	ErrSubmitInProgress = errors.New("submit already in progress")
	// ErrInvalidNumericInput means a string form field did not parse back to
	// its numeric type.
	ErrInvalidNumericInput = errors.New("invalid numeric input")
	// ErrDuplicatePhotoURL means the edited set names the same remote photo
	// twice, which makes dispositions ambiguous.
	ErrDuplicatePhotoURL = errors.New("duplicate photo url in edited set")
)

// UploadError aborts a submit before any patch is sent; no listing state has
// changed.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "photo upload failed: " + e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }

// Kind identifies the classified failure of a rejected patch.
type Kind string

const (
	KindTermTooShort       Kind = "term_too_short"
	KindStartDateNotFuture Kind = "start_date_not_future"
	KindMissingGender      Kind = "missing_gender"
	KindGeneric            Kind = "generic"
)

// Failure is a rejected patch submission mapped to a user-facing message.
// Fields carries the field-keyed error map shown next to form inputs.
type Failure struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("submit failed (%s): %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

const genericMessage = "Error updating listing"

// constraintMarkers is the enumerated table of database constraint markers.
// Checked in order, and before any attempt to parse the body as a structured
// validation document: a substring probe is cheap, the parse may itself fail.
var constraintMarkers = []struct {
	marker  string
	kind    Kind
	message string
}{
	{"chk_term_length", KindTermTooShort, "The term length should be at least a month."},
	{"chk_start_date_future", KindStartDateNotFuture, "The start date must be in the future."},
}

// validationDocument is the FastAPI-style error body: a detail array of
// {loc, msg} entries. loc elements can be strings or numbers, so they decode
// loosely.
type validationDocument struct {
	Detail []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	} `json:"detail"`
}

// ClassifySubmitError maps a failed submission into a Failure. The raw body
// of an API rejection is preferred over the wrapping error text.
func ClassifySubmitError(err error) *Failure {
	raw := err.Error()
	var apiErr *listingapi.APIError
	if errors.As(err, &apiErr) {
		raw = apiErr.Body
	}

	for _, m := range constraintMarkers {
		if strings.Contains(raw, m.marker) {
			return &Failure{
				Kind:    m.kind,
				Message: m.message,
				Fields:  map[string]string{"check_constraint": m.message},
				Err:     err,
			}
		}
	}

	if msg, ok := matchMissingGender(raw); ok {
		return &Failure{Kind: KindMissingGender, Message: msg, Err: err}
	}

	msg := raw
	if strings.TrimSpace(msg) == "" {
		msg = genericMessage
	}
	return &Failure{Kind: KindGeneric, Message: msg, Err: err}
}

// matchMissingGender parses the body as a validation document and looks for a
// required/invalid entry on target_gender. Parse failures are swallowed: an
// unstructured body simply is not this kind of error.
func matchMissingGender(raw string) (string, bool) {
	var doc validationDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", false
	}
	for _, d := range doc.Detail {
		if !locContains(d.Loc, "target_gender") {
			continue
		}
		msg := strings.ToLower(d.Msg)
		if strings.Contains(msg, "field required") || strings.Contains(msg, "input should be") {
			return "Target gender must be specified.", true
		}
	}
	return "", false
}

func locContains(loc []any, field string) bool {
	for _, l := range loc {
		if s, ok := l.(string); ok && s == field {
			return true
		}
	}
	return false
}
