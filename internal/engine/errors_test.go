package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/listing-editor/listingapi"
)

func TestClassifySubmitError(t *testing.T) {
	t.Run("term length constraint marker", func(t *testing.T) {
		err := &listingapi.APIError{
			StatusCode: 500,
			Body:       `{"detail":"update failed: new row violates check constraint \"chk_term_length\""}`,
		}
		f := ClassifySubmitError(err)
		assert.Equal(t, KindTermTooShort, f.Kind)
		assert.Equal(t, "The term length should be at least a month.", f.Message)
		assert.Equal(t, "The term length should be at least a month.", f.Fields["check_constraint"])
	})

	t.Run("start date constraint marker wins regardless of other content", func(t *testing.T) {
		err := &listingapi.APIError{
			StatusCode: 500,
			Body:       `some wrapper text chk_start_date_future and trailing noise`,
		}
		f := ClassifySubmitError(err)
		assert.Equal(t, KindStartDateNotFuture, f.Kind)
		assert.Equal(t, "The start date must be in the future.", f.Message)
		assert.Equal(t, "The start date must be in the future.", f.Fields["check_constraint"])
	})

	t.Run("constraint marker is checked before json parsing", func(t *testing.T) {
		// a structured body that also carries a marker classifies by marker
		err := &listingapi.APIError{
			StatusCode: 422,
			Body:       `{"detail":[{"loc":["body","chk_term_length"],"msg":"bad"}]}`,
		}
		f := ClassifySubmitError(err)
		assert.Equal(t, KindTermTooShort, f.Kind)
	})

	t.Run("missing gender from validation document", func(t *testing.T) {
		err := &listingapi.APIError{
			StatusCode: 422,
			Body:       `{"detail":[{"loc":["body","target_gender"],"msg":"field required"}]}`,
		}
		f := ClassifySubmitError(err)
		assert.Equal(t, KindMissingGender, f.Kind)
		assert.Equal(t, "Target gender must be specified.", f.Message)
		assert.Nil(t, f.Fields)
	})

	t.Run("invalid gender input variant", func(t *testing.T) {
		err := &listingapi.APIError{
			StatusCode: 422,
			Body:       `{"detail":[{"loc":["body","target_gender"],"msg":"Input should be 'male', 'female' or 'any'"}]}`,
		}
		f := ClassifySubmitError(err)
		assert.Equal(t, KindMissingGender, f.Kind)
	})

	t.Run("validation document for another field stays generic", func(t *testing.T) {
		err := &listingapi.APIError{
			StatusCode: 422,
			Body:       `{"detail":[{"loc":["body","description"],"msg":"field required"}]}`,
		}
		f := ClassifySubmitError(err)
		assert.Equal(t, KindGeneric, f.Kind)
	})

	t.Run("numeric loc entries do not panic", func(t *testing.T) {
		err := &listingapi.APIError{
			StatusCode: 422,
			Body:       `{"detail":[{"loc":["body","photos_to_add",0,"url"],"msg":"field required"}]}`,
		}
		f := ClassifySubmitError(err)
		assert.Equal(t, KindGeneric, f.Kind)
	})

	t.Run("unparseable body passes through verbatim", func(t *testing.T) {
		err := &listingapi.APIError{StatusCode: 500, Body: "upstream exploded"}
		f := ClassifySubmitError(err)
		assert.Equal(t, KindGeneric, f.Kind)
		assert.Equal(t, "upstream exploded", f.Message)
	})

	t.Run("blank body falls back to the generic message", func(t *testing.T) {
		err := &listingapi.APIError{StatusCode: 500, Body: "  "}
		f := ClassifySubmitError(err)
		assert.Equal(t, KindGeneric, f.Kind)
		assert.Equal(t, "Error updating listing", f.Message)
	})

	t.Run("transport errors classify from the error text", func(t *testing.T) {
		f := ClassifySubmitError(errors.New("connection reset by peer"))
		assert.Equal(t, KindGeneric, f.Kind)
		assert.Equal(t, "connection reset by peer", f.Message)
	})

	t.Run("failure unwraps to the original error", func(t *testing.T) {
		orig := &listingapi.APIError{StatusCode: 500, Body: "chk_term_length"}
		f := ClassifySubmitError(orig)
		var apiErr *listingapi.APIError
		require.True(t, errors.As(f, &apiErr))
		assert.Equal(t, 500, apiErr.StatusCode)
	})
}
