package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	QuizID string  `json:"quiz_id" validate:"required,uuid"`
	Score  float64 `json:"score" validate:"gte=0,lte=1"`
	Note   string  `json:"note" validate:"omitempty,alphanum"`
}

func TestValidationError(t *testing.T) {
	err := validator.New().Struct(request{Score: 2, Note: "a b"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t,
		"field QuizID is a required field, field Score is out of range, field Note is not a valid",
		resp.Error)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, Response{Status: StatusOK, Data: 1}, StatusOKWithData(1))
	assert.Equal(t, Response{Status: StatusError, Error: "boom"}, Error("boom"))
}
