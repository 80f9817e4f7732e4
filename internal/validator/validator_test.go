package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/require"
)

type loginPayload struct {
	Name       string `json:"name" binding:"required"`
	ExamNumber string `json:"exam_number" binding:"required,exam_number"`
}

func TestExamNumber(t *testing.T) {
	for _, s := range []string{"TEST0001", "ab12", "A1B2C3D4E5F6G7H8I9J0"} {
		require.True(t, ExamNumber(s), s)
	}
	for _, s := range []string{"", "abc", "TEST-0001", "A1B2C3D4E5F6G7H8I9J0K", "test 01"} {
		require.False(t, ExamNumber(s), s)
	}
}

func TestTranslateErrorsUsesJSONNames(t *testing.T) {
	Setup()

	err := binding.Validator.ValidateStruct(&loginPayload{Name: "Alex", ExamNumber: "no!"})
	require.Error(t, err)

	fields := TranslateErrors(err)
	require.Contains(t, fields, "exam_number")
	require.Equal(t, "exam_number must be 4-20 letters or digits", fields["exam_number"])
}
