package utils

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_UnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewUnprocessableError("could not process", cause)

	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not process: boom", err.Error())
}

func TestAppError_MessageOnly(t *testing.T) {
	err := NewNotFoundError("Extraction not found")
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "Extraction not found", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestGenerateID_Unique(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
