package registration

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NewError(CodeNotFound, "missing")))
	assert.Equal(t, CodeSeatTaken, CodeOf(Errorf(CodeSeatTaken, "seat %s", "A1")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", NewError(CodeConflict, "retry"))
	assert.Equal(t, CodeConflict, CodeOf(wrapped))
}

func TestWrapErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := WrapError(CodeInternal, "persist failed", inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "persist failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodePrerequisiteMissing, http.StatusBadRequest},
		{CodeAlreadyEnrolled, http.StatusBadRequest},
		{CodeAlreadyWaitlisted, http.StatusBadRequest},
		{CodeInvalidSeatLabel, http.StatusBadRequest},
		{CodeBookingAlreadyOpen, http.StatusBadRequest},
		{CodeConfigurationInvalid, http.StatusBadRequest},
		{CodeSeatTaken, http.StatusConflict},
		{CodeBookingClosed, http.StatusConflict},
		{CodeCapacityExceeded, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.HTTPStatus(), "code %s", tt.code)
	}
}
