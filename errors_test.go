package ember

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindBadRequest.Status())
	assert.Equal(t, http.StatusNotFound, KindNotFound.Status())
	assert.Equal(t, http.StatusForbidden, KindForbidden.Status())
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, KindRangeNotSatisfiable.Status())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.Status())
}

func TestCoreErrorMessage(t *testing.T) {
	err := newError(KindNotFound, "route not found")
	assert.Contains(t, err.Error(), "route not found")
}

func TestCoreErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk failure")
	err := wrapError(KindInternal, "render failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk failure")
}

func TestStatusForWrappedError(t *testing.T) {
	cause := wrapError(KindForbidden, "blocked", nil)
	wrapped := errors.New("outer: " + cause.Error())
	assert.Equal(t, http.StatusInternalServerError, Status(wrapped), "a plain error with no *CoreError in its chain should map to 500")
	assert.Equal(t, http.StatusForbidden, Status(cause))
}
