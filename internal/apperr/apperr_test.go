package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindOutOfStock, KindOf(OutOfStock("gone")))
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(Internal(errors.New("db down"))))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("context: %w", NotFound("missing"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindValidation))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("row scan failed")
	err := Wrap(KindInternal, cause, "loading product")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "loading product")
}
