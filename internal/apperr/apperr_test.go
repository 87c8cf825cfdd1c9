package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robalobadob/hangman/apps/go-server/internal/apperr"
)

func TestKindsSurviveWrapping(t *testing.T) {
	base := apperr.New(apperr.InvalidState, "Game already started.")
	wrapped := fmt.Errorf("start game: %w", base)

	assert.ErrorIs(t, wrapped, apperr.InvalidState)
	assert.NotErrorIs(t, wrapped, apperr.NotFound)
	assert.Equal(t, "Game already started.", apperr.Message(wrapped))
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := apperr.Unavailable("put game", cause)

	assert.ErrorIs(t, err, apperr.StorageUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "put game")
	assert.Equal(t, "Storage unavailable, try again later.", apperr.Message(err))
}

func TestMessageHidesUnknownErrors(t *testing.T) {
	assert.Equal(t, "Internal server error.", apperr.Message(errors.New("secret detail")))
}
