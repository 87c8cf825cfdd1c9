package game

import "github.com/robalobadob/hangman/apps/go-server/internal/apperr"

// Lifecycle failures returned by the state machine.
var (
	ErrAlreadyStarted = apperr.New(apperr.InvalidState, "Game already started.")
	ErrEmptyWordList  = apperr.New(apperr.InvalidState, "No words added.")
	ErrNotStarted     = apperr.New(apperr.InvalidState, "Game has not started.")
	ErrGameFinished   = apperr.New(apperr.InvalidState, "Game already finished.")
	ErrInvalidLetter  = apperr.New(apperr.InvalidInput, "Guess exactly one letter.")
)
