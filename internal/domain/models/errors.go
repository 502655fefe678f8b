package models

import "errors"

var (
	// ErrInsufficientData means fewer bars were available than the
	// operation's minimum history requirement.
	ErrInsufficientData = errors.New("insufficient history for requested operation")
	// ErrModelNotTrained means no fitted model exists for the symbol.
	ErrModelNotTrained = errors.New("model not trained for symbol")
	// ErrModelCorrupt means a persisted model blob failed to decode.
	ErrModelCorrupt = errors.New("persisted model is corrupt")
	// ErrTrainingFailed means the fit did not converge or produced
	// degenerate parameters.
	ErrTrainingFailed = errors.New("model training failed")
	// ErrTrainingInProgress means another caller holds the training
	// lock for the symbol.
	ErrTrainingInProgress = errors.New("training already in progress for symbol")
	// ErrPriceUnavailable means every configured price source failed.
	ErrPriceUnavailable = errors.New("price unavailable from all sources")
	// ErrSessionNotFound means the session id is unknown to the registry.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionLimit means the registry is at its active session cap.
	ErrSessionLimit = errors.New("active session limit reached")
	// ErrInsufficientBalance means a paper order exceeds available cash
	// or position.
	ErrInsufficientBalance = errors.New("insufficient balance for order")
)
