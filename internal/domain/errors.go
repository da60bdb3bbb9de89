package domain

import "errors"

var (
	// ErrUnsupportedGameType is returned by Start when no question source serves the mode.
	ErrUnsupportedGameType = errors.New("unsupported game type")
	// ErrSourceUnavailable wraps question source failures.
	ErrSourceUnavailable = errors.New("question source unavailable")
	// ErrInvalidQuestion indicates a source produced a question breaking the option invariant.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrCatalogTooSmall is returned when a catalog cannot supply four distinct answers.
	ErrCatalogTooSmall = errors.New("catalog has fewer than four distinct answers")
	// ErrNoQuestionPending is returned by Retry when there is nothing to re-request.
	ErrNoQuestionPending = errors.New("no question pending")
	// ErrSessionNotFound is returned when a player has no open session.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrInvalidDate indicates a malformed leaderboard day.
	ErrInvalidDate = errors.New("invalid leaderboard date")
	// ErrCatalogNotFound indicates the catalog content could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
)
