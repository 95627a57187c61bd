package apperrors

import "errors"

// Standardized service errors
var (
	ErrNoPriceAvailable = errors.New("no price available")
	ErrUnknownSymbol    = errors.New("unknown symbol")
	ErrJournalClosed    = errors.New("journal closed")
	ErrFeedNotRunning   = errors.New("price feed not running")
)
