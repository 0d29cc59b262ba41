package apperrors

import "errors"

// Calculation errors
var (
	ErrInvalidLeverage  = errors.New("leverage must be greater than zero")
	ErrUndefinedResult  = errors.New("result is undefined for the given inputs")
	ErrNoLiquidity      = errors.New("no liquidity available")
	ErrUnknownOrderType = errors.New("unknown order type")
	ErrInvalidInput     = errors.New("invalid input")
)

// Indexer and stream errors
var (
	ErrMarketNotFound     = errors.New("market not found")
	ErrStreamExists       = errors.New("stream already exists")
	ErrIndexerUnavailable = errors.New("indexer unavailable")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrNetwork            = errors.New("network error")
)
