package pipeline

import "errors"

var (
	// Source errors
	ErrSourceUnavailable     = errors.New("pipeline: storefront temporarily unavailable")
	ErrSourceRequestFailed   = errors.New("pipeline: storefront request failed")
	ErrSourceInvalidResponse = errors.New("pipeline: invalid storefront response")

	// Sink errors
	ErrSinkPublishFailed = errors.New("pipeline: sink publish failed")

	// Schema errors. Both abort a run: publishing a combined table with a
	// silently missing column would corrupt every report built on it.
	ErrJoinKeyMissing        = errors.New("pipeline: join key column missing")
	ErrCombinedColumnMissing = errors.New("pipeline: combined table column missing")
)
