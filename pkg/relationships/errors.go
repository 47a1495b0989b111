package relationships

import "errors"

var (
	// ErrContractViolation marks a fetch that reported neither a record nor an error
	ErrContractViolation = errors.New("fetcher returned no record and no error")
)
