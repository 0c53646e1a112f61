package core

import "errors"

// DomainError is the single error type of the domain layer. Code carries
// the taxonomy, Module names the component that raised it.
type DomainError struct {
	Code    string
	Message string
	Module  string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds a DomainError for the given module and code.
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{Module: module, Code: code, Message: message}
}

// GetDomainError unwraps err into a *DomainError, nil when it is not one.
func GetDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// Error codes.
const (
	ErrorCodeNotFound            = "NOT_FOUND"                  // resource absent
	ErrorCodeInvalidRequest      = "INVALID_REQUEST"            // caller error, surfaced directly
	ErrorCodeMissingEmbedding    = "MISSING_EVENT_OR_EMBEDDING" // similar-to-event target absent or unembedded
	ErrorCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"       // store/index read failure
	ErrorCodeImpressionLog       = "IMPRESSION_LOG_FAILURE"     // reported, never propagated
)

// Module names.
const (
	ModuleStore   = "store"
	ModuleVector  = "vector"
	ModuleRecall  = "recall"
	ModuleEngine  = "engine"
	ModuleBias    = "bias"
	ModuleMetrics = "metrics"
)

func IsNotFound(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == ErrorCodeNotFound
}

func IsInvalidRequest(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == ErrorCodeInvalidRequest
}

func IsMissingEventOrEmbedding(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == ErrorCodeMissingEmbedding
}

func IsUpstreamUnavailable(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == ErrorCodeUpstreamUnavailable
}

// ErrStoreNotFound is the sentinel for key-value misses.
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")
