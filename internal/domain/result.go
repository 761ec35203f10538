package domain

// Status is the normalized outcome of a single provider call.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusRetryableFailure Status = "retryable_failure"
	StatusFatalFailure     Status = "fatal_failure"
)

// ErrorKind classifies why a provider call failed.
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindAuth                ErrorKind = "auth"
	ErrorKindRateLimit           ErrorKind = "rate_limit"
	ErrorKindTimeout             ErrorKind = "timeout"
	ErrorKindNetwork             ErrorKind = "network"
	ErrorKindServer              ErrorKind = "server"
	ErrorKindMalformedRequest    ErrorKind = "malformed_request"
	ErrorKindMalformedResponse   ErrorKind = "malformed_response"
	ErrorKindQuotaExhausted      ErrorKind = "quota_exhausted"
	ErrorKindMissingCredential   ErrorKind = "missing_credential"
	ErrorKindInvalidInput        ErrorKind = "invalid_input"
	ErrorKindNoProviderAvailable ErrorKind = "no_provider_available"
	ErrorKindInternal            ErrorKind = "internal"
)

// Status returns the outcome a failure of this kind maps to.
func (k ErrorKind) Status() Status {
	switch k {
	case ErrorKindNone:
		return StatusSuccess
	case ErrorKindRateLimit, ErrorKindTimeout, ErrorKindNetwork, ErrorKindServer:
		return StatusRetryableFailure
	default:
		return StatusFatalFailure
	}
}

// ProviderResult is the tagged outcome produced by every provider adapter.
type ProviderResult struct {
	ProviderID string
	Status     Status
	Value      map[string]any
	ErrorKind  ErrorKind
	Err        error
	TokensUsed int
	Cost       Cost
}

// Succeeded builds a success result.
func Succeeded(providerID string, value map[string]any, tokens int, cost Cost) ProviderResult {
	return ProviderResult{
		ProviderID: providerID,
		Status:     StatusSuccess,
		Value:      value,
		TokensUsed: tokens,
		Cost:       cost,
	}
}

// Failed builds a failure whose status is derived from kind.
func Failed(providerID string, kind ErrorKind, err error) ProviderResult {
	status := kind.Status()
	if status == StatusSuccess {
		status = StatusFatalFailure
		kind = ErrorKindInternal
	}
	return ProviderResult{
		ProviderID: providerID,
		Status:     status,
		ErrorKind:  kind,
		Err:        err,
	}
}

// OK reports whether the call succeeded.
func (r ProviderResult) OK() bool {
	return r.Status == StatusSuccess
}

// Retryable reports whether the same provider may be tried again.
func (r ProviderResult) Retryable() bool {
	return r.Status == StatusRetryableFailure
}
