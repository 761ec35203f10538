package domain

import (
	"net/http"
	"strings"
)

// Error codes that override the HTTP status.
const (
	codeInsufficientQuota  = "insufficient_quota"
	codeBillingHardLimit   = "billing_hard_limit_reached"
	codeInvalidAPIKey      = "invalid_api_key"
	codeContextLengthLimit = "context_length_exceeded"
)

// ClassifyHTTPStatus maps an HTTP status and provider error code to an ErrorKind.
// A 429 normally means "slow down", but an exhausted quota also answers 429 and
// will not recover by waiting.
func ClassifyHTTPStatus(status int, code string) ErrorKind {
	switch strings.ToLower(code) {
	case codeInsufficientQuota, codeBillingHardLimit:
		return ErrorKindQuotaExhausted
	case codeInvalidAPIKey:
		return ErrorKindAuth
	case codeContextLengthLimit:
		return ErrorKindMalformedRequest
	}

	switch {
	case status == 0:
		return ErrorKindNetwork
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrorKindAuth
	case status == http.StatusTooManyRequests:
		return ErrorKindRateLimit
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ErrorKindTimeout
	case status >= 500:
		return ErrorKindServer
	case status >= 400:
		return ErrorKindMalformedRequest
	}
	return ErrorKindMalformedResponse
}
