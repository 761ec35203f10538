package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doeshing/ridepilot/internal/domain"
)

// ClassifyError turns a transport error into a *domain.ProviderError using only
// structured metadata (error types, status codes, error codes).
func ClassifyError(providerID string, err error) *domain.ProviderError {
	if err == nil {
		return nil
	}

	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return perr
	}

	wrap := func(kind domain.ErrorKind, status int, code string) *domain.ProviderError {
		return &domain.ProviderError{ProviderID: providerID, Kind: kind, HTTPStatus: status, Code: code, Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiCode(apiErr)
		return wrap(domain.ClassifyHTTPStatus(apiErr.HTTPStatusCode, code), apiErr.HTTPStatusCode, code)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return wrap(domain.ClassifyHTTPStatus(reqErr.HTTPStatusCode, ""), reqErr.HTTPStatusCode, "")
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return wrap(domain.ErrorKindTimeout, 0, "")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return wrap(domain.ErrorKindTimeout, 0, "")
		}
		return wrap(domain.ErrorKindNetwork, 0, "")
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, domain.ErrMalformedResponse) {
		return wrap(domain.ErrorKindMalformedResponse, 0, "")
	}
	if errors.Is(err, domain.ErrMissingCredential) {
		return wrap(domain.ErrorKindMissingCredential, 0, "")
	}
	var inputErr *domain.InvalidInputError
	if errors.As(err, &inputErr) {
		return wrap(domain.ErrorKindMalformedRequest, 0, "")
	}
	return wrap(domain.ErrorKindInternal, 0, "")
}

func apiCode(apiErr *openai.APIError) string {
	switch code := apiErr.Code.(type) {
	case string:
		if code != "" {
			return code
		}
	case float64:
		return fmt.Sprintf("%.0f", code)
	case nil:
	default:
		return fmt.Sprint(code)
	}
	// some deployments only populate the type
	return apiErr.Type
}
