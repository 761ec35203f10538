package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/doeshing/ridepilot/internal/domain"
)

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string { return "net" }
func (e timeoutErr) Timeout() bool { return e.timeout }
func (e timeoutErr) Temporary() bool { return false }

var _ net.Error = timeoutErr{}

func TestClassifyError(t *testing.T) {
	syntaxErr := &json.SyntaxError{Offset: 1}

	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"api auth", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, domain.ErrorKindAuth},
		{"api quota code", &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"}, domain.ErrorKindQuotaExhausted},
		{"api quota type only", &openai.APIError{HTTPStatusCode: 429, Type: "insufficient_quota"}, domain.ErrorKindQuotaExhausted},
		{"api rate limit", &openai.APIError{HTTPStatusCode: 429, Code: "rate_limit_exceeded"}, domain.ErrorKindRateLimit},
		{"request error 502", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, domain.ErrorKindServer},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), domain.ErrorKindTimeout},
		{"net timeout", timeoutErr{timeout: true}, domain.ErrorKindTimeout},
		{"net refused", timeoutErr{timeout: false}, domain.ErrorKindNetwork},
		{"json", syntaxErr, domain.ErrorKindMalformedResponse},
		{"unknown", errors.New("mystery"), domain.ErrorKindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := ClassifyError("openai", tt.err)
			assert.Equal(t, tt.want, perr.Kind)
			assert.Equal(t, "openai", perr.ProviderID)
			assert.ErrorIs(t, perr, tt.err)
		})
	}
	assert.Nil(t, ClassifyError("openai", nil))
}

func TestClassifyError_KeepsProviderError(t *testing.T) {
	original := &domain.ProviderError{ProviderID: "maps", Kind: domain.ErrorKindRateLimit}
	assert.Same(t, original, ClassifyError("openai", fmt.Errorf("wrap: %w", original)))
}
