package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// errLocalRateLimit is returned when the client-side budget is spent; no request is sent.
var errLocalRateLimit = errors.New("client-side request budget exhausted")

// generativeProvider talks to an OpenAI-compatible chat completion API.
type generativeProvider struct {
	def         domain.ProviderDefinition
	credentials ports.CredentialChecker
	httpClient  *http.Client
	limiter     *rate.Limiter
}

func newGenerativeProvider(def domain.ProviderDefinition, credentials ports.CredentialChecker, client *http.Client) *generativeProvider {
	p := &generativeProvider{
		def:         def,
		credentials: credentials,
		httpClient:  client,
	}
	if def.RequestsPerMinute > 0 {
		burst := max(1, def.RequestsPerMinute/10)
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(def.RequestsPerMinute)), burst)
	}
	return p
}

func (p *generativeProvider) ID() string {
	return p.def.ID
}

// Call sends one chat completion. The orchestrator owns retries; Call makes exactly one attempt.
func (p *generativeProvider) Call(ctx context.Context, req ports.ProviderRequest) domain.ProviderResult {
	secret, err := p.credentials.Secret(p.def.ID)
	if err != nil || secret == "" {
		return domain.Failed(p.def.ID, domain.ErrorKindMissingCredential, err)
	}
	if p.limiter != nil && !p.limiter.Allow() {
		return domain.Failed(p.def.ID, domain.ErrorKindRateLimit, errLocalRateLimit)
	}

	messages, err := renderPromptMessages(p.def, req)
	if err != nil {
		return domain.Failed(p.def.ID, domain.ErrorKindMalformedRequest, err)
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := p.client(secret).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       defaultString(p.def.ModelID, openai.GPT4oMini),
		Messages:    chatMessages,
		MaxTokens:   defaultInt(p.def.MaxTokens, domain.DefaultMaxTokens),
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		perr := ClassifyError(p.def.ID, err)
		return domain.Failed(p.def.ID, perr.Kind, perr)
	}
	if len(resp.Choices) == 0 {
		return domain.Failed(p.def.ID, domain.ErrorKindMalformedResponse,
			fmt.Errorf("%w: no choices", domain.ErrMalformedResponse))
	}

	value, err := parseFeatureValue(req.Feature, resp.Choices[0].Message.Content)
	if err != nil {
		return domain.Failed(p.def.ID, domain.ErrorKindMalformedResponse, err)
	}

	tokens := resp.Usage.TotalTokens
	return domain.Succeeded(p.def.ID, value, tokens, domain.CostForTokens(tokens, p.def.CostPer1KTokens))
}

// Probe lists models, the cheapest authenticated call the API offers.
func (p *generativeProvider) Probe(ctx context.Context, secret string) error {
	if _, err := p.client(secret).ListModels(ctx); err != nil {
		return ClassifyError(p.def.ID, err)
	}
	return nil
}

func (p *generativeProvider) client(secret string) *openai.Client {
	cfg := openai.DefaultConfig(secret)
	if p.def.Endpoint != "" {
		cfg.BaseURL = p.def.Endpoint
	}
	if org := os.Getenv(p.def.OrgEnvVar); p.def.OrgEnvVar != "" && org != "" {
		cfg.OrgID = org
	}
	if p.httpClient != nil {
		cfg.HTTPClient = p.httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

var (
	_ ports.Provider         = (*generativeProvider)(nil)
	_ ports.CredentialProber = (*generativeProvider)(nil)
)
