package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// renderPromptMessages expands the provider's prompt templates with request data and ensures a user message exists.
func renderPromptMessages(def domain.ProviderDefinition, req ports.ProviderRequest) ([]domain.PromptMessage, error) {
	data, err := buildTemplateData(req)
	if err != nil {
		return nil, err
	}
	messages := def.Prompt
	if len(messages) == 0 {
		messages = defaultTemplateMessages()
	}

	rendered := make([]domain.PromptMessage, 0, len(messages)+1)
	for _, msg := range messages {
		content, err := executeTemplate(msg.Content, data)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, domain.PromptMessage{
			Role:    strings.ToLower(msg.Role),
			Content: strings.TrimSpace(content),
		})
	}

	if !hasUserMessage(rendered) {
		rendered = append(rendered, domain.PromptMessage{
			Role:    "user",
			Content: data.Payload,
		})
	}
	return rendered, nil
}

type templateData struct {
	Feature   string
	ResultKey string
	Payload   string
	Context   string
	Guidance  string
}

func buildTemplateData(req ports.ProviderRequest) (templateData, error) {
	payload, err := json.MarshalIndent(req.Payload, "", "  ")
	if err != nil {
		return templateData{}, fmt.Errorf("encode payload: %w", err)
	}
	return templateData{
		Feature:   string(req.Feature),
		ResultKey: req.Feature.ResultKey(),
		Payload:   string(payload),
		Context:   strings.TrimSpace(req.Context),
		Guidance:  featureGuidance[req.Feature],
	}, nil
}

var featureGuidance = map[domain.Feature]string{
	domain.FeatureMatch:          `Rank the drivers for the rider. Return {"matches":[{"driver_id":string,"score":number,"eta_minutes":number}]} best first.`,
	domain.FeaturePrice:          `Price the trip. Return {"price":number,"surge_multiplier":number,"currency":"USD","reason":string}.`,
	domain.FeatureRoute:          `Rank the candidate routes. Return {"ranked_routes":[{"index":number,"score":number,"reason":string}],"recommended":number}.`,
	domain.FeatureDemandForecast: `Forecast ride requests for the zone and hour. Return {"predicted_demand":number,"confidence":number,"drivers_needed":number}.`,
	domain.FeatureAnalytics:      `Summarize the metrics. Return {"insights":[string],"summary":string}.`,
	domain.FeatureChat:           `Answer the operator. Return {"reply":string}.`,
}

func executeTemplate(raw string, data templateData) (string, error) {
	tmpl, err := template.New("prompt").Parse(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func hasUserMessage(messages []domain.PromptMessage) bool {
	for _, msg := range messages {
		if strings.EqualFold(msg.Role, "user") {
			return true
		}
	}
	return false
}

func defaultTemplateMessages() []domain.PromptMessage {
	return []domain.PromptMessage{
		{
			Role: "system",
			Content: `You are the decision engine of a rideshare operations console.
Feature: {{.Feature}}
{{.Guidance}}
Respond with exactly one JSON object that contains the "{{.ResultKey}}" field. No prose outside the JSON.`,
		},
		{
			Role: "user",
			Content: `{{if .Context}}Recent interactions for this feature:
{{.Context}}

{{end}}Input:
{{.Payload}}`,
		},
	}
}
