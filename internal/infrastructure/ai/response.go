package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/doeshing/ridepilot/internal/domain"
)

// parseFeatureValue decodes model output into a result map and checks the feature's result key.
func parseFeatureValue(feature domain.Feature, content string) (map[string]any, error) {
	body := strings.TrimSpace(content)
	if block := extractCodeBlock(body); block != "" {
		body = block
	}
	if body == "" {
		return nil, fmt.Errorf("%w: empty content", domain.ErrMalformedResponse)
	}

	var value map[string]any
	if err := json.Unmarshal([]byte(body), &value); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if key := feature.ResultKey(); key != "" {
		if _, ok := value[key]; !ok {
			return nil, fmt.Errorf("%w: missing %q", domain.ErrMalformedResponse, key)
		}
	}
	return value, nil
}

// extractCodeBlock returns the body of the first fenced block, dropping a language tag.
func extractCodeBlock(content string) string {
	start := strings.Index(content, "```")
	if start == -1 {
		return ""
	}
	suffix := content[start+3:]
	end := strings.Index(suffix, "```")
	if end == -1 {
		return ""
	}

	block := suffix[:end]
	if nl := strings.Index(block, "\n"); nl != -1 {
		tag := strings.TrimSpace(block[:nl])
		if tag == "" || !strings.ContainsAny(tag, "{[") {
			block = block[nl+1:]
		}
	}
	return strings.TrimSpace(block)
}
