package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const maxStepRunes = 60

// LoadingSteps returns short progress lines for a dashboard analysis topic.
// The static list is returned when generation is unavailable or fails.
func (e *Enhancer) LoadingSteps(ctx context.Context, topic string) []string {
	topic = strings.TrimSpace(topic)
	if e.models == nil || topic == "" {
		return DefaultLoadingSteps()
	}

	steps, err := e.generateSteps(ctx, topic)
	if err != nil {
		e.logger.Warn("loading step generation failed, using defaults", zap.String("topic", topic), zap.Error(err))
		return DefaultLoadingSteps()
	}
	return steps
}

func DefaultLoadingSteps() []string {
	return append([]string(nil), defaultLoadingSteps...)
}

func (e *Enhancer) generateSteps(ctx context.Context, topic string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: fmt.Sprintf("Topic: %s", topic)}}, Role: "user"},
	}

	resp, err := e.models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: loadingStepsInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	var raw []string
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Text())), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal loading steps: %w", err)
	}

	var steps []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if r := []rune(s); len(r) > maxStepRunes {
			s = string(r[:maxStepRunes])
		}
		steps = append(steps, s)
		if len(steps) == 6 {
			break
		}
	}
	if len(steps) < 4 {
		return nil, fmt.Errorf("expected at least 4 loading steps, got %d", len(steps))
	}
	return steps, nil
}
