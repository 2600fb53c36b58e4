package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
	"github.com/yairfalse/netpilot/pkg/types"
)

const classifyPrompt = `You route questions about a network device inventory.
Answer with a JSON array only, no prose. Each element is
{"intent": one of "list","summary","mismatches","report","group_by",
 "score": number between 0 and 1,
 "slots": object of strings}.
Known slots: "by" (vendor, role, site, os_family, vlan), "value",
"format" (table, json, markdown, html), "export" (markdown, html, json),
"identity_check" ("true" when the user asks to verify live devices),
"view" ("vlans" for a VLAN table).
Return an empty array when the question is not about the inventory.`

// ClaudeClassifier asks a Claude model to classify the utterance
type ClaudeClassifier struct {
	client anthropic.Client
	model  string
}

// NewClaudeClassifier creates a classifier using apiKey. Extra request
// options are passed to the SDK client.
func NewClaudeClassifier(apiKey, model string, opts ...anthropicopt.RequestOption) (*ClaudeClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("claude.api_key (or ANTHROPIC_API_KEY) is required for the claude classifier")
	}
	opts = append([]anthropicopt.RequestOption{anthropicopt.WithAPIKey(apiKey)}, opts...)
	return &ClaudeClassifier{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Classify implements Classifier
func (c *ClaudeClassifier) Classify(ctx context.Context, utterance string) ([]types.Candidate, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 512,
		System:    []anthropic.TextBlockParam{{Text: classifyPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(utterance)),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "claude classification request")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return parseCandidates(text.String())
}

// parseCandidates decodes the model answer, tolerating a fenced code block
func parseCandidates(answer string) ([]types.Candidate, error) {
	answer = strings.TrimSpace(answer)
	if start := strings.IndexByte(answer, '['); start >= 0 {
		if end := strings.LastIndexByte(answer, ']'); end > start {
			answer = answer[start : end+1]
		}
	}

	var raw []struct {
		Intent string            `json:"intent"`
		Score  float64           `json:"score"`
		Slots  map[string]string `json:"slots"`
	}
	if err := json.Unmarshal([]byte(answer), &raw); err != nil {
		return nil, errors.Wrap(err, "decode classifier answer")
	}

	out := make([]types.Candidate, 0, len(raw))
	for _, r := range raw {
		intent := types.Intent(r.Intent)
		if !intent.Valid() {
			return nil, fmt.Errorf("classifier returned unknown intent %q", r.Intent)
		}
		if r.Score < 0 || r.Score > 1 {
			return nil, fmt.Errorf("classifier returned score %v outside [0,1]", r.Score)
		}
		out = append(out, types.Candidate{Intent: intent, Score: r.Score, Slots: r.Slots})
	}
	return out, nil
}
