// Package oracle asks a Claude model to decompose a free-text request
// into workflow steps when no rule matches. It backs the decomposer's
// Oracle interface; the rest of the core never talks to the API.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/brightdesk/workflow/internal/decompose"
	"github.com/brightdesk/workflow/pkg/models"
)

const decomposePrompt = `You decompose a business chatbot request into workflow steps.

Respond with ONLY a JSON array. Each element:
{
  "name": "short step name",
  "description": "what the step does",
  "action": "capability name, one of: %s",
  "params": {},
  "depends_on": ["names of earlier steps this one needs"]
}

Rules:
- Use only the listed capabilities.
- Keep the list minimal; independent steps must not depend on each other.
- If the request is a single action, return a one-element array.

Request: %s`

// Config describes how to reach the model.
type Config struct {
	// Model is the Claude model to use; empty selects a default.
	Model anthropic.Model
	// APIKey overrides the ANTHROPIC_API_KEY environment variable.
	APIKey string
	// UseBedrock routes calls through AWS Bedrock instead of the API.
	UseBedrock bool
	// AWSRegion is the Bedrock region.
	AWSRegion string
	// AWSProfile is the optional shared-config profile for Bedrock.
	AWSProfile string
	// MaxTokens bounds the response size; zero selects a default.
	MaxTokens int64
}

// Claude implements decompose.Oracle against the Anthropic API.
type Claude struct {
	client       anthropic.Client
	model        anthropic.Model
	maxTokens    int64
	capabilities []string
}

// New creates a Claude oracle advertising the given capability names to
// the model.
func New(cfg Config, capabilities []string) (*Claude, error) {
	var opts []option.RequestOption

	if cfg.UseBedrock {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaude3_5Haiku20241022
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	return &Claude{
		client:       anthropic.NewClient(opts...),
		model:        model,
		maxTokens:    maxTokens,
		capabilities: capabilities,
	}, nil
}

// Decompose asks the model for a step list. Any malformed response is an
// error; the decomposer treats oracle errors as a fall-through, never a
// hard failure.
func (c *Claude) Decompose(ctx context.Context, request string, rc models.RequestContext) ([]decompose.OracleStep, error) {
	prompt := fmt.Sprintf(decomposePrompt, strings.Join(c.capabilities, ", "), request)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decomposition call: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	return ParseSteps(text.String())
}

// ParseSteps extracts the JSON array from a model response, tolerating
// prose around it.
func ParseSteps(response string) ([]decompose.OracleStep, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in oracle response")
	}

	var steps []decompose.OracleStep
	if err := json.Unmarshal([]byte(response[start:end+1]), &steps); err != nil {
		return nil, fmt.Errorf("parsing oracle steps: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("oracle returned an empty step list")
	}
	for i, s := range steps {
		if s.Name == "" || s.Action == "" {
			return nil, fmt.Errorf("oracle step %d: missing name or action", i)
		}
	}
	return steps, nil
}
