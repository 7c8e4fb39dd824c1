// Package modelexec provides model-execution backends: the Anthropic
// API (directly or via AWS Bedrock) for hosted models and an Ollama
// server for local ones, behind the orchestrator's executor interface.
package modelexec

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/rfoley/loom/internal/config"
	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/internal/orchestrator"
)

const anthropicMaxTokens = 8192

// AnthropicExecutor executes tasks against the Anthropic Messages API.
type AnthropicExecutor struct {
	client  anthropic.Client
	bedrock bool
}

// NewAnthropicExecutor creates an executor from Anthropic settings.
// With UseBedrock set, credentials come from the AWS SDK config chain;
// otherwise the API key is required (falling back to the
// ANTHROPIC_API_KEY environment variable).
func NewAnthropicExecutor(cfg config.Anthropic) (*AnthropicExecutor, error) {
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
			return nil, loomerrors.New(loomerrors.CodeValidation, "anthropic api key is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &AnthropicExecutor{
		client:  anthropic.NewClient(opts...),
		bedrock: cfg.UseBedrock,
	}, nil
}

// Execute sends the task input as a single user message and reports
// the billed token counts from the response usage block.
func (e *AnthropicExecutor) Execute(ctx context.Context, req orchestrator.ExecRequest) (*orchestrator.ExecResult, error) {
	model := anthropic.Model(req.Model)
	if e.bedrock {
		model = translateModelForBedrock(model)
	}

	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic call for task %s: %w", req.TaskID, err)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}

	return &orchestrator.ExecResult{
		TokensInput:  resp.Usage.InputTokens,
		TokensOutput: resp.Usage.OutputTokens,
		Result:       text,
	}, nil
}

// systemPrompt frames the agent's role for a stage task.
func systemPrompt(req orchestrator.ExecRequest) string {
	return fmt.Sprintf("You are %s, an agent working on stage %d of a software delivery project. Complete the work described by the user and report the result.",
		req.AgentName, req.Stage)
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeOpus4_5_20251101:  "us.anthropic.claude-opus-4-5-20251101-v1:0",
		anthropic.ModelClaudeSonnet4_20250514:  "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:  "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}
