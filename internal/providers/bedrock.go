package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
)

const DefaultBedrockRegion = "us-west-2"

// BedrockProvider runs inference through the Amazon Bedrock Converse API.
// Credentials come from the standard AWS chain (env, profile, IMDS).
type BedrockProvider struct {
	client bedrockConverseAPI
	model  string
	region string
}

// bedrockConverseAPI is the subset of the runtime client used here,
// extracted so tests can stub inference.
type bedrockConverseAPI interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, in *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

func newBedrockFromConfig(config map[string]interface{}) (Provider, error) {
	region := optString(config, "region_name", DefaultBedrockRegion)
	model := optString(config, "model_id", DefaultBedrockModel)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &BedrockProvider{
		client: bedrockruntime.NewFromConfig(awsCfg),
		model:  model,
		region: region,
	}, nil
}

func (p *BedrockProvider) Name() string { return "bedrock" }

func (p *BedrockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	system, messages, err := toBedrockMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	out, err := p.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(p.modelID(req)),
		Messages:        messages,
		System:          system,
		ToolConfig:      toBedrockToolConfig(req.Tools),
		InferenceConfig: toBedrockInference(req.Options),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: converse: %w", err)
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return &ChatResponse{}, nil
	}
	return bedrockMessageToResponse(msg.Value)
}

func (p *BedrockProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error) {
	system, messages, err := toBedrockMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	out, err := p.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(p.modelID(req)),
		Messages:        messages,
		System:          system,
		ToolConfig:      toBedrockToolConfig(req.Tools),
		InferenceConfig: toBedrockInference(req.Options),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: converse stream: %w", err)
	}

	stream := out.GetStream()
	defer stream.Close()

	var (
		content  strings.Builder
		thinking strings.Builder
		partials []bedrockPartialCall
	)
	// blockIndex -> partials index for in-flight tool-use blocks.
	blockToPartial := map[int32]int{}

	for event := range stream.Events() {
		switch e := event.(type) {
		case *brtypes.ConverseStreamOutputMemberContentBlockStart:
			if start, ok := e.Value.Start.(*brtypes.ContentBlockStartMemberToolUse); ok {
				idx := int32(0)
				if e.Value.ContentBlockIndex != nil {
					idx = *e.Value.ContentBlockIndex
				}
				blockToPartial[idx] = len(partials)
				partials = append(partials, bedrockPartialCall{
					id:   aws.ToString(start.Value.ToolUseId),
					name: aws.ToString(start.Value.Name),
				})
			}

		case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
			switch d := e.Value.Delta.(type) {
			case *brtypes.ContentBlockDeltaMemberText:
				content.WriteString(d.Value)
				if onChunk != nil {
					onChunk(StreamChunk{Content: d.Value})
				}
			case *brtypes.ContentBlockDeltaMemberReasoningContent:
				if rt, ok := d.Value.(*brtypes.ReasoningContentBlockDeltaMemberText); ok {
					thinking.WriteString(rt.Value)
					if onChunk != nil {
						onChunk(StreamChunk{Thinking: rt.Value})
					}
				}
			case *brtypes.ContentBlockDeltaMemberToolUse:
				idx := int32(0)
				if e.Value.ContentBlockIndex != nil {
					idx = *e.Value.ContentBlockIndex
				}
				if pi, ok := blockToPartial[idx]; ok && d.Value.Input != nil {
					partials[pi].args.WriteString(*d.Value.Input)
				}

			}

		case *brtypes.ConverseStreamOutputMemberMessageStop:
			// stopReason available here if ever needed

		case *brtypes.ConverseStreamOutputMemberMetadata:
			if e.Value.Usage != nil {
				slog.Debug("bedrock usage",
					"input_tokens", aws.ToInt32(e.Value.Usage.InputTokens),
					"output_tokens", aws.ToInt32(e.Value.Usage.OutputTokens))
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("bedrock: stream: %w", err)
	}
	if onChunk != nil {
		onChunk(StreamChunk{Done: true})
	}

	resp := &ChatResponse{
		Content:  content.String(),
		Thinking: thinking.String(),
	}
	for _, part := range partials {
		args, err := decodeJSONArgs(part.args.String())
		if err != nil {
			return nil, fmt.Errorf("bedrock: tool call %s: %w", part.name, err)
		}
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: part.id, Name: part.name, Arguments: args})
	}
	return resp, nil
}

func (p *BedrockProvider) modelID(req ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}

// toBedrockMessages splits out the system prompt and converts the rest.
// Tool result messages (role "tool") fold into user messages with a
// toolResult block, which is how the Converse API represents them.
func toBedrockMessages(messages []Message) ([]brtypes.SystemContentBlock, []brtypes.Message, error) {
	var system []brtypes.SystemContentBlock
	var out []brtypes.Message

	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Content})

		case "assistant":
			var blocks []brtypes.ContentBlock
			if m.Content != "" {
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: m.Content})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     document.NewLazyDocument(tc.Arguments),
					},
				})
			}
			if len(blocks) == 0 {
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: ""})
			}
			out = append(out, brtypes.Message{Role: brtypes.ConversationRoleAssistant, Content: blocks})

		case "tool":
			block := &brtypes.ContentBlockMemberToolResult{
				Value: brtypes.ToolResultBlock{
					ToolUseId: aws.String(m.ToolCallID),
					Content: []brtypes.ToolResultContentBlock{
						&brtypes.ToolResultContentBlockMemberText{Value: m.Content},
					},
				},
			}
			// Consecutive tool results merge into one user message.
			if n := len(out); n > 0 && out[n-1].Role == brtypes.ConversationRoleUser && isToolResultMessage(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
			} else {
				out = append(out, brtypes.Message{
					Role:    brtypes.ConversationRoleUser,
					Content: []brtypes.ContentBlock{block},
				})
			}

		case "user":
			out = append(out, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
			})

		default:
			return nil, nil, fmt.Errorf("bedrock: unsupported message role %q", m.Role)
		}
	}
	return system, out, nil
}

func isToolResultMessage(m brtypes.Message) bool {
	for _, b := range m.Content {
		if _, ok := b.(*brtypes.ContentBlockMemberToolResult); ok {
			return true
		}
	}
	return false
}

func toBedrockToolConfig(tools []ToolDefinition) *brtypes.ToolConfiguration {
	if len(tools) == 0 {
		return nil
	}
	cfg := &brtypes.ToolConfiguration{}
	for _, t := range CleanToolSchemas("bedrock", tools) {
		cfg.Tools = append(cfg.Tools, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(t.Function.Name),
				Description: aws.String(t.Function.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(t.Function.Parameters),
				},
			},
		})
	}
	return cfg
}

func toBedrockInference(opts map[string]interface{}) *brtypes.InferenceConfiguration {
	cfg := &brtypes.InferenceConfiguration{}
	set := false
	if v, ok := optInt(opts, "max_tokens"); ok {
		cfg.MaxTokens = aws.Int32(int32(v))
		set = true
	}
	if v, ok := optFloat(opts, "temperature"); ok {
		cfg.Temperature = aws.Float32(float32(v))
		set = true
	}
	if v, ok := optFloat(opts, "top_p"); ok {
		cfg.TopP = aws.Float32(float32(v))
		set = true
	}
	if !set {
		return nil
	}
	return cfg
}

func bedrockMessageToResponse(msg brtypes.Message) (*ChatResponse, error) {
	resp := &ChatResponse{}
	var content strings.Builder

	for _, block := range msg.Content {
		switch b := block.(type) {
		case *brtypes.ContentBlockMemberText:
			content.WriteString(b.Value)
		case *brtypes.ContentBlockMemberReasoningContent:
			if rt, ok := b.Value.(*brtypes.ReasoningContentBlockMemberReasoningText); ok {
				resp.Thinking += aws.ToString(rt.Value.Text)
			}
		case *brtypes.ContentBlockMemberToolUse:
			args := map[string]interface{}{}
			if b.Value.Input != nil {
				if err := b.Value.Input.UnmarshalSmithyDocument(&args); err != nil {
					return nil, fmt.Errorf("bedrock: tool input for %s: %w", aws.ToString(b.Value.Name), err)
				}
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        aws.ToString(b.Value.ToolUseId),
				Name:      aws.ToString(b.Value.Name),
				Arguments: args,
			})
		}
	}
	resp.Content = content.String()
	return resp, nil
}

type bedrockPartialCall struct {
	id   string
	name string
	args strings.Builder
}
