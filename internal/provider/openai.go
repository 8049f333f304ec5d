package provider

import (
	"context"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/flitsinc/go-assistant/internal/history"
)

// OpenAIOptions configures the completion-service client.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// ImageGeneration enables the service-side image generation tool with
	// partial previews.
	ImageGeneration bool
}

// OpenAI streams turns through the OpenAI Responses API.
type OpenAI struct {
	client openai.Client
	opts   OpenAIOptions
}

func NewOpenAI(opts OpenAIOptions) *OpenAI {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &OpenAI{client: openai.NewClient(reqOpts...), opts: opts}
}

func (p *OpenAI) Stream(ctx context.Context, req Request) (Stream, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(p.opts.Model),
		Store: openai.Bool(false),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: buildInput(req.Input)},
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.ReasoningEffort != "" {
		params.Reasoning = shared.ReasoningParam{
			Effort: shared.ReasoningEffort(req.ReasoningEffort),
		}
		if req.ReasoningSummary != "" {
			params.Reasoning.Summary = shared.ReasoningSummary(req.ReasoningSummary)
		}
		params.Include = []responses.ResponseIncludable{"reasoning.encrypted_content"}
	}
	extra := map[string]any{}
	if req.Verbosity != "" {
		extra["text"] = map[string]any{"verbosity": req.Verbosity}
	}
	if req.PromptCacheKey != "" {
		extra["prompt_cache_key"] = req.PromptCacheKey
	}
	if len(extra) > 0 {
		params.SetExtraFields(extra)
	}

	toolParams := make([]responses.ToolUnionParam, 0, len(req.Tools)+1)
	for _, schema := range req.Tools {
		fn := responses.ToolParamOfFunction(schema.Name, schema.Parameters, schema.Strict)
		if fn.OfFunction != nil && schema.Description != "" {
			fn.OfFunction.Description = openai.String(schema.Description)
		}
		toolParams = append(toolParams, fn)
	}
	if p.opts.ImageGeneration {
		toolParams = append(toolParams, responses.ToolUnionParam{
			OfImageGeneration: &responses.ToolImageGenerationParam{
				PartialImages: openai.Int(2),
			},
		})
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}

	return &openAIStream{inner: p.client.Responses.NewStreaming(ctx, params)}, nil
}

// buildInput converts transcript entries into Responses input items.
// Reasoning entries are not replayed: the service reconstructs reasoning from
// its encrypted include and stale reasoning items are rejected.
func buildInput(entries []history.Entry) responses.ResponseInputParam {
	items := make(responses.ResponseInputParam, 0, len(entries))
	for _, entry := range entries {
		switch {
		case entry.Type == "function_call":
			items = append(items, responses.ResponseInputItemParamOfFunctionCall(
				entry.Arguments, entry.CallID, entry.Name))
		case entry.Type == "function_call_output":
			items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(
				entry.CallID, entry.Output))
		case entry.Type == "reasoning":
			// dropped on replay
		case entry.Role == "assistant":
			if text := joinText(entry.Content); text != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(
					text, responses.EasyInputMessageRoleAssistant))
			}
		default:
			content := make(responses.ResponseInputMessageContentListParam, 0, len(entry.Content))
			for _, part := range entry.Content {
				switch part.Type {
				case "input_image":
					content = append(content, responses.ResponseInputContentUnionParam{
						OfInputImage: &responses.ResponseInputImageParam{
							Detail:   responses.ResponseInputImageDetailAuto,
							ImageURL: openai.String(part.ImageURL),
						},
					})
				default:
					if part.Text != "" {
						content = append(content, responses.ResponseInputContentUnionParam{
							OfInputText: &responses.ResponseInputTextParam{Text: part.Text},
						})
					}
				}
			}
			if len(content) > 0 {
				items = append(items, responses.ResponseInputItemParamOfMessage(
					content, responses.EasyInputMessageRoleUser))
			}
		}
	}
	return items
}

func joinText(parts []history.ContentPart) string {
	var b strings.Builder
	for _, part := range parts {
		if part.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// responseEventStream is the slice of the SDK stream we consume.
type responseEventStream interface {
	Next() bool
	Current() responses.ResponseStreamEventUnion
	Err() error
	Close() error
}

type openAIStream struct {
	inner responseEventStream
	cur   Notification
}

func (s *openAIStream) Next() bool {
	if !s.inner.Next() {
		return false
	}
	s.cur = convertEvent(s.inner.Current())
	return true
}

func (s *openAIStream) Current() Notification { return s.cur }
func (s *openAIStream) Err() error            { return s.inner.Err() }
func (s *openAIStream) Close() error          { return s.inner.Close() }

func convertEvent(event responses.ResponseStreamEventUnion) Notification {
	n := Notification{
		Type:            event.Type,
		Delta:           event.Delta.OfString,
		Text:            event.Text,
		ItemID:          event.ItemID,
		SequenceNumber:  event.SequenceNumber,
		PartialImageB64: event.PartialImageB64,
	}
	switch event.Type {
	case "response.output_item.added", "response.output_item.done":
		item := convertItem(event.Item)
		n.Item = &item
	case "response.completed":
		resp := Response{
			Usage: Usage{
				InputTokens:     event.Response.Usage.InputTokens,
				CachedTokens:    event.Response.Usage.InputTokensDetails.CachedTokens,
				OutputTokens:    event.Response.Usage.OutputTokens,
				ReasoningTokens: event.Response.Usage.OutputTokensDetails.ReasoningTokens,
				TotalTokens:     event.Response.Usage.TotalTokens,
			},
		}
		for _, item := range event.Response.Output {
			resp.Output = append(resp.Output, convertItem(item))
		}
		n.Response = &resp
	}
	return n
}

func convertItem(item responses.ResponseOutputItemUnion) OutputItem {
	out := OutputItem{
		Type:      item.Type,
		ID:        item.ID,
		Status:    item.Status,
		CallID:    item.CallID,
		Name:      item.Name,
		Arguments: item.Arguments,
		Result:    item.Result,
	}
	if item.Type == "message" {
		msg := item.AsMessage()
		for _, part := range msg.Content {
			if part.Type != "output_text" {
				continue
			}
			out.Content = append(out.Content, history.ContentPart{
				Type: "output_text",
				Text: part.Text,
			})
		}
	}
	return out
}
