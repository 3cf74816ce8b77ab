package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	"github.com/theimaginaryfoundation/persona-pack/persona"
)

var extractionSchema = GenerateSchema[persona.ExtractionResponse]()

// OpenAICompleter implements persona.Completer on the OpenAI Responses API with a strict
// json_schema output format for the profile envelope.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	serviceTier string
	retry       RetryPolicy
}

type CompleterOption func(*OpenAICompleter)

// WithServiceTier sets the Responses API service tier (e.g. "flex"). Empty leaves the default.
func WithServiceTier(tier string) CompleterOption {
	return func(c *OpenAICompleter) {
		c.serviceTier = strings.TrimSpace(tier)
	}
}

func WithRetryPolicy(p RetryPolicy) CompleterOption {
	return func(c *OpenAICompleter) {
		c.retry = p
	}
}

func NewOpenAICompleter(client *openai.Client, model string, opts ...CompleterOption) *OpenAICompleter {
	c := &OpenAICompleter{client: client, model: model, retry: DefaultRetryPolicy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAICompleter) Complete(ctx context.Context, req persona.CompletionRequest) (string, error) {
	if c.client == nil {
		return "", errors.New("OpenAICompleter: client is nil")
	}
	if c.model == "" {
		return "", errors.New("OpenAICompleter: model is empty")
	}

	name := req.Name
	if name == "" {
		name = "ProfileExtraction"
	}
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        name,
			Schema:      extractionSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Identity profile extraction JSON"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:        c.model,
		Instructions: openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxOutputTokens))
	}
	if c.serviceTier != "" {
		params.ServiceTier = responses.ResponseNewParamsServiceTier(c.serviceTier)
	}

	resp, err := CallWithRetryPolicy(ctx, c.client, params, c.retry)
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}
