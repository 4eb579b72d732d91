package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/phantomlink/phantom-link/internal/types"
)

// articleCap bounds how much locality article text is sent for extraction.
const articleCap = 12000

const extractInstruction = `You identify notable deceased historical figures for a locality.
Given the text of an encyclopedia article about a city, pick ONE deceased person who is strongly
associated with that city and notable enough to have their own encyclopedia entry.
If the article names no such person, report found=false.
Return a JSON object matching the output schema and nothing else.`

// extractedPerson is the structured extraction payload.
type extractedPerson struct {
	Found      bool   `json:"found"`
	Name       string `json:"name"`
	BirthYear  int    `json:"birth_year"`
	DeathYear  int    `json:"death_year"`
	Occupation string `json:"occupation"`
}

var personSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"found":      {Type: "boolean", Description: "Whether a suitable person was identified."},
		"name":       {Type: "string"},
		"birth_year": {Type: "integer"},
		"death_year": {Type: "integer"},
		"occupation": {Type: "string"},
	},
	Required: []string{"found", "name", "birth_year", "death_year", "occupation"},
}

// PersonExtractor pulls structured notable-person fields out of locality
// article text.
type PersonExtractor struct {
	client openai.Client
	model  string
}

// NewPersonExtractor returns a PersonExtractor for the given model.
func NewPersonExtractor(apiKey, model string) (*PersonExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	return &PersonExtractor{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Extract returns the notable person named in the article, or nil when the
// model reports none.
func (e *PersonExtractor) Extract(ctx context.Context, city, state, articleText string) (*types.NotablePerson, error) {
	if utf8.RuneCountInString(articleText) > articleCap {
		articleText = string([]rune(articleText)[:articleCap])
	}

	user := fmt.Sprintf("City: %s, %s\n\nArticle text:\n%s", city, state, articleText)
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractInstruction),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "notable_person",
					Schema: personSchema,
				},
			},
		},
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("person extraction call failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("person extraction returned no choices")
	}

	var extracted extractedPerson
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse person extraction output: %w", err)
	}
	if !extracted.Found || strings.TrimSpace(extracted.Name) == "" {
		return nil, nil
	}

	return &types.NotablePerson{
		Name:       strings.TrimSpace(extracted.Name),
		BirthYear:  extracted.BirthYear,
		DeathYear:  extracted.DeathYear,
		Occupation: strings.TrimSpace(extracted.Occupation),
	}, nil
}
