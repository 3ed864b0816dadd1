package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/epitome-ai/fusion/model"
)

const generativeConfidence = 0.6

// PromptContext carries the tenant context embedded into the extraction
// prompt: a compact profile summary and a short list of already-known
// entities with their relations.
type PromptContext struct {
	ProfileSummary string
	KnownEntities  []string
	Now            time.Time
}

type generativeEntity struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties model.Metadata `json:"properties,omitempty"`
	Edge       string         `json:"edge,omitempty"`
}

type generativeResponse struct {
	Entities []generativeEntity `json:"entities"`
}

// extractGenerative builds a context-aware prompt, sends it to the language
// model and parses the structured response. Any parse or transport failure
// surfaces as an error to the caller, which converts it to an empty result.
func (e *Extractor) extractGenerative(ctx context.Context, record *model.Record, promptContext *PromptContext) ([]model.Candidate, error) {
	prompt := buildPrompt(record, promptContext)

	response, err := e.generative(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generative transport: %w", err)
	}

	parsed, err := parseResponse(response)
	if err != nil {
		return nil, fmt.Errorf("generative parse: %w", err)
	}

	var candidates []model.Candidate
	for _, entity := range parsed.Entities {
		name := strings.TrimSpace(entity.Name)
		if name == "" {
			continue
		}
		entityType := strings.ToLower(strings.TrimSpace(entity.Type))
		if entityType == "" {
			entityType = model.EntityTypeTopic
		}
		candidates = append(candidates, model.Candidate{
			Entity: &model.Entity{
				Tenant:     record.Tenant,
				Type:       entityType,
				Name:       name,
				Properties: entity.Properties,
				Confidence: generativeConfidence,
			},
			Relation: strings.TrimSpace(entity.Edge),
			Evidence: model.Evidence{
				Type:       "generative",
				Source:     record.Schema,
				Confidence: generativeConfidence,
			},
		})
	}

	return candidates, nil
}

// buildPrompt includes the current date and weekday so the model can
// resolve relative time references in the record text.
func buildPrompt(record *model.Record, promptContext *PromptContext) string {
	var b strings.Builder

	now := time.Now()
	if promptContext != nil && !promptContext.Now.IsZero() {
		now = promptContext.Now
	}
	fmt.Fprintf(&b, "Today is %v, %v.\n", now.Weekday(), now.Format("2006-01-02"))

	if promptContext != nil && promptContext.ProfileSummary != "" {
		fmt.Fprintf(&b, "About the user: %v\n", promptContext.ProfileSummary)
	}
	if promptContext != nil && len(promptContext.KnownEntities) > 0 {
		fmt.Fprintf(&b, "Known entities: %v\n", strings.Join(promptContext.KnownEntities, "; "))
	}

	b.WriteString("Extract the entities mentioned in the following record. ")
	b.WriteString("Respond with JSON of the form {\"entities\": [{\"name\", \"type\", \"properties\", \"edge\"}]}. ")
	b.WriteString("Use lowercase types (person, place, food, activity, topic, ...) and, when the user did something with the entity, an edge relation (ate, visited, did, likes, ...).\n")

	if record.Text != "" {
		fmt.Fprintf(&b, "Record (%v): %v\n", record.Schema, record.Text)
	} else if len(record.Fields) > 0 {
		fields, _ := json.Marshal(record.Fields)
		fmt.Fprintf(&b, "Record (%v): %v\n", record.Schema, string(fields))
	}

	return b.String()
}

// parseResponse tolerates surrounding prose by extracting the outermost
// JSON object before unmarshalling.
func parseResponse(response string) (*generativeResponse, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed generativeResponse
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
