package extraction

import (
	"context"
	"log/slog"

	"github.com/epitome-ai/fusion/model"
)

// GenerativeFunc sends an extraction prompt to a language model and returns
// the raw response text.
type GenerativeFunc func(ctx context.Context, prompt string) (string, error)

// Extractor turns one raw record into candidate entities and edges. Known
// schemas use deterministic rules, everything else falls back to the
// generative path. Extraction never fails the record write it belongs to:
// any failure yields an empty candidate list.
type Extractor struct {
	generative GenerativeFunc
	rules      map[string]RuleFunc
	logger     *slog.Logger
}

// NewExtractor creates an extractor with the default schema rules. The
// generative function may be nil, in which case unknown schemas yield no
// candidates.
func NewExtractor(generative GenerativeFunc, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		generative: generative,
		rules:      defaultRules(),
		logger:     logger,
	}
}

// SetRule registers or replaces the rule for a schema.
func (e *Extractor) SetRule(schema string, rule RuleFunc) {
	e.rules[schema] = rule
}

// ExtractRecord extracts candidates from a record. PromptContext carries
// the profile summary and known entities for the generative path; it may
// be nil.
func (e *Extractor) ExtractRecord(ctx context.Context, record *model.Record, promptContext *PromptContext) *model.ExtractionResult {
	if record == nil {
		return &model.ExtractionResult{Method: model.ExtractionMethodNone}
	}

	if rule, ok := e.rules[record.Schema]; ok {
		candidates := rule(record)
		if len(candidates) > 0 {
			return &model.ExtractionResult{
				Candidates: candidates,
				Method:     model.ExtractionMethodRules,
			}
		}
	}

	if e.generative == nil || (record.Text == "" && len(record.Fields) == 0) {
		return &model.ExtractionResult{Method: model.ExtractionMethodNone}
	}

	candidates, err := e.extractGenerative(ctx, record, promptContext)
	if err != nil {
		e.logger.Warn("Generative extraction failed",
			slog.String("schema", record.Schema),
			slog.String("error", err.Error()))
		return &model.ExtractionResult{Method: model.ExtractionMethodNone}
	}

	return &model.ExtractionResult{
		Candidates: candidates,
		Method:     model.ExtractionMethodGenerative,
	}
}
