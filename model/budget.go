package model

// BudgetTier names one of the fixed retrieval budget configurations.
type BudgetTier string

const (
	BudgetSmall  BudgetTier = "small"
	BudgetMedium BudgetTier = "medium"
	BudgetDeep   BudgetTier = "deep"
)

// Budget bounds how much work each retrieval branch may do. Budgets are the
// engine's work-bounding mechanism; there is no wall-clock deadline built
// in (callers can cancel via context).
type Budget struct {
	Tier                BudgetTier `json:"tier"`
	MaxVectorResults    int        `json:"max_vector_results"`
	VectorMinSimilarity float64    `json:"vector_min_similarity"`
	MaxGraphHops        int        `json:"max_graph_hops"`
	MaxGraphSeeds       int        `json:"max_graph_seeds"`
	MaxRowsPerTable     int        `json:"max_rows_per_table"`
	MaxTables           int        `json:"max_tables"`
	MaxTotalFacts       int        `json:"max_total_facts"`
}

var budgets = map[BudgetTier]Budget{
	BudgetSmall: {
		Tier:                BudgetSmall,
		MaxVectorResults:    5,
		VectorMinSimilarity: 0.75,
		MaxGraphHops:        1,
		MaxGraphSeeds:       3,
		MaxRowsPerTable:     5,
		MaxTables:           2,
		MaxTotalFacts:       15,
	},
	BudgetMedium: {
		Tier:                BudgetMedium,
		MaxVectorResults:    10,
		VectorMinSimilarity: 0.70,
		MaxGraphHops:        2,
		MaxGraphSeeds:       5,
		MaxRowsPerTable:     10,
		MaxTables:           4,
		MaxTotalFacts:       40,
	},
	BudgetDeep: {
		Tier:                BudgetDeep,
		MaxVectorResults:    20,
		VectorMinSimilarity: 0.60,
		MaxGraphHops:        3,
		MaxGraphSeeds:       8,
		MaxRowsPerTable:     20,
		MaxTables:           6,
		MaxTotalFacts:       80,
	},
}

// BudgetFor returns the budget configuration for a tier. Unknown tiers fall
// back to the medium budget.
func BudgetFor(tier BudgetTier) Budget {
	if b, ok := budgets[tier]; ok {
		return b
	}
	return budgets[BudgetMedium]
}

// NextLarger returns the next more permissive budget, used by progressive
// deepening. The deep budget returns itself.
func (b Budget) NextLarger() Budget {
	switch b.Tier {
	case BudgetSmall:
		return budgets[BudgetMedium]
	case BudgetMedium:
		return budgets[BudgetDeep]
	default:
		return b
	}
}
