package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/epitome-ai/fusion/model"
)

// Rows matched out of a user table carry a fixed confidence; the predicate
// is a coarse substring match, not a semantic signal.
const tableFactConfidence = 0.7

// retrieveTables runs the table branch: a substring-match predicate over
// text-typed columns per selected table. When nothing matches but the
// table name itself strongly matches the topic, the most recent rows are
// returned instead.
func retrieveTables(ctx context.Context, querier TableQuerier, tenant string, plan *RetrievalPlan) ([]model.RetrievedFact, error) {
	terms := plan.Intent.ExpandedTerms
	var facts []model.RetrievedFact
	var firstErr error

	for _, table := range plan.Tables {
		rows, err := querier.MatchRows(ctx, tenant, table.Name, table.TextColumns(), terms, plan.Budget.MaxRowsPerTable)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if len(rows) == 0 && nameMatchesTopic(table.Name, plan.Topic) {
			rows, err = querier.RecentRows(ctx, tenant, table.Name, plan.Budget.MaxRowsPerTable)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}

		for i, row := range rows {
			facts = append(facts, model.RetrievedFact{
				Fact:       describeRow(table.Name, row),
				SourceType: model.SourceTypeTable,
				SourceRef:  fmt.Sprintf("%v/row-%v", table.Name, i),
				Confidence: tableFactConfidence,
				Timestamp:  rowTimestamp(row),
			})
		}
	}

	if len(facts) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return facts, nil
}

func nameMatchesTopic(name, topic string) bool {
	loweredName := strings.ToLower(name)
	loweredTopic := strings.ToLower(topic)
	if strings.Contains(loweredTopic, loweredName) {
		return true
	}
	for _, token := range strings.Fields(loweredTopic) {
		if strings.Contains(loweredName, token) && len(token) >= 3 {
			return true
		}
	}
	return false
}

// describeRow renders a row as "table: col1=v1, col2=v2" with deterministic
// column order and internal columns skipped.
func describeRow(table string, row TableRow) string {
	columns := make([]string, 0, len(row))
	for column := range row {
		if strings.HasPrefix(column, "_") || column == "id" {
			continue
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		value := row[column]
		if value == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%v=%v", column, value))
	}
	return fmt.Sprintf("%v: %v", table, strings.Join(parts, ", "))
}

func rowTimestamp(row TableRow) string {
	for _, column := range []string{"created_at", "createdAt", "timestamp", "date"} {
		switch value := row[column].(type) {
		case time.Time:
			return value.UTC().Format(time.RFC3339)
		case string:
			if value != "" {
				return value
			}
		}
	}
	return ""
}
