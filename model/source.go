package model

// SourceType identifies one of the four heterogeneous stores facts can come
// from.
type SourceType string

const (
	SourceTypeTable   SourceType = "table"
	SourceTypeVector  SourceType = "vector"
	SourceTypeGraph   SourceType = "graph"
	SourceTypeProfile SourceType = "profile"
)

// ScoredSource is one candidate source ranked for a query.
type ScoredSource struct {
	SourceType SourceType `json:"source_type"`
	SourceID   string     `json:"source_id"`
	Relevance  float64    `json:"relevance_score"`
	Reason     string     `json:"reason"`
}

// ColumnMeta describes one column of an ad-hoc user table.
type ColumnMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableMeta describes one ad-hoc user table available to the table
// retriever.
type TableMeta struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Columns     []ColumnMeta `json:"columns,omitempty"`
}

// TextColumns returns the names of text-typed columns, the only ones the
// table retriever builds match predicates over.
func (t TableMeta) TextColumns() []string {
	var cols []string
	for _, col := range t.Columns {
		switch col.Type {
		case "text", "varchar", "string", "character varying":
			cols = append(cols, col.Name)
		}
	}
	return cols
}

// CollectionMeta describes one vector collection available to the vector
// retriever.
type CollectionMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
