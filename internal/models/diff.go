package models

import "time"

// DiffOp classifies a single line in a diff.
type DiffOp string

const (
	DiffEqual  DiffOp = "equal"
	DiffInsert DiffOp = "insert"
	DiffDelete DiffOp = "delete"
)

// DiffLine is one line of a line-level diff. Text keeps the original line
// terminator when the source line had one.
type DiffLine struct {
	Op   DiffOp `json:"op"`
	Text string `json:"text"`
}

// DiffResult is the derived comparison of two revisions. It is computed on
// demand and never persisted.
type DiffResult struct {
	OldVersion int        `json:"old_version"`
	NewVersion int        `json:"new_version"`
	Lines      []DiffLine `json:"lines,omitempty"`
	Additions  int        `json:"additions"`
	Removals   int        `json:"removals"`

	// SimilarityRatio is the line-alignment overlap in [0,1].
	SimilarityRatio float64 `json:"similarity_ratio"`

	// SemanticSimilarity is nil when no scorer is configured or the scorer
	// was unavailable for this comparison.
	SemanticSimilarity *float64 `json:"semantic_similarity,omitempty"`
}

// HasChanges reports whether the two texts differ at all.
func (d *DiffResult) HasChanges() bool {
	return d.Additions > 0 || d.Removals > 0
}

// ChangelogEntry summarizes one revision in a prompt's history. Diff is the
// comparison against the immediate predecessor and is nil for version 1.
type ChangelogEntry struct {
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	Message   string      `json:"message,omitempty"`
	Tag       string      `json:"tag,omitempty"`
	Diff      *DiffResult `json:"diff,omitempty"`
}
