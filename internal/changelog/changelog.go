// Package changelog derives ordered, human-readable histories from a
// prompt's revision sequence. It is a read-only composition over the version
// store, diff engine, and optional similarity scorer; it creates no state.
package changelog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dpshade/promptdiff/internal/diff"
	"github.com/dpshade/promptdiff/internal/models"
	"github.com/dpshade/promptdiff/internal/similarity"
	"github.com/dpshade/promptdiff/internal/store"
)

// Builder folds consecutive revision pairs into changelog entries.
type Builder struct {
	store  *store.Store
	differ *diff.Engine
	scorer similarity.Scorer // nil when no semantic scoring is configured
}

// NewBuilder creates a changelog builder. scorer may be nil.
func NewBuilder(s *store.Store, differ *diff.Engine, scorer similarity.Scorer) *Builder {
	return &Builder{store: s, differ: differ, scorer: scorer}
}

// Build returns the full history of a prompt, newest first. Every entry
// after the first revision carries the diff against its immediate
// predecessor; the version 1 entry has no diff.
func (b *Builder) Build(ctx context.Context, name string) ([]models.ChangelogEntry, error) {
	return b.BuildLast(ctx, name, 0)
}

// BuildLast is Build limited to the most recent lastN revisions; lastN <= 0
// means the full history.
func (b *Builder) BuildLast(ctx context.Context, name string, lastN int) ([]models.ChangelogEntry, error) {
	revisions, err := b.store.ListVersions(name)
	if err != nil {
		return nil, err
	}
	if lastN > 0 && len(revisions) > lastN {
		revisions = revisions[len(revisions)-lastN:]
	}

	entries := make([]models.ChangelogEntry, 0, len(revisions))
	for i := len(revisions) - 1; i >= 0; i-- {
		rev := revisions[i]
		entry := models.ChangelogEntry{
			Version:   rev.Version,
			CreatedAt: rev.CreatedAt,
			Message:   rev.Message,
			Tag:       rev.Tag,
		}
		if i > 0 {
			entry.Diff = b.diffPair(ctx, revisions[i-1], rev)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// diffPair computes the full diff of prev against cur. Scorer failure only
// costs the semantic score; the textual diff always completes.
func (b *Builder) diffPair(ctx context.Context, prev, cur *models.Revision) *models.DiffResult {
	result := b.differ.Compute(prev.Content, cur.Content)
	result.OldVersion = prev.Version
	result.NewVersion = cur.Version

	if b.scorer != nil {
		score, err := b.scorer.Score(ctx, prev.Content, cur.Content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: semantic similarity unavailable for %s v%d..v%d: %v\n",
				cur.PromptName, prev.Version, cur.Version, err)
		} else {
			result.SemanticSimilarity = &score
		}
	}

	return result
}

// Markdown renders the history of one prompt as a markdown changelog,
// newest first. lastN <= 0 renders the full history.
func (b *Builder) Markdown(ctx context.Context, name string, lastN int) (string, error) {
	entries, err := b.BuildLast(ctx, name, lastN)
	if err != nil {
		return "", err
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("# Changelog: %s", name), "")

	for _, entry := range entries {
		date := "unknown"
		if !entry.CreatedAt.IsZero() {
			date = entry.CreatedAt.Format("2006-01-02")
		}
		msg := entry.Message
		if msg == "" {
			msg = "No description"
		}

		lines = append(lines, fmt.Sprintf("## v%d (%s)", entry.Version, date), "")
		lines = append(lines, fmt.Sprintf("**%s**", msg), "")

		if entry.Diff != nil {
			lines = append(lines, fmt.Sprintf("- Text similarity: %s", percent(entry.Diff.SimilarityRatio)))
			if entry.Diff.SemanticSimilarity != nil {
				lines = append(lines, fmt.Sprintf("- Semantic similarity: %s", percent(*entry.Diff.SemanticSimilarity)))
			}
			lines = append(lines, fmt.Sprintf("- Changes: +%d -%d", entry.Diff.Additions, entry.Diff.Removals))
		} else {
			lines = append(lines, "- Initial version")
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n"), nil
}

// MarkdownAll renders a combined changelog for every tracked prompt.
func (b *Builder) MarkdownAll(ctx context.Context) (string, error) {
	names, err := b.store.ListPrompts()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "# Changelog\n\nNo prompts tracked yet.\n", nil
	}

	sections := []string{"# Prompt Changelog", ""}
	for _, name := range names {
		section, err := b.Markdown(ctx, name, 0)
		if err != nil {
			return "", err
		}
		sections = append(sections, section, "---", "")
	}

	return strings.Join(sections, "\n"), nil
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
