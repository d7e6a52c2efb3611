// Package diff computes line-level diffs between prompt revisions using the
// sergi/go-diff engine in line mode.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dpshade/promptdiff/internal/models"
)

// Engine computes edit scripts and line statistics between two texts.
// It is stateless apart from the underlying diff-match-patch instance and is
// safe for concurrent use.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates a diff engine tuned for prompt text.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	// Disable the timeout so identical inputs always yield identical scripts.
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

// Compute produces the line-level diff of oldText against newText.
// Lines are newline-delimited; a trailing line without a terminator counts as
// a line. The result's SimilarityRatio is 2*matched/(len(old)+len(new)),
// where matched is the number of aligned equal lines; two empty texts yield
// 1.0. SemanticSimilarity is left nil for the caller to fill in.
func (e *Engine) Compute(oldText, newText string) *models.DiffResult {
	result := &models.DiffResult{}

	oldCount := countLines(oldText)
	newCount := countLines(newText)

	if oldCount == 0 && newCount == 0 {
		result.SimilarityRatio = 1.0
		return result
	}

	// Line mode: encode each distinct line as one rune so the character
	// diff below is a minimal line alignment.
	encOld, encNew, lineArray := e.dmp.DiffLinesToChars(oldText, newText)
	diffs := e.dmp.DiffMain(encOld, encNew, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	matched := 0
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				result.Lines = append(result.Lines, models.DiffLine{Op: models.DiffEqual, Text: line})
				matched++
			case diffmatchpatch.DiffDelete:
				result.Lines = append(result.Lines, models.DiffLine{Op: models.DiffDelete, Text: line})
				result.Removals++
			case diffmatchpatch.DiffInsert:
				result.Lines = append(result.Lines, models.DiffLine{Op: models.DiffInsert, Text: line})
				result.Additions++
			}
		}
	}

	ratio := 2 * float64(matched) / float64(oldCount+newCount)
	result.SimilarityRatio = clamp01(ratio)

	return result
}

// Unified renders the diff of oldText against newText in a unified-diff style
// with file labels and a single whole-file hunk.
func (e *Engine) Unified(oldText, newText, oldLabel, newLabel string) string {
	result := e.Compute(oldText, newText)
	if !result.HasChanges() {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", oldLabel)
	fmt.Fprintf(&b, "+++ %s\n", newLabel)
	fmt.Fprintf(&b, "@@ -1,%d +1,%d @@\n", countLines(oldText), countLines(newText))
	for _, line := range result.Lines {
		switch line.Op {
		case models.DiffDelete:
			b.WriteString("-")
		case models.DiffInsert:
			b.WriteString("+")
		default:
			b.WriteString(" ")
		}
		b.WriteString(strings.TrimRight(line.Text, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// splitLines splits text into lines, keeping terminators. An empty text has
// no lines; a trailing unterminated line is still a line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			if text != "" {
				lines = append(lines, text)
			}
			return lines
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
}

func countLines(text string) int {
	return len(splitLines(text))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
