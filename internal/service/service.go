// Package service composes the store, diff engine, similarity scorer, and
// evaluator into the operations the CLI, TUI, and HTTP server expose.
package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/dpshade/promptdiff/internal/changelog"
	"github.com/dpshade/promptdiff/internal/diff"
	"github.com/dpshade/promptdiff/internal/eval"
	"github.com/dpshade/promptdiff/internal/git"
	"github.com/dpshade/promptdiff/internal/models"
	"github.com/dpshade/promptdiff/internal/similarity"
	"github.com/dpshade/promptdiff/internal/store"
)

// Service provides the business logic for prompt version management.
type Service struct {
	store     *store.Store
	differ    *diff.Engine
	scorer    Scorer // nil when semantic scoring is not configured
	changelog *changelog.Builder
	gitSync   *git.Sync // nil when git sync is disabled
}

// Scorer is the semantic similarity capability the service depends on.
type Scorer = similarity.Scorer

// Option configures a Service.
type Option func(*Service)

// WithScorer attaches a semantic similarity scorer.
func WithScorer(scorer Scorer) Option {
	return func(s *Service) { s.scorer = scorer }
}

// WithGitSync attaches git synchronization for store mutations.
func WithGitSync(sync *git.Sync) Option {
	return func(s *Service) { s.gitSync = sync }
}

// New creates a service over the given store.
func New(st *store.Store, opts ...Option) *Service {
	svc := &Service{
		store:  st,
		differ: diff.NewEngine(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.changelog = changelog.NewBuilder(st, svc.differ, svc.scorer)

	if svc.gitSync != nil {
		// Repository discovery can touch the network config; keep it off
		// the startup path.
		go func() {
			if err := svc.gitSync.Initialize(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: git sync unavailable: %v\n", err)
			}
		}()
	}

	return svc
}

// Store exposes the underlying version store.
func (s *Service) Store() *store.Store {
	return s.store
}

// GitStatus reports the sync state of the store repository.
func (s *Service) GitStatus() string {
	if s.gitSync == nil {
		return "Git sync disabled"
	}
	status, err := s.gitSync.Status()
	if err != nil {
		return "Git status unknown"
	}
	return status
}

// Init establishes a new store and, when git sync is configured, a
// repository around it.
func (s *Service) Init() error {
	if err := s.store.Init(); err != nil {
		return err
	}
	if s.gitSync != nil {
		if err := s.gitSync.SetupRepository(""); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: store initialized but git setup failed: %v\n", err)
		}
	}
	return nil
}

// AddVersion records content as a new revision of the named prompt. The
// returned bool is false when the content duplicated the latest revision and
// nothing was written.
func (s *Service) AddVersion(name, content string, opts store.AddOptions) (*models.Revision, bool, error) {
	rev, created, err := s.store.Add(name, content, opts)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.autoCommit(fmt.Sprintf("Add %s v%d", name, rev.Version))
	}
	return rev, created, nil
}

// GetVersion resolves a revision by selector. Selectors accept "latest" (or
// empty), "v3", "3", negative offsets like "-1" for the newest, and finally
// revision tags.
func (s *Service) GetVersion(name, selector string) (*models.Revision, error) {
	version, isNumeric := parseSelector(selector)
	if isNumeric {
		return s.store.GetVersion(name, version)
	}
	return s.store.GetByTag(name, selector)
}

// Diff compares two revisions of a prompt, attaching semantic similarity
// when a scorer is configured and reachable. Scorer failure degrades to a
// textual-only diff.
func (s *Service) Diff(ctx context.Context, name, fromSel, toSel string) (*models.DiffResult, error) {
	from, err := s.GetVersion(name, fromSel)
	if err != nil {
		return nil, err
	}
	to, err := s.GetVersion(name, toSel)
	if err != nil {
		return nil, err
	}

	result := s.differ.Compute(from.Content, to.Content)
	result.OldVersion = from.Version
	result.NewVersion = to.Version

	if s.scorer != nil {
		score, err := s.scorer.Score(ctx, from.Content, to.Content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: semantic similarity unavailable for %s v%d..v%d: %v\n",
				name, from.Version, to.Version, err)
		} else {
			result.SemanticSimilarity = &score
		}
	}

	return result, nil
}

// DiffUnified renders the comparison of two revisions in unified format.
func (s *Service) DiffUnified(name, fromSel, toSel string) (string, error) {
	from, err := s.GetVersion(name, fromSel)
	if err != nil {
		return "", err
	}
	to, err := s.GetVersion(name, toSel)
	if err != nil {
		return "", err
	}
	return s.differ.Unified(from.Content, to.Content, from.Label(), to.Label()), nil
}

// Changelog renders the markdown history of one prompt, newest first.
// lastN <= 0 renders the full history.
func (s *Service) Changelog(ctx context.Context, name string, lastN int) (string, error) {
	return s.changelog.Markdown(ctx, name, lastN)
}

// ChangelogAll renders a combined changelog for every tracked prompt.
func (s *Service) ChangelogAll(ctx context.Context) (string, error) {
	return s.changelog.MarkdownAll(ctx)
}

// History returns the structured changelog entries of one prompt.
func (s *Service) History(ctx context.Context, name string, lastN int) ([]models.ChangelogEntry, error) {
	return s.changelog.BuildLast(ctx, name, lastN)
}

// Evaluate runs a test suite against one revision of a prompt.
func (s *Service) Evaluate(ctx context.Context, name, selector string, suite *eval.Suite, runner eval.Runner) (*models.EvalResult, error) {
	rev, err := s.GetVersion(name, selector)
	if err != nil {
		return nil, err
	}
	scorer := eval.ScorerByName(suite.Scorer, s.differ)
	evaluator := eval.NewEvaluator(runner, scorer)
	return evaluator.Evaluate(ctx, name, rev.Version, rev.Content, suite.Cases), nil
}

// EvaluateAll runs a test suite against every revision of a prompt and
// ranks the results.
func (s *Service) EvaluateAll(ctx context.Context, name string, suite *eval.Suite, runner eval.Runner) (eval.Comparison, error) {
	revisions, err := s.store.ListVersions(name)
	if err != nil {
		return eval.Comparison{}, err
	}
	scorer := eval.ScorerByName(suite.Scorer, s.differ)
	evaluator := eval.NewEvaluator(runner, scorer)

	results := make([]*models.EvalResult, 0, len(revisions))
	for _, rev := range revisions {
		results = append(results, evaluator.Evaluate(ctx, name, rev.Version, rev.Content, suite.Cases))
	}
	return eval.Compare(results), nil
}

// ListPrompts returns the tracked prompt names in creation order.
func (s *Service) ListPrompts() ([]string, error) {
	return s.store.ListPrompts()
}

// ListPromptInfos returns a summary of every tracked prompt.
func (s *Service) ListPromptInfos() ([]models.PromptInfo, error) {
	return s.store.ListPromptInfos()
}

// ListVersions returns every revision of a prompt in version order.
func (s *Service) ListVersions(name string) ([]*models.Revision, error) {
	return s.store.ListVersions(name)
}

// SearchPrompts fuzzy-matches prompts by name, tags, and latest message.
func (s *Service) SearchPrompts(query string) ([]models.PromptInfo, error) {
	infos, err := s.store.ListPromptInfos()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return infos, nil
	}

	searchStrings := make([]string, len(infos))
	for i, info := range infos {
		searchStrings[i] = fmt.Sprintf("%s %s %s",
			info.Name, strings.Join(info.Tags, " "), info.LatestMessage)
	}

	matches := fuzzy.Find(query, searchStrings)
	results := make([]models.PromptInfo, 0, len(matches))
	for _, match := range matches {
		results = append(results, infos[match.Index])
	}
	return results, nil
}

// SetTags replaces the prompt-level tag set.
func (s *Service) SetTags(name string, tags []string) error {
	if err := s.store.SetTags(name, tags); err != nil {
		return err
	}
	s.autoCommit(fmt.Sprintf("Update tags of %s", name))
	return nil
}

// AddTags merges tags into the prompt-level tag set.
func (s *Service) AddTags(name string, tags []string) error {
	if err := s.store.AddTags(name, tags); err != nil {
		return err
	}
	s.autoCommit(fmt.Sprintf("Update tags of %s", name))
	return nil
}

// Tags returns the prompt-level tag set.
func (s *Service) Tags(name string) ([]string, error) {
	return s.store.Tags(name)
}

// FindByTag returns the prompts carrying a prompt-level tag.
func (s *Service) FindByTag(tag string) ([]string, error) {
	return s.store.FindByTag(tag)
}

// RemovePrompt deletes a prompt and its whole history.
func (s *Service) RemovePrompt(name string) error {
	if err := s.store.RemovePrompt(name); err != nil {
		return err
	}
	s.autoCommit(fmt.Sprintf("Remove %s", name))
	return nil
}

// autoCommit records a store mutation in git when sync is configured.
// Failures are warnings; the store is already consistent.
func (s *Service) autoCommit(message string) {
	if s.gitSync == nil {
		return
	}
	if err := s.gitSync.SyncChanges(message); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: git sync failed: %v\n", err)
	}
}

// parseSelector maps a version selector to a numeric version. The second
// return is false when the selector must be treated as a revision tag.
func parseSelector(selector string) (int, bool) {
	switch selector {
	case "", "latest":
		return store.Latest, true
	}

	numeric := selector
	if strings.HasPrefix(selector, "v") || strings.HasPrefix(selector, "V") {
		numeric = selector[1:]
	}
	if n, err := strconv.Atoi(numeric); err == nil {
		return n, true
	}

	return 0, false
}
