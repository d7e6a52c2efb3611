package store

import (
	"os"
	"sync"
	"testing"

	"github.com/dpshade/promptdiff/internal/errors"
	"github.com/dpshade/promptdiff/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(storage.NewMemory(), "/test")
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return s
}

func TestInitCreatesStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "promptdiff-store-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	s := NewFilesystem(tmpDir)
	if s.Initialized() {
		t.Error("Fresh store reported initialized")
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !s.Initialized() {
		t.Error("Store not initialized after Init")
	}
}

func TestInitTwiceFails(t *testing.T) {
	s := newTestStore(t)
	err := s.Init()
	if !errors.HasCode(err, errors.ErrCodeAlreadyInitialized) {
		t.Errorf("Expected ALREADY_INITIALIZED, got %v", err)
	}
}

func TestOperationsRequireInit(t *testing.T) {
	s := New(storage.NewMemory(), "/test")

	if _, _, err := s.Add("p", "content", AddOptions{}); !errors.HasCode(err, errors.ErrCodeNotInitialized) {
		t.Errorf("Add: expected NOT_INITIALIZED, got %v", err)
	}
	if _, err := s.GetVersion("p", 1); !errors.HasCode(err, errors.ErrCodeNotInitialized) {
		t.Errorf("GetVersion: expected NOT_INITIALIZED, got %v", err)
	}
	if _, err := s.ListPrompts(); !errors.HasCode(err, errors.ErrCodeNotInitialized) {
		t.Errorf("ListPrompts: expected NOT_INITIALIZED, got %v", err)
	}
}

func TestAddAndGet(t *testing.T) {
	s := newTestStore(t)

	rev, created, err := s.Add("test-prompt", "Hello {name}", AddOptions{Message: "initial"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !created {
		t.Error("Expected created=true for first add")
	}
	if rev.Version != 1 {
		t.Errorf("Expected version 1, got %d", rev.Version)
	}
	if rev.Message != "initial" {
		t.Errorf("Expected message 'initial', got %q", rev.Message)
	}
	if rev.ContentHash == "" {
		t.Error("Expected non-empty content hash")
	}

	got, err := s.GetVersion("test-prompt", 1)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if got.Content != "Hello {name}" {
		t.Errorf("Content = %q, want %q", got.Content, "Hello {name}")
	}
}

func TestAddMultipleVersions(t *testing.T) {
	s := newTestStore(t)

	s.mustAdd(t, "p", "version 1")
	s.mustAdd(t, "p", "version 2")
	rev, _, err := s.Add("p", "version 3", AddOptions{})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if rev.Version != 3 {
		t.Errorf("Expected version 3, got %d", rev.Version)
	}

	revisions, err := s.ListVersions("p")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(revisions) != 3 {
		t.Fatalf("Expected 3 revisions, got %d", len(revisions))
	}
	for i, rev := range revisions {
		if rev.Version != i+1 {
			t.Errorf("Revision %d has version %d, want %d", i, rev.Version, i+1)
		}
	}
}

func TestDuplicateContentDedupes(t *testing.T) {
	s := newTestStore(t)

	first, created, err := s.Add("p", "Hello world", AddOptions{})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !created || first.Version != 1 {
		t.Fatalf("First add: created=%v version=%d", created, first.Version)
	}

	second, created, err := s.Add("p", "Hello world", AddOptions{Message: "ignored"})
	if err != nil {
		t.Fatalf("Second add failed: %v", err)
	}
	if created {
		t.Error("Expected created=false for duplicate content")
	}
	if second.Version != 1 {
		t.Errorf("Expected dedup to return version 1, got %d", second.Version)
	}

	revisions, err := s.ListVersions("p")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(revisions) != 1 {
		t.Errorf("Expected revision count unchanged at 1, got %d", len(revisions))
	}
}

func TestDedupOnlyAgainstPreviousRevision(t *testing.T) {
	s := newTestStore(t)

	s.mustAdd(t, "p", "A")
	s.mustAdd(t, "p", "B")
	rev, created, err := s.Add("p", "A", AddOptions{})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !created {
		t.Error("Content matching an older (non-previous) revision must create a new version")
	}
	if rev.Version != 3 {
		t.Errorf("Expected version 3, got %d", rev.Version)
	}
}

func TestGetVersionAliases(t *testing.T) {
	s := newTestStore(t)

	s.mustAdd(t, "p", "one")
	s.mustAdd(t, "p", "two")
	s.mustAdd(t, "p", "three")

	latest, err := s.GetVersion("p", Latest)
	if err != nil {
		t.Fatalf("GetVersion(Latest) failed: %v", err)
	}
	if latest.Version != 3 || latest.Content != "three" {
		t.Errorf("Latest = v%d %q, want v3 \"three\"", latest.Version, latest.Content)
	}

	prev, err := s.GetVersion("p", -2)
	if err != nil {
		t.Fatalf("GetVersion(-2) failed: %v", err)
	}
	if prev.Version != 2 {
		t.Errorf("GetVersion(-2) = v%d, want v2", prev.Version)
	}
}

func TestGetVersionNotFound(t *testing.T) {
	s := newTestStore(t)
	s.mustAdd(t, "p", "content")

	if _, err := s.GetVersion("p", 99); !errors.HasCode(err, errors.ErrCodeVersionNotFound) {
		t.Errorf("Expected VERSION_NOT_FOUND, got %v", err)
	}
	if _, err := s.GetVersion("missing", 1); !errors.HasCode(err, errors.ErrCodePromptNotFound) {
		t.Errorf("Expected PROMPT_NOT_FOUND, got %v", err)
	}
}

func TestVersionNumbersContiguous(t *testing.T) {
	s := newTestStore(t)

	contents := []string{"a", "b", "b", "c", "a", "a", "d"}
	for _, c := range contents {
		if _, _, err := s.Add("p", c, AddOptions{}); err != nil {
			t.Fatalf("Add(%q) failed: %v", c, err)
		}
	}

	revisions, err := s.ListVersions("p")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	// Distinct non-deduped adds: a, b, c, a, d.
	if len(revisions) != 5 {
		t.Fatalf("Expected 5 revisions, got %d", len(revisions))
	}
	for i, rev := range revisions {
		if rev.Version != i+1 {
			t.Errorf("Revision %d has version %d; sequence must be contiguous from 1", i, rev.Version)
		}
	}
}

func TestListPromptsCreationOrder(t *testing.T) {
	s := newTestStore(t)

	s.mustAdd(t, "zebra", "z")
	s.mustAdd(t, "alpha", "a")
	s.mustAdd(t, "middle", "m")

	names, err := s.ListPrompts()
	if err != nil {
		t.Fatalf("ListPrompts failed: %v", err)
	}
	// Created timestamps share a second in fast tests, so order may fall
	// back to name; all three must be present exactly once.
	if len(names) != 3 {
		t.Fatalf("Expected 3 prompts, got %v", names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"zebra", "alpha", "middle"} {
		if !seen[want] {
			t.Errorf("ListPrompts missing %q: %v", want, names)
		}
	}
}

func TestRevisionTags(t *testing.T) {
	s := newTestStore(t)

	s.mustAdd(t, "p", "one")
	if _, _, err := s.Add("p", "two", AddOptions{Tag: "prod"}); err != nil {
		t.Fatalf("Add with tag failed: %v", err)
	}

	rev, err := s.GetByTag("p", "prod")
	if err != nil {
		t.Fatalf("GetByTag failed: %v", err)
	}
	if rev.Version != 2 {
		t.Errorf("GetByTag = v%d, want v2", rev.Version)
	}

	if _, err := s.GetByTag("p", "staging"); !errors.HasCode(err, errors.ErrCodeTagNotFound) {
		t.Errorf("Expected TAG_NOT_FOUND, got %v", err)
	}

	// Reusing a revision tag on the same prompt is a caller error.
	if _, _, err := s.Add("p", "three", AddOptions{Tag: "prod"}); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT on tag reuse, got %v", err)
	}
}

func TestAmbiguousTagDetected(t *testing.T) {
	s := newTestStore(t)

	// Manufacture a reused tag directly in the index to simulate a store
	// written before tag uniqueness was enforced.
	s.mustAdd(t, "p", "one")
	s.mustAdd(t, "p", "two")

	lock := s.lockFor("p")
	lock.Lock()
	meta, err := s.readMeta("p")
	if err != nil {
		lock.Unlock()
		t.Fatalf("readMeta failed: %v", err)
	}
	meta.Versions[0].Tag = "prod"
	meta.Versions[1].Tag = "prod"
	if err := s.writeMeta("p", meta); err != nil {
		lock.Unlock()
		t.Fatalf("writeMeta failed: %v", err)
	}
	lock.Unlock()

	if _, err := s.GetByTag("p", "prod"); !errors.HasCode(err, errors.ErrCodeAmbiguousTag) {
		t.Errorf("Expected AMBIGUOUS_TAG, got %v", err)
	}
}

func TestPromptLevelTags(t *testing.T) {
	s := newTestStore(t)

	s.mustAdd(t, "p", "content")
	if err := s.SetTags("p", []string{"nlp", "summarization", "nlp"}); err != nil {
		t.Fatalf("SetTags failed: %v", err)
	}

	tags, err := s.Tags("p")
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("Expected deduplicated tags, got %v", tags)
	}

	if err := s.AddTags("p", []string{"draft"}); err != nil {
		t.Fatalf("AddTags failed: %v", err)
	}
	names, err := s.FindByTag("draft")
	if err != nil {
		t.Fatalf("FindByTag failed: %v", err)
	}
	if len(names) != 1 || names[0] != "p" {
		t.Errorf("FindByTag = %v, want [p]", names)
	}
}

func TestRemovePrompt(t *testing.T) {
	s := newTestStore(t)

	s.mustAdd(t, "p", "content")
	if err := s.RemovePrompt("p"); err != nil {
		t.Fatalf("RemovePrompt failed: %v", err)
	}
	if _, err := s.GetVersion("p", 1); !errors.HasCode(err, errors.ErrCodePromptNotFound) {
		t.Errorf("Expected PROMPT_NOT_FOUND after removal, got %v", err)
	}
	if err := s.RemovePrompt("p"); !errors.HasCode(err, errors.ErrCodePromptNotFound) {
		t.Errorf("Expected PROMPT_NOT_FOUND for second removal, got %v", err)
	}
}

func TestInvalidPromptNames(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", "a/b", "..", "a\\b"} {
		if _, _, err := s.Add(name, "x", AddOptions{}); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Add(%q): expected INVALID_INPUT, got %v", name, err)
		}
	}
}

func TestConcurrentAddsStayContiguous(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			content := string(rune('a' + n))
			if _, _, err := s.Add("p", content, AddOptions{}); err != nil {
				t.Errorf("Add failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	revisions, err := s.ListVersions("p")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	for i, rev := range revisions {
		if rev.Version != i+1 {
			t.Fatalf("Version sequence broken at index %d: got v%d", i, rev.Version)
		}
	}
}

func (s *Store) mustAdd(t *testing.T, name, content string) {
	t.Helper()
	if _, _, err := s.Add(name, content, AddOptions{}); err != nil {
		t.Fatalf("Add(%s) failed: %v", name, err)
	}
}
