// Package store owns the durable, append-only sequence of revisions for each
// named prompt.
//
// Layout under the store root:
//
//	promptdiff.json          # store marker
//	prompts/
//	    my-prompt/
//	        meta.json        # prompt metadata + version index
//	        v1.txt           # version 1 content, byte-for-byte
//	        v2.txt
//
// meta.json is the authoritative index; version files are addressed by
// version number, not by hash, so identical content under different version
// numbers exists as separate files. Deduplication only suppresses a new
// version whose content matches the immediately preceding one.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dpshade/promptdiff/internal/errors"
	"github.com/dpshade/promptdiff/internal/fingerprint"
	"github.com/dpshade/promptdiff/internal/models"
	"github.com/dpshade/promptdiff/internal/storage"
)

const (
	markerFile = "promptdiff.json"
	promptsDir = "prompts"

	storeFormatVersion = "1"
)

// Latest addresses the newest revision in GetVersion. Negative versions
// address relative to the newest: -1 is the latest, -2 the one before.
const Latest = 0

// Store is an explicit handle to one promptdiff store location. All mutation
// goes through Add, which serializes the read-latest/dedup/append step per
// prompt so version numbers stay contiguous.
type Store struct {
	root    string
	backend storage.Backend

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a store handle over the given backend. root is only used in
// error messages; the backend is already rooted.
func New(backend storage.Backend, root string) *Store {
	return &Store{
		root:    root,
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}
}

// NewFilesystem creates a disk-backed store handle rooted at root.
func NewFilesystem(root string) *Store {
	return New(storage.NewFilesystem(root), root)
}

// Root returns the store location used in messages.
func (s *Store) Root() string {
	return s.root
}

// AddOptions carries the optional attributes of a new revision.
type AddOptions struct {
	Message  string
	Tag      string
	Metadata map[string]interface{}
}

type storeMeta struct {
	Created time.Time `json:"created"`
	Version string    `json:"version"`
}

type versionMeta struct {
	Version   int                    `json:"version"`
	Hash      string                 `json:"hash"`
	CreatedAt time.Time              `json:"created_at"`
	Message   string                 `json:"message,omitempty"`
	Tag       string                 `json:"tag,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type promptMeta struct {
	Name          string        `json:"name"`
	Created       time.Time     `json:"created"`
	Tags          []string      `json:"tags"`
	LatestVersion int           `json:"latest_version"`
	Versions      []versionMeta `json:"versions"`
}

// Initialized reports whether the store marker exists.
func (s *Store) Initialized() bool {
	return s.backend.Exists(markerFile)
}

// Init establishes empty persistent state for a new store location. It fails
// with AlreadyInitialized when state already exists there.
func (s *Store) Init() error {
	if s.Initialized() {
		return errors.AlreadyInitializedError(s.root)
	}

	if err := s.backend.MkdirAll(promptsDir); err != nil {
		return errors.StorageError("create prompts directory", err)
	}

	marker, err := json.MarshalIndent(storeMeta{
		Created: time.Now().UTC(),
		Version: storeFormatVersion,
	}, "", "  ")
	if err != nil {
		return errors.StorageError("encode store marker", err)
	}
	if err := s.backend.WriteFile(markerFile, marker); err != nil {
		return errors.StorageError("write store marker", err)
	}

	return nil
}

// Add records content as a revision of the named prompt, creating the prompt
// at version 1 on first use. When the content fingerprint equals the
// immediately preceding revision's, no new revision is created and the
// existing one is returned with created=false.
func (s *Store) Add(name, content string, opts AddOptions) (*models.Revision, bool, error) {
	if err := s.ensureInit(); err != nil {
		return nil, false, err
	}
	if err := validateName(name); err != nil {
		return nil, false, err
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	hash := fingerprint.Hash(content)

	meta, err := s.readMeta(name)
	switch {
	case err == nil:
		latest := meta.Versions[len(meta.Versions)-1]
		if latest.Hash == hash {
			// Duplicate of the immediately preceding revision: no side effect.
			rev := s.revision(name, latest, content)
			return rev, false, nil
		}
	case errors.HasCode(err, errors.ErrCodePromptNotFound):
		meta = &promptMeta{
			Name:    name,
			Created: time.Now().UTC(),
			Tags:    []string{},
		}
	default:
		return nil, false, err
	}

	if opts.Tag != "" {
		for _, v := range meta.Versions {
			if v.Tag == opts.Tag {
				return nil, false, errors.ValidationError(fmt.Sprintf(
					"tag '%s' already marks v%d of '%s'; revision tags must be unique per prompt",
					opts.Tag, v.Version, name))
			}
		}
	}

	next := versionMeta{
		Version:   meta.LatestVersion + 1,
		Hash:      hash,
		CreatedAt: time.Now().UTC(),
		Message:   opts.Message,
		Tag:       opts.Tag,
		Metadata:  opts.Metadata,
	}

	contentPath := versionPath(name, next.Version)
	if err := s.backend.WriteFile(contentPath, []byte(content)); err != nil {
		return nil, false, errors.StorageError("write revision content", err)
	}

	meta.LatestVersion = next.Version
	meta.Versions = append(meta.Versions, next)
	if err := s.writeMeta(name, meta); err != nil {
		// Roll back the content file so a failed add leaves nothing visible.
		if rmErr := s.backend.Remove(contentPath); rmErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to clean up %s after aborted add: %v\n", contentPath, rmErr)
		}
		return nil, false, err
	}

	return s.revision(name, next, content), true, nil
}

// GetVersion returns one revision of a prompt. version may be Latest (0) for
// the newest revision or negative to address from the newest (-1 is the
// latest, -2 the one before).
func (s *Store) GetVersion(name string, version int) (*models.Revision, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}

	meta, err := s.readMeta(name)
	if err != nil {
		return nil, err
	}

	resolved := version
	if version == Latest {
		resolved = meta.LatestVersion
	} else if version < 0 {
		resolved = meta.LatestVersion + version + 1
	}

	vm, ok := findVersion(meta, resolved)
	if !ok {
		return nil, errors.VersionNotFoundError(name, resolved)
	}

	content, err := s.backend.ReadFile(versionPath(name, resolved))
	if err != nil {
		return nil, errors.VersionNotFoundError(name, resolved).
			WithDetails("content file missing")
	}

	return s.revision(name, vm, string(content)), nil
}

// GetByTag returns the revision of a prompt carrying the given tag. Tags are
// unique per prompt; a reused tag is reported as AmbiguousTag rather than
// silently resolved.
func (s *Store) GetByTag(name, tag string) (*models.Revision, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}

	meta, err := s.readMeta(name)
	if err != nil {
		return nil, err
	}

	var matches []int
	for _, v := range meta.Versions {
		if v.Tag == tag && tag != "" {
			matches = append(matches, v.Version)
		}
	}

	switch len(matches) {
	case 0:
		return nil, errors.TagNotFoundError(name, tag)
	case 1:
		return s.GetVersion(name, matches[0])
	default:
		return nil, errors.AmbiguousTagError(name, tag, matches)
	}
}

// ListVersions returns every revision of a prompt in version order,
// including content.
func (s *Store) ListVersions(name string) ([]*models.Revision, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}

	meta, err := s.readMeta(name)
	if err != nil {
		return nil, err
	}

	revisions := make([]*models.Revision, 0, len(meta.Versions))
	for _, vm := range meta.Versions {
		content, err := s.backend.ReadFile(versionPath(name, vm.Version))
		if err != nil {
			return nil, errors.StorageError(
				fmt.Sprintf("read content of %s v%d", name, vm.Version), err)
		}
		revisions = append(revisions, s.revision(name, vm, string(content)))
	}

	return revisions, nil
}

// ListPrompts returns all prompt names in creation order.
func (s *Store) ListPrompts() ([]string, error) {
	infos, err := s.ListPromptInfos()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

// ListPromptInfos returns a summary of every tracked prompt in creation
// order.
func (s *Store) ListPromptInfos() ([]models.PromptInfo, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}

	entries, err := s.backend.ReadDir(promptsDir)
	if err != nil {
		return []models.PromptInfo{}, nil
	}

	var infos []models.PromptInfo
	for _, name := range entries {
		meta, err := s.readMeta(name)
		if err != nil {
			// Skip directories without a readable index.
			continue
		}
		info := models.PromptInfo{
			Name:          meta.Name,
			Created:       meta.Created,
			Tags:          meta.Tags,
			LatestVersion: meta.LatestVersion,
			TotalVersions: len(meta.Versions),
		}
		if n := len(meta.Versions); n > 0 {
			info.LatestMessage = meta.Versions[n-1].Message
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].Created.Equal(infos[j].Created) {
			return infos[i].Created.Before(infos[j].Created)
		}
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

// SetTags replaces the prompt-level tag set.
func (s *Store) SetTags(name string, tags []string) error {
	if err := s.ensureInit(); err != nil {
		return err
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	meta, err := s.readMeta(name)
	if err != nil {
		return err
	}

	meta.Tags = normalizeTags(tags)
	return s.writeMeta(name, meta)
}

// AddTags merges tags into the prompt-level tag set.
func (s *Store) AddTags(name string, tags []string) error {
	if err := s.ensureInit(); err != nil {
		return err
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	meta, err := s.readMeta(name)
	if err != nil {
		return err
	}

	meta.Tags = normalizeTags(append(meta.Tags, tags...))
	return s.writeMeta(name, meta)
}

// Tags returns the prompt-level tag set.
func (s *Store) Tags(name string) ([]string, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}
	meta, err := s.readMeta(name)
	if err != nil {
		return nil, err
	}
	return meta.Tags, nil
}

// FindByTag returns the names of all prompts carrying the prompt-level tag.
func (s *Store) FindByTag(tag string) ([]string, error) {
	infos, err := s.ListPromptInfos()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, info := range infos {
		for _, t := range info.Tags {
			if t == tag {
				names = append(names, info.Name)
				break
			}
		}
	}
	return names, nil
}

// RemovePrompt deletes a prompt and all its revisions.
func (s *Store) RemovePrompt(name string) error {
	if err := s.ensureInit(); err != nil {
		return err
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if !s.backend.Exists(metaPath(name)) {
		return errors.PromptNotFoundError(name)
	}
	if err := s.backend.RemoveAll(promptsDir + "/" + name); err != nil {
		return errors.StorageError("remove prompt directory", err)
	}
	return nil
}

// Internal helpers

func (s *Store) ensureInit() error {
	if !s.Initialized() {
		return errors.NotInitializedError(s.root)
	}
	return nil
}

func (s *Store) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}

func (s *Store) readMeta(name string) (*promptMeta, error) {
	data, err := s.backend.ReadFile(metaPath(name))
	if err != nil {
		return nil, errors.PromptNotFoundError(name)
	}
	var meta promptMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMetaCorrupted,
			fmt.Sprintf("metadata for '%s' is not valid JSON", name))
	}
	if len(meta.Versions) == 0 {
		return nil, errors.NewAppError(errors.ErrCodeMetaCorrupted,
			fmt.Sprintf("metadata for '%s' lists no versions", name))
	}
	return &meta, nil
}

func (s *Store) writeMeta(name string, meta *promptMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.StorageError("encode prompt metadata", err)
	}
	if err := s.backend.WriteFile(metaPath(name), data); err != nil {
		return errors.StorageError("write prompt metadata", err)
	}
	return nil
}

func (s *Store) revision(name string, vm versionMeta, content string) *models.Revision {
	return &models.Revision{
		PromptName:  name,
		Version:     vm.Version,
		Content:     content,
		ContentHash: vm.Hash,
		CreatedAt:   vm.CreatedAt,
		Message:     vm.Message,
		Tag:         vm.Tag,
		Metadata:    vm.Metadata,
	}
}

func findVersion(meta *promptMeta, version int) (versionMeta, bool) {
	for _, vm := range meta.Versions {
		if vm.Version == version {
			return vm, true
		}
	}
	return versionMeta{}, false
}

func metaPath(name string) string {
	return promptsDir + "/" + name + "/meta.json"
}

func versionPath(name string, version int) string {
	return fmt.Sprintf("%s/%s/v%d.txt", promptsDir, name, version)
}

func validateName(name string) error {
	if name == "" {
		return errors.ValidationError("prompt name must not be empty")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return errors.ValidationError(fmt.Sprintf("invalid prompt name '%s'", name))
	}
	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}
