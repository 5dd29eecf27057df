// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package theme manages the pool of article topics: which are still
// unused, which have been consumed, and topping the pool back up through
// a Generator when it runs low.
//
// A Store is loaded once per run, mutated in memory, and written back
// with an explicit Save. Nothing is persisted implicitly except by
// ReplenishIfNeeded, which saves after appending new themes.
package theme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

// DefaultMinUnused is the replenishment target used when Options leaves it unset.
const DefaultMinUnused = 3

var (
	// ErrEmptyPool is returned by Next when no unused theme remains after
	// a replenishment attempt.
	ErrEmptyPool = errors.New("no unused themes available")

	// ErrNotFound is returned when an identifier does not match any theme.
	ErrNotFound = errors.New("theme not found")

	// ErrDuplicate is returned by Add when the title already exists.
	ErrDuplicate = errors.New("duplicate theme title")

	// ErrStoreMissing is returned by Open when the document does not exist
	// and CreateIfMissing is false.
	ErrStoreMissing = errors.New("theme file not found")
)

// Generator produces candidate theme titles. Implementations may return
// fewer or more than n titles and may repeat existing ones; the Store
// filters the result.
type Generator interface {
	Generate(ctx context.Context, n int) ([]string, error)
}

// ThemeGenerator is implemented by generators that also propose the reader
// problem, angle and image keywords of each theme. ReplenishIfNeeded uses
// GenerateThemes when the configured Generator provides it. Only Title,
// TargetPain, Approach and Keywords of the returned themes are kept.
type ThemeGenerator interface {
	GenerateThemes(ctx context.Context, n int) ([]types.Theme, error)
}

// Options configures a Store.
type Options struct {
	// Generator is consulted by ReplenishIfNeeded. Nil disables replenishment.
	Generator Generator

	// MinUnused is the replenishment target (default 3).
	MinUnused int

	// CreateIfMissing starts from an empty document instead of failing.
	CreateIfMissing bool

	// Now returns the creation timestamp for new themes. Defaults to time.Now.
	Now func() time.Time
}

// Store is an ordered collection of themes backed by a single document.
type Store struct {
	path      string
	themes    []types.Theme
	gen       Generator
	minUnused int
	now       func() time.Time
}

// Open loads the theme document at path.
func Open(path string, opts Options) (*Store, error) {
	s := &Store{
		path:      path,
		gen:       opts.Generator,
		minUnused: opts.MinUnused,
		now:       opts.Now,
	}
	if s.minUnused <= 0 {
		s.minUnused = DefaultMinUnused
	}
	if s.now == nil {
		s.now = time.Now
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if opts.CreateIfMissing {
				return s, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrStoreMissing, path)
		}
		return nil, fmt.Errorf("reading theme file %s: %w", path, err)
	}

	doc, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("parsing theme file %s: %w", path, err)
	}
	s.themes = doc.Themes
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Themes returns a copy of all themes in insertion order.
func (s *Store) Themes() []types.Theme {
	out := make([]types.Theme, len(s.themes))
	copy(out, s.themes)
	return out
}

// Titles returns every title in insertion order, used and unused.
func (s *Store) Titles() []string {
	out := make([]string, len(s.themes))
	for i, t := range s.themes {
		out[i] = t.Title
	}
	return out
}

// Get returns the theme with the given identifier.
func (s *Store) Get(id int) (types.Theme, error) {
	for _, t := range s.themes {
		if t.ID == id {
			return t, nil
		}
	}
	return types.Theme{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

// UnusedCount returns the number of themes with Used == false.
func (s *Store) UnusedCount() int {
	n := 0
	for _, t := range s.themes {
		if !t.Used {
			n++
		}
	}
	return n
}

// Next attempts replenishment and then returns the earliest-inserted
// unused theme.
func (s *Store) Next(ctx context.Context) (types.Theme, error) {
	if _, err := s.ReplenishIfNeeded(ctx); err != nil {
		return types.Theme{}, err
	}
	for _, t := range s.themes {
		if !t.Used {
			return t, nil
		}
	}
	return types.Theme{}, ErrEmptyPool
}

// MarkUsed flags the theme as consumed. The change is in memory until Save.
func (s *Store) MarkUsed(id int) error {
	for i := range s.themes {
		if s.themes[i].ID == id {
			s.themes[i].Used = true
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", ErrNotFound, id)
}

// Reset marks every theme unused.
func (s *Store) Reset() {
	for i := range s.themes {
		s.themes[i].Used = false
	}
}

// Add appends a new unused theme. It rejects titles that already exist
// (case-insensitively) and blank titles.
func (s *Store) Add(title, targetPain, approach string) (types.Theme, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return types.Theme{}, fmt.Errorf("theme title must not be empty")
	}
	if _, dup := s.titleSet()[types.TitleKey(title)]; dup {
		return types.Theme{}, fmt.Errorf("%w: %q", ErrDuplicate, title)
	}
	t := s.appendTheme(title)
	t.TargetPain, t.Approach = targetPain, approach
	s.themes[len(s.themes)-1] = t
	return t, nil
}

// ReplenishIfNeeded tops the pool back up to MinUnused unused themes when
// the unused count is at or below MinUnused. New titles that duplicate an
// existing title, or each other, are dropped. Generator errors are logged
// and swallowed. The store is saved when at least one theme was added; a
// save failure is returned.
func (s *Store) ReplenishIfNeeded(ctx context.Context) ([]types.Theme, error) {
	unused := s.UnusedCount()
	if unused > s.minUnused {
		return nil, nil
	}
	need := s.minUnused - unused
	if need == 0 || s.gen == nil {
		return nil, nil
	}

	log := logger.G(ctx).WithField("unused", unused).WithField("requested", need)
	log.Info("replenishing theme pool")

	candidates, err := s.generate(ctx, need)
	if err != nil {
		log.WithError(err).Warn("theme generation failed, continuing with existing pool")
		return nil, nil
	}

	seen := s.titleSet()
	var added []types.Theme
	for _, c := range candidates {
		if len(added) == need {
			break
		}
		title := strings.TrimSpace(c.Title)
		key := types.TitleKey(title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			log.WithField("title", title).Debug("skipping duplicate theme")
			continue
		}
		seen[key] = struct{}{}

		t := s.appendTheme(title)
		t.TargetPain = strings.TrimSpace(c.TargetPain)
		t.Approach = strings.TrimSpace(c.Approach)
		t.Keywords = c.Keywords
		s.themes[len(s.themes)-1] = t
		added = append(added, t)
	}

	if len(added) == 0 {
		log.Warn("generator returned no new unique themes")
		return nil, nil
	}
	if err := s.Save(); err != nil {
		return added, err
	}
	log.WithField("added", len(added)).Info("theme pool replenished")
	return added, nil
}

func (s *Store) generate(ctx context.Context, n int) ([]types.Theme, error) {
	if tg, ok := s.gen.(ThemeGenerator); ok {
		return tg.GenerateThemes(ctx, n)
	}
	titles, err := s.gen.Generate(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.Theme, len(titles))
	for i, title := range titles {
		out[i] = types.Theme{Title: title}
	}
	return out, nil
}

// Save writes the document atomically: a temp file in the same directory
// is renamed over the target.
func (s *Store) Save() error {
	data, err := encode(s.path, types.ThemeFile{Themes: s.themes})
	if err != nil {
		return fmt.Errorf("encoding themes: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating theme directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".themes-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing themes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing theme file: %w", err)
	}
	return nil
}

func (s *Store) appendTheme(title string) types.Theme {
	t := types.Theme{
		ID:        s.nextID(),
		Title:     title,
		CreatedAt: s.now().UTC(),
	}
	s.themes = append(s.themes, t)
	return t
}

func (s *Store) nextID() int {
	max := 0
	for _, t := range s.themes {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

func (s *Store) titleSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.themes))
	for _, t := range s.themes {
		set[types.TitleKey(t.Title)] = struct{}{}
	}
	return set
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func decode(path string, data []byte) (types.ThemeFile, error) {
	var doc types.ThemeFile
	if isYAML(path) {
		err := yaml.Unmarshal(data, &doc)
		return doc, err
	}
	err := json.Unmarshal(data, &doc)
	return doc, err
}

func encode(path string, doc types.ThemeFile) ([]byte, error) {
	if doc.Themes == nil {
		doc.Themes = []types.Theme{}
	}
	if isYAML(path) {
		return yaml.Marshal(&doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
