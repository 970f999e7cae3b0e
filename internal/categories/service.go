package categories

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/rentbook/internal/id"
	"github.com/cleared-dev/rentbook/internal/model"
)

// RelPath is the chart location inside a project.
const RelPath = "categories/categories.csv"

// Service provides in-memory lookup over the category chart.
type Service struct {
	cats   []model.Category
	byName map[string]model.Category
}

// NewService creates a Service from a slice of categories.
func NewService(cats []model.Category) *Service {
	byName := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		byName[strings.ToLower(c.Name)] = c
	}
	return &Service{cats: cats, byName: byName}
}

// Load reads categories/categories.csv from a project root.
func Load(root string) (*Service, error) {
	path := filepath.Join(root, RelPath)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening categories: %w", err)
	}
	defer f.Close()

	cats, err := ReadCategories(f)
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	if err := Validate(cats); err != nil {
		return nil, fmt.Errorf("invalid categories %s: %w", path, err)
	}
	return NewService(cats), nil
}

// Validate rejects charts where two categories would share a tracking-ID
// prefix, or where a name slugs to nothing.
func Validate(cats []model.Category) error {
	var errs []error
	seen := make(map[string]string, len(cats))
	for _, c := range cats {
		slug := id.Slug(c.Name)
		switch {
		case slug == "":
			errs = append(errs, fmt.Errorf("category %q: name needs at least one letter or digit", c.Name))
		case seen[slug] != "":
			errs = append(errs, fmt.Errorf("category %q: same tracking name as %q", c.Name, seen[slug]))
		default:
			seen[slug] = c.Name
		}
	}
	return errors.Join(errs...)
}

// All returns all categories in chart order.
func (s *Service) All() []model.Category {
	return s.cats
}

// Get returns a category by name (case-insensitive).
func (s *Service) Get(name string) (model.Category, bool) {
	c, ok := s.byName[strings.ToLower(name)]
	return c, ok
}

// Exists reports whether a category is in the chart.
func (s *Service) Exists(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// SplitEligible reports whether bills in the category are shared.
func (s *Service) SplitEligible(name string) bool {
	c, ok := s.Get(name)
	return ok && c.SplitEligible
}

// ByKind returns all categories of the given kind.
func (s *Service) ByKind(kind model.CategoryKind) []model.Category {
	var result []model.Category
	for _, c := range s.cats {
		if c.Kind == kind {
			result = append(result, c)
		}
	}
	return result
}

// Save writes the chart to categories/categories.csv.
func (s *Service) Save(root string) error {
	dir := filepath.Join(root, filepath.Dir(RelPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating categories dir: %w", err)
	}

	f, err := os.Create(filepath.Join(root, RelPath))
	if err != nil {
		return fmt.Errorf("creating categories file: %w", err)
	}
	defer f.Close()

	if err := WriteCategories(f, s.cats); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}
	return nil
}
