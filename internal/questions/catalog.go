// Package questions loads and serves the immutable trivia catalog.
package questions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/seeded"
)

// Catalog is read-only reference data shared by every match on a client.
type Catalog struct {
	byID map[string]models.Question
	ids  []string
	all  []models.Question
}

type catalogFile struct {
	Questions []models.Question `yaml:"questions"`
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question catalog: %w", err)
	}
	return FromSlice(file.Questions)
}

// FromSlice builds a catalog from already-decoded questions, validating that
// every item carries an id, a prompt, and at least one acceptable answer.
func FromSlice(qs []models.Question) (*Catalog, error) {
	if len(qs) == 0 {
		return nil, fmt.Errorf("question catalog is empty")
	}
	c := &Catalog{byID: make(map[string]models.Question, len(qs))}
	for i, q := range qs {
		if q.ID == "" || q.Question == "" || len(q.Answers) == 0 {
			return nil, fmt.Errorf("question %d is malformed (id=%q)", i, q.ID)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		c.byID[q.ID] = q
		c.ids = append(c.ids, q.ID)
		c.all = append(c.all, q)
	}
	return c, nil
}

// Get returns the question with the given id.
func (c *Catalog) Get(id string) (models.Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Len returns how many questions the catalog holds.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// All returns every question in catalog order.
func (c *Catalog) All() []models.Question {
	return c.all
}

// ShuffledIDs returns up to n question ids in a seeded order. Both match
// participants derive the round order from the same seed, so the permutation
// must be identical on every client.
func (c *Catalog) ShuffledIDs(seed string, n int) []string {
	out := seeded.ShuffleStrings(seed, c.ids)
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
