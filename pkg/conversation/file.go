package conversation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk representation of a conversation accepted by the
// CLI: the ordered items plus an optional retained-ID list chosen by an
// external prioritizer.
type Document struct {
	Items    []ContentItem `json:"items" yaml:"items"`
	Retained []string      `json:"retained,omitempty" yaml:"retained,omitempty"`
}

// LoadFile reads a conversation document from a YAML (or JSON) file.
func LoadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("conversation: reading %s: %w", path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("conversation: parsing %s: %w", path, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("conversation: %s: %w", path, err)
	}
	return &doc, nil
}

// Validate checks structural validity: every item has an ID, IDs are unique,
// and every retained ID refers to an item.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Items))
	for i, it := range d.Items {
		if it.ID == "" {
			return fmt.Errorf("item %d has no id", i)
		}
		if seen[it.ID] {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		seen[it.ID] = true
	}
	for _, id := range d.Retained {
		if !seen[id] {
			return fmt.Errorf("retained id %q does not match any item", id)
		}
	}
	return nil
}
