package kaggle

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

type License struct {
	Name string `json:"name"`
}

// Metadata mirrors Kaggle's dataset-metadata.json.
type Metadata struct {
	Title       string    `json:"title"`
	ID          string    `json:"id"` // owner/slug
	Licenses    []License `json:"licenses"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Description string    `json:"description,omitempty"`
	IsPrivate   bool      `json:"isPrivate,omitempty"`
}

func LoadMetadata(path string) (*Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("kaggle: parse metadata %s: %w", path, err)
	}
	return &m, nil
}

// InjectDescription replaces the metadata description with the markdown file at path.
func (m *Metadata) InjectDescription(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m.Description = string(b)
	return nil
}

// OwnerSlug splits the dataset id.
func (m Metadata) OwnerSlug() (owner, slug string, err error) {
	owner, slug, ok := strings.Cut(m.ID, "/")
	if !ok || owner == "" || slug == "" || strings.Contains(slug, "/") {
		return "", "", fmt.Errorf("kaggle: dataset id %q must look like owner/slug", m.ID)
	}
	return owner, slug, nil
}

func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("kaggle: metadata has no title")
	}
	_, _, err := m.OwnerSlug()
	return err
}

func (m Metadata) licenseName() string {
	if len(m.Licenses) == 0 || m.Licenses[0].Name == "" {
		return "unknown"
	}
	return m.Licenses[0].Name
}
