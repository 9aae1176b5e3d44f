package project

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// Metadata identifies one project. It lives in .grit/metadata.toml and
// is committed with the repository, so every clone maps to the same
// ledger file in the global config area.
type Metadata struct {
	ProjectID string `toml:"project_id"`
}

// NewMetadata generates metadata with a fresh project id.
func NewMetadata() Metadata {
	return Metadata{ProjectID: uuid.NewString()}
}

// LoadMetadata reads metadata from path.
func LoadMetadata(path string) (Metadata, error) {
	var md Metadata

	content, err := os.ReadFile(path)
	if err != nil {
		return md, fmt.Errorf("read metadata: %w", err)
	}
	if err := toml.Unmarshal(content, &md); err != nil {
		return md, fmt.Errorf("parse metadata: %w", err)
	}
	if md.ProjectID == "" {
		return md, fmt.Errorf("metadata at %s has no project_id", path)
	}
	return md, nil
}

// Save writes metadata to path.
func (m Metadata) Save(path string) error {
	content, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
