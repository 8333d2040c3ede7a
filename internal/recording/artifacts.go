package recording

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifact serializes v as indented JSON into the extraction directory,
// creating it when needed. Artifacts are the persisted stage outputs consumed
// by the report assembler and by downstream tooling.
func WriteArtifact(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create extraction directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// ReadArtifact loads a JSON artifact into v. Missing artifacts are reported
// via os.IsNotExist so callers can distinguish "stage never ran" from
// corruption.
func ReadArtifact(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
