package workflows

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrTemplateNotFound is returned when a named template file does not exist
// under the loader's templates directory.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateFile is a loaded, validated template plus its provenance.
type TemplateFile struct {
	FilePath string
	Name     string
	Template *Template
	Checksum string
}

// Loader reads `{name}.yml` template files from a single directory, the way
// the REST handlers resolve `POST /api/workflow/{template}`.
type Loader struct {
	templatesDir string
}

func NewLoader(templatesDir string) *Loader {
	return &Loader{templatesDir: templatesDir}
}

// LoadByName loads and validates "{name}.yml" from the loader's directory.
func (l *Loader) LoadByName(name string) (*TemplateFile, error) {
	path := filepath.Join(l.templatesDir, name+".yml")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrTemplateNotFound
	}
	return l.LoadFile(path)
}

func (l *Loader) LoadFile(filePath string) (*TemplateFile, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	var tmpl Template
	if err := yaml.Unmarshal(content, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse template yaml: %w", err)
	}

	result := Validate(&tmpl)
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, result.Errors[0].Message)
	}

	return &TemplateFile{
		FilePath: filePath,
		Name:     extractTemplateName(filePath),
		Template: &tmpl,
		Checksum: computeChecksum(content),
	}, nil
}

// ListAll returns every "*.yml" template file in the loader's directory,
// best-effort: parse failures are skipped rather than failing the whole scan.
func (l *Loader) ListAll() ([]*TemplateFile, error) {
	if _, err := os.Stat(l.templatesDir); os.IsNotExist(err) {
		return nil, nil
	}

	matches, err := filepath.Glob(filepath.Join(l.templatesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan templates dir: %w", err)
	}

	var out []*TemplateFile
	for _, path := range matches {
		tf, err := l.LoadFile(path)
		if err != nil {
			continue
		}
		out = append(out, tf)
	}
	return out, nil
}

func extractTemplateName(filePath string) string {
	base := filepath.Base(filePath)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

func computeChecksum(content []byte) string {
	hash := md5.Sum(content)
	return hex.EncodeToString(hash[:])
}
