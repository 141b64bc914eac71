package promptstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// frontmatter mirrors the YAML header of a ".prompt" file.
type frontmatter struct {
	Model       string  `yaml:"model"`
	Provider    string  `yaml:"provider"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int    `yaml:"max_tokens"`
}

// FilesystemStore loads "{pipeline_key}.prompt" files from promptsDir, and
// "{pipeline_key}@{domainID}.prompt" when a domain-specific variant exists
// (mirroring the original prompt manager's domain_configs override).
type FilesystemStore struct {
	promptsDir string

	mu    sync.RWMutex
	cache map[string]string // file path -> raw contents
}

func NewFilesystemStore(promptsDir string) *FilesystemStore {
	return &FilesystemStore{promptsDir: promptsDir, cache: make(map[string]string)}
}

func (s *FilesystemStore) GetFormattedPromptAndConfig(ctx context.Context, pipelineKey string, vars map[string]interface{}, domainID string) (Bundle, error) {
	raw, err := s.read(pipelineKey, domainID)
	if err != nil {
		return Bundle{}, err
	}

	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return Bundle{}, fmt.Errorf("prompt %q: %w", pipelineKey, err)
	}

	rendered := renderTemplate(body, vars)

	cfg := PromptConfig{
		Model:       fm.Model,
		Provider:    fm.Provider,
		Temperature: fm.Temperature,
		MaxTokens:   fm.MaxTokens,
	}

	return Bundle{Prompt: rendered, Config: cfg}, nil
}

func (s *FilesystemStore) read(pipelineKey, domainID string) (string, error) {
	candidates := []string{}
	if domainID != "" {
		candidates = append(candidates, filepath.Join(s.promptsDir, fmt.Sprintf("%s@%s.prompt", pipelineKey, domainID)))
	}
	candidates = append(candidates, filepath.Join(s.promptsDir, pipelineKey+".prompt"))

	for _, path := range candidates {
		s.mu.RLock()
		if cached, ok := s.cache[path]; ok {
			s.mu.RUnlock()
			return cached, nil
		}
		s.mu.RUnlock()

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}

		s.mu.Lock()
		s.cache[path] = string(data)
		s.mu.Unlock()
		return string(data), nil
	}

	return "", fmt.Errorf("no prompt file found for pipeline_key %q", pipelineKey)
}

func splitFrontmatter(raw string) (frontmatter, string, error) {
	var fm frontmatter
	trimmed := strings.TrimLeft(raw, "\n")
	if !strings.HasPrefix(trimmed, "---") {
		return fm, raw, nil
	}

	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return fm, raw, nil
	}

	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return fm, "", fmt.Errorf("invalid frontmatter: %w", err)
	}

	return fm, strings.TrimLeft(parts[2], "\n"), nil
}

var placeholderRE = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// renderTemplate substitutes "{{name}}" placeholders with the stringified
// value of vars["name"], leaving unknown placeholders untouched.
func renderTemplate(body string, vars map[string]interface{}) string {
	return placeholderRE.ReplaceAllStringFunc(body, func(match string) string {
		name := placeholderRE.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			return match
		}
		return stringify(value)
	})
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "%v", v)
		return buf.String()
	}
}
