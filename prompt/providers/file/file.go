// Package file implements a prompt.PromptManager backed by a directory of
// JSON template files. Each *.json file in the directory holds one
// prompt.Template; versions of the same template live in separate files.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/peraturan-ai/legalrag/prompt"
	"github.com/peraturan-ai/legalrag/schema"
)

// FileManager loads templates from a directory at construction time and
// serves them read-only afterwards.
type FileManager struct {
	mu        sync.RWMutex
	dir       string
	templates map[string]map[string]*prompt.Template // name -> version -> template
}

var _ prompt.PromptManager = (*FileManager)(nil)

// NewFileManager reads every *.json template under dir. Subdirectories and
// non-JSON files are skipped. A malformed or invalid template fails the
// whole load.
func NewFileManager(dir string) (*FileManager, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("file: cannot access directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("file: %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("file: cannot access directory %s: %w", dir, err)
	}

	fm := &FileManager{dir: dir, templates: make(map[string]map[string]*prompt.Template)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("file: reading %s: %w", path, err)
		}
		var tmpl prompt.Template
		if err := json.Unmarshal(data, &tmpl); err != nil {
			return nil, fmt.Errorf("file: parsing %s: %w", path, err)
		}
		if err := tmpl.Validate(); err != nil {
			return nil, fmt.Errorf("file: validating %s: %w", path, err)
		}
		versions := fm.templates[tmpl.Name]
		if versions == nil {
			versions = make(map[string]*prompt.Template)
			fm.templates[tmpl.Name] = versions
		}
		versions[tmpl.Version] = &tmpl
	}
	return fm, nil
}

// Get implements prompt.PromptManager. An empty version selects the highest
// version string.
func (fm *FileManager) Get(name string, version string) (*prompt.Template, error) {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	versions, ok := fm.templates[name]
	if !ok {
		return nil, fmt.Errorf("file: template %q not found", name)
	}
	if version != "" {
		tmpl, ok := versions[version]
		if !ok {
			return nil, fmt.Errorf("file: template %q version %q not found", name, version)
		}
		return tmpl, nil
	}

	var latest *prompt.Template
	for _, tmpl := range versions {
		if latest == nil || tmpl.Version > latest.Version {
			latest = tmpl
		}
	}
	return latest, nil
}

// Render implements prompt.PromptManager, rendering the latest version of
// the named template into a single system message.
func (fm *FileManager) Render(name string, vars map[string]any) ([]schema.Message, error) {
	tmpl, err := fm.Get(name, "")
	if err != nil {
		return nil, err
	}
	rendered, err := tmpl.Render(vars)
	if err != nil {
		return nil, err
	}
	return []schema.Message{schema.NewSystemMessage(rendered)}, nil
}

// List implements prompt.PromptManager, returning every stored
// name/version pair sorted by name ascending then version descending.
func (fm *FileManager) List() []prompt.TemplateInfo {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	var infos []prompt.TemplateInfo
	for _, versions := range fm.templates {
		for _, tmpl := range versions {
			infos = append(infos, prompt.TemplateInfo{
				Name:     tmpl.Name,
				Version:  tmpl.Version,
				Metadata: tmpl.Metadata,
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Name != infos[j].Name {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].Version > infos[j].Version
	})
	return infos
}
