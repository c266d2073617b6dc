package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// Template is a named, versioned prompt template using text/template syntax.
// Variables holds default values applied when a render call omits them.
type Template struct {
	Name      string            `json:"name"`
	Version   string            `json:"version,omitempty"`
	Content   string            `json:"content"`
	Variables map[string]string `json:"variables,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// Validate checks that the template has a name, content, and parseable
// template syntax.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("prompt: template name is required")
	}
	if t.Content == "" {
		return fmt.Errorf("prompt: template content is required")
	}
	if _, err := template.New(t.Name).Parse(t.Content); err != nil {
		return fmt.Errorf("prompt: template %q parse error: %w", t.Name, err)
	}
	return nil
}

// Render executes the template with vars layered over the template's default
// Variables. The template is validated first.
func (t *Template) Render(vars map[string]any) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	merged := make(map[string]any, len(t.Variables)+len(vars))
	for k, v := range t.Variables {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	tmpl, err := template.New(t.Name).Parse(t.Content)
	if err != nil {
		return "", fmt.Errorf("prompt: template %q parse error: %w", t.Name, err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, merged); err != nil {
		return "", fmt.Errorf("prompt: render %q: %w", t.Name, err)
	}
	return sb.String(), nil
}
