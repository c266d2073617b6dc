package prompt

import "github.com/peraturan-ai/legalrag/schema"

// TemplateInfo summarizes a stored template for listing.
type TemplateInfo struct {
	Name     string
	Version  string
	Metadata map[string]any
}

// PromptManager stores and renders named, versioned prompt templates.
// Implementations decide the backing store; see providers/file for a
// directory-backed one.
type PromptManager interface {
	// Get returns the template with the given name. An empty version selects
	// the latest stored version.
	Get(name string, version string) (*Template, error)

	// Render renders the latest version of the named template into messages
	// ready to send to a chat model.
	Render(name string, vars map[string]any) ([]schema.Message, error)

	// List enumerates stored templates.
	List() []TemplateInfo
}
