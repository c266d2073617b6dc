// Package prompt provides named, versioned prompt templates, a PromptManager
// storage interface with pluggable providers, and a Builder that assembles
// message lists in a fixed, cache-friendly slot order.
package prompt
