// Package config provides configuration loading, provider configuration,
// and file watching for the legal retrieval engine.
//
// # Loading Configuration
//
// [LoadConfig] reads the per-backend LLM settings into the package-level
// [Cfg] variable with Viper. It looks for a YAML file named "config" in the
// current directory, /etc/legalrag/, $HOME/.legalrag and any extra paths
// given, applies built-in defaults, and enables environment-variable
// overrides with the BELUGA prefix. A missing file is not an error.
//
// [LoadEngineConfig] reads [EngineConfig], the pipeline-level tunables, from
// an optional "engine" YAML file under the given paths and from environment
// variables prefixed LEGALRAG_, layered on top of [DefaultEngineConfig], and
// checks the result against its validate struct tags.
//
// The package does not read JSON configuration files and has no generic
// struct-tag default or validation helpers: the default, required, min and
// max tags on other structs are not applied by any function here.
//
// # Provider Configuration
//
// [ProviderConfig] holds common configuration for any external provider
// (LLM, embedding, vector store, etc.), including provider name, API key,
// model identifier, base URL, timeout, and a flexible Options map for
// provider-specific settings. [GetOption] retrieves typed values from the
// Options map:
//
//	temp, ok := config.GetOption[float64](cfg, "temperature")
//
// # File Watching
//
// The [Watcher] interface abstracts configuration change detection.
// [FileWatcher] polls a file at regular intervals using SHA-256 content
// hashing, invoking a callback when changes are detected:
//
//	watcher := config.NewFileWatcher("config.json", 5*time.Second)
//	err := watcher.Watch(ctx, func(newConfig any) {
//	    data := newConfig.([]byte)
//	    // re-parse and apply configuration
//	})
package config
