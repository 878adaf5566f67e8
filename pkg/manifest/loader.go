package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

const logPrefix = "manifest:loader"

// LoadManifestConfig loads the compiled-intent manifest from file paths or
// environment. It tries paths in order: first any paths passed in, then
// INTENTS_MANIFEST_FILE env, then defaults. So an explicit path (e.g. from
// "manifest my.json") is tried before the env var.
func LoadManifestConfig(paths ...string) (*ManifestConfig, error) {
	// Build path list: passed paths first, then env, then defaults
	all := make([]string, 0, len(paths)+4)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("INTENTS_MANIFEST_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/manifest.json", "manifest.json")
	paths = all

	for _, p := range paths {
		if p == "" {
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		var cfg ManifestConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse manifest file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded intent manifest from %s", logPrefix, p))
		return &cfg, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default intent manifest", logPrefix))
	return GetDefaultManifestConfig(), nil
}

// GetDefaultManifestConfig returns the embedded fallback manifest.
func GetDefaultManifestConfig() *ManifestConfig {
	return &ManifestConfig{
		Name:        "intentwire-manifest",
		Version:     "1.0.0",
		Description: "Default compiled-intent manifest",
		Intents: map[string]CompiledIntent{
			"get_counter": {
				Title:   "Get Counter",
				Phrases: []string{"What is my counter", "Check my counter"},
			},
			"increment_counter": {
				Title:   "Increment Counter",
				Phrases: []string{"Increment my counter", "Bump the counter"},
			},
			"order_coffee": {
				Title:   "Order Coffee",
				Phrases: []string{"Order me a coffee"},
			},
			"open_settings": {
				Title:            "Open Settings",
				Phrases:          []string{"Open the settings"},
				MinimumOSVersion: "ios >= 16.0",
				IsSystem:         true,
			},
		},
		Aliases: map[string]string{
			"counter": "get_counter",
		},
		Events: EventSubjects{
			Donation:  "intents.donated",
			Shortcuts: "intents.shortcuts.changed",
			Pattern:   "intents.donated.{identifier}",
		},
	}
}

// CreateResolvedManifest builds a Resolved manifest for fast lookups.
func CreateResolvedManifest(cfg *ManifestConfig) *Resolved {
	intents := make(map[string]*CompiledIntent, len(cfg.Intents))
	for id, ci := range cfg.Intents {
		c := ci // copy to avoid pointer aliasing
		intents[id] = &c
	}

	aliases := make(map[string]string, len(cfg.Aliases))
	for alias, target := range cfg.Aliases {
		aliases[alias] = target
	}

	return &Resolved{
		name:    cfg.Name,
		version: cfg.Version,
		intents: intents,
		aliases: aliases,
		events:  cfg.Events,
	}
}

// MergeManifestConfigs merges an override manifest into a base manifest.
// Neither input is modified.
func MergeManifestConfigs(base, override *ManifestConfig) *ManifestConfig {
	merged := *base

	// Merge intents
	merged.Intents = make(map[string]CompiledIntent, len(base.Intents)+len(override.Intents))
	for id, ci := range base.Intents {
		merged.Intents[id] = ci
	}
	for id, ci := range override.Intents {
		merged.Intents[id] = ci
	}

	// Merge aliases
	merged.Aliases = make(map[string]string, len(base.Aliases)+len(override.Aliases))
	for alias, target := range base.Aliases {
		merged.Aliases[alias] = target
	}
	for alias, target := range override.Aliases {
		merged.Aliases[alias] = target
	}

	// Override event subjects if set
	if override.Events.Donation != "" {
		merged.Events.Donation = override.Events.Donation
	}
	if override.Events.Shortcuts != "" {
		merged.Events.Shortcuts = override.Events.Shortcuts
	}
	if override.Events.Pattern != "" {
		merged.Events.Pattern = override.Events.Pattern
	}

	return &merged
}
