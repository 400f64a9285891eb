package replicate

import (
	"fmt"
	"strings"
)

// AppSetting is a single key/value runtime configuration entry attached to
// a web app. Keys are case-insensitively unique within a snapshot.
type AppSetting struct {
	Key   string
	Value string
}

// ConnectionStringEntry is a named, typed connection descriptor attached
// to a web app, distinct from plain settings. Type is an opaque
// passthrough tag (e.g. "SQLAzure", "Custom") — never reinterpreted.
type ConnectionStringEntry struct {
	Name  string
	Type  string
	Value string
}

// ConfigSnapshot is the immutable result of reading an app's settings and
// connection strings under one subscription context. Slices preserve the
// order the entries were read in — filtering and reporting both rely on
// that order. A snapshot is owned by the run that created it and is
// discarded after apply; nothing persists across runs.
type ConfigSnapshot struct {
	Settings          []AppSetting
	ConnectionStrings []ConnectionStringEntry
	SourceContext     SubscriptionContext
}

// NewConfigSnapshot validates and assembles a snapshot from a source read.
// Setting keys must be non-empty and case-insensitively unique; connection
// string names must be non-empty and unique.
func NewConfigSnapshot(settings []AppSetting, connectionStrings []ConnectionStringEntry, source SubscriptionContext) (ConfigSnapshot, error) {
	seenKeys := make(map[string]string, len(settings))
	for _, s := range settings {
		if s.Key == "" {
			return ConfigSnapshot{}, fmt.Errorf("app setting with empty key")
		}
		lower := strings.ToLower(s.Key)
		if existing, found := seenKeys[lower]; found {
			return ConfigSnapshot{}, fmt.Errorf("duplicate app setting key %q (conflicts with %q)", s.Key, existing)
		}
		seenKeys[lower] = s.Key
	}

	seenNames := make(map[string]bool, len(connectionStrings))
	for _, c := range connectionStrings {
		if c.Name == "" {
			return ConfigSnapshot{}, fmt.Errorf("connection string with empty name")
		}
		if seenNames[c.Name] {
			return ConfigSnapshot{}, fmt.Errorf("duplicate connection string name %q", c.Name)
		}
		seenNames[c.Name] = true
	}

	return ConfigSnapshot{
		Settings:          settings,
		ConnectionStrings: connectionStrings,
		SourceContext:     source,
	}, nil
}

// SettingKeys returns the snapshot's setting keys in read order.
func (s ConfigSnapshot) SettingKeys() []string {
	keys := make([]string, len(s.Settings))
	for i, setting := range s.Settings {
		keys[i] = setting.Key
	}
	return keys
}

// ConnectionStringNames returns the snapshot's connection string names in
// read order.
func (s ConfigSnapshot) ConnectionStringNames() []string {
	names := make([]string, len(s.ConnectionStrings))
	for i, entry := range s.ConnectionStrings {
		names[i] = entry.Name
	}
	return names
}
