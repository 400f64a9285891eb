package replicate

import (
	"fmt"
	"strings"
)

// ExclusionPolicy is the declarative list of setting keys and connection
// string names that must never be copied from source to target. Matching
// is exact and case-sensitive: the policy author lists exact names, which
// trades convenience for precision — silent over-matching would drop
// settings a user expected to keep.
//
// The policy only supports drop, never rewrite. Automatic rewriting of
// environment-bound values is unsafe without resource-specific knowledge,
// so included values are copied verbatim.
type ExclusionPolicy struct {
	SettingKeys           []string
	ConnectionStringNames []string
}

// Validate checks the policy for malformed entries. An empty or
// whitespace-only entry can never match a real key and indicates a broken
// policy document rather than an intentional exclusion.
func (p ExclusionPolicy) Validate() error {
	for _, k := range p.SettingKeys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: blank entry in excluded setting keys", ErrInvalidPolicy)
		}
	}
	for _, n := range p.ConnectionStringNames {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: blank entry in excluded connection string names", ErrInvalidPolicy)
		}
	}
	return nil
}

// ExcludesSetting reports whether key is excluded by the policy.
func (p ExclusionPolicy) ExcludesSetting(key string) bool {
	for _, k := range p.SettingKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ExcludesConnectionString reports whether name is excluded by the policy.
func (p ExclusionPolicy) ExcludesConnectionString(name string) bool {
	for _, n := range p.ConnectionStringNames {
		if n == name {
			return true
		}
	}
	return false
}

// FilterSettings partitions settings into those to copy and the keys that
// were excluded. Iteration order is the snapshot's read order, preserved
// in both results. Included settings pass through unchanged.
//
// The result is a strict partition: every input key appears in exactly one
// of the two results.
func FilterSettings(settings []AppSetting, policy ExclusionPolicy) (included []AppSetting, excludedKeys []string, err error) {
	if err := policy.Validate(); err != nil {
		return nil, nil, err
	}
	for _, s := range settings {
		if policy.ExcludesSetting(s.Key) {
			excludedKeys = append(excludedKeys, s.Key)
			continue
		}
		included = append(included, s)
	}
	return included, excludedKeys, nil
}

// FilterConnectionStrings partitions connection string entries the same
// way FilterSettings partitions settings, keyed by entry name. Included
// entries retain their declared type tag verbatim.
func FilterConnectionStrings(entries []ConnectionStringEntry, policy ExclusionPolicy) (included []ConnectionStringEntry, excludedNames []string, err error) {
	if err := policy.Validate(); err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if policy.ExcludesConnectionString(e.Name) {
			excludedNames = append(excludedNames, e.Name)
			continue
		}
		included = append(included, e)
	}
	return included, excludedNames, nil
}
