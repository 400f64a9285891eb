package replicate

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/config"
)

// DefaultPolicy returns the embedded exclusion policy. The keys listed
// here are bound to the source app's environment — storage endpoints,
// telemetry keys and platform-assigned identifiers — and copying them
// would point the target at the source's backing resources.
func DefaultPolicy() ExclusionPolicy {
	return ExclusionPolicy{
		SettingKeys: []string{
			"AzureWebJobsStorage",
			"AzureWebJobsDashboard",
			"APPINSIGHTS_INSTRUMENTATIONKEY",
			"APPLICATIONINSIGHTS_CONNECTION_STRING",
			"WEBSITE_CONTENTAZUREFILECONNECTIONSTRING",
			"WEBSITE_CONTENTSHARE",
			"WEBSITE_RUN_FROM_PACKAGE",
		},
		// Connection strings are copied in full unless explicitly
		// excluded.
		ConnectionStringNames: nil,
	}
}

// LoadPolicy reads an exclusion policy from one or more YAML sources.
// Later sources override earlier ones, and ${VAR} references are expanded
// from the environment. Expected document shape:
//
//	exclusions:
//	  settingKeys:
//	    - AzureWebJobsStorage
//	  connectionStringNames:
//	    - LegacyDb
func LoadPolicy(sources ...io.Reader) (ExclusionPolicy, error) {
	var result ExclusionPolicy
	var options []config.YAMLOption
	for _, s := range sources {
		options = append(options, config.Source(s))
	}
	options = append(options, config.Expand(os.LookupEnv))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("%w: failed to read yaml policy %v", ErrInvalidPolicy, err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("%w: failed to read '%s' from yaml policy %v", ErrInvalidPolicy, key, cause)
	}
	key := "exclusions.settingKeys"
	if yaml.Get(key).HasValue() {
		if err := yaml.Get(key).Populate(&result.SettingKeys); err != nil {
			return result, readError(key, err)
		}
	}
	key = "exclusions.connectionStringNames"
	if yaml.Get(key).HasValue() {
		if err := yaml.Get(key).Populate(&result.ConnectionStringNames); err != nil {
			return result, readError(key, err)
		}
	}
	if err := result.Validate(); err != nil {
		return result, err
	}
	return result, nil
}

// LoadPolicyFile reads an exclusion policy from a YAML file on disk.
func LoadPolicyFile(path string) (ExclusionPolicy, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExclusionPolicy{}, fmt.Errorf("%w: failed to open policy file %v", ErrInvalidPolicy, err)
	}
	defer f.Close()
	return LoadPolicy(f)
}
