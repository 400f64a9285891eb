package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultManagementEndpoint is the public Azure Resource Manager endpoint.
const DefaultManagementEndpoint = "https://management.azure.com"

// armAPIVersion is the Microsoft.Web API version used for all site calls.
const armAPIVersion = "2022-03-01"

// TokenSource provides a bearer token for a subscription context.
type TokenSource interface {
	Token(sub SubscriptionContext) (string, error)
}

// EnvTokenSource resolves bearer tokens from a single environment
// variable. The value is either a JSON object mapping subscription ids to
// tokens (required when the two subscriptions need separate credentials),
// or a plain token shared by every subscription.
type EnvTokenSource struct {
	Var string
}

// Token returns the token for sub from the environment variable.
func (s EnvTokenSource) Token(sub SubscriptionContext) (string, error) {
	value := os.Getenv(s.Var)
	if value == "" {
		return "", fmt.Errorf("environment variable %s is not set", s.Var)
	}
	m := make(map[string]string)
	// Plain (non-JSON) values are a single token shared by both
	// subscriptions — skip the map lookup for those.
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		return value, nil
	}
	token, exists := m[sub.ID]
	if !exists {
		return "", fmt.Errorf("no token for subscription %s in %s", sub.ID, s.Var)
	}
	return token, nil
}

// AzureDirectory is a ResourceDirectory and ContextSwitcher backed by the
// Azure Resource Manager REST API for Web/Function apps.
//
// Activate establishes the bearer token for a subscription; every site
// call then verifies the subscription it is asked to act on matches the
// last activated one, so a call under the wrong context fails instead of
// silently reading or writing the wrong tenant.
type AzureDirectory struct {
	// Endpoint overrides the management endpoint. Defaults to
	// DefaultManagementEndpoint.
	Endpoint string
	Tokens   TokenSource
	// RecordDir, when set, records requests and responses under the
	// given directory for later inspection.
	RecordDir string
	// Transport overrides the HTTP transport. Used by tests.
	Transport http.RoundTripper

	active SubscriptionContext
	token  string
}

var (
	_ ResourceDirectory = (*AzureDirectory)(nil)
	_ ContextSwitcher   = (*AzureDirectory)(nil)
)

// Activate acquires a token for sub and makes it the active context.
func (a *AzureDirectory) Activate(ctx context.Context, sub SubscriptionContext) error {
	if sub.IsZero() {
		return fmt.Errorf("%w: empty subscription", ErrAuthContext)
	}
	if a.Tokens == nil {
		return fmt.Errorf("%w: no token source configured", ErrAuthContext)
	}
	token, err := a.Tokens.Token(sub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthContext, err)
	}
	a.active = sub
	a.token = token
	return nil
}

// Active returns the currently active subscription context.
func (a *AzureDirectory) Active() SubscriptionContext {
	return a.active
}

func (a *AzureDirectory) ensureActive(sub SubscriptionContext) error {
	if a.active != sub {
		return fmt.Errorf("%w: call for subscription %q but %q is active", ErrAuthContext, sub.ID, a.active.ID)
	}
	return nil
}

// managementAPIBuilder returns a new requests.Builder configured for the
// management API under the active context.
func (a *AzureDirectory) managementAPIBuilder() *requests.Builder {
	endpoint := a.Endpoint
	if endpoint == "" {
		endpoint = DefaultManagementEndpoint
	}
	result := requests.
		URL(endpoint).
		Client(&http.Client{Timeout: HTTPRequestTimeout}).
		Bearer(a.token).
		Param("api-version", armAPIVersion)
	if a.Transport != nil {
		result = result.Transport(a.Transport)
	} else if a.RecordDir != "" {
		result = result.Transport(requests.Record(nil, a.RecordDir))
	}
	return result
}

func (a *AzureDirectory) sitePath(ref ResourceRef, sub SubscriptionContext) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Web/sites/%s",
		sub.ID, ref.ResourceGroup, ref.Name)
}

// Exists reports whether the site exists under sub.
func (a *AzureDirectory) Exists(ctx context.Context, ref ResourceRef, sub SubscriptionContext) (bool, error) {
	if err := a.ensureActive(sub); err != nil {
		return false, err
	}
	err := a.managementAPIBuilder().
		Path(a.sitePath(ref, sub)).
		Fetch(ctx)
	switch {
	case err == nil:
		return true, nil
	case requests.HasStatusErr(err, http.StatusNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to get site %s: %w", ref.Name, err)
	}
}

// ReadSettings lists the site's application settings. Entries are
// returned in the order they appear in the management API response.
func (a *AzureDirectory) ReadSettings(ctx context.Context, ref ResourceRef, sub SubscriptionContext) ([]AppSetting, error) {
	if err := a.ensureActive(sub); err != nil {
		return nil, err
	}
	var raw string
	err := a.managementAPIBuilder().
		Path(a.sitePath(ref, sub) + "/config/appsettings/list").
		Post().
		ToString(&raw).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list app settings for %s: %w", ref.Name, err)
	}
	var settings []AppSetting
	gjson.Get(raw, "properties").ForEach(func(key, value gjson.Result) bool {
		settings = append(settings, AppSetting{Key: key.String(), Value: value.String()})
		return true
	})
	return settings, nil
}

// ReadConnectionStrings lists the site's connection strings. Entries are
// returned in the order they appear in the management API response.
func (a *AzureDirectory) ReadConnectionStrings(ctx context.Context, ref ResourceRef, sub SubscriptionContext) ([]ConnectionStringEntry, error) {
	if err := a.ensureActive(sub); err != nil {
		return nil, err
	}
	var raw string
	err := a.managementAPIBuilder().
		Path(a.sitePath(ref, sub) + "/config/connectionstrings/list").
		Post().
		ToString(&raw).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list connection strings for %s: %w", ref.Name, err)
	}
	var entries []ConnectionStringEntry
	gjson.Get(raw, "properties").ForEach(func(key, value gjson.Result) bool {
		entries = append(entries, ConnectionStringEntry{
			Name:  key.String(),
			Type:  value.Get("type").String(),
			Value: value.Get("value").String(),
		})
		return true
	})
	return entries, nil
}

// WriteSettings replaces the site's application settings with settings.
func (a *AzureDirectory) WriteSettings(ctx context.Context, ref ResourceRef, sub SubscriptionContext, settings []AppSetting) error {
	if err := a.ensureActive(sub); err != nil {
		return err
	}
	body := `{"properties":{}}`
	var err error
	for _, s := range settings {
		body, err = sjson.Set(body, "properties."+escapePathComponent(s.Key), s.Value)
		if err != nil {
			return fmt.Errorf("failed to build app settings body for %q: %w", s.Key, err)
		}
	}
	err = a.managementAPIBuilder().
		Path(a.sitePath(ref, sub) + "/config/appsettings").
		Put().
		BodyBytes([]byte(body)).
		ContentType("application/json").
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to update app settings for %s: %w", ref.Name, err)
	}
	return nil
}

// WriteConnectionStrings replaces the site's connection strings with
// entries. Type tags are passed through verbatim.
func (a *AzureDirectory) WriteConnectionStrings(ctx context.Context, ref ResourceRef, sub SubscriptionContext, entries []ConnectionStringEntry) error {
	if err := a.ensureActive(sub); err != nil {
		return err
	}
	body := `{"properties":{}}`
	var err error
	for _, e := range entries {
		name := escapePathComponent(e.Name)
		body, err = sjson.Set(body, "properties."+name+".value", e.Value)
		if err == nil {
			body, err = sjson.Set(body, "properties."+name+".type", e.Type)
		}
		if err != nil {
			return fmt.Errorf("failed to build connection strings body for %q: %w", e.Name, err)
		}
	}
	err = a.managementAPIBuilder().
		Path(a.sitePath(ref, sub) + "/config/connectionstrings").
		Put().
		BodyBytes([]byte(body)).
		ContentType("application/json").
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to update connection strings for %s: %w", ref.Name, err)
	}
	return nil
}

// escapePathComponent escapes sjson path syntax in a key so setting keys
// containing dots or wildcards are treated as literal JSON object keys.
func escapePathComponent(key string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`.`, `\.`,
		`*`, `\*`,
		`?`, `\?`,
		`|`, `\|`,
	)
	return r.Replace(key)
}
