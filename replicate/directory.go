package replicate

import "context"

// ResourceRef names a web app within a resource group. Which subscription
// it is resolved under is determined by the SubscriptionContext passed
// alongside it.
type ResourceRef struct {
	Name          string
	ResourceGroup string
}

// IsZero reports whether the ref is missing its name or resource group.
func (r ResourceRef) IsZero() bool {
	return r.Name == "" || r.ResourceGroup == ""
}

// ResourceDirectory abstracts the cloud control-plane operations a
// replication run needs. Implementations are expected to be thin wrappers
// over the provider API; all protocol decisions live in the orchestrator.
//
// Both writes are REPLACE-mode and must behave as a single logical unit:
// either every entry passed is present on the target afterwards, or the
// call returns an error. Replace-mode also makes re-runs idempotent —
// duplicate keys/names are overwritten, never duplicated.
type ResourceDirectory interface {
	// Exists reports whether the referenced app exists under sub.
	Exists(ctx context.Context, ref ResourceRef, sub SubscriptionContext) (bool, error)

	// ReadSettings returns the app's application settings in the order
	// the provider returned them.
	ReadSettings(ctx context.Context, ref ResourceRef, sub SubscriptionContext) ([]AppSetting, error)

	// ReadConnectionStrings returns the app's connection strings in the
	// order the provider returned them.
	ReadConnectionStrings(ctx context.Context, ref ResourceRef, sub SubscriptionContext) ([]ConnectionStringEntry, error)

	// WriteSettings replaces the app's application settings.
	WriteSettings(ctx context.Context, ref ResourceRef, sub SubscriptionContext, settings []AppSetting) error

	// WriteConnectionStrings replaces the app's connection strings.
	// Entries present on the target but absent from entries are removed;
	// the post-run checklist directs the operator to review the target.
	WriteConnectionStrings(ctx context.Context, ref ResourceRef, sub SubscriptionContext, entries []ConnectionStringEntry) error
}
