package replicate

import "context"

// SubscriptionContext identifies an isolated authorization/tenant scope.
// All provider calls execute "as" exactly one active context at a time.
type SubscriptionContext struct {
	ID string
}

// IsZero reports whether the context has no subscription id.
func (s SubscriptionContext) IsZero() bool {
	return s.ID == ""
}

// ContextSwitcher serializes transitions between authorization contexts.
//
// After a successful Activate every subsequent collaborator call by the
// same logical thread of control is attributed to that context until the
// next Activate. Contexts are not nested and a replication run is a single
// logical thread, so no release/restore step exists.
//
// Collaborator calls also carry the SubscriptionContext explicitly;
// implementations must reject a call whose subscription does not match the
// last activated context, so a mismatch is an error rather than a silent
// read or write under the wrong scope.
type ContextSwitcher interface {
	Activate(ctx context.Context, sub SubscriptionContext) error
}
