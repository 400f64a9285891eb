// Package replicate copies runtime configuration (application settings and
// typed connection strings) from one managed web app to another, where the
// two apps live under different Azure subscriptions.
//
// The remote calls themselves are thin collaborator calls behind the
// ResourceDirectory interface; the substance of the package is the
// context-scoped, filtered, idempotent migration protocol: switching
// authorization context between two isolated subscriptions, applying a
// declarative exclusion policy so environment-bound values (storage
// endpoints, telemetry keys, platform-assigned identifiers) are never
// propagated, and performing an all-or-partial apply with clear failure
// attribution.
//
// Replication is a one-shot, re-runnable forward copy. There is no diffing
// against prior runs, no bidirectional reconciliation, and no rollback.
package replicate
