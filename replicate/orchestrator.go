package replicate

import (
	"context"
	"fmt"
	"log"
)

// Step names used for failure attribution in reports.
const (
	stepValidateSource         = "validate source"
	stepValidateTarget         = "validate target"
	stepReadSource             = "read source"
	stepFilter                 = "filter"
	stepApply                  = "apply"
	stepWriteSettings          = "write settings"
	stepWriteConnectionStrings = "write connection strings"
)

// RunParams carries the inputs for a single replication run.
type RunParams struct {
	Source        ResourceRef
	Target        ResourceRef
	SourceContext SubscriptionContext
	TargetContext SubscriptionContext
	Policy        ExclusionPolicy
}

// Orchestrator performs the full replication sequence: validate both apps
// exist, snapshot the source under the source context, filter, apply to
// the target under the target context, report.
//
// The pipeline is strictly sequential with no retry and no state
// re-entry; each step is attempted exactly once per run. Correctness
// depends on never having two authorization contexts active at once, so a
// run must not be shared across goroutines. Re-running the pipeline is
// safe: both writes are replace-mode.
type Orchestrator struct {
	Switcher  ContextSwitcher
	Directory ResourceDirectory

	// Logf receives progress lines. Defaults to log.Printf.
	Logf func(format string, args ...interface{})
}

func (o Orchestrator) logf(format string, args ...interface{}) {
	if o.Logf != nil {
		o.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Run executes one replication. The returned report is always populated;
// err is non-nil exactly when the report's outcome is Failed, and wraps
// one of the package's sentinel errors for classification.
//
// Target existence is validated before any source value is read, so
// secrets are only held in memory for runs that can actually complete.
// Once apply has begun a failure is fatal and not rolled back: whatever
// succeeded before the failing call remains applied.
func (o Orchestrator) Run(ctx context.Context, params RunParams) (ReplicationReport, error) {
	if err := validateParams(params); err != nil {
		return failedReport(ReplicationReport{}, "validate input", err), err
	}

	// ValidatingSource
	o.logf("validating source app %s (resource group %s, subscription %s)", params.Source.Name, params.Source.ResourceGroup, params.SourceContext.ID)
	if err := o.requireExists(ctx, params.Source, params.SourceContext); err != nil {
		return failedReport(ReplicationReport{}, stepValidateSource, err), err
	}

	// ValidatingTarget
	o.logf("validating target app %s (resource group %s, subscription %s)", params.Target.Name, params.Target.ResourceGroup, params.TargetContext.ID)
	if err := o.requireExists(ctx, params.Target, params.TargetContext); err != nil {
		return failedReport(ReplicationReport{}, stepValidateTarget, err), err
	}

	// ReadingSource. The target validation switched contexts, so the
	// source context must be activated again before the read.
	if err := o.Switcher.Activate(ctx, params.SourceContext); err != nil {
		err = fmt.Errorf("%w: %v", ErrAuthContext, err)
		return failedReport(ReplicationReport{}, stepReadSource, err), err
	}
	snapshot, err := o.readSource(ctx, params.Source, params.SourceContext)
	if err != nil {
		return failedReport(ReplicationReport{}, stepReadSource, err), err
	}
	o.logf("read %d settings and %d connection strings from source", len(snapshot.Settings), len(snapshot.ConnectionStrings))

	// Filtering. Local computation only — no context switch, no I/O.
	includedSettings, excludedKeys, err := FilterSettings(snapshot.Settings, params.Policy)
	if err != nil {
		return failedReport(ReplicationReport{}, stepFilter, err), err
	}
	includedConnStrings, excludedNames, err := FilterConnectionStrings(snapshot.ConnectionStrings, params.Policy)
	if err != nil {
		return failedReport(ReplicationReport{}, stepFilter, err), err
	}

	report := ReplicationReport{
		IncludedSettingKeys:           settingKeys(includedSettings),
		ExcludedSettingKeys:           excludedKeys,
		IncludedConnectionStringNames: entryNames(includedConnStrings),
		ExcludedConnectionStringNames: excludedNames,
	}

	// Applying. Order is fixed: settings first, then connection strings.
	if err := o.Switcher.Activate(ctx, params.TargetContext); err != nil {
		err = fmt.Errorf("%w: %v", ErrAuthContext, err)
		return failedReport(report, stepApply, err), err
	}
	o.logf("writing %d settings to target", len(includedSettings))
	if err := o.Directory.WriteSettings(ctx, params.Target, params.TargetContext, includedSettings); err != nil {
		err = fmt.Errorf("%w: settings: %v", ErrWrite, err)
		return failedReport(report, stepWriteSettings, err), err
	}
	if len(includedConnStrings) > 0 {
		o.logf("writing %d connection strings to target", len(includedConnStrings))
		if err := o.Directory.WriteConnectionStrings(ctx, params.Target, params.TargetContext, includedConnStrings); err != nil {
			err = fmt.Errorf("%w: connection strings: %v", ErrWrite, err)
			return failedReport(report, stepWriteConnectionStrings, err), err
		}
	} else {
		o.logf("no connection strings to write after filtering")
	}

	report.Outcome = Success
	return report, nil
}

func validateParams(params RunParams) error {
	if params.Source.IsZero() {
		return fmt.Errorf("%w: source app name and resource group are required", ErrInvalidInput)
	}
	if params.Target.IsZero() {
		return fmt.Errorf("%w: target app name and resource group are required", ErrInvalidInput)
	}
	if params.SourceContext.IsZero() {
		return fmt.Errorf("%w: source subscription is required", ErrInvalidInput)
	}
	if params.TargetContext.IsZero() {
		return fmt.Errorf("%w: target subscription is required", ErrInvalidInput)
	}
	return nil
}

// requireExists activates sub and checks ref exists under it. Validation
// of each app must occur under its matching context.
func (o Orchestrator) requireExists(ctx context.Context, ref ResourceRef, sub SubscriptionContext) error {
	if err := o.Switcher.Activate(ctx, sub); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthContext, err)
	}
	exists, err := o.Directory.Exists(ctx, ref, sub)
	if err != nil {
		return fmt.Errorf("failed to check %s in %s: %w", ref.Name, ref.ResourceGroup, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s in resource group %s (subscription %s)", ErrResourceNotFound, ref.Name, ref.ResourceGroup, sub.ID)
	}
	return nil
}

// readSource reads settings and connection strings from the source app.
// Reading is all-or-nothing: any failure discards everything read so far.
func (o Orchestrator) readSource(ctx context.Context, ref ResourceRef, sub SubscriptionContext) (ConfigSnapshot, error) {
	settings, err := o.Directory.ReadSettings(ctx, ref, sub)
	if err != nil {
		return ConfigSnapshot{}, fmt.Errorf("%w: settings: %v", ErrSourceRead, err)
	}
	connStrings, err := o.Directory.ReadConnectionStrings(ctx, ref, sub)
	if err != nil {
		return ConfigSnapshot{}, fmt.Errorf("%w: connection strings: %v", ErrSourceRead, err)
	}
	snapshot, err := NewConfigSnapshot(settings, connStrings, sub)
	if err != nil {
		return ConfigSnapshot{}, fmt.Errorf("%w: %v", ErrSourceRead, err)
	}
	return snapshot, nil
}

func failedReport(report ReplicationReport, step string, err error) ReplicationReport {
	report.Outcome = Failed
	report.FailureReason = step
	report.FailureDetail = err.Error()
	return report
}

func settingKeys(settings []AppSetting) []string {
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.Key
	}
	return keys
}

func entryNames(entries []ConnectionStringEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
