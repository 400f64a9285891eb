package replicate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// fakeCloud is an in-memory ResourceDirectory and ContextSwitcher that
// records every call in order and rejects any call made under a context
// other than the last activated one.
type fakeCloud struct {
	apps              map[string]bool
	sourceSettings    []AppSetting
	sourceConnStrings []ConnectionStringEntry

	failActivate         map[string]bool
	failReadSettings     bool
	failWriteSettings    bool
	failWriteConnStrings bool

	active SubscriptionContext
	calls  []string

	targetSettings    []AppSetting
	targetConnStrings []ConnectionStringEntry
}

func appKey(ref ResourceRef, sub SubscriptionContext) string {
	return sub.ID + "/" + ref.ResourceGroup + "/" + ref.Name
}

func (f *fakeCloud) Activate(ctx context.Context, sub SubscriptionContext) error {
	f.calls = append(f.calls, "activate "+sub.ID)
	if f.failActivate[sub.ID] {
		return fmt.Errorf("no access to %s", sub.ID)
	}
	f.active = sub
	return nil
}

func (f *fakeCloud) checkActive(sub SubscriptionContext) error {
	if f.active != sub {
		return fmt.Errorf("call for %s under active context %s", sub.ID, f.active.ID)
	}
	return nil
}

func (f *fakeCloud) Exists(ctx context.Context, ref ResourceRef, sub SubscriptionContext) (bool, error) {
	f.calls = append(f.calls, "exists "+ref.Name)
	if err := f.checkActive(sub); err != nil {
		return false, err
	}
	return f.apps[appKey(ref, sub)], nil
}

func (f *fakeCloud) ReadSettings(ctx context.Context, ref ResourceRef, sub SubscriptionContext) ([]AppSetting, error) {
	f.calls = append(f.calls, "read settings")
	if err := f.checkActive(sub); err != nil {
		return nil, err
	}
	if f.failReadSettings {
		return nil, errors.New("list app settings unavailable")
	}
	return append([]AppSetting(nil), f.sourceSettings...), nil
}

func (f *fakeCloud) ReadConnectionStrings(ctx context.Context, ref ResourceRef, sub SubscriptionContext) ([]ConnectionStringEntry, error) {
	f.calls = append(f.calls, "read connection strings")
	if err := f.checkActive(sub); err != nil {
		return nil, err
	}
	return append([]ConnectionStringEntry(nil), f.sourceConnStrings...), nil
}

func (f *fakeCloud) WriteSettings(ctx context.Context, ref ResourceRef, sub SubscriptionContext, settings []AppSetting) error {
	f.calls = append(f.calls, "write settings")
	if err := f.checkActive(sub); err != nil {
		return err
	}
	if f.failWriteSettings {
		return errors.New("update app settings rejected")
	}
	f.targetSettings = append([]AppSetting(nil), settings...)
	return nil
}

func (f *fakeCloud) WriteConnectionStrings(ctx context.Context, ref ResourceRef, sub SubscriptionContext, entries []ConnectionStringEntry) error {
	f.calls = append(f.calls, "write connection strings")
	if err := f.checkActive(sub); err != nil {
		return err
	}
	if f.failWriteConnStrings {
		return errors.New("update connection strings rejected")
	}
	f.targetConnStrings = append([]ConnectionStringEntry(nil), entries...)
	return nil
}

var (
	testSource    = ResourceRef{Name: "app-src", ResourceGroup: "rg-src"}
	testTarget    = ResourceRef{Name: "app-tgt", ResourceGroup: "rg-tgt"}
	testSourceSub = SubscriptionContext{ID: "sub-a"}
	testTargetSub = SubscriptionContext{ID: "sub-b"}
)

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		apps: map[string]bool{
			appKey(testSource, testSourceSub): true,
			appKey(testTarget, testTargetSub): true,
		},
		sourceSettings: []AppSetting{
			{Key: "A", Value: "1"},
			{Key: "AzureWebJobsStorage", Value: "x"},
			{Key: "B", Value: "2"},
		},
		sourceConnStrings: []ConnectionStringEntry{
			{Name: "Main", Type: "SQLAzure", Value: "Server=tcp:src;"},
			{Name: "Metrics", Type: "Custom", Value: "metrics"},
		},
		failActivate: map[string]bool{},
	}
}

func newTestOrchestrator(cloud *fakeCloud) Orchestrator {
	return Orchestrator{
		Switcher:  cloud,
		Directory: cloud,
		Logf:      func(format string, args ...interface{}) {},
	}
}

func testParams() RunParams {
	return RunParams{
		Source:        testSource,
		Target:        testTarget,
		SourceContext: testSourceSub,
		TargetContext: testTargetSub,
		Policy:        ExclusionPolicy{SettingKeys: []string{"AzureWebJobsStorage"}},
	}
}

func TestRun_Success(t *testing.T) {
	cloud := newFakeCloud()
	report, err := newTestOrchestrator(cloud).Run(context.Background(), testParams())
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcome != Success {
		t.Errorf("Expected Success but have: %s", report.Outcome)
	}
	if have := strings.Join(report.IncludedSettingKeys, ","); have != "A,B" {
		t.Errorf("Expected included keys A,B but have: %s", have)
	}
	if have := strings.Join(report.ExcludedSettingKeys, ","); have != "AzureWebJobsStorage" {
		t.Errorf("Expected excluded keys AzureWebJobsStorage but have: %s", have)
	}
	if have := strings.Join(report.IncludedConnectionStringNames, ","); have != "Main,Metrics" {
		t.Errorf("Expected included connection strings Main,Metrics but have: %s", have)
	}
	expectedTarget := []AppSetting{{Key: "A", Value: "1"}, {Key: "B", Value: "2"}}
	if !reflect.DeepEqual(cloud.targetSettings, expectedTarget) {
		t.Errorf("Expected target settings %v but have: %v", expectedTarget, cloud.targetSettings)
	}
	if !reflect.DeepEqual(cloud.targetConnStrings, cloud.sourceConnStrings) {
		t.Errorf("Expected target connection strings %v but have: %v", cloud.sourceConnStrings, cloud.targetConnStrings)
	}
}

func TestRun_CallOrder(t *testing.T) {
	cloud := newFakeCloud()
	if _, err := newTestOrchestrator(cloud).Run(context.Background(), testParams()); err != nil {
		t.Fatal(err)
	}
	expected := strings.Join([]string{
		"activate sub-a",
		"exists app-src",
		"activate sub-b",
		"exists app-tgt",
		"activate sub-a",
		"read settings",
		"read connection strings",
		"activate sub-b",
		"write settings",
		"write connection strings",
	}, " | ")
	if have := strings.Join(cloud.calls, " | "); have != expected {
		t.Errorf("Expected call order:\n%s\nbut have:\n%s", expected, have)
	}
}

func TestRun_SourceMissing(t *testing.T) {
	cloud := newFakeCloud()
	delete(cloud.apps, appKey(testSource, testSourceSub))
	report, err := newTestOrchestrator(cloud).Run(context.Background(), testParams())
	if !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound but have: %v", err)
	}
	if report.FailureReason != "validate source" {
		t.Errorf("Expected failure at validate source but have: %s", report.FailureReason)
	}
	for _, call := range cloud.calls {
		if call == "exists app-tgt" {
			t.Error("target validation must not run after missing source")
		}
	}
}

func TestRun_TargetMissing(t *testing.T) {
	cloud := newFakeCloud()
	delete(cloud.apps, appKey(testTarget, testTargetSub))
	report, err := newTestOrchestrator(cloud).Run(context.Background(), testParams())
	if !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound but have: %v", err)
	}
	if report.Outcome != Failed || report.FailureReason != "validate target" {
		t.Errorf("Expected Failed at validate target but have: %s at %s", report.Outcome, report.FailureReason)
	}
	// Target existence is checked strictly before any source value read.
	for _, call := range cloud.calls {
		if call == "read settings" || call == "read connection strings" {
			t.Errorf("source must not be read after missing target, calls: %v", cloud.calls)
		}
	}
}

func TestRun_WriteSettingsFailureSkipsConnectionStrings(t *testing.T) {
	cloud := newFakeCloud()
	cloud.failWriteSettings = true
	report, err := newTestOrchestrator(cloud).Run(context.Background(), testParams())
	if !errors.Is(err, ErrWrite) {
		t.Errorf("Expected ErrWrite but have: %v", err)
	}
	if report.FailureReason != "write settings" {
		t.Errorf("Expected failure at write settings but have: %s", report.FailureReason)
	}
	for _, call := range cloud.calls {
		if call == "write connection strings" {
			t.Error("connection strings must not be written after a settings write failure")
		}
	}
}

func TestRun_ConnectionStringWriteFailureLeavesSettingsApplied(t *testing.T) {
	cloud := newFakeCloud()
	cloud.failWriteConnStrings = true
	report, err := newTestOrchestrator(cloud).Run(context.Background(), testParams())
	if !errors.Is(err, ErrWrite) {
		t.Errorf("Expected ErrWrite but have: %v", err)
	}
	if report.Outcome != Failed {
		t.Errorf("Expected Failed but have: %s", report.Outcome)
	}
	if report.FailureReason != "write connection strings" {
		t.Errorf("Expected failure at write connection strings but have: %s", report.FailureReason)
	}
	if report.ReasonCode() != "write_connection_strings" {
		t.Errorf("Expected reason code write_connection_strings but have: %s", report.ReasonCode())
	}
	// No rollback: the settings write that succeeded stays applied.
	if len(cloud.targetSettings) == 0 {
		t.Error("Expected settings to remain applied on target")
	}
}

func TestRun_SkipsEmptyConnectionStringWrite(t *testing.T) {
	cloud := newFakeCloud()
	params := testParams()
	params.Policy.ConnectionStringNames = []string{"Main", "Metrics"}
	report, err := newTestOrchestrator(cloud).Run(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcome != Success {
		t.Errorf("Expected Success but have: %s", report.Outcome)
	}
	if have := strings.Join(report.ExcludedConnectionStringNames, ","); have != "Main,Metrics" {
		t.Errorf("Expected excluded names Main,Metrics but have: %s", have)
	}
	for _, call := range cloud.calls {
		if call == "write connection strings" {
			t.Error("write connection strings must not be invoked for an empty filtered set")
		}
	}
}

func TestRun_InvalidInput(t *testing.T) {
	cloud := newFakeCloud()
	params := testParams()
	params.Source.Name = ""
	_, err := newTestOrchestrator(cloud).Run(context.Background(), params)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput but have: %v", err)
	}
	if len(cloud.calls) != 0 {
		t.Errorf("Expected no remote calls on invalid input but have: %v", cloud.calls)
	}
}

func TestRun_TargetActivationFailure(t *testing.T) {
	cloud := newFakeCloud()
	cloud.failActivate["sub-b"] = true
	report, err := newTestOrchestrator(cloud).Run(context.Background(), testParams())
	if !errors.Is(err, ErrAuthContext) {
		t.Errorf("Expected ErrAuthContext but have: %v", err)
	}
	if report.FailureReason != "validate target" {
		t.Errorf("Expected failure at validate target but have: %s", report.FailureReason)
	}
	for _, call := range cloud.calls {
		if call == "read settings" {
			t.Error("source must not be read after a failed target activation")
		}
	}
}

func TestRun_SourceReadFailure(t *testing.T) {
	cloud := newFakeCloud()
	cloud.failReadSettings = true
	report, err := newTestOrchestrator(cloud).Run(context.Background(), testParams())
	if !errors.Is(err, ErrSourceRead) {
		t.Errorf("Expected ErrSourceRead but have: %v", err)
	}
	if report.FailureReason != "read source" {
		t.Errorf("Expected failure at read source but have: %s", report.FailureReason)
	}
	for _, call := range cloud.calls {
		if strings.HasPrefix(call, "write") {
			t.Error("no mutation may be attempted after a failed source read")
		}
	}
}

func TestRun_InvalidPolicyFailsBeforeApply(t *testing.T) {
	cloud := newFakeCloud()
	params := testParams()
	params.Policy.SettingKeys = append(params.Policy.SettingKeys, " ")
	report, err := newTestOrchestrator(cloud).Run(context.Background(), params)
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("Expected ErrInvalidPolicy but have: %v", err)
	}
	if report.FailureReason != "filter" {
		t.Errorf("Expected failure at filter but have: %s", report.FailureReason)
	}
	for _, call := range cloud.calls {
		if strings.HasPrefix(call, "write") {
			t.Error("no mutation may be attempted with a malformed policy")
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	cloud := newFakeCloud()
	orchestrator := newTestOrchestrator(cloud)

	first, err := orchestrator.Run(context.Background(), testParams())
	if err != nil {
		t.Fatal(err)
	}
	firstTarget := append([]AppSetting(nil), cloud.targetSettings...)

	second, err := orchestrator.Run(context.Background(), testParams())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical reports across re-runs but have:\n%v\n%v", first, second)
	}
	if !reflect.DeepEqual(firstTarget, cloud.targetSettings) {
		t.Errorf("Expected identical target settings across re-runs but have:\n%v\n%v", firstTarget, cloud.targetSettings)
	}
}
