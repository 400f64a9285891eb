package replicate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// Outcome is the terminal result of a replication run.
type Outcome string

const (
	Success Outcome = "Success"
	Failed  Outcome = "Failed"
)

// ReplicationReport is produced exactly once per run and never reused.
// Key/name sequences preserve the source read order.
type ReplicationReport struct {
	IncludedSettingKeys           []string
	ExcludedSettingKeys           []string
	IncludedConnectionStringNames []string
	ExcludedConnectionStringNames []string
	Outcome                       Outcome
	// FailureReason identifies the failing step when Outcome is Failed,
	// e.g. "write connection strings". Empty on success.
	FailureReason string
	// FailureDetail carries the underlying error text, if any.
	FailureDetail string
}

// ReasonCode returns a stable machine-readable code derived from the
// failure reason, e.g. "write_connection_strings". Empty on success.
func (r ReplicationReport) ReasonCode() string {
	if r.FailureReason == "" {
		return ""
	}
	return strcase.ToSnake(r.FailureReason)
}

// Summary renders a human-readable account of the run.
func (r ReplicationReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outcome: %s\n", r.Outcome)
	if r.Outcome == Failed {
		fmt.Fprintf(&b, "Failed at: %s\n", r.FailureReason)
		if r.FailureDetail != "" {
			fmt.Fprintf(&b, "Detail: %s\n", r.FailureDetail)
		}
	}
	fmt.Fprintf(&b, "Settings copied (%d): %s\n", len(r.IncludedSettingKeys), strings.Join(r.IncludedSettingKeys, ", "))
	fmt.Fprintf(&b, "Settings excluded by policy (%d): %s\n", len(r.ExcludedSettingKeys), strings.Join(r.ExcludedSettingKeys, ", "))
	fmt.Fprintf(&b, "Connection strings copied (%d): %s\n", len(r.IncludedConnectionStringNames), strings.Join(r.IncludedConnectionStringNames, ", "))
	if len(r.ExcludedConnectionStringNames) > 0 {
		fmt.Fprintf(&b, "Connection strings excluded by policy (%d): %s\n", len(r.ExcludedConnectionStringNames), strings.Join(r.ExcludedConnectionStringNames, ", "))
	}
	return b.String()
}

// FormatCSV formats the inclusion/exclusion outcome as CSV, one row per
// source entry, for operator review or archival alongside the run.
func (r ReplicationReport) FormatCSV() (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Entry", "Kind", "Copied"}); err != nil {
		return "", err
	}

	rows := [][]string{}
	for _, k := range r.IncludedSettingKeys {
		rows = append(rows, []string{k, "App setting", "yes"})
	}
	for _, k := range r.ExcludedSettingKeys {
		rows = append(rows, []string{k, "App setting", "no (excluded by policy)"})
	}
	for _, n := range r.IncludedConnectionStringNames {
		rows = append(rows, []string{n, "Connection string", "yes"})
	}
	for _, n := range r.ExcludedConnectionStringNames {
		rows = append(rows, []string{n, "Connection string", "no (excluded by policy)"})
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Checklist returns the fixed post-run follow-up steps. These are manual
// by nature — identity grants and excluded values cannot be carried over
// safely by the tool — and carry no machine-checkable contract.
func (r ReplicationReport) Checklist() []string {
	checklist := []string{
		"Re-grant managed identity permissions on the target app; identities are not copied.",
		"Review each excluded setting above and recreate target-appropriate values where needed.",
		"Verify storage, telemetry and content-share settings on the target point at target-owned resources.",
	}
	if r.Outcome == Failed {
		checklist = append([]string{
			"The run failed during apply; inspect the target app — it may be partially configured.",
		}, checklist...)
	}
	return checklist
}
