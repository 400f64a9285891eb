package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/homemade/transplant/replicate"
)

// tokenEnvVar holds either a plain management API bearer token or a JSON
// object mapping subscription ids to tokens, for when the source and
// target subscriptions require separate credentials.
const tokenEnvVar = "ARM_ACCESS_TOKENS"

func main() {
	var (
		sourceName  = flag.String("source-name", "", "source app name (required)")
		sourceGroup = flag.String("source-group", "", "source resource group (required)")
		sourceSub   = flag.String("source-subscription", "", "source subscription id (required)")
		targetName  = flag.String("target-name", "", "target app name (required)")
		targetGroup = flag.String("target-group", "", "target resource group (required)")
		targetSub   = flag.String("target-subscription", "", "target subscription id (required)")
		policyPath  = flag.String("policy", "", "YAML exclusion policy file (defaults to the embedded policy)")
		endpoint    = flag.String("endpoint", "", "management endpoint override")
		recordDir   = flag.String("record", "", "directory to record management API requests under")
		emitCSV     = flag.Bool("csv", false, "print the inclusion/exclusion table as CSV")
	)
	flag.Parse()

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"source-name", *sourceName},
		{"source-group", *sourceGroup},
		{"source-subscription", *sourceSub},
		{"target-name", *targetName},
		{"target-group", *targetGroup},
		{"target-subscription", *targetSub},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, "-"+f.name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "[ERROR] missing required flags: %s\n", strings.Join(missing, ", "))
		flag.Usage()
		os.Exit(2)
	}

	policy := replicate.DefaultPolicy()
	if *policyPath != "" {
		loaded, err := replicate.LoadPolicyFile(*policyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			os.Exit(2)
		}
		policy = loaded
	}

	directory := &replicate.AzureDirectory{
		Endpoint:  *endpoint,
		Tokens:    replicate.EnvTokenSource{Var: tokenEnvVar},
		RecordDir: *recordDir,
	}
	orchestrator := replicate.Orchestrator{
		Switcher:  directory,
		Directory: directory,
	}

	report, runErr := orchestrator.Run(context.Background(), replicate.RunParams{
		Source:        replicate.ResourceRef{Name: *sourceName, ResourceGroup: *sourceGroup},
		Target:        replicate.ResourceRef{Name: *targetName, ResourceGroup: *targetGroup},
		SourceContext: replicate.SubscriptionContext{ID: *sourceSub},
		TargetContext: replicate.SubscriptionContext{ID: *targetSub},
		Policy:        policy,
	})

	fmt.Print(report.Summary())
	if *emitCSV {
		csv, err := report.FormatCSV()
		if err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] formatting CSV: %v\n", err)
		} else {
			fmt.Print(csv)
		}
	}
	fmt.Println("Post-run checklist:")
	for i, item := range report.Checklist() {
		fmt.Printf("  %d. %s\n", i+1, item)
	}

	if runErr != nil {
		code := report.ReasonCode()
		if code == "" {
			code = "unknown"
		}
		fmt.Fprintf(os.Stderr, "[ERROR] replication failed (%s): %v\n", code, runErr)
		os.Exit(1)
	}
}
