package config

import (
	"os"
	"strings"
)

// StrictReconciliation makes WARN-level reconciliation results count as failures
// for the process exit code.
//
// Set via env:
// - SYNTH_STRICT_RECONCILIATION=true
func StrictReconciliation() bool {
	return envBool("SYNTH_STRICT_RECONCILIATION")
}

// SerialStages disables concurrent table generation inside a stage group.
// Output is identical either way; this only helps when reading logs.
//
// Set via env:
// - SYNTH_SERIAL_STAGES=true
func SerialStages() bool {
	return envBool("SYNTH_SERIAL_STAGES")
}

// PublishTargets lists optional sinks the CLI should use after a successful run.
//
// Set via env:
// - SYNTH_PUBLISH_TARGETS="GCS,PUBSUB,DB_REPORT"
//
// Target keys are case-insensitive.
func PublishTargetEnabled(target string) bool {
	target = strings.ToUpper(strings.TrimSpace(target))
	if target == "" {
		return false
	}
	raw := os.Getenv("SYNTH_PUBLISH_TARGETS")
	if strings.TrimSpace(raw) == "" {
		return false
	}
	for _, part := range strings.Split(raw, ",") {
		if strings.ToUpper(strings.TrimSpace(part)) == target {
			return true
		}
	}
	return false
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
