package config

import (
	"testing"
	"time"
)

func TestRunTimeoutForFallsBackToShared(t *testing.T) {
	cfg := SchedulerConfig{RunTimeout: 5 * time.Minute}

	for _, jobType := range []string{
		"health-check", "waste-detection", "progress-tracking", "strategic-analysis",
	} {
		if got := cfg.RunTimeoutFor(jobType); got != 5*time.Minute {
			t.Errorf("RunTimeoutFor(%s) = %s, want the shared default", jobType, got)
		}
	}

	// Unknown types get the shared default rather than a zero budget
	if got := cfg.RunTimeoutFor("no-such-type"); got != 5*time.Minute {
		t.Errorf("RunTimeoutFor(unknown) = %s, want the shared default", got)
	}
}

func TestRunTimeoutForPerTypeOverride(t *testing.T) {
	cfg := SchedulerConfig{
		RunTimeout:       5 * time.Minute,
		StrategicTimeout: 20 * time.Minute,
	}

	if got := cfg.RunTimeoutFor("strategic-analysis"); got != 20*time.Minute {
		t.Errorf("RunTimeoutFor(strategic-analysis) = %s, want the override", got)
	}
	if got := cfg.RunTimeoutFor("waste-detection"); got != 5*time.Minute {
		t.Errorf("RunTimeoutFor(waste-detection) = %s, want the shared default", got)
	}
}

func TestLoadPerTypeTimeoutFromEnv(t *testing.T) {
	t.Setenv("RUN_TIMEOUT", "2m")
	t.Setenv("RUN_TIMEOUT_WASTE_DETECTION", "45s")

	cfg := Load()

	if cfg.Scheduler.RunTimeout != 2*time.Minute {
		t.Errorf("RunTimeout = %s, want 2m", cfg.Scheduler.RunTimeout)
	}
	if got := cfg.Scheduler.RunTimeoutFor("waste-detection"); got != 45*time.Second {
		t.Errorf("waste-detection timeout = %s, want 45s", got)
	}
	// Types without an override inherit the shared value
	if got := cfg.Scheduler.RunTimeoutFor("health-check"); got != 2*time.Minute {
		t.Errorf("health-check timeout = %s, want the shared 2m", got)
	}
}
