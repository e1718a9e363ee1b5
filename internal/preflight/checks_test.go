package preflight

import (
	"os/exec"
	"strings"
	"testing"
)

func TestCheck_String(t *testing.T) {
	t.Run("passed_with_required", func(t *testing.T) {
		c := Check{
			Name:     "file_descriptors",
			Required: 1600,
			Actual:   65536,
			Passed:   true,
		}
		s := c.String()
		if !strings.Contains(s, "✓") {
			t.Error("passed check should have ✓")
		}
		if !strings.Contains(s, "65536") {
			t.Error("should contain actual value")
		}
		if !strings.Contains(s, "1600") {
			t.Error("should contain required value")
		}
	})

	t.Run("failed_check", func(t *testing.T) {
		c := Check{
			Name:     "file_descriptors",
			Required: 1600,
			Actual:   256,
			Passed:   false,
		}
		if s := c.String(); !strings.Contains(s, "✗") {
			t.Error("failed check should have ✗")
		}
	})

	t.Run("warning_check", func(t *testing.T) {
		c := Check{
			Name:    "temp_dir",
			Passed:  true,
			Warning: true,
			Message: "temp dir not writable",
		}
		s := c.String()
		if !strings.Contains(s, "⚠") {
			t.Error("warning check should have ⚠")
		}
		if !strings.Contains(s, "temp dir not writable") {
			t.Error("should contain message")
		}
	})

	t.Run("passed_with_message_only", func(t *testing.T) {
		c := Check{
			Name:    "browser",
			Passed:  true,
			Message: "found at /usr/bin/chromium",
		}
		s := c.String()
		if !strings.Contains(s, "✓") {
			t.Error("passed check should have ✓")
		}
		if !strings.Contains(s, "found at /usr/bin/chromium") {
			t.Error("should contain message")
		}
	})
}

func TestRunAll_MissingBrowser(t *testing.T) {
	result := RunAll(2, "/nonexistent/browser-binary")

	if result.Passed {
		t.Error("RunAll passed with a missing browser binary")
	}

	var browserCheck *Check
	for i := range result.Checks {
		if result.Checks[i].Name == "browser" {
			browserCheck = &result.Checks[i]
		}
	}
	if browserCheck == nil {
		t.Fatal("no browser check in results")
	}
	if browserCheck.Passed {
		t.Error("browser check passed for a nonexistent binary")
	}
}

func TestRunAll_WithBrowser(t *testing.T) {
	path, err := exec.LookPath("chromium")
	if err != nil {
		t.Skip("chromium not available, skipping")
	}

	result := RunAll(1, path)
	for _, check := range result.Checks {
		if check.Name == "browser" && !check.Passed {
			t.Errorf("browser check failed for %s: %s", path, check.Message)
		}
	}
}

func TestCheckFileDescriptors(t *testing.T) {
	check := checkFileDescriptors(1)

	if check.Name != "file_descriptors" {
		t.Errorf("Name = %q, want file_descriptors", check.Name)
	}
	if check.Required != 250 {
		t.Errorf("Required = %d, want 250 for one session", check.Required)
	}
	if check.Actual <= 0 {
		t.Errorf("Actual = %d, want a positive rlimit", check.Actual)
	}
}

func TestCheckTempDir(t *testing.T) {
	check := checkTempDir()

	if !check.Passed {
		t.Error("temp dir check is warning-only and should always pass")
	}
}

func TestSuggestFix(t *testing.T) {
	for _, name := range []string{"file_descriptors", "process_limit", "browser", "unknown"} {
		if suggestFix(name) == "" {
			t.Errorf("suggestFix(%q) is empty", name)
		}
	}
}
