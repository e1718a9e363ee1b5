// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks for a pool of the given size.
func RunAll(maxSessions int, browserPath string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	// File descriptor check
	fdCheck := checkFileDescriptors(maxSessions)
	result.Checks = append(result.Checks, fdCheck)
	if !fdCheck.Passed {
		result.Passed = false
	}

	// Process limit check
	procCheck := checkProcessLimit(maxSessions)
	result.Checks = append(result.Checks, procCheck)
	if !procCheck.Passed {
		result.Passed = false
	}

	// Browser binary check
	browserCheck := checkBrowser(browserPath)
	result.Checks = append(result.Checks, browserCheck)
	if !browserCheck.Passed {
		result.Passed = false
	}

	// Temp space check (warning only)
	tmpCheck := checkTempDir()
	result.Checks = append(result.Checks, tmpCheck)

	return result
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors(sessions int) Check {
	var limit syscall.Rlimit
	syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit)

	// A browser opens far more FDs than a typical process: sockets,
	// shared memory, cache files. Budget ~150 per session plus daemon
	// overhead.
	required := sessions*150 + 100
	actual := int(limit.Cur)

	return Check{
		Name:     "file_descriptors",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -n %d (need %d for %d sessions)", actual, required, sessions),
	}
}

// checkProcessLimit verifies sufficient process slots are available.
// RLIMIT_NPROC is not exported by the syscall package, so the soft limit
// comes from /proc/self/limits.
func checkProcessLimit(sessions int) Check {
	// A browser spawns a tree of helper processes per session.
	required := sessions*40 + 50

	data, err := os.ReadFile("/proc/self/limits")
	if err != nil {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to check (non-Linux or restricted)",
		}
	}

	actual := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "Max processes") {
			fields := strings.Fields(line)
			if len(fields) >= 4 {
				if fields[3] == "unlimited" {
					actual = 1000000
				} else {
					fmt.Sscanf(fields[3], "%d", &actual)
				}
			}
			break
		}
	}

	if actual == 0 {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to determine (assuming OK)",
		}
	}

	return Check{
		Name:     "process_limit",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -u %d (need %d)", actual, required),
	}
}

// checkBrowser verifies the browser binary is present and runnable.
func checkBrowser(path string) Check {
	cmd := exec.Command(path, "--version")
	output, err := cmd.Output()

	if err != nil {
		return Check{
			Name:    "browser",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}

	// "Chromium 126.0.6478.126" or similar
	version := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	if version == "" {
		version = "unknown"
	}

	return Check{
		Name:    "browser",
		Passed:  true,
		Message: fmt.Sprintf("found at %s (%s)", path, version),
	}
}

// checkTempDir verifies the temp dir used for profile directories is
// writable.
func checkTempDir() Check {
	dir, err := os.MkdirTemp("", "browser-pool-preflight-*")
	if err != nil {
		return Check{
			Name:    "temp_dir",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("temp dir not writable: %v", err),
		}
	}
	os.RemoveAll(dir)

	return Check{
		Name:    "temp_dir",
		Passed:  true,
		Message: fmt.Sprintf("%s writable", os.TempDir()),
	}
}

// PrintResults prints the preflight check results to stdout.
func PrintResults(result *Result) {
	fmt.Println("Preflight checks:")
	for _, check := range result.Checks {
		fmt.Println(check.String())
		if !check.Passed {
			fmt.Printf("    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Println()
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "raise the limit: ulimit -n 65536"
	case "process_limit":
		return "raise the limit: ulimit -u 8192"
	case "browser":
		return "install a Chromium-based browser or pass -browser /path/to/binary"
	default:
		return "see documentation"
	}
}
