package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/transport"
)

// gatherServerFacts probes tr for the facts an ExecutionContext/
// StateSnapshot carries (§4.10 step 2: "populate server facts into the
// execution context"), falling back to the configured profile's static
// fields when a probe fails — best-effort, never fatal to the task.
func gatherServerFacts(ctx context.Context, tr transport.Transport, profile core.ServerProfile, timeout time.Duration) core.ServerFacts {
	facts := core.ServerFacts{
		OS:                profile.OSType,
		InstalledPackages: profile.InstalledPackages,
		InstalledServices: profile.InstalledServices,
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	vctx := core.ValidationContext{}

	if cr, err := tr.ExecuteCommand(ctx, "uname -m", timeout, vctx); err == nil && cr.Success {
		facts.Arch = strings.TrimSpace(cr.Stdout)
	}

	if cr, err := tr.ExecuteCommand(ctx, "grep -E '^(ID|VERSION_ID)=' /etc/os-release", timeout, vctx); err == nil && cr.Success {
		if name, version := parseOSRelease(cr.Stdout); name != "" {
			facts.OS = name
			facts.OSVersion = version
		}
	}

	return facts
}

// parseOSRelease extracts ID and VERSION_ID from /etc/os-release's
// `KEY=value` lines, stripping surrounding quotes.
func parseOSRelease(output string) (id, version string) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		value := strings.Trim(parts[1], `"'`)
		switch parts[0] {
		case "ID":
			id = value
		case "VERSION_ID":
			version = value
		}
	}
	return id, version
}
