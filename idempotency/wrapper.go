// Package idempotency wraps mutating commands in guarded shell expressions
// so re-running a step never re-applies a mutation that already holds, and
// tracks the mutations a task has performed so they can be rolled back.
package idempotency

import (
	"fmt"
	"path"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// MutationType enumerates the wrapping patterns §4.4 tabulates.
type MutationType string

const (
	MutationInstallPackage  MutationType = "install_package"
	MutationCreateFile      MutationType = "create_file"
	MutationCreateDirectory MutationType = "create_directory"
	MutationStartService    MutationType = "start_service"
	MutationEnableService   MutationType = "enable_service"
	MutationCreateUser      MutationType = "create_user"
	MutationCreateGroup     MutationType = "create_group"
	MutationOpenPort        MutationType = "open_port"
)

// Wrapper generates idempotent shell expressions and the checks that back
// them, following the wrapping-pattern table exactly.
type Wrapper struct {
	logger core.Logger
}

// NewWrapper constructs a Wrapper. A nil logger falls back to NoOpLogger.
func NewWrapper(logger core.Logger) *Wrapper {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Wrapper{logger: logger}
}

// Generate builds the wrapped command plus the checks an executor should
// run before and after it, for one (type, target) mutation.
func (w *Wrapper) Generate(baseCommand string, mutType MutationType, target string, params map[string]string) (string, []core.IdempotencyCheck, error) {
	switch mutType {
	case MutationInstallPackage:
		wrapped := fmt.Sprintf(`dpkg -l | grep -q '^ii  %s' || %s`, target, baseCommand)
		return wrapped, []core.IdempotencyCheck{{
			CheckType:      core.CheckPackageInstalled,
			Target:         target,
			ProbeCommand:   fmt.Sprintf(`dpkg -l | grep -q '^ii  %s'`, target),
			SuccessPattern: "",
			Description:    fmt.Sprintf("package %s installed", target),
		}}, nil

	case MutationCreateFile:
		wrapped := fmt.Sprintf(`test -f %s || (mkdir -p %s && touch %s)`, target, path.Dir(target), target)
		return wrapped, []core.IdempotencyCheck{{
			CheckType:    core.CheckFileExists,
			Target:       target,
			ProbeCommand: fmt.Sprintf(`test -f %s`, target),
			Description:  fmt.Sprintf("file %s exists", target),
		}}, nil

	case MutationCreateDirectory:
		wrapped := fmt.Sprintf(`test -d %s || mkdir -p %s`, target, target)
		return wrapped, []core.IdempotencyCheck{{
			CheckType:    core.CheckDirectoryExists,
			Target:       target,
			ProbeCommand: fmt.Sprintf(`test -d %s`, target),
			Description:  fmt.Sprintf("directory %s exists", target),
		}}, nil

	case MutationStartService:
		wrapped := fmt.Sprintf(`systemctl is-active --quiet %s || systemctl start %s`, target, target)
		return wrapped, []core.IdempotencyCheck{{
			CheckType:    core.CheckServiceRunning,
			Target:       target,
			ProbeCommand: fmt.Sprintf(`systemctl is-active --quiet %s`, target),
			Description:  fmt.Sprintf("service %s running", target),
		}}, nil

	case MutationEnableService:
		wrapped := fmt.Sprintf(`systemctl is-enabled --quiet %s || systemctl enable %s`, target, target)
		return wrapped, []core.IdempotencyCheck{{
			CheckType:    core.CheckServiceEnabled,
			Target:       target,
			ProbeCommand: fmt.Sprintf(`systemctl is-enabled --quiet %s`, target),
			Description:  fmt.Sprintf("service %s enabled", target),
		}}, nil

	case MutationCreateUser:
		wrapped := fmt.Sprintf(`id %s >/dev/null 2>&1 || %s`, target, baseCommand)
		return wrapped, []core.IdempotencyCheck{{
			CheckType:    core.CheckUserExists,
			Target:       target,
			ProbeCommand: fmt.Sprintf(`id %s >/dev/null 2>&1`, target),
			Description:  fmt.Sprintf("user %s exists", target),
		}}, nil

	case MutationCreateGroup:
		wrapped := fmt.Sprintf(`getent group %s >/dev/null 2>&1 || %s`, target, baseCommand)
		return wrapped, []core.IdempotencyCheck{{
			CheckType:    core.CheckGroupExists,
			Target:       target,
			ProbeCommand: fmt.Sprintf(`getent group %s >/dev/null 2>&1`, target),
			Description:  fmt.Sprintf("group %s exists", target),
		}}, nil

	case MutationOpenPort:
		wrapped := fmt.Sprintf(`netstat -tuln | grep -q ':%s ' || iptables -A INPUT -p tcp --dport %s -j ACCEPT`, target, target)
		return wrapped, []core.IdempotencyCheck{{
			CheckType:    core.CheckPortOpen,
			Target:       target,
			ProbeCommand: fmt.Sprintf(`netstat -tuln | grep -q ':%s '`, target),
			Description:  fmt.Sprintf("port %s open", target),
		}}, nil

	default:
		w.logger.Warn("unrecognized mutation type, returning command unwrapped", map[string]interface{}{
			"mutation_type": string(mutType),
			"target":        target,
		})
		return baseCommand, nil, nil
	}
}
