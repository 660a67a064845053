package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/resilience"
)

// SSHTransport is the default Transport implementation over
// golang.org/x/crypto/ssh. One instance owns exactly one connection to
// one server profile, matching §5's "no package-level mutable state"
// rule — the orchestrator constructs a fresh SSHTransport per task.
type SSHTransport struct {
	profile   core.ServerProfile
	validator Validator
	logger    core.Logger

	client *ssh.Client
}

// New builds an SSHTransport for profile. validator is consulted by
// ExecuteCommand before every command reaches the wire; it may be nil,
// in which case ExecuteCommand refuses to run (fail-closed, never
// fail-open on a missing validator).
func New(profile core.ServerProfile, validator Validator, logger core.Logger) *SSHTransport {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &SSHTransport{profile: profile, validator: validator, logger: logger}
}

func (t *SSHTransport) authMethod() (ssh.AuthMethod, error) {
	switch t.profile.AuthMethod {
	case core.AuthPassword:
		return ssh.Password(t.profile.Password), nil
	case core.AuthKey, "":
		key, err := os.ReadFile(t.profile.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key %q: %w", t.profile.KeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key %q: %w", t.profile.KeyPath, err)
		}
		return ssh.PublicKeys(signer), nil
	default:
		return nil, fmt.Errorf("unknown auth method %q", t.profile.AuthMethod)
	}
}

// Connect dials the server profile and completes the SSH handshake. The
// dial+handshake is retried with backoff per §7.1 — a transient network
// blip shouldn't fail a whole task — but not behind a circuit breaker:
// a breaker's value is accumulated state across many calls, and this
// transport is fresh per task (§5), so there is no shared history for
// one to trip on.
func (t *SSHTransport) Connect(ctx context.Context) error {
	auth, err := t.authMethod()
	if err != nil {
		return core.NewFrameworkError("transport.Connect", "transport", err)
	}

	config := &ssh.ClientConfig{
		User:            t.profile.Username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // remediation targets are operator-provisioned, not public endpoints
		Timeout:         t.profile.Timeout,
	}

	addr := fmt.Sprintf("%s:%d", t.profile.Host, t.profile.Port)

	dial := func() error {
		dialer := net.Dialer{Timeout: t.profile.Timeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
		}

		sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
		if err != nil {
			conn.Close()
			return fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
		}

		t.client = ssh.NewClient(sshConn, chans, reqs)
		return nil
	}

	if err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), dial); err != nil {
		return core.NewFrameworkError("transport.Connect", "transport", err)
	}

	t.logger.InfoWithContext(ctx, "ssh connection established", map[string]interface{}{
		"host": t.profile.Host,
		"port": t.profile.Port,
	})
	return nil
}

// ExecuteCommand validates command via the Safety Validator, then runs
// it over a fresh SSH session bounded by timeout. A forbidden command is
// refused before the session is ever opened — never executed on the
// wire, per §4's transport contract.
func (t *SSHTransport) ExecuteCommand(ctx context.Context, command string, timeout time.Duration, vctx ValidationContext) (core.CommandResult, error) {
	start := time.Now()

	if t.validator == nil {
		return core.CommandResult{}, core.NewFrameworkError("transport.ExecuteCommand", "transport", core.ErrTransportRefused)
	}

	result := t.validator.Validate(command, vctx)
	if !result.Valid || result.SecurityLevel == core.SecurityForbidden {
		t.logger.WarnWithContext(ctx, "transport refused forbidden command", map[string]interface{}{
			"command": command,
			"task_id": vctx.TaskID,
			"step_id": vctx.StepID,
		})
		return core.CommandResult{}, core.NewFrameworkError("transport.ExecuteCommand", "transport", core.ErrTransportRefused)
	}

	if t.client == nil {
		return core.CommandResult{}, core.NewFrameworkError("transport.ExecuteCommand", "transport", core.ErrConnectionFailed)
	}

	session, err := t.client.NewSession()
	if err != nil {
		return core.CommandResult{}, core.NewFrameworkError("transport.ExecuteCommand", "transport", fmt.Errorf("%w: %v", core.ErrConnectionFailed, err))
	}
	defer session.Close()

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return core.CommandResult{
			Command:   command,
			Success:   false,
			Status:    core.CommandCancelled,
			Duration:  time.Since(start),
			Error:     ctx.Err().Error(),
			Timestamp: start,
		}, ctx.Err()

	case <-time.After(timeout):
		session.Signal(ssh.SIGKILL)
		return core.CommandResult{
			Command:   command,
			Success:   false,
			Status:    core.CommandTimeout,
			Duration:  time.Since(start),
			Error:     core.ErrTimeout.Error(),
			Timestamp: start,
		}, nil

	case runErr := <-done:
		exitCode := 0
		if runErr != nil {
			if exitErr, ok := runErr.(*ssh.ExitError); ok {
				exitCode = exitErr.ExitStatus()
			} else {
				exitCode = -1
			}
		}
		status := core.CommandCompleted
		errMsg := ""
		if exitCode != 0 {
			status = core.CommandFailed
			if runErr != nil {
				errMsg = runErr.Error()
			}
		}
		return core.CommandResult{
			Command:   command,
			Success:   exitCode == 0,
			ExitCode:  exitCode,
			Stdout:    stdout.String(),
			Stderr:    stderr.String(),
			Duration:  time.Since(start),
			Status:    status,
			Error:     errMsg,
			Timestamp: start,
		}, nil
	}
}

// UploadFile copies localPath to remotePath via SCP-style exec of `cat`
// piped into the remote file, avoiding a dependency on a separate SFTP
// library for what this engine only ever uses for small config/script
// payloads.
func (t *SSHTransport) UploadFile(ctx context.Context, localPath, remotePath string) error {
	if t.client == nil {
		return core.NewFrameworkError("transport.UploadFile", "transport", core.ErrConnectionFailed)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read local file %q: %w", localPath, err)
	}

	session, err := t.client.NewSession()
	if err != nil {
		return core.NewFrameworkError("transport.UploadFile", "transport", fmt.Errorf("%w: %v", core.ErrConnectionFailed, err))
	}
	defer session.Close()

	session.Stdin = bytes.NewReader(data)
	if err := session.Run(fmt.Sprintf("cat > %s", remotePath)); err != nil {
		return core.NewFrameworkError("transport.UploadFile", "transport", err)
	}
	return nil
}

// DownloadFile copies remotePath to localPath via a remote `cat`.
func (t *SSHTransport) DownloadFile(ctx context.Context, remotePath, localPath string) error {
	if t.client == nil {
		return core.NewFrameworkError("transport.DownloadFile", "transport", core.ErrConnectionFailed)
	}

	session, err := t.client.NewSession()
	if err != nil {
		return core.NewFrameworkError("transport.DownloadFile", "transport", fmt.Errorf("%w: %v", core.ErrConnectionFailed, err))
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	if err := session.Run(fmt.Sprintf("cat %s", remotePath)); err != nil {
		return core.NewFrameworkError("transport.DownloadFile", "transport", err)
	}
	return os.WriteFile(localPath, out.Bytes(), 0o644)
}

// Disconnect closes the underlying SSH connection.
func (t *SSHTransport) Disconnect() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

var _ Transport = (*SSHTransport)(nil)
