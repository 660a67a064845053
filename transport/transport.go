// Package transport defines the SSH Transport contract (C3, §4 "Command
// Executor Pipeline"): connect/execute_command/upload_file/
// download_file/disconnect, plus the default golang.org/x/crypto/ssh
// implementation. The core engine depends only on the Transport
// interface; SSHTransport is one swappable adapter.
package transport

import (
	"context"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// ValidationContext is opaque to the transport except that the
// transport MUST invoke the Safety Validator before running a command
// and refuse forbidden commands with ErrTransportRefused — never
// executed on the wire. Alias of core.ValidationContext so a
// safety.Validator satisfies Validator without an import cycle.
type ValidationContext = core.ValidationContext

// Validator is the narrow capability the transport needs from the
// Safety Validator (C1) — defined here, not imported from safety, so a
// Transport implementation doesn't depend on a concrete validator.
type Validator interface {
	Validate(command string, vctx ValidationContext) core.ValidationResult
}

// Transport is the C3 contract every concrete SSH implementation
// satisfies.
type Transport interface {
	Connect(ctx context.Context) error
	ExecuteCommand(ctx context.Context, command string, timeout time.Duration, vctx ValidationContext) (core.CommandResult, error)
	UploadFile(ctx context.Context, localPath, remotePath string) error
	DownloadFile(ctx context.Context, remotePath, localPath string) error
	Disconnect() error
}
