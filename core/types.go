package core

import "time"

// TaskStatus is the lifecycle state of a Task (§3).
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskPlanning  TaskStatus = "planning"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// StepStatus is the lifecycle state of a TaskStep (§3).
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepReady     StepStatus = "ready"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
	StepRetrying  StepStatus = "retrying"
)

// Priority is a TaskStep's relative importance (§3).
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// CommandStatus is the lifecycle state of one command invocation (§3).
type CommandStatus string

const (
	CommandPending   CommandStatus = "pending"
	CommandRunning   CommandStatus = "running"
	CommandCompleted CommandStatus = "completed"
	CommandFailed    CommandStatus = "failed"
	CommandCancelled CommandStatus = "cancelled"
	CommandTimeout   CommandStatus = "timeout"
)

// SecurityLevel is the Safety Validator's classification of a command (§4.1).
type SecurityLevel string

const (
	SecuritySafe      SecurityLevel = "safe"
	SecurityDangerous SecurityLevel = "dangerous"
	SecurityForbidden SecurityLevel = "forbidden"
)

// EscalationLevel is the Error Tracker's severity ladder (§4.6, Glossary).
type EscalationLevel string

const (
	EscalationNone          EscalationLevel = "none"
	EscalationPlanner       EscalationLevel = "planner"
	EscalationHuman         EscalationLevel = "human"
	EscalationEmergencyStop EscalationLevel = "emergency_stop"
)

// CheckType enumerates the kinds of idempotency precondition probe (§3).
type CheckType string

const (
	CheckFileExists        CheckType = "file_exists"
	CheckDirectoryExists   CheckType = "directory_exists"
	CheckServiceRunning    CheckType = "service_running"
	CheckServiceEnabled    CheckType = "service_enabled"
	CheckPackageInstalled  CheckType = "package_installed"
	CheckUserExists        CheckType = "user_exists"
	CheckGroupExists       CheckType = "group_exists"
	CheckPortOpen          CheckType = "port_open"
	CheckProcessRunning    CheckType = "process_running"
	CheckConfigExists      CheckType = "config_exists"
	CheckCustom            CheckType = "custom"
)

// Task is the operator's high-level goal plus its ordered steps (§3).
type Task struct {
	ID          string
	Title       string
	Description string
	Status      TaskStatus
	Steps       []*TaskStep
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	Metadata    map[string]interface{}
}

// TaskStep is one major phase inside a Task (§3).
type TaskStep struct {
	ID                string
	Title             string
	Description       string
	Priority          Priority
	Status            StepStatus
	EstimatedDuration time.Duration
	Dependencies      []string // step ids
	Order             int      // resolved topological position
	RetryCount        int
	MaxRetries        int
	Subtasks          []*Subtask
	StartedAt         *time.Time
	FinishedAt        *time.Time
}

// Subtask is one atomic unit inside a TaskStep (§3).
type Subtask struct {
	ID               string
	Title            string
	Description      string
	Commands         []string
	HealthChecks     []string
	RollbackCommands []string
	ExpectedOutput   string
	Dependencies     []string // subtask ids
	CommandTimeout   time.Duration
	Metadata         map[string]interface{}
}

// CommandMetadata carries the flags and history the spec calls out for
// CommandResult.Metadata by name (§3, §4.3, §4.4).
type CommandMetadata struct {
	DryRun            bool
	IdempotentSkip    bool
	Autocorrected     bool
	CorrectionHistory []CorrectionAttemptRef
}

// CorrectionAttemptRef is a minimal, dependency-free mirror of
// autocorrect.CorrectionAttempt so core has no import on autocorrect.
type CorrectionAttemptRef struct {
	Strategy  string
	Original  string
	Corrected string
	Success   bool
}

// CommandResult is the outcome of one shell invocation (§3). It is
// immutable once emitted.
type CommandResult struct {
	Command    string
	Success    bool
	ExitCode   int
	Stdout     string
	Stderr     string
	Duration   time.Duration
	Status     CommandStatus
	Error      string
	RetryCount int
	Metadata   CommandMetadata
	Timestamp  time.Time
}

// IdempotencyCheck is a precondition probe (§3).
type IdempotencyCheck struct {
	CheckType      CheckType
	Target         string
	ExpectedState  string
	ProbeCommand   string
	SuccessPattern string // regex
	Description    string
	Timeout        time.Duration
	RetryCount     int
}

// MutationLog records the side-effects a StateSnapshot has observed (§3).
type MutationLog struct {
	PackagesInstalled []string
	ServicesStarted   []string
	ServicesEnabled   []string
	FilesCreated      []string
	FilesModified     []string
	UsersCreated      []string
	GroupsCreated     []string
}

// ServerFacts is the observed system info an ExecutionContext/StateSnapshot
// carries (os, version, arch, installed packages/services).
type ServerFacts struct {
	OS                string
	OSVersion         string
	Arch              string
	InstalledPackages []string
	InstalledServices []string
}

// StateSnapshot is a record of side-effects to allow rollback (§3).
type StateSnapshot struct {
	SnapshotID    string
	TaskID        string
	Timestamp     time.Time
	BaselineFacts ServerFacts
	Mutations     MutationLog
}

// ValidationContext carries the caller identity attached to a Safety
// Validator call — forbidden-attempt log records and the transport's
// pre-execution check both consult it (§4.1, §4 transport contract).
type ValidationContext struct {
	TaskID string
	StepID string
	User   string
}

// ValidationResult is the Safety Validator's verdict on one command (§4.1).
type ValidationResult struct {
	Valid                bool
	Errors               []string
	Warnings             []string
	SecurityLevel        SecurityLevel
	RequiresConfirmation bool
}

// ErrorRecord is one logged attempt against a step (§3).
type ErrorRecord struct {
	Timestamp           time.Time
	Command             string
	Success             bool
	Duration            time.Duration
	ExitCode            int
	ErrorText            string
	AutocorrectionUsed  bool
}

// StepErrorStats aggregates ErrorRecords for one step (§3, §4.6).
type StepErrorStats struct {
	StepID              string
	Records             []ErrorRecord
	Attempts            int
	Failures            int
	ConsecutiveFailures int
	AutocorrectionUses  int
	SuccessRate         float64
	LastErrorTime       *time.Time
	EscalationLevel     EscalationLevel
}

// ExecutionContext is the bag passed to the executor for one Subtask (§3).
type ExecutionContext struct {
	Subtask          *Subtask
	StepID           string
	TaskID           string
	ServerFacts      ServerFacts
	Environment      map[string]string
	DryRun           bool
	ProgressCallback func(event ProgressEvent)
}

// ProgressEvent is emitted by the executor/orchestrator as work proceeds.
type ProgressEvent struct {
	TaskID    string
	StepID    string
	SubtaskID string
	Message   string
	Timestamp time.Time
}
