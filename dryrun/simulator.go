package dryrun

import (
	"fmt"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// PlanValidationResult is the Dry-Run Simulator's verdict on an entire
// command plan, ahead of execution (§4.5).
type PlanValidationResult struct {
	Valid             bool
	Issues            []string
	Warnings          []string
	RiskAssessment    RiskAssessment
	EstimatedDuration time.Duration
	CommandsAnalysis  []CommandAnalysis
	Recommendations   []string
}

// RiskAssessment is the numeric risk breakdown behind a plan validation
// and a risk summary (§4.5).
type RiskAssessment struct {
	TotalRiskScore     int
	MaxPossibleScore   int
	RiskPercentage     float64
	CriticalCommands   int
	HighRiskCommands   int
	MediumRiskCommands int
	LowRiskCommands    int
}

// RiskSummary is the plan-level risk rollup surfaced in a DryRunResult
// (§4.5, boundary case at spec.md line 286).
type RiskSummary struct {
	OverallRisk          string
	RiskPercentage       float64
	TotalRiskScore       int
	RiskBreakdown        RiskBreakdown
	RequiresConfirmation bool
}

// RiskBreakdown counts commands per risk level.
type RiskBreakdown struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

// ExecutionSummary rolls up the simulated command outcomes (§4.5).
type ExecutionSummary struct {
	TotalCommands          int
	SuccessfulCommands     int
	FailedCommands         int
	SuccessRate            float64
	CommandTypes           map[CommandType]int
	EstimatedTotalDuration time.Duration
	RequiresConfirmation   bool
}

// DryRunResult is Simulate's return value (§4.5).
type DryRunResult struct {
	Success            bool
	SimulatedCommands  []core.CommandResult
	ValidationResult   PlanValidationResult
	ExecutionSummary    ExecutionSummary
	RiskSummary        RiskSummary
	Recommendations    []string
	SimulationDuration time.Duration
	Timestamp          time.Time
}

// Simulate classifies and risk-scores each command, synthesizes a
// CommandResult for each without ever executing it (Invariant 7),
// validates the plan as a whole, and rolls up the risk/execution
// summaries and recommendations (§4.5).
func Simulate(commands []string) DryRunResult {
	start := time.Now()

	analyses := make([]CommandAnalysis, 0, len(commands))
	simulated := make([]core.CommandResult, 0, len(commands))
	totalRisk := 0

	for _, command := range commands {
		analysis := analyzeCommand(command)
		analyses = append(analyses, analysis)
		simulated = append(simulated, simulateCommand(analysis, start))
		totalRisk += riskScore(analysis.RiskLevel)
	}

	validation := validatePlan(analyses)
	execSummary := summarizeExecution(simulated, analyses)
	riskSummary := summarizeRisk(analyses, totalRisk)
	recommendations := recommend(analyses, validation)

	return DryRunResult{
		Success:            true,
		SimulatedCommands:  simulated,
		ValidationResult:   validation,
		ExecutionSummary:   execSummary,
		RiskSummary:        riskSummary,
		Recommendations:    recommendations,
		SimulationDuration: time.Since(start),
		Timestamp:          start,
	}
}

// simulateCommand synthesizes a CommandResult for one command. It never
// calls transport.Transport.ExecuteCommand (Invariant 7) — success and
// output are derived entirely from the command's analysis.
func simulateCommand(analysis CommandAnalysis, now time.Time) core.CommandResult {
	success := analysis.RiskLevel != RiskCritical
	stdout, stderr := simulatedOutput(analysis, success)

	exitCode := 0
	status := core.CommandCompleted
	if !success {
		exitCode = 1
		status = core.CommandFailed
	}

	return core.CommandResult{
		Command:   analysis.Command,
		Success:   success,
		ExitCode:  exitCode,
		Stdout:    stdout,
		Stderr:    stderr,
		Duration:  analysis.EstimatedDuration,
		Status:    status,
		Error:     stderr,
		Metadata:  core.CommandMetadata{DryRun: true},
		Timestamp: now,
	}
}

func simulatedOutput(analysis CommandAnalysis, success bool) (stdout, stderr string) {
	if success {
		switch analysis.CommandType {
		case TypeInstall:
			return "[dry-run] package would be installed successfully", ""
		case TypeStartService:
			return "[dry-run] service would start successfully", ""
		case TypeCreateFile:
			return "[dry-run] file would be created successfully", ""
		case TypeCreateUser:
			return "[dry-run] user would be created successfully", ""
		default:
			return fmt.Sprintf("[dry-run] command %q would run successfully", analysis.Command), ""
		}
	}

	switch analysis.RiskLevel {
	case RiskCritical:
		return "", fmt.Sprintf("[dry-run] critical command: %s - requires confirmation", analysis.Command)
	case RiskHigh:
		return "", fmt.Sprintf("[dry-run] high risk: %s - review recommended", analysis.Command)
	default:
		return "", fmt.Sprintf("[dry-run] warning: %s - possible issues", analysis.Command)
	}
}
