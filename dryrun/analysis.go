package dryrun

import (
	"strings"
	"time"
)

// CommandAnalysis is the Dry-Run Simulator's per-command analysis (§4.5).
type CommandAnalysis struct {
	Command              string
	CommandType          CommandType
	RiskLevel            RiskLevel
	PotentialIssues      []string
	Dependencies         []string
	SideEffects          []string
	EstimatedDuration    time.Duration
	RequiresConfirmation bool
}

// analyzeCommand classifies command and derives its issues, dependencies,
// side effects and estimated duration (§4.5).
func analyzeCommand(command string) CommandAnalysis {
	lower := strings.ToLower(strings.TrimSpace(command))

	cmdType := classifyType(lower)
	risk := classifyRisk(lower)

	return CommandAnalysis{
		Command:              command,
		CommandType:          cmdType,
		RiskLevel:            risk,
		PotentialIssues:      potentialIssues(lower, cmdType, risk),
		Dependencies:         dependencies(cmdType),
		SideEffects:          sideEffects(cmdType),
		EstimatedDuration:    estimateDuration(cmdType),
		RequiresConfirmation: risk == RiskHigh || risk == RiskCritical,
	}
}

func potentialIssues(lower string, cmdType CommandType, risk RiskLevel) []string {
	var issues []string

	if risk == RiskCritical {
		issues = append(issues, "command may cause critical damage to the system")
	}
	if cmdType == TypeDeleteFile {
		issues = append(issues, "possible data loss")
	}
	if cmdType == TypeStopService {
		issues = append(issues, "may disrupt dependent services")
	}
	if cmdType == TypeSystem {
		issues = append(issues, "may reboot or power off the system")
	}
	if strings.Contains(lower, "rm -rf") {
		issues = append(issues, "recursive delete - high risk of data loss")
	}
	if strings.Contains(lower, "chmod 777") {
		issues = append(issues, "overly permissive mode - security exposure")
	}

	return issues
}

func dependencies(cmdType CommandType) []string {
	switch cmdType {
	case TypeInstall:
		return []string{"package repository reachable", "sufficient free disk space"}
	case TypeStartService:
		return []string{"service must already be installed", "service configuration must be valid"}
	case TypeCreateUser:
		return []string{"administrator privileges", "unique username"}
	default:
		return nil
	}
}

func sideEffects(cmdType CommandType) []string {
	switch cmdType {
	case TypeInstall:
		return []string{"increased disk usage", "possible conflicts with existing packages"}
	case TypeStartService:
		return []string{"system resource usage", "network ports opened"}
	case TypeCreateUser:
		return []string{"home directory created", "system files modified"}
	default:
		return nil
	}
}

func estimateDuration(cmdType CommandType) time.Duration {
	const base = time.Second
	switch cmdType {
	case TypeInstall:
		return base * 5
	case TypeStartService:
		return base * 2
	case TypeSystem:
		return base * 10
	default:
		return base
	}
}
