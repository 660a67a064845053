package dryrun

import (
	"fmt"
	"strings"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// validatePlan checks a batch of analyzed commands for critical/high-risk
// commands, unmet dependencies, and ordering problems such as services
// started before their packages are installed (§4.5, boundary case at
// spec.md line 286).
func validatePlan(analyses []CommandAnalysis) PlanValidationResult {
	var issues, warnings, recommendations []string

	var criticalCommands, highRiskCommands int
	for _, a := range analyses {
		switch a.RiskLevel {
		case RiskCritical:
			criticalCommands++
		case RiskHigh:
			highRiskCommands++
		}
	}

	if criticalCommands > 0 {
		issues = append(issues, fmt.Sprintf("%d critical command(s) detected", criticalCommands))
		recommendations = append(recommendations, "manual confirmation is required for critical commands")
	}
	if highRiskCommands > 0 {
		warnings = append(warnings, fmt.Sprintf("%d high-risk command(s) detected", highRiskCommands))
		recommendations = append(recommendations, "review high-risk commands before executing")
	}

	for _, a := range analyses {
		if len(a.Dependencies) > 0 {
			warnings = append(warnings, fmt.Sprintf("command %q has dependencies: %s", a.Command, strings.Join(a.Dependencies, ", ")))
		}
	}

	if warning := serviceBeforeInstallWarning(analyses); warning != "" {
		warnings = append(warnings, warning)
		recommendations = append(recommendations, "ensure package installation happens before starting services")
	}

	totalRiskScore := 0
	var estimatedDuration time.Duration
	for _, a := range analyses {
		totalRiskScore += riskScore(a.RiskLevel)
		estimatedDuration += a.EstimatedDuration
	}
	maxPossible := len(analyses) * 4
	riskPercentage := 0.0
	if maxPossible > 0 {
		riskPercentage = float64(totalRiskScore) / float64(maxPossible) * 100
	}

	assessment := RiskAssessment{
		TotalRiskScore:     totalRiskScore,
		MaxPossibleScore:   maxPossible,
		RiskPercentage:     riskPercentage,
		CriticalCommands:   criticalCommands,
		HighRiskCommands:   highRiskCommands,
		MediumRiskCommands: countRisk(analyses, RiskMedium),
		LowRiskCommands:    countRisk(analyses, RiskLow),
	}

	return PlanValidationResult{
		Valid:             len(issues) == 0,
		Issues:            issues,
		Warnings:          warnings,
		RiskAssessment:    assessment,
		EstimatedDuration: estimatedDuration,
		CommandsAnalysis:  analyses,
		Recommendations:   recommendations,
	}
}

// serviceBeforeInstallWarning returns a warning when any start_service
// command precedes the last install command in the plan.
func serviceBeforeInstallWarning(analyses []CommandAnalysis) string {
	lastInstall := -1
	for i, a := range analyses {
		if a.CommandType == TypeInstall {
			lastInstall = i
		}
	}
	if lastInstall == -1 {
		return ""
	}
	for i, a := range analyses {
		if a.CommandType == TypeStartService && i < lastInstall {
			return "some services may start before their packages are installed"
		}
	}
	return ""
}

func countRisk(analyses []CommandAnalysis, level RiskLevel) int {
	n := 0
	for _, a := range analyses {
		if a.RiskLevel == level {
			n++
		}
	}
	return n
}

func summarizeExecution(results []core.CommandResult, analyses []CommandAnalysis) ExecutionSummary {
	total := len(results)
	successful := 0
	var totalDuration time.Duration
	for _, r := range results {
		if r.Success {
			successful++
		}
		totalDuration += r.Duration
	}

	types := make(map[CommandType]int)
	requiresConfirmation := false
	for _, a := range analyses {
		types[a.CommandType]++
		if a.RequiresConfirmation {
			requiresConfirmation = true
		}
	}

	successRate := 0.0
	if total > 0 {
		successRate = float64(successful) / float64(total) * 100
	}

	return ExecutionSummary{
		TotalCommands:          total,
		SuccessfulCommands:     successful,
		FailedCommands:         total - successful,
		SuccessRate:            successRate,
		CommandTypes:           types,
		EstimatedTotalDuration: totalDuration,
		RequiresConfirmation:   requiresConfirmation,
	}
}

func summarizeRisk(analyses []CommandAnalysis, totalRiskScore int) RiskSummary {
	breakdown := RiskBreakdown{
		Critical: countRisk(analyses, RiskCritical),
		High:     countRisk(analyses, RiskHigh),
		Medium:   countRisk(analyses, RiskMedium),
		Low:      countRisk(analyses, RiskLow),
	}

	maxPossible := len(analyses) * 4
	riskPercentage := 0.0
	if maxPossible > 0 {
		riskPercentage = float64(totalRiskScore) / float64(maxPossible) * 100
	}

	overall := "low"
	switch {
	case breakdown.Critical > 0:
		overall = "critical"
	case breakdown.High > 0:
		overall = "high"
	case breakdown.Medium > 0:
		overall = "medium"
	}

	return RiskSummary{
		OverallRisk:          overall,
		RiskPercentage:       riskPercentage,
		TotalRiskScore:       totalRiskScore,
		RiskBreakdown:        breakdown,
		RequiresConfirmation: breakdown.Critical > 0 || breakdown.High > 0,
	}
}

func recommend(analyses []CommandAnalysis, validation PlanValidationResult) []string {
	var recommendations []string

	if validation.RiskAssessment.CriticalCommands > 0 {
		recommendations = append(recommendations,
			"critical commands require manual confirmation",
			"review each critical command before executing")
	}
	if validation.RiskAssessment.HighRiskCommands > 0 {
		recommendations = append(recommendations, "high-risk commands require careful review")
	}

	recommendations = append(recommendations, validation.Recommendations...)

	if len(analyses) > 10 {
		recommendations = append(recommendations, "large number of commands - consider splitting into stages")
	}

	for _, a := range analyses {
		if a.CommandType == TypeInstall {
			recommendations = append(recommendations, "ensure sufficient free disk space for package installation")
			break
		}
	}
	for _, a := range analyses {
		if a.CommandType == TypeStartService || a.CommandType == TypeStopService {
			recommendations = append(recommendations, "check service dependencies before starting/stopping them")
			break
		}
	}

	return recommendations
}
