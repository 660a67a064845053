package dryrun

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReportFormat selects the Dry-Run Simulator's report renderer (§4.5).
type ReportFormat string

const (
	FormatText     ReportFormat = "text"
	FormatJSON     ReportFormat = "json"
	FormatMarkdown ReportFormat = "markdown"
)

// Report renders result in the given format, defaulting to text for an
// unrecognized format.
func Report(result DryRunResult, format ReportFormat) string {
	switch format {
	case FormatJSON:
		return jsonReport(result)
	case FormatMarkdown:
		return markdownReport(result)
	default:
		return textReport(result)
	}
}

func textReport(r DryRunResult) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "DRY-RUN EXECUTION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Timestamp: %s\n", r.Timestamp.Format(timestampLayout))
	fmt.Fprintf(&b, "Simulation duration: %.2fs\n", r.SimulationDuration.Seconds())
	fmt.Fprintf(&b, "Command count: %d\n\n", r.ExecutionSummary.TotalCommands)

	fmt.Fprintln(&b, "EXECUTION SUMMARY:")
	fmt.Fprintf(&b, "  Total commands: %d\n", r.ExecutionSummary.TotalCommands)
	fmt.Fprintf(&b, "  Successful: %d\n", r.ExecutionSummary.SuccessfulCommands)
	fmt.Fprintf(&b, "  Failed: %d\n", r.ExecutionSummary.FailedCommands)
	fmt.Fprintf(&b, "  Success rate: %.1f%%\n", r.ExecutionSummary.SuccessRate)
	fmt.Fprintf(&b, "  Estimated duration: %.1fs\n\n", r.ExecutionSummary.EstimatedTotalDuration.Seconds())

	fmt.Fprintln(&b, "RISK SUMMARY:")
	fmt.Fprintf(&b, "  Overall risk: %s\n", strings.ToUpper(r.RiskSummary.OverallRisk))
	fmt.Fprintf(&b, "  Risk percentage: %.1f%%\n", r.RiskSummary.RiskPercentage)
	fmt.Fprintf(&b, "  Requires confirmation: %s\n\n", yesNo(r.RiskSummary.RequiresConfirmation))
	fmt.Fprintln(&b, "  Risk breakdown:")
	fmt.Fprintf(&b, "    Critical: %d\n", r.RiskSummary.RiskBreakdown.Critical)
	fmt.Fprintf(&b, "    High: %d\n", r.RiskSummary.RiskBreakdown.High)
	fmt.Fprintf(&b, "    Medium: %d\n", r.RiskSummary.RiskBreakdown.Medium)
	fmt.Fprintf(&b, "    Low: %d\n\n", r.RiskSummary.RiskBreakdown.Low)

	fmt.Fprintln(&b, "PLAN VALIDATION:")
	fmt.Fprintf(&b, "  Plan valid: %s\n\n", yesNo(r.ValidationResult.Valid))
	if len(r.ValidationResult.Issues) > 0 {
		fmt.Fprintln(&b, "  ISSUES:")
		for _, issue := range r.ValidationResult.Issues {
			fmt.Fprintf(&b, "    - %s\n", issue)
		}
		fmt.Fprintln(&b)
	}
	if len(r.ValidationResult.Warnings) > 0 {
		fmt.Fprintln(&b, "  WARNINGS:")
		for _, warning := range r.ValidationResult.Warnings {
			fmt.Fprintf(&b, "    - %s\n", warning)
		}
		fmt.Fprintln(&b)
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(&b, "RECOMMENDATIONS:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "  %s\n", rec)
		}
		fmt.Fprintln(&b)
	}

	if len(r.SimulatedCommands) > 0 {
		fmt.Fprintln(&b, "COMMAND DETAILS:")
		fmt.Fprintln(&b)
		for i, res := range r.SimulatedCommands {
			status := "ok"
			if !res.Success {
				status = "fail"
			}
			riskLevel := "unknown"
			if i < len(r.ValidationResult.CommandsAnalysis) {
				riskLevel = string(r.ValidationResult.CommandsAnalysis[i].RiskLevel)
			}
			fmt.Fprintf(&b, "  %d. [%s] %s\n", i+1, status, res.Command)
			fmt.Fprintf(&b, "     Risk: %s\n", strings.ToUpper(riskLevel))
			fmt.Fprintf(&b, "     Duration: %.1fs\n", res.Duration.Seconds())
			if res.Stdout != "" {
				fmt.Fprintf(&b, "     Stdout: %s\n", res.Stdout)
			}
			if res.Stderr != "" {
				fmt.Fprintf(&b, "     Stderr: %s\n", res.Stderr)
			}
			fmt.Fprintln(&b)
		}
	}

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "END OF REPORT")
	fmt.Fprint(&b, rule)

	return b.String()
}

func markdownReport(r DryRunResult) string {
	var b strings.Builder

	fmt.Fprintln(&b, "# Dry-Run Execution Report")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", r.Timestamp.Format(timestampLayout))
	fmt.Fprintf(&b, "**Simulation duration:** %.2fs\n\n", r.SimulationDuration.Seconds())
	fmt.Fprintf(&b, "**Command count:** %d\n\n", r.ExecutionSummary.TotalCommands)

	fmt.Fprintln(&b, "## Execution Summary")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "- **Total commands:** %d\n", r.ExecutionSummary.TotalCommands)
	fmt.Fprintf(&b, "- **Successful:** %d\n", r.ExecutionSummary.SuccessfulCommands)
	fmt.Fprintf(&b, "- **Failed:** %d\n", r.ExecutionSummary.FailedCommands)
	fmt.Fprintf(&b, "- **Success rate:** %.1f%%\n", r.ExecutionSummary.SuccessRate)
	fmt.Fprintf(&b, "- **Estimated duration:** %.1fs\n\n", r.ExecutionSummary.EstimatedTotalDuration.Seconds())

	fmt.Fprintln(&b, "## Risk Summary")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "- **Overall risk:** %s\n", strings.ToUpper(r.RiskSummary.OverallRisk))
	fmt.Fprintf(&b, "- **Risk percentage:** %.1f%%\n", r.RiskSummary.RiskPercentage)
	fmt.Fprintf(&b, "- **Requires confirmation:** %s\n\n", yesNo(r.RiskSummary.RequiresConfirmation))

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(&b, "## Recommendations")
		fmt.Fprintln(&b)
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		fmt.Fprintln(&b)
	}

	if len(r.SimulatedCommands) > 0 {
		fmt.Fprintln(&b, "## Command Details")
		fmt.Fprintln(&b)
		for i, res := range r.SimulatedCommands {
			riskLevel := "unknown"
			if i < len(r.ValidationResult.CommandsAnalysis) {
				riskLevel = string(r.ValidationResult.CommandsAnalysis[i].RiskLevel)
			}
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, res.Command)
			fmt.Fprintf(&b, "- **Status:** %s\n", yesNo(res.Success))
			fmt.Fprintf(&b, "- **Risk:** %s\n", strings.ToUpper(riskLevel))
			fmt.Fprintf(&b, "- **Duration:** %.1fs\n\n", res.Duration.Seconds())
			if res.Stdout != "" {
				fmt.Fprintf(&b, "**Output:**\n```\n%s\n```\n\n", res.Stdout)
			}
			if res.Stderr != "" {
				fmt.Fprintf(&b, "**Error:**\n```\n%s\n```\n\n", res.Stderr)
			}
		}
	}

	return b.String()
}

func jsonReport(r DryRunResult) string {
	type commandResultJSON struct {
		Command  string `json:"command"`
		Success  bool   `json:"success"`
		ExitCode int    `json:"exit_code"`
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
		Duration float64 `json:"duration"`
	}

	commands := make([]commandResultJSON, len(r.SimulatedCommands))
	for i, c := range r.SimulatedCommands {
		commands[i] = commandResultJSON{
			Command:  c.Command,
			Success:  c.Success,
			ExitCode: c.ExitCode,
			Stdout:   c.Stdout,
			Stderr:   c.Stderr,
			Duration: c.Duration.Seconds(),
		}
	}

	data := map[string]interface{}{
		"success":            r.Success,
		"execution_summary":  r.ExecutionSummary,
		"risk_summary":       r.RiskSummary,
		"validation_result":  r.ValidationResult,
		"recommendations":    r.Recommendations,
		"simulated_commands": commands,
		"timestamp":          r.Timestamp.Format(timestampLayout),
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

const timestampLayout = "2006-01-02T15:04:05Z07:00"
