package dryrun_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LLprod39/agent-ssh-dev-sub001/dryrun"
)

func TestSimulateNeverExecutesCommands(t *testing.T) {
	// Invariant 7: a rm -rf / must never actually run; Simulate only
	// synthesizes a result for it.
	result := dryrun.Simulate([]string{"rm -rf /"})

	assert.True(t, result.Success)
	assert.Len(t, result.SimulatedCommands, 1)
	assert.False(t, result.SimulatedCommands[0].Success)
	assert.Equal(t, "rm -rf /", result.SimulatedCommands[0].Command)
}

func TestRiskSummaryBoundaryCase(t *testing.T) {
	commands := []string{
		"apt update",
		"rm -rf /tmp/test",
		"chmod 777 /var/www",
		"rm -rf /",
		"systemctl stop nginx",
	}

	result := dryrun.Simulate(commands)

	assert.Equal(t, "critical", result.RiskSummary.OverallRisk)
	assert.GreaterOrEqual(t, result.RiskSummary.RiskBreakdown.Critical, 1)
	assert.True(t, result.RiskSummary.RequiresConfirmation)
	assert.False(t, result.ValidationResult.Valid)
}

func TestValidatePlanWarnsWhenServiceStartsBeforeInstall(t *testing.T) {
	commands := []string{
		"systemctl start nginx",
		"apt install nginx",
	}

	result := dryrun.Simulate(commands)

	found := false
	for _, w := range result.ValidationResult.Warnings {
		if w == "some services may start before their packages are installed" {
			found = true
		}
	}
	assert.True(t, found, "expected service-before-install warning, got %v", result.ValidationResult.Warnings)
}

func TestValidatePlanNoWarningWhenInstallPrecedesStart(t *testing.T) {
	commands := []string{
		"apt install nginx",
		"systemctl start nginx",
	}

	result := dryrun.Simulate(commands)

	for _, w := range result.ValidationResult.Warnings {
		assert.NotEqual(t, "some services may start before their packages are installed", w)
	}
}

func TestClassifyCommandTypes(t *testing.T) {
	result := dryrun.Simulate([]string{"apt install nginx", "useradd bob", "touch /tmp/x"})

	analyses := result.ValidationResult.CommandsAnalysis
	assert.Equal(t, dryrun.TypeInstall, analyses[0].CommandType)
	assert.Equal(t, dryrun.TypeCreateUser, analyses[1].CommandType)
	assert.Equal(t, dryrun.TypeCreateFile, analyses[2].CommandType)
}

func TestReportFormats(t *testing.T) {
	result := dryrun.Simulate([]string{"apt install nginx"})

	text := dryrun.Report(result, dryrun.FormatText)
	assert.Contains(t, text, "DRY-RUN EXECUTION REPORT")

	md := dryrun.Report(result, dryrun.FormatMarkdown)
	assert.Contains(t, md, "# Dry-Run Execution Report")

	js := dryrun.Report(result, dryrun.FormatJSON)
	assert.Contains(t, js, `"success"`)
}
