// Package dryrun implements the Dry-Run Simulator (C6, §4.5): command
// classification, risk scoring, plan validation, and report rendering,
// all without ever putting a command on the wire (Invariant 7).
package dryrun

import "regexp"

// CommandType is the Dry-Run Simulator's category for one command (§4.5).
type CommandType string

const (
	TypeInstall      CommandType = "install"
	TypeConfigure    CommandType = "configure"
	TypeStartService CommandType = "start_service"
	TypeStopService  CommandType = "stop_service"
	TypeCreateFile   CommandType = "create_file"
	TypeDeleteFile   CommandType = "delete_file"
	TypeCreateUser   CommandType = "create_user"
	TypeDeleteUser   CommandType = "delete_user"
	TypeNetwork      CommandType = "network"
	TypeSystem       CommandType = "system"
	TypeUnknown      CommandType = "unknown"
)

// RiskLevel is the Dry-Run Simulator's risk classification for one
// command (§4.5).
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// riskScores is the weighted risk scale used to compute risk_percentage.
var riskScores = map[RiskLevel]int{
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

func riskScore(level RiskLevel) int {
	if s, ok := riskScores[level]; ok {
		return s
	}
	return 1
}

// typePatterns classifies a command by keyword/regex, checked in this
// order; the first match wins (§4.5).
var typePatterns = []struct {
	cmdType CommandType
	res     []*regexp.Regexp
}{
	{TypeInstall, compileAll(
		`apt-get install`, `apt install`, `yum install`, `dnf install`,
		`pip install`, `npm install`, `gem install`,
	)},
	{TypeStartService, compileAll(
		`systemctl start`, `service start`, `systemctl enable`,
	)},
	{TypeStopService, compileAll(
		`systemctl stop`, `service stop`, `systemctl disable`,
	)},
	{TypeCreateFile, compileAll(
		`touch`, `echo.*>`, `cat.*>`, `tee`,
	)},
	{TypeDeleteFile, compileAll(
		`rm `, `unlink`, `rmdir`,
	)},
	{TypeCreateUser, compileAll(
		`useradd`, `adduser`, `groupadd`, `addgroup`,
	)},
	{TypeDeleteUser, compileAll(
		`userdel`, `deluser`, `groupdel`, `delgroup`,
	)},
	{TypeNetwork, compileAll(
		`iptables`, `ufw`, `firewall`, `netstat`, `ss`,
	)},
	{TypeSystem, compileAll(
		`reboot`, `shutdown`, `halt`, `poweroff`, `init`,
	)},
	{TypeConfigure, compileAll(
		`configure`, `config`, `setup`, `update`, `modify`,
	)},
}

// dangerPatterns classifies a command's risk level, checked in
// decreasing severity order; the first match wins (§4.5).
var dangerPatterns = []struct {
	level RiskLevel
	res   []*regexp.Regexp
}{
	{RiskCritical, compileAll(
		`rm -rf /`, `dd if=/dev/zero`, `mkfs`, `fdisk`, `parted`,
		`> /dev/sda`, `chmod 777 /`, `chown -r root:root /`,
		`passwd root`, `userdel -r`, `groupdel`, `killall -9`,
		`pkill -9`, `halt`, `poweroff`, `reboot`, `shutdown`,
	)},
	{RiskHigh, compileAll(
		`rm -rf`, `dd `, `mkfs`, `fdisk`, `chmod 777`,
		`chown -r`, `userdel`, `groupdel`, `killall`,
		`pkill`, `systemctl stop`, `service stop`,
	)},
	{RiskMedium, compileAll(
		`rm `, `mv `, `cp `, `chmod`, `chown`,
		`systemctl`, `service`, `iptables`, `ufw`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func classifyType(commandLower string) CommandType {
	for _, entry := range typePatterns {
		for _, re := range entry.res {
			if re.MatchString(commandLower) {
				return entry.cmdType
			}
		}
	}
	return TypeUnknown
}

func classifyRisk(commandLower string) RiskLevel {
	for _, entry := range dangerPatterns {
		for _, re := range entry.res {
			if re.MatchString(commandLower) {
				return entry.level
			}
		}
	}
	return RiskLow
}
