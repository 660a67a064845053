package idempotency

import "regexp"

// inferenceRule maps a command-text pattern to the mutation type and the
// capture group holding its target, so the executor can call ShouldSkip
// against a raw, unwrapped command before running it.
type inferenceRule struct {
	pattern    *regexp.Regexp
	mutType    MutationType
	targetGrp  int
}

var inferenceRules = []inferenceRule{
	{regexp.MustCompile(`^\s*(?:sudo\s+)?apt(?:-get)?\s+install\s+(?:-y\s+)?(\S+)`), MutationInstallPackage, 1},
	{regexp.MustCompile(`^\s*(?:sudo\s+)?yum\s+install\s+(?:-y\s+)?(\S+)`), MutationInstallPackage, 1},
	{regexp.MustCompile(`^\s*(?:sudo\s+)?dnf\s+install\s+(?:-y\s+)?(\S+)`), MutationInstallPackage, 1},
	{regexp.MustCompile(`^\s*(?:sudo\s+)?touch\s+(\S+)`), MutationCreateFile, 1},
	{regexp.MustCompile(`^\s*(?:sudo\s+)?echo\s+.*>\s*(\S+)`), MutationCreateFile, 1},
	{regexp.MustCompile(`^\s*(?:sudo\s+)?mkdir(?:\s+-p)?\s+(\S+)`), MutationCreateDirectory, 1},
	{regexp.MustCompile(`^\s*(?:sudo\s+)?systemctl\s+start\s+(\S+)`), MutationStartService, 1},
	{regexp.MustCompile(`^\s*(?:sudo\s+)?systemctl\s+enable\s+(\S+)`), MutationEnableService, 1},
	{regexp.MustCompile(`^\s*(?:sudo\s+)?useradd\s+(?:\S+\s+)*(\S+)\s*$`), MutationCreateUser, 1},
	{regexp.MustCompile(`^\s*(?:sudo\s+)?groupadd\s+(\S+)`), MutationCreateGroup, 1},
}

// Inferer derives (MutationType, Target) from raw command text, for the
// executor's independent ShouldSkip-before-run path.
type Inferer struct{}

// NewInferer constructs an Inferer.
func NewInferer() *Inferer {
	return &Inferer{}
}

// Infer returns the mutation type and target this command text matches, or
// ok=false when no rule recognizes the command.
func (in *Inferer) Infer(command string) (mutType MutationType, target string, ok bool) {
	for _, rule := range inferenceRules {
		m := rule.pattern.FindStringSubmatch(command)
		if m == nil {
			continue
		}
		if rule.targetGrp < len(m) {
			return rule.mutType, m[rule.targetGrp], true
		}
	}
	return "", "", false
}
