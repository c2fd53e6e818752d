package config

import (
	"fmt"
	"regexp"
	"strings"
)

// worktreeNameRegex validates worktree names as DNS labels: lowercase
// letters, digits and hyphens, no leading or trailing hyphen, 1-63 chars.
var worktreeNameRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidateWorktreeName checks if a worktree name is valid. Names double as
// container names, branch components and directory names, so the DNS-label
// rules are the intersection that is safe everywhere.
func ValidateWorktreeName(name string) error {
	if name == "" {
		return fmt.Errorf("worktree name cannot be empty")
	}

	if !worktreeNameRegex.MatchString(name) {
		return fmt.Errorf("invalid worktree name %q: must be lowercase alphanumeric with inner hyphens, at most 63 characters", name)
	}

	return nil
}

// branchForbiddenSubstrings are sequences git refuses in ref names, plus
// reflog syntax that would make a name ambiguous.
var branchForbiddenSubstrings = []string{"..", "@{", "//", " ", "\t", "~", "^", ":", "?", "*", "[", "\\"}

// ValidateBranchName checks a branch name against git ref syntax rules.
// It rejects control characters, traversal-like sequences and glob or
// reflog metacharacters before the name is ever passed to git.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name cannot be empty")
	}

	for _, r := range branch {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("branch name contains control characters")
		}
	}

	if strings.HasPrefix(branch, "/") || strings.HasSuffix(branch, "/") {
		return fmt.Errorf("branch name %q cannot start or end with a slash", branch)
	}
	if strings.HasPrefix(branch, ".") || strings.HasSuffix(branch, ".") {
		return fmt.Errorf("branch name %q cannot start or end with a dot", branch)
	}
	if strings.HasSuffix(branch, ".lock") {
		return fmt.Errorf("branch name %q cannot end with .lock", branch)
	}
	if strings.HasPrefix(branch, "-") {
		return fmt.Errorf("branch name %q cannot start with a hyphen", branch)
	}

	for _, s := range branchForbiddenSubstrings {
		if strings.Contains(branch, s) {
			return fmt.Errorf("branch name %q contains forbidden sequence %q", branch, s)
		}
	}

	// Slash-separated components may not begin with a dot either
	// (e.g. "feature/.hidden").
	for _, part := range strings.Split(branch, "/") {
		if part == "" {
			return fmt.Errorf("branch name %q contains an empty path component", branch)
		}
		if strings.HasPrefix(part, ".") {
			return fmt.Errorf("branch name %q has a component starting with a dot", branch)
		}
	}

	return nil
}
