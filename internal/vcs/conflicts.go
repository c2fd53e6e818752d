package vcs

import (
	"regexp"
	"strings"
)

// Conflict-file extraction patterns, matched line by line:
//
//	CONFLICT (content): Merge conflict in src/main.ts
//	both modified:   src/main.ts
//	UU src/main.ts
var (
	conflictMarkerRe = regexp.MustCompile(`^CONFLICT \([^)]+\): Merge conflict in (.+)$`)
	bothModifiedRe   = regexp.MustCompile(`^\s*both (?:modified|added|deleted):\s+(.+)$`)
	statusUURe       = regexp.MustCompile(`^(?:UU|AA|DD|AU|UA|DU|UD)\s+(.+)$`)
)

// ExtractConflictFiles pulls conflicting file paths out of free-form git
// output. Order of first appearance is preserved; duplicates are dropped.
func ExtractConflictFiles(output string) []string {
	var files []string
	seen := make(map[string]bool)

	add := func(file string) {
		file = strings.TrimSpace(file)
		if file == "" || seen[file] {
			return
		}
		seen[file] = true
		files = append(files, file)
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if m := conflictMarkerRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			add(m[1])
			continue
		}
		if m := bothModifiedRe.FindStringSubmatch(line); m != nil {
			add(m[1])
			continue
		}
		if m := statusUURe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			add(m[1])
		}
	}

	return files
}

// HasConflictMarkers reports whether output contains any recognizable
// conflict convention.
func HasConflictMarkers(output string) bool {
	return len(ExtractConflictFiles(output)) > 0
}
