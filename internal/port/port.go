// Package port allocates host ports for container-backed worktrees.
package port

import (
	"fmt"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// Default host port range published container ports are drawn from.
const (
	DefaultRangeFrom = 42000
	DefaultRangeTo   = 42999
)

// Allocate finds the next host port not used by any existing record.
func Allocate(from, to int, records []*worktree.Record) (int, error) {
	if from == 0 {
		from = DefaultRangeFrom
	}
	if to == 0 {
		to = DefaultRangeTo
	}

	used := make(map[int]bool)
	for _, rec := range records {
		if p := rec.Port(); p != 0 {
			used[p] = true
		}
	}

	for p := from; p <= to; p++ {
		if !used[p] {
			return p, nil
		}
	}

	return 0, fmt.Errorf("no available ports in range %d-%d", from, to)
}
