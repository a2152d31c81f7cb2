package availability

import "staysync/internal/domain/shared/daterange"

type Result struct {
	Available bool
	Conflicts []DateBlock
}

// Check reports every block colliding with candidate. Reason and expiry do not
// matter: any stored block, temporary or not, makes the range unavailable.
func Check(blocks []DateBlock, candidate daterange.Range) Result {
	var conflicts []DateBlock
	for _, b := range blocks {
		if b.Range.Conflicts(candidate) {
			conflicts = append(conflicts, b)
		}
	}
	return Result{Available: len(conflicts) == 0, Conflicts: conflicts}
}
