// Package balancer computes the minimal-imbalance split of an even-sized
// player list into two equal teams. It is pure: no storage, no clock, and
// deterministic output for identical input.
package balancer

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"pugpool/pkg/errors"
)

// Entry is one player weighed for the split.
type Entry struct {
	PlayerID int64   `json:"player_id"`
	Name     string  `json:"name"`
	Skill    float64 `json:"skill"`
}

// Assignment is a two-team split. Within each team players keep their
// input order.
type Assignment struct {
	TeamA []Entry `json:"team_a"`
	TeamB []Entry `json:"team_b"`
	SumA  float64 `json:"sum_a"`
	SumB  float64 `json:"sum_b"`
	Diff  float64 `json:"diff"`
}

// Split exhaustively tries every way to pick teamSize players out of
// entries and keeps the pick with the smallest absolute skill-sum
// difference against its complement. Candidates are enumerated in
// lexicographic index order and only a strictly smaller difference
// replaces the current best, so among tied partitions the first one
// enumerated wins. Identical input always produces the identical
// assignment.
//
// The search is C(len(entries), teamSize) subsets; for a ten-player pool
// that is 252 candidates. It is not meant for large rosters.
func Split(entries []Entry, teamSize int) (*Assignment, error) {
	if teamSize < 1 {
		return nil, errors.NewInvalidInputError("team size must be at least 1", nil)
	}
	if len(entries) != 2*teamSize {
		return nil, errors.NewInvalidInputError("entry count must be exactly twice the team size", map[string]interface{}{
			"entries":   len(entries),
			"team_size": teamSize,
		})
	}

	n := len(entries)
	inA := make([]bool, n)

	var (
		bestIdx  []int
		bestSumA float64
		bestSumB float64
		bestDiff = math.Inf(1)
	)

	for _, idx := range combin.Combinations(n, teamSize) {
		for i := range inA {
			inA[i] = false
		}
		sumA := 0.0
		for _, i := range idx {
			inA[i] = true
			sumA += entries[i].Skill
		}
		sumB := 0.0
		for i := 0; i < n; i++ {
			if !inA[i] {
				sumB += entries[i].Skill
			}
		}

		diff := math.Abs(sumA - sumB)
		if diff < bestDiff {
			bestIdx = idx
			bestSumA = sumA
			bestSumB = sumB
			bestDiff = diff
		}
	}

	assignment := &Assignment{
		TeamA: make([]Entry, 0, teamSize),
		TeamB: make([]Entry, 0, teamSize),
		SumA:  bestSumA,
		SumB:  bestSumB,
		Diff:  bestDiff,
	}

	for i := range inA {
		inA[i] = false
	}
	for _, i := range bestIdx {
		inA[i] = true
	}
	for i, e := range entries {
		if inA[i] {
			assignment.TeamA = append(assignment.TeamA, e)
		} else {
			assignment.TeamB = append(assignment.TeamB, e)
		}
	}

	return assignment, nil
}
