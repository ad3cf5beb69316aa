package spell

import (
	"github.com/charmbracelet/log"

	"github.com/qazboard/sozdik/pkg/textutil"
)

// Mode selects how aggressively Generate explores the edit space.
type Mode int

const (
	// Fast caps substitutions at two per table per position and the total
	// at 5×maxResults; it is the synchronous Stage-2 budget.
	Fast Mode = iota
	// Full allows every table entry with a total cap of 10×maxResults and
	// honors cancellation between positions.
	Full
)

const fastPerPosition = 2

// Generate produces deduplicated correction candidates for input by
// keyboard-neighbor substitution, phonetic-class substitution, single
// deletion and adjacent transposition. cancelled is polled between
// positions in Full mode; a nil func never cancels. Candidates that fail
// UTF-8 encoding are skipped, never fatal.
func Generate(input []rune, maxResults int, mode Mode, cancelled func() bool) []string {
	if len(input) == 0 || maxResults <= 0 {
		return nil
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	totalCap := 5 * maxResults
	perPosition := fastPerPosition
	if mode == Full {
		totalCap = 10 * maxResults
		perPosition = 0 // unlimited
	}

	seen := make(map[string]struct{}, totalCap)
	candidates := make([]string, 0, totalCap)

	emit := func(runes []rune) {
		s, err := textutil.EncodeRunes(runes)
		if err != nil {
			log.Debugf("skipping unencodable candidate: %v", err)
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		candidates = append(candidates, s)
	}

	substitute := func(i int, r rune) {
		next := make([]rune, len(input))
		copy(next, input)
		next[i] = r
		emit(next)
	}

	// Keyboard-neighbor substitutions plus single deletions.
	for i := 0; i < len(input) && len(seen) < totalCap; i++ {
		if mode == Full && cancelled() {
			return nil
		}

		neighbors := KeyboardNeighbors(input[i])
		limit := len(neighbors)
		if perPosition > 0 && limit > perPosition {
			limit = perPosition
		}
		for j := 0; j < limit && len(seen) < totalCap; j++ {
			substitute(i, neighbors[j])
		}

		if len(input) > 1 && len(seen) < totalCap {
			next := make([]rune, 0, len(input)-1)
			next = append(next, input[:i]...)
			next = append(next, input[i+1:]...)
			emit(next)
		}
	}

	// Phonetic-class substitutions.
	for i := 0; i < len(input) && len(seen) < totalCap; i++ {
		if mode == Full && cancelled() {
			return nil
		}

		partners := PhoneticPartners(input[i])
		limit := len(partners)
		if perPosition > 0 && limit > perPosition {
			limit = perPosition
		}
		for j := 0; j < limit && len(seen) < totalCap; j++ {
			substitute(i, partners[j])
		}
	}

	// Adjacent transpositions.
	for i := 0; i+1 < len(input) && len(seen) < totalCap; i++ {
		if mode == Full && cancelled() {
			return nil
		}

		next := make([]rune, len(input))
		copy(next, input)
		next[i], next[i+1] = next[i+1], next[i]
		emit(next)
	}

	return candidates
}
