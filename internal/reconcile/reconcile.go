// Package reconcile merges overlapping text fragments delivered by a
// stream into a stable, append-only document. The producer may resend
// text that overlaps what was already accumulated; naive concatenation
// would duplicate the overlapping region.
package reconcile

import "strings"

// Merge combines an incoming fragment with previously accumulated text.
//
// It scans prefixes of incoming from longest to shortest and keeps the
// first one found as a literal substring of previous. The result is the
// incoming text in full plus whatever tail of previous extends beyond
// the matched overlap. With no overlap at all it falls back to
// incoming + previous[len(incoming):], which can fabricate wrong merges
// for fragments shorter than the real overlap; see the package tests.
func Merge(previous, incoming string) string {
	if incoming == "" {
		return previous
	}
	if previous == "" {
		return incoming
	}

	for end := len(incoming); end > 0; end-- {
		overlap := incoming[:end]
		idx := strings.Index(previous, overlap)
		if idx < 0 {
			continue
		}
		return incoming + previous[idx+end:]
	}

	if len(incoming) < len(previous) {
		return incoming + previous[len(incoming):]
	}
	return incoming
}

// State is the caller-owned accumulator for one streamed document. It
// is mutated only through Apply and never touched by the stream session.
type State struct {
	// Accumulated is the display-ready document text.
	Accumulated string
}

// Apply merges one fragment and returns the updated document.
func (s *State) Apply(incoming string) string {
	s.Accumulated = Merge(s.Accumulated, incoming)
	return s.Accumulated
}

// Reset clears the accumulator for a new document.
func (s *State) Reset() {
	s.Accumulated = ""
}
