package session

import "strings"

// reconciler merges successive decode hypotheses for one utterance into a
// confirmed prefix that only ever grows and a volatile tail that may change
// between updates. Comparison is word-by-word and case-insensitive; each new
// hypothesis is compared against the previously reconciled text (confirmed +
// volatile), not against raw history, so confirmation is monotonic within an
// utterance.
type reconciler struct {
	confirmed []string
	volatile  []string
}

// apply reconciles a new hypothesis and reports whether the confirmed prefix
// grew.
func (r *reconciler) apply(hyp string) (grew bool) {
	words := strings.Fields(hyp)
	prev := make([]string, 0, len(r.confirmed)+len(r.volatile))
	prev = append(prev, r.confirmed...)
	prev = append(prev, r.volatile...)

	lcp := 0
	for lcp < len(prev) && lcp < len(words) && strings.EqualFold(prev[lcp], words[lcp]) {
		lcp++
	}

	// Confirmed text is never retracted: a shorter or diverging hypothesis
	// can only shrink the volatile tail.
	n := lcp
	if n < len(r.confirmed) {
		n = len(r.confirmed)
	}
	if n > len(words) {
		r.volatile = nil
		return false
	}

	grew = n > len(r.confirmed)
	r.confirmed = append(r.confirmed, words[len(r.confirmed):n]...)
	r.volatile = append(r.volatile[:0], words[n:]...)
	return grew
}

// promote moves the whole volatile tail into the confirmed prefix. Called at
// utterance finalization.
func (r *reconciler) promote() {
	r.confirmed = append(r.confirmed, r.volatile...)
	r.volatile = nil
}

func (r *reconciler) confirmedText() string { return strings.Join(r.confirmed, " ") }
func (r *reconciler) volatileText() string  { return strings.Join(r.volatile, " ") }
func (r *reconciler) fullText() string {
	if len(r.volatile) == 0 {
		return r.confirmedText()
	}
	if len(r.confirmed) == 0 {
		return r.volatileText()
	}
	return r.confirmedText() + " " + r.volatileText()
}

// reset clears all state for the next utterance.
func (r *reconciler) reset() {
	r.confirmed = nil
	r.volatile = nil
}
