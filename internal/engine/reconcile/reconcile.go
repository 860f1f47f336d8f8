// Package reconcile merges overlapping transcription fragments into a single
// growing transcript.
package reconcile

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minOverlap is the smallest normalized overlap accepted as evidence that a
// fragment continues the committed transcript. Shorter matches are too likely
// to be coincidence.
const minOverlap = 3

// Result describes the outcome of merging one fragment.
type Result struct {
	// Delta is the newly committed text, empty when the fragment added
	// nothing.
	Delta string
	// Transcript is the full committed transcript after the merge.
	Transcript string
	// Discontinuity is set when no plausible overlap was found and the
	// fragment was appended verbatim.
	Discontinuity bool
}

// Reconciler accumulates the committed transcript for one session.
//
// Consecutive inference windows share an overlap span, so each fragment
// usually re-transcribes the tail of the previous one. Merge locates that
// repeated tail and commits only what follows it.
//
// Not safe for concurrent use; it is owned by a single session worker.
type Reconciler struct {
	transcript string
}

// New creates an empty reconciler.
func New() *Reconciler {
	return &Reconciler{}
}

// Merge folds a fragment into the transcript and returns the delta.
//
// Matching is done on a normalized view (lowercased, whitespace collapsed)
// so the overlap is found even when the model re-renders casing or spacing
// differently across windows. The committed text keeps the fragment's
// original spelling.
func (r *Reconciler) Merge(fragment string) Result {
	frag := strings.TrimSpace(fragment)
	if frag == "" {
		return Result{Transcript: r.transcript}
	}
	if r.transcript == "" {
		r.transcript = frag
		return Result{Delta: frag, Transcript: r.transcript}
	}

	committed, _ := normalize(r.transcript)
	norm, idx := normalize(frag)

	longest := len(norm)
	if len(committed) < longest {
		longest = len(committed)
	}
	for k := longest; k >= minOverlap; k-- {
		if !strings.HasSuffix(committed, norm[:k]) {
			continue
		}
		if k == len(norm) {
			// The fragment is entirely a re-transcription of
			// already-committed text.
			return Result{Transcript: r.transcript}
		}
		delta := frag[idx[k]:]
		r.transcript += delta
		return Result{Delta: delta, Transcript: r.transcript}
	}

	// No plausible overlap. Commit the whole fragment and flag the seam.
	r.transcript += " " + frag
	return Result{Delta: frag, Transcript: r.transcript, Discontinuity: true}
}

// Transcript returns the committed transcript so far.
func (r *Reconciler) Transcript() string {
	return r.transcript
}

// normalize lowercases s and collapses whitespace runs to single spaces.
// The returned index maps each byte of the normalized string back to the
// byte offset in s where the corresponding rune (or whitespace run) starts,
// so a match boundary in normalized space can be translated to an offset in
// the original text.
func normalize(s string) (string, []int) {
	var b strings.Builder
	idx := make([]int, 0, len(s))
	spaceAt := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if b.Len() > 0 && spaceAt < 0 {
				spaceAt = i
			}
			continue
		}
		if spaceAt >= 0 {
			b.WriteByte(' ')
			idx = append(idx, spaceAt)
			spaceAt = -1
		}
		lr := unicode.ToLower(r)
		b.WriteRune(lr)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			idx = append(idx, i)
		}
	}
	return b.String(), idx
}
