package duel

import (
	"fmt"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/seeded"
)

// optionCount is the number of answer options shown per question: the
// canonical answer plus three distractors.
const optionCount = 4

// Options builds the option set userID sees for questionID. The order (and
// which distractors were drawn) is seeded per player, so the two participants
// see different screens and cannot simply copy each other, while the
// canonical correct answer is always present exactly once. Every client
// derives the same set for the same (matchId, questionId, userId) triple.
func (e *Engine) Options(matchID, questionID, userID string) ([]string, error) {
	q, ok := e.catalog.Get(questionID)
	if !ok {
		return nil, ErrQuestionMissing
	}
	canonical := q.Canonical()
	correctNorm := Normalize(canonical)

	// Distractors come from the canonical answers of the rest of the
	// catalog, minus anything that would read as a duplicate or as a
	// second correct answer.
	seenNorm := map[string]bool{correctNorm: true}
	pool := make([]string, 0, e.catalog.Len())
	for _, other := range e.catalog.All() {
		if other.ID == questionID {
			continue
		}
		candidate := other.Canonical()
		n := Normalize(candidate)
		if n == "" || seenNorm[n] {
			continue
		}
		seenNorm[n] = true
		pool = append(pool, candidate)
	}

	base := fmt.Sprintf("%s|%s|%s", matchID, questionID, userID)
	pool = seeded.ShuffleStrings(base+"|pool", pool)
	if len(pool) > optionCount-1 {
		pool = pool[:optionCount-1]
	}

	options := append(pool, canonical)
	return seeded.ShuffleStrings(base+"|order", options), nil
}
