package consensus

import (
	"github.com/concordlabs/concord/pkg/models"
)

// OutcomeKind is the terminal (or pending) state of a consensus round.
type OutcomeKind string

const (
	// OutcomePending indicates the round is still collecting answers.
	OutcomePending OutcomeKind = "pending"
	// OutcomeAccepted indicates one bucket reached the f+1 plurality.
	OutcomeAccepted OutcomeKind = "accepted"
	// OutcomeNoQuorum indicates all answers arrived but no bucket leads
	// with f+1 support.
	OutcomeNoQuorum OutcomeKind = "no_quorum"
	// OutcomeTimedOut indicates fewer than 2f+1 answers arrived in time.
	OutcomeTimedOut OutcomeKind = "timed_out"
)

// Outcome is the result of resolving one consensus round.
type Outcome struct {
	// Kind is the terminal state of the round.
	Kind OutcomeKind
	// Accepted is the representative answer of the winning bucket.
	// Set only when Kind is OutcomeAccepted.
	Accepted *models.AgentAnswer
	// Support is the vote count of the winning bucket.
	Support int
	// Buckets is the number of distinct answer buckets observed.
	Buckets int
	// Answers is the number of answers that arrived.
	Answers int
}

// bucket groups answers considered the same vote.
type bucket struct {
	// rep is the representative answer, the highest-confidence member.
	rep     *models.AgentAnswer
	members []*models.AgentAnswer
}

// Round is one bounded attempt to reduce agent answers for a single task to
// an accepted result. Rounds are created when a consensus task dispatches
// and discarded once the outcome is terminal.
type Round struct {
	// Number is the attempt counter for the owning task, 1-indexed.
	Number int
	// threshold is the similarity score above which free-text answers share
	// a bucket.
	threshold float64
	buckets   []*bucket
	answers   []*models.AgentAnswer
}

// NewRound creates a round with the given attempt number and similarity
// threshold.
func NewRound(number int, threshold float64) *Round {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Round{Number: number, threshold: threshold}
}

// Observe adds an answer to the round, joining it to the first bucket whose
// representative it matches above the threshold, or opening a new bucket.
// Empty answers are ignored.
func (r *Round) Observe(answer *models.AgentAnswer) {
	if answer.Empty() {
		return
	}
	r.answers = append(r.answers, answer)

	for _, b := range r.buckets {
		if similarity(b.rep, answer) >= r.threshold {
			b.members = append(b.members, answer)
			if answer.Confidence > b.rep.Confidence {
				b.rep = answer
			}
			return
		}
	}
	r.buckets = append(r.buckets, &bucket{rep: answer, members: []*models.AgentAnswer{answer}})
}

// Tally returns the support count per bucket signature.
func (r *Round) Tally() map[string]int {
	tally := make(map[string]int, len(r.buckets))
	for _, b := range r.buckets {
		tally[digest(b.rep.Content)] = len(b.members)
	}
	return tally
}

// Leader returns the bucket with the most votes and whether it strictly
// exceeds every other bucket. Returns nil when no answers were observed.
func (r *Round) Leader() (*bucket, bool) {
	var leader *bucket
	strict := true
	for _, b := range r.buckets {
		switch {
		case leader == nil || len(b.members) > len(leader.members):
			leader = b
			strict = true
		case len(b.members) == len(leader.members):
			strict = false
		}
	}
	return leader, strict
}
