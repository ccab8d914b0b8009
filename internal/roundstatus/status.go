package roundstatus

import "time"

// Status is the badge shown for a broadcast round.
type Status string

const (
	Finished Status = "finished"
	Live     Status = "live"
	Upcoming Status = "upcoming"
)

// Timing is the subset of a round record the classifier looks at.
// A zero StartsAt means the round has no scheduled start.
type Timing struct {
	Finished            bool
	StartsAt            time.Time
	StartsAfterPrevious bool
}

// FromMillis builds a Timing from epoch-millisecond fields as served by Lichess.
// Non-positive timestamps are treated as absent.
func FromMillis(finished bool, startsAtMillis int64, startsAfterPrevious bool) Timing {
	t := Timing{Finished: finished, StartsAfterPrevious: startsAfterPrevious}
	if startsAtMillis > 0 {
		t.StartsAt = time.UnixMilli(startsAtMillis)
	}
	return t
}

// Classify resolves the status of one round. prev is the resolved status of
// the round immediately before it in the tournament, or "" when there is none.
func Classify(r Timing, prev Status, now time.Time) Status {
	if r.Finished {
		return Finished
	}
	if !r.StartsAt.IsZero() {
		if !r.StartsAt.After(now) {
			return Live
		}
		return Upcoming
	}
	if r.StartsAfterPrevious && prev == Finished {
		return Live
	}
	return Upcoming
}

// ClassifyAll resolves an ordered round list, feeding each resolved status
// into the next round.
func ClassifyAll(rounds []Timing, now time.Time) []Status {
	out := make([]Status, len(rounds))
	var prev Status
	for i, r := range rounds {
		out[i] = Classify(r, prev, now)
		prev = out[i]
	}
	return out
}
