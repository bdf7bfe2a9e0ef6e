package domain

// Outcome is the result of recording a single invite event.
type Outcome int

const (
	OutcomeCredited Outcome = iota + 1
	OutcomeSkippedSelfInvite
	OutcomeSkippedAlreadyCredited
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCredited:
		return "credited"
	case OutcomeSkippedSelfInvite:
		return "skipped_self_invite"
	case OutcomeSkippedAlreadyCredited:
		return "skipped_already_credited"
	default:
		return "unknown"
	}
}

// BatchResult tallies what happened to one batch of join events.
type BatchResult struct {
	Credited        int
	SelfInvites     int
	AlreadyCredited int
	Cached          int // short-circuited by the process-local filter
	Failed          int
}

// Add records a single outcome in the tally.
func (b *BatchResult) Add(o Outcome) {
	switch o {
	case OutcomeCredited:
		b.Credited++
	case OutcomeSkippedSelfInvite:
		b.SelfInvites++
	case OutcomeSkippedAlreadyCredited:
		b.AlreadyCredited++
	}
}

// Total returns the number of members seen in the batch.
func (b BatchResult) Total() int {
	return b.Credited + b.SelfInvites + b.AlreadyCredited + b.Cached + b.Failed
}
