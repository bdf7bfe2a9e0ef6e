// Package reward turns an invite count into the values shown to users.
// Every status path goes through a Policy so the numbers never disagree.
package reward

import "errors"

const (
	DefaultMilestone = 200 // invites needed to unlock a withdrawal key
	DefaultRate      = 50  // reward units credited per invite
	DefaultKeyLength = 6   // digits in a withdrawal key
)

var ErrInvalidPolicy = errors.New("reward: invalid policy")

// Policy holds the reward constants.
type Policy struct {
	Milestone int
	Rate      int
	KeyLength int
}

// DefaultPolicy is the policy the bot ships with.
var DefaultPolicy = Policy{
	Milestone: DefaultMilestone,
	Rate:      DefaultRate,
	KeyLength: DefaultKeyLength,
}

// Validate rejects policies that would make the milestone unreachable or the
// key empty.
func (p Policy) Validate() error {
	if p.Milestone <= 0 || p.Rate < 0 || p.KeyLength <= 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// Balance returns inviteCount * Rate.
func (p Policy) Balance(inviteCount int) int {
	return max(inviteCount, 0) * p.Rate
}

// Remaining returns how many more invites are needed to reach the milestone.
func (p Policy) Remaining(inviteCount int) int {
	return max(p.Milestone-inviteCount, 0)
}

// HasReachedMilestone reports whether inviteCount unlocks the withdrawal key.
func (p Policy) HasReachedMilestone(inviteCount int) bool {
	return inviteCount >= p.Milestone
}

// Balance uses DefaultPolicy.
func Balance(inviteCount int) int { return DefaultPolicy.Balance(inviteCount) }

// Remaining uses DefaultPolicy.
func Remaining(inviteCount int) int { return DefaultPolicy.Remaining(inviteCount) }

// HasReachedMilestone uses DefaultPolicy.
func HasReachedMilestone(inviteCount int) bool { return DefaultPolicy.HasReachedMilestone(inviteCount) }
