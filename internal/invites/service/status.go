package service

import (
	"context"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/reward"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
)

// StatusService builds the progress view a user sees for /start and Check.
type StatusService struct {
	Store  store.Store
	Policy reward.Policy
}

// Start creates the member's record on first contact and returns its status.
func (s *StatusService) Start(ctx context.Context, member domain.Member) (domain.Status, error) {
	user, err := s.Store.Users().GetOrCreate(ctx, member.ID, member.DisplayName)
	if err != nil {
		return domain.Status{}, err
	}
	return s.status(user), nil
}

// Check returns the status of an existing record. store.ErrNotFound is
// returned unchanged when the user has none.
func (s *StatusService) Check(ctx context.Context, userID string) (domain.Status, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.Status{}, err
	}
	return s.status(user), nil
}

func (s *StatusService) status(u domain.User) domain.Status {
	p := policyOrDefault(s.Policy)
	return domain.Status{
		User:             u,
		Balance:          p.Balance(u.InviteCount),
		Remaining:        p.Remaining(u.InviteCount),
		Milestone:        p.Milestone,
		ReachedMilestone: p.HasReachedMilestone(u.InviteCount),
	}
}
