package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/metrics"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/pkg/slogx"
)

// InviteRecorder credits a single invite event to the inviter's ledger record.
type InviteRecorder struct {
	Store store.Store
}

// RecordInvite applies the credit rules in order: self-invites are skipped
// without touching the ledger, the inviter record is created on first
// contact, and an invitee already in the inviter's set is skipped. Storage
// failures are returned and never retried, so an event is credited at most
// once.
func (r *InviteRecorder) RecordInvite(ctx context.Context, inviter domain.Member, inviteeID string) (domain.Outcome, error) {
	log := slogx.FromContext(ctx).With(
		slog.String("inviter_id", inviter.ID),
		slog.String("invitee_id", inviteeID),
	)

	if inviter.ID == inviteeID {
		log.Debug("skipping self invite")
		metrics.RecordInviteOutcome(domain.OutcomeSkippedSelfInvite)
		return domain.OutcomeSkippedSelfInvite, nil
	}

	if _, err := r.Store.Users().GetOrCreate(ctx, inviter.ID, inviter.DisplayName); err != nil {
		log.Error("failed to load inviter", slog.Any("error", err))
		metrics.RecordInviteFailure()
		return 0, fmt.Errorf("failed to load inviter: %w", err)
	}

	user, err := r.Store.Users().ApplyInviteCredit(ctx, inviter.ID, inviteeID)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyCredited) {
			log.Debug("invitee already credited")
			metrics.RecordInviteOutcome(domain.OutcomeSkippedAlreadyCredited)
			return domain.OutcomeSkippedAlreadyCredited, nil
		}
		log.Error("failed to apply invite credit", slog.Any("error", err))
		metrics.RecordInviteFailure()
		return 0, fmt.Errorf("failed to apply invite credit: %w", err)
	}

	log.Info("invite credited",
		slog.String("inviter_name", user.DisplayName),
		slog.Int("invite_count", user.InviteCount),
	)
	metrics.RecordInviteOutcome(domain.OutcomeCredited)
	return domain.OutcomeCredited, nil
}
