package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/metrics"
	"github.com/aussiebroadwan/invitetracker/pkg/slogx"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDedupCacheSize bounds the number of (inviter, member) pairs the
// in-process duplicate filter remembers.
const DefaultDedupCacheSize = 10_000

type dedupKey struct {
	inviterID string
	memberID  string
}

// MembershipHandler fans a batch of join events out to the InviteRecorder.
// It keeps a bounded, process-local record of pairs the ledger has already
// accepted so that redelivered events skip the store. The ledger stays the
// authority; losing the cache only costs a round trip.
type MembershipHandler struct {
	Recorder *InviteRecorder

	seen *lru.Cache[dedupKey, struct{}]
}

// NewMembershipHandler creates a handler whose duplicate filter holds up to
// cacheSize pairs. A non-positive size uses DefaultDedupCacheSize.
func NewMembershipHandler(recorder *InviteRecorder, cacheSize int) *MembershipHandler {
	if cacheSize <= 0 {
		cacheSize = DefaultDedupCacheSize
	}

	// lru.New only fails for a non-positive size.
	seen, _ := lru.New[dedupKey, struct{}](cacheSize)

	return &MembershipHandler{
		Recorder: recorder,
		seen:     seen,
	}
}

// HandleJoins records every member of one join event against inviter. A
// failure (or panic) for one member never prevents the others from being
// processed.
func (h *MembershipHandler) HandleJoins(ctx context.Context, inviter domain.Member, members []domain.Member) domain.BatchResult {
	var result domain.BatchResult
	for _, member := range members {
		h.handleJoin(ctx, inviter, member, &result)
	}

	slogx.FromContext(ctx).Info("processed join event",
		slog.String("inviter_id", inviter.ID),
		slog.Int("members", len(members)),
		slog.Int("credited", result.Credited),
		slog.Int("self_invites", result.SelfInvites),
		slog.Int("already_credited", result.AlreadyCredited),
		slog.Int("cached", result.Cached),
		slog.Int("failed", result.Failed),
	)
	return result
}

func (h *MembershipHandler) handleJoin(ctx context.Context, inviter, member domain.Member, result *domain.BatchResult) {
	log := slogx.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered panic while recording invite",
				slog.String("inviter_id", inviter.ID),
				slog.String("member_id", member.ID),
				slog.Any("panic", r),
			)
			metrics.RecordInviteFailure()
			result.Failed++
		}
	}()

	if member.IsBot {
		log.Debug("bot account joined",
			slog.String("inviter_id", inviter.ID),
			slog.String("member_id", member.ID),
		)
	}

	key := dedupKey{inviterID: inviter.ID, memberID: member.ID}
	if h.seen != nil && h.seen.Contains(key) {
		log.Debug("skipping cached invite",
			slog.String("inviter_id", inviter.ID),
			slog.String("member_id", member.ID),
		)
		metrics.RecordInviteCached()
		result.Cached++
		return
	}

	outcome, err := h.Recorder.RecordInvite(ctx, inviter, member.ID)
	if err != nil {
		// Already logged by the recorder; not cached so a redelivery can retry.
		result.Failed++
		return
	}

	result.Add(outcome)
	if h.seen != nil && (outcome == domain.OutcomeCredited || outcome == domain.OutcomeSkippedAlreadyCredited) {
		h.seen.Add(key, struct{}{})
	}
}
