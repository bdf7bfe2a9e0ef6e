package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/metrics"
	"github.com/aussiebroadwan/invitetracker/internal/invites/reward"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/pkg/cryptox"
	"github.com/aussiebroadwan/invitetracker/pkg/slogx"
)

// KeyIssuer hands out the one-time withdrawal key once a user reaches the
// milestone.
type KeyIssuer struct {
	Store  store.Store
	Policy reward.Policy

	// GenerateKey returns a fresh numeric key of the given length.
	// Defaults to cryptox.GenerateNumericCode.
	GenerateKey func(length int) (string, error)
}

// IssueOrFetchKey returns the user's withdrawal key, generating and storing
// one on the first eligible request. Once stored the key never changes.
// Keys are not checked for uniqueness across users.
func (s *KeyIssuer) IssueOrFetchKey(ctx context.Context, userID string) (domain.KeyResult, error) {
	log := slogx.FromContext(ctx).With(slog.String("user_id", userID))
	policy := policyOrDefault(s.Policy)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RecordKeyRequest(domain.KeyNotEligible)
			return domain.KeyResult{
				Status:    domain.KeyNotEligible,
				Remaining: policy.Remaining(0),
			}, nil
		}
		log.Error("failed to load user", slog.Any("error", err))
		return domain.KeyResult{}, fmt.Errorf("failed to load user: %w", err)
	}

	result := domain.KeyResult{
		DisplayName: user.DisplayName,
		InviteCount: user.InviteCount,
		Remaining:   policy.Remaining(user.InviteCount),
	}

	if !policy.HasReachedMilestone(user.InviteCount) {
		result.Status = domain.KeyNotEligible
		metrics.RecordKeyRequest(result.Status)
		return result, nil
	}

	if user.HasWithdrawalKey() {
		result.Status = domain.KeyExisting
		result.Key = *user.WithdrawalKey
		metrics.RecordKeyRequest(result.Status)
		return result, nil
	}

	generate := s.GenerateKey
	if generate == nil {
		generate = cryptox.GenerateNumericCode
	}

	key, err := generate(policy.KeyLength)
	if err != nil {
		log.Error("failed to generate withdrawal key", slog.Any("error", err))
		return domain.KeyResult{}, fmt.Errorf("failed to generate withdrawal key: %w", err)
	}

	// A concurrent request may have stored a key first; its key wins.
	stored, assigned, err := s.Store.Users().SetWithdrawalKeyIfAbsent(ctx, userID, key)
	if err != nil {
		log.Error("failed to store withdrawal key", slog.Any("error", err))
		return domain.KeyResult{}, fmt.Errorf("failed to store withdrawal key: %w", err)
	}

	result.Key = stored
	result.Status = domain.KeyExisting
	if assigned {
		result.Status = domain.KeyIssued
		log.Info("withdrawal key issued", slog.Int("invite_count", user.InviteCount))
	}
	metrics.RecordKeyRequest(result.Status)
	return result, nil
}

func policyOrDefault(p reward.Policy) reward.Policy {
	if p == (reward.Policy{}) {
		return reward.DefaultPolicy
	}
	return p
}
