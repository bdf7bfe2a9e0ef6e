package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type usersRepo struct {
	col *mongo.Collection
}

func (r *usersRepo) GetOrCreate(ctx context.Context, userID, displayName string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, store.ErrInvalidArguments
	}

	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"display_name":     displayName,
			"invite_count":     0,
			"invited_user_ids": bson.A{},
			"withdrawal_key":   nil,
			"created_at":       now,
			"updated_at":       now,
		},
	}

	_, err := r.col.UpdateOne(ctx, bson.M{"_id": userID}, update, options.UpdateOne().SetUpsert(true))
	// Two concurrent upserts may both miss and race on _id; the loser finds
	// the winner's document below.
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return r.GetUserByID(ctx, userID)
}

func (r *usersRepo) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

func (r *usersRepo) ApplyInviteCredit(ctx context.Context, inviterID, inviteeID string) (domain.User, error) {
	if inviterID == "" || inviteeID == "" || inviterID == inviteeID {
		return domain.User{}, store.ErrInvalidArguments
	}

	filter := bson.M{
		"_id":              inviterID,
		"invited_user_ids": bson.M{"$ne": inviteeID},
	}
	update := bson.M{
		"$push": bson.M{"invited_user_ids": inviteeID},
		"$inc":  bson.M{"invite_count": 1},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	var doc userDocument
	err := r.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, fmt.Errorf("failed to apply invite credit: %w", err)
	}

	// Nothing matched: either the inviter is unknown or the invitee is
	// already in the set.
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": inviterID})
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to look up inviter: %w", err)
	}
	if n == 0 {
		return domain.User{}, store.ErrNotFound
	}
	return domain.User{}, store.ErrAlreadyCredited
}

func (r *usersRepo) SetWithdrawalKeyIfAbsent(ctx context.Context, userID, key string) (string, bool, error) {
	if key == "" {
		return "", false, store.ErrInvalidArguments
	}

	// {withdrawal_key: null} matches both a null and a missing field.
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID, "withdrawal_key": nil},
		bson.M{"$set": bson.M{"withdrawal_key": key, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to set withdrawal key: %w", err)
	}

	u, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if u.WithdrawalKey == nil {
		return "", false, fmt.Errorf("withdrawal key missing after update for user %s", userID)
	}
	return *u.WithdrawalKey, res.ModifiedCount == 1, nil
}

func (r *usersRepo) Stats(ctx context.Context) (domain.LedgerStats, error) {
	pipeline := bson.A{
		bson.M{
			"$group": bson.M{
				"_id":     nil,
				"users":   bson.M{"$sum": 1},
				"credits": bson.M{"$sum": "$invite_count"},
			},
		},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.LedgerStats{}, fmt.Errorf("failed to aggregate ledger stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Users   int64 `bson:"users"`
		Credits int64 `bson:"credits"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return domain.LedgerStats{}, fmt.Errorf("failed to decode ledger stats: %w", err)
	}

	holders, err := r.col.CountDocuments(ctx, bson.M{"withdrawal_key": bson.M{"$type": "string"}})
	if err != nil {
		return domain.LedgerStats{}, fmt.Errorf("failed to count key holders: %w", err)
	}

	stats := domain.LedgerStats{KeyHolders: int(holders)}
	if len(results) > 0 {
		stats.Users = int(results[0].Users)
		stats.TotalCredits = int(results[0].Credits)
	}
	return stats, nil
}
