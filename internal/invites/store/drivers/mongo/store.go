// Package mongo stores the invite ledger in MongoDB, one document per user.
// The invited set lives inside the inviter's document, so a credit is a
// single conditional FindOneAndUpdate and needs no transaction.
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

const colUsers = "users"

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to uri (e.g. "mongodb://localhost:27017") and uses the
// named database.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return NewStoreFromClient(client, database), nil
}

// NewStoreFromClient wraps a connected client. Close disconnects it.
func NewStoreFromClient(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

func (s *Store) Users() store.Users { return &usersRepo{col: s.db.Collection(colUsers)} }

// ApplyMigrations creates the collection indexes. Creating an index that
// already exists is a no-op.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	_, err := s.db.Collection(colUsers).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "withdrawal_key", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", colUsers, err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

type userDocument struct {
	ID             string    `bson:"_id"`
	DisplayName    string    `bson:"display_name"`
	InviteCount    int       `bson:"invite_count"`
	InvitedUserIDs []string  `bson:"invited_user_ids"`
	WithdrawalKey  *string   `bson:"withdrawal_key"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func (d userDocument) toDomain() domain.User {
	invitees := d.InvitedUserIDs
	if invitees == nil {
		invitees = []string{}
	}
	return domain.User{
		ID:             d.ID,
		DisplayName:    d.DisplayName,
		InviteCount:    d.InviteCount,
		InvitedUserIDs: invitees,
		WithdrawalKey:  d.WithdrawalKey,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}
