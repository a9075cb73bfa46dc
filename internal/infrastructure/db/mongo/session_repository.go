package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projecthub/portal/internal/core/ports"
)

const sessionsCollection = "sessions"

// SessionRepository implements ports.SessionStorage on a MongoDB collection.
// Documents expire through a TTL index on updated_at (see EnsureIndexes).
type SessionRepository struct {
	coll *mongo.Collection
}

var _ ports.SessionStorage = (*SessionRepository)(nil)

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{coll: db.Collection(sessionsCollection)}
}

type mongoSession struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	User      string    `bson:"user"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (ports.StoredSession, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoSession
	if err := r.coll.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ports.StoredSession{}, ports.ErrNoSession
		}
		return ports.StoredSession{}, fmt.Errorf("find session: %w", err)
	}
	return ports.StoredSession{Token: ms.Token, User: ms.User}, nil
}

// Put replaces the whole document, so token and user always change together.
func (r *SessionRepository) Put(ctx context.Context, sessionID string, st ports.StoredSession) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoSession{
		ID:        sessionID,
		Token:     st.Token,
		User:      st.User,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": sessionID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
