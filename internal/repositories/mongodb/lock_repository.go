package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repositories.PrizeLocker = (*LockRepository)(nil)

// LockRepository is a lease lock stored in the "locks" collection.
// A lease is taken by upserting on {_id: key, expiresAt < now}: when a live lease exists
// the filter misses and the upsert collides with the existing _id.
type LockRepository struct {
	collection *mongo.Collection
}

// NewLockRepository creates a new LockRepository
func NewLockRepository(db *mongo.Database) *LockRepository {
	return &LockRepository{
		collection: db.Collection("locks"),
	}
}

// Lock acquires the lease for key or returns repositories.ErrLockHeld
func (r *LockRepository) Lock(ctx context.Context, key, owner string, ttl time.Duration) error {
	now := time.Now()
	filter := bson.M{"_id": key, "expiresAt": bson.M{"$lt": now}}
	update := bson.M{"$set": bson.M{
		"owner":     owner,
		"expiresAt": now.Add(ttl),
		"lockedAt":  now,
	}}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if errors.Is(translateErr(err), repositories.ErrDuplicate) {
			return repositories.ErrLockHeld
		}
		return err
	}
	return nil
}

// Unlock releases the lease if owner still holds it
func (r *LockRepository) Unlock(ctx context.Context, key, owner string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	return err
}
