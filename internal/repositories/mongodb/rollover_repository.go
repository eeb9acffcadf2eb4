package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure RolloverRepository implements the interface
var _ repositories.RolloverRepository = (*RolloverRepository)(nil)

// RolloverRepository implements the repositories.RolloverRepository interface
type RolloverRepository struct {
	collection *mongo.Collection
}

// NewRolloverRepository creates a new RolloverRepository
func NewRolloverRepository(db *mongo.Database) *RolloverRepository {
	return &RolloverRepository{
		collection: db.Collection("rollovers"),
	}
}

// Create appends a rollover ledger entry.
func (r *RolloverRepository) Create(ctx context.Context, entry *models.RolloverEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create rollover record: %w", translateErr(err))
	}
	return nil
}

// FindOutstanding finds unconsumed entries of one award kind and currency, oldest first.
func (r *RolloverRepository) FindOutstanding(ctx context.Context, kind models.AwardKind, currency string) ([]*models.RolloverEntry, error) {
	filter := bson.M{
		"awardKind": kind,
		"currency":  currency,
		"status":    models.RolloverStatusOutstanding,
	}
	entries, err := r.find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding outstanding %s rollovers: %w", kind, err)
	}
	return entries, nil
}

// FindBySourceDrawID finds all entries that originated from a draw.
func (r *RolloverRepository) FindBySourceDrawID(ctx context.Context, drawID primitive.ObjectID) ([]*models.RolloverEntry, error) {
	return r.find(ctx, bson.M{"sourceDrawId": drawID})
}

// FindAll finds entries filtered by optional kind and status.
func (r *RolloverRepository) FindAll(ctx context.Context, kind models.AwardKind, status models.RolloverStatus) ([]*models.RolloverEntry, error) {
	filter := bson.M{}
	if kind != "" {
		filter["awardKind"] = kind
	}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter)
}

// Consume flips an OUTSTANDING entry to CONSUMED; the status filter makes it one-shot.
func (r *RolloverRepository) Consume(ctx context.Context, id, destDrawID, destPrizeID primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RolloverStatusOutstanding},
		bson.M{"$set": bson.M{
			"status":             models.RolloverStatusConsumed,
			"destinationDrawId":  destDrawID,
			"destinationPrizeId": destPrizeID,
			"consumedAt":         at,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("error consuming rollover %s: %w", id.Hex(), err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *RolloverRepository) find(ctx context.Context, filter bson.M) ([]*models.RolloverEntry, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*models.RolloverEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.RolloverEntry{}
	}
	return entries, nil
}
