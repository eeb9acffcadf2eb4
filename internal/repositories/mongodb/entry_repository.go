package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure EntryRepository implements the interface
var _ repositories.EntryRepository = (*EntryRepository)(nil)

// EntryRepository implements the repositories.EntryRepository interface
type EntryRepository struct {
	collection *mongo.Collection
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(db *mongo.Database) *EntryRepository {
	return &EntryRepository{
		collection: db.Collection("entries"),
	}
}

// Create inserts an entry; the (drawId, memberId) index turns repeats into ErrDuplicate
func (r *EntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return translateErr(err)
}

// Exists reports whether the member has entered the draw
func (r *EntryRepository) Exists(ctx context.Context, drawID primitive.ObjectID, memberID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"drawId": drawID, "memberId": memberID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindMemberIDsByDrawID lists the member ids that entered a draw
func (r *EntryRepository) FindMemberIDsByDrawID(ctx context.Context, drawID primitive.ObjectID) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"memberId": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"drawId": drawID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.MemberID)
	}
	return ids, nil
}

// CountByDrawID counts the entries of a draw
func (r *EntryRepository) CountByDrawID(ctx context.Context, drawID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"drawId": drawID})
}
