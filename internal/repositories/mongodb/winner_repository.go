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

// Compile-time check to ensure WinnerRepository implements the interface
var _ repositories.WinnerRepository = (*WinnerRepository)(nil)

// WinnerRepository implements the repositories.WinnerRepository interface.
// Uniqueness of (prizeId, memberId) and (prizeId, activeSlot) is enforced by the indexes
// created in pkg/mongodb.EnsureIndexes.
type WinnerRepository struct {
	collection *mongo.Collection
}

// NewWinnerRepository creates a new WinnerRepository
func NewWinnerRepository(db *mongo.Database) *WinnerRepository {
	return &WinnerRepository{
		collection: db.Collection("winners"),
	}
}

// Create inserts a winner; ErrDuplicate means the member or the slot is already taken
func (r *WinnerRepository) Create(ctx context.Context, winner *models.Winner) error {
	if winner.ID.IsZero() {
		winner.ID = primitive.NewObjectID()
	}
	winner.CreatedAt = time.Now()
	winner.UpdatedAt = winner.CreatedAt
	_, err := r.collection.InsertOne(ctx, winner)
	return translateErr(err)
}

// FindByID finds a winner by ID
func (r *WinnerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Winner, error) {
	var winner models.Winner
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&winner)
	if err != nil {
		return nil, translateErr(err)
	}
	return &winner, nil
}

// FindByDrawID finds all winners of a draw
func (r *WinnerRepository) FindByDrawID(ctx context.Context, drawID primitive.ObjectID) ([]*models.Winner, error) {
	return r.find(ctx, bson.M{"drawId": drawID})
}

// FindByPrizeID finds all winners of a prize, including expired ones
func (r *WinnerRepository) FindByPrizeID(ctx context.Context, prizeID primitive.ObjectID) ([]*models.Winner, error) {
	return r.find(ctx, bson.M{"prizeId": prizeID})
}

// FindExpiredPending finds PENDING winners of a draw whose deadline has passed
func (r *WinnerRepository) FindExpiredPending(ctx context.Context, drawID primitive.ObjectID, now time.Time) ([]*models.Winner, error) {
	return r.find(ctx, bson.M{
		"drawId":        drawID,
		"claimStatus":   models.ClaimStatusPending,
		"claimDeadline": bson.M{"$lt": now},
	})
}

// CountByDrawID counts all winner rows of a draw
func (r *WinnerRepository) CountByDrawID(ctx context.Context, drawID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"drawId": drawID})
}

// MarkClaimed is the atomic PENDING -> CLAIMED transition
func (r *WinnerRepository) MarkClaimed(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":           id,
			"claimStatus":   models.ClaimStatusPending,
			"claimDeadline": bson.M{"$gte": now},
		},
		bson.M{"$set": bson.M{
			"claimStatus": models.ClaimStatusClaimed,
			"claimedAt":   now,
			"updatedAt":   now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// MarkExpired is the atomic PENDING -> EXPIRED transition; it releases the active slot
func (r *WinnerRepository) MarkExpired(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":           id,
			"claimStatus":   models.ClaimStatusPending,
			"claimDeadline": bson.M{"$lt": now},
		},
		bson.M{
			"$set": bson.M{
				"claimStatus": models.ClaimStatusExpired,
				"expiredAt":   now,
				"updatedAt":   now,
			},
			"$unset": bson.M{"activeSlot": ""},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// MarkPaid records the external payout for a claimed winner
func (r *WinnerRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":          id,
			"claimStatus":  models.ClaimStatusClaimed,
			"payoutStatus": models.PayoutStatusPending,
		},
		bson.M{"$set": bson.M{
			"payoutStatus": models.PayoutStatusPaid,
			"paidAt":       now,
			"updatedAt":    now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *WinnerRepository) find(ctx context.Context, filter bson.M) ([]*models.Winner, error) {
	opts := options.Find().SetSort(bson.D{{Key: "selectedAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var winners []*models.Winner
	if err := cursor.All(ctx, &winners); err != nil {
		return nil, err
	}
	if winners == nil {
		winners = []*models.Winner{}
	}
	return winners, nil
}
