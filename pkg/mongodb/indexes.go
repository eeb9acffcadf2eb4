package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on for uniqueness.
// It is idempotent and safe to run on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"winners": {
			{
				Keys:    bson.D{{Key: "prizeId", Value: 1}, {Key: "memberId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_prize_member"),
			},
			{
				// only slot holders carry activeSlot
				Keys: bson.D{{Key: "prizeId", Value: 1}, {Key: "activeSlot", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("uniq_prize_active_slot").
					SetPartialFilterExpression(bson.M{"activeSlot": bson.M{"$exists": true}}),
			},
			{
				Keys:    bson.D{{Key: "drawId", Value: 1}, {Key: "claimStatus", Value: 1}, {Key: "claimDeadline", Value: 1}},
				Options: options.Index().SetName("draw_status_deadline"),
			},
		},
		"entries": {
			{
				Keys:    bson.D{{Key: "drawId", Value: 1}, {Key: "memberId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_draw_member"),
			},
		},
		"memberships": {
			{
				Keys:    bson.D{{Key: "memberId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_member"),
			},
		},
		"prizes": {
			{
				Keys:    bson.D{{Key: "drawId", Value: 1}, {Key: "createdAt", Value: 1}},
				Options: options.Index().SetName("draw_created"),
			},
		},
		"rollovers": {
			{
				Keys:    bson.D{{Key: "awardKind", Value: 1}, {Key: "currency", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("kind_currency_status"),
			},
		},
		"notifications": {
			{
				Keys:    bson.D{{Key: "memberId", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("member_created"),
			},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
