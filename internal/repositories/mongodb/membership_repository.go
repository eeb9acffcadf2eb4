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

// Compile-time check to ensure MembershipRepository implements the interface
var _ repositories.MembershipRepository = (*MembershipRepository)(nil)

// MembershipRepository reads the memberships collection maintained by the membership system
type MembershipRepository struct {
	collection *mongo.Collection
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(db *mongo.Database) *MembershipRepository {
	return &MembershipRepository{
		collection: db.Collection("memberships"),
	}
}

// FindByMemberID finds a membership by member id
func (r *MembershipRepository) FindByMemberID(ctx context.Context, memberID string) (*models.Membership, error) {
	var membership models.Membership
	err := r.collection.FindOne(ctx, bson.M{"memberId": memberID}).Decode(&membership)
	if err != nil {
		return nil, translateErr(err)
	}
	return &membership, nil
}

// FindByMemberIDs finds the memberships for a set of member ids
func (r *MembershipRepository) FindByMemberIDs(ctx context.Context, memberIDs []string) ([]*models.Membership, error) {
	if len(memberIDs) == 0 {
		return []*models.Membership{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"memberId": bson.M{"$in": memberIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var memberships []*models.Membership
	if err = cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	if memberships == nil {
		memberships = []*models.Membership{}
	}
	return memberships, nil
}

// Upsert inserts or replaces a membership keyed by member id
func (r *MembershipRepository) Upsert(ctx context.Context, membership *models.Membership) error {
	now := time.Now()
	membership.UpdatedAt = now
	update := bson.M{
		"$set": bson.M{
			"name":          membership.Name,
			"msisdn":        membership.MSISDN,
			"country":       membership.Country,
			"status":        membership.Status,
			"endDate":       membership.EndDate,
			"isBlacklisted": membership.IsBlacklisted,
			"updatedAt":     now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"createdAt": now,
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"memberId": membership.MemberID}, update, options.Update().SetUpsert(true))
	return translateErr(err)
}
