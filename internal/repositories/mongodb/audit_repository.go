package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ repositories.AuditRepository = (*AuditRepository)(nil)

// AuditRepository writes to the append-only audit collection
type AuditRepository struct {
	collection *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		collection: db.Collection("audit_log"),
	}
}

// Append inserts an audit entry
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return translateErr(err)
}
