package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup by id matches nothing
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
	// ErrLockHeld is returned when a lock is currently owned by someone else
	ErrLockHeld = errors.New("lock held by another owner")
)

// DrawRepository defines the interface for draw data operations
type DrawRepository interface {
	Create(ctx context.Context, draw *models.Draw) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Draw, error)
	FindByStatus(ctx context.Context, status models.DrawStatus) ([]*models.Draw, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Draw, error)
	// UpdateStatus moves the draw from one status to another only if it is currently in from.
	// It reports whether the transition was applied.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.DrawStatus, at time.Time) (bool, error)
	AddToEstimatedPool(ctx context.Context, id primitive.ObjectID, amount decimal.Decimal) error
}

// PrizeRepository defines the interface for prize data operations
type PrizeRepository interface {
	Create(ctx context.Context, prize *models.Prize) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prize, error)
	FindByDrawID(ctx context.Context, drawID primitive.ObjectID, activeOnly bool) ([]*models.Prize, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	// IncrementRolledOverSlots adds delta to RolledOverSlots only if it currently equals expected.
	IncrementRolledOverSlots(ctx context.Context, id primitive.ObjectID, expected, delta int) (bool, error)
}

// EntryRepository defines the interface for draw entry operations
type EntryRepository interface {
	Create(ctx context.Context, entry *models.Entry) error // ErrDuplicate on (drawId, memberId)
	Exists(ctx context.Context, drawID primitive.ObjectID, memberID string) (bool, error)
	FindMemberIDsByDrawID(ctx context.Context, drawID primitive.ObjectID) ([]string, error)
	CountByDrawID(ctx context.Context, drawID primitive.ObjectID) (int64, error)
}

// MembershipRepository is the read side of the membership system
type MembershipRepository interface {
	FindByMemberID(ctx context.Context, memberID string) (*models.Membership, error)
	FindByMemberIDs(ctx context.Context, memberIDs []string) ([]*models.Membership, error)
	Upsert(ctx context.Context, membership *models.Membership) error
}

// WinnerRepository defines the interface for winner data operations.
// Implementations must reject inserts that repeat (prizeId, memberId) or (prizeId, activeSlot)
// with ErrDuplicate, and apply every status change as a conditional update.
type WinnerRepository interface {
	Create(ctx context.Context, winner *models.Winner) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Winner, error)
	FindByDrawID(ctx context.Context, drawID primitive.ObjectID) ([]*models.Winner, error)
	FindByPrizeID(ctx context.Context, prizeID primitive.ObjectID) ([]*models.Winner, error)
	FindExpiredPending(ctx context.Context, drawID primitive.ObjectID, now time.Time) ([]*models.Winner, error)
	CountByDrawID(ctx context.Context, drawID primitive.ObjectID) (int64, error)
	// MarkClaimed succeeds only for a PENDING winner whose deadline is not before now.
	MarkClaimed(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
	// MarkExpired succeeds only for a PENDING winner whose deadline is before now; it frees the slot.
	MarkExpired(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
	// MarkPaid succeeds only for a CLAIMED winner whose payout is still PENDING.
	MarkPaid(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
}

// RolloverRepository defines the interface for rollover ledger operations
type RolloverRepository interface {
	Create(ctx context.Context, entry *models.RolloverEntry) error
	FindOutstanding(ctx context.Context, kind models.AwardKind, currency string) ([]*models.RolloverEntry, error)
	FindBySourceDrawID(ctx context.Context, drawID primitive.ObjectID) ([]*models.RolloverEntry, error)
	FindAll(ctx context.Context, kind models.AwardKind, status models.RolloverStatus) ([]*models.RolloverEntry, error)
	// Consume flips an OUTSTANDING entry to CONSUMED with the destination filled in.
	Consume(ctx context.Context, id, destDrawID, destPrizeID primitive.ObjectID, at time.Time) (bool, error)
}

// AuditRepository appends audit entries
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status, messageID, errMsg string) error
	FindByMemberID(ctx context.Context, memberID string, page, limit int) ([]*models.Notification, error)
}

// PrizeLocker serializes selection work per prize across processes.
// Lock returns ErrLockHeld when another owner holds an unexpired lease on key.
type PrizeLocker interface {
	Lock(ctx context.Context, key, owner string, ttl time.Duration) error
	Unlock(ctx context.Context, key, owner string) error
}
