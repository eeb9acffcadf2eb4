package services

import (
	"context"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Audit actions
const (
	AuditDrawCreated      = "DRAW_CREATED"
	AuditDrawAnnounced    = "DRAW_ANNOUNCED"
	AuditDrawReverted     = "DRAW_REVERTED"
	AuditDrawCompleted    = "DRAW_COMPLETED"
	AuditPrizeCreated     = "PRIZE_CREATED"
	AuditPrizeDeactivated = "PRIZE_DEACTIVATED"
	AuditWinnerSelected   = "WINNER_SELECTED"
	AuditWinnerAssigned   = "WINNER_ASSIGNED"
	AuditWinnerClaimed    = "WINNER_CLAIMED"
	AuditWinnerExpired    = "WINNER_EXPIRED"
	AuditWinnerPaid       = "WINNER_PAID"
	AuditRolloverRecorded = "ROLLOVER_RECORDED"
	AuditEntryCreated     = "ENTRY_CREATED"
)

// AuditLogger appends audit entries on a best-effort basis
type AuditLogger struct {
	repo repositories.AuditRepository
	now  func() time.Time
}

// NewAuditLogger creates a new AuditLogger; a nil repo disables persistence
func NewAuditLogger(repo repositories.AuditRepository, now func() time.Time) *AuditLogger {
	if now == nil {
		now = time.Now
	}
	return &AuditLogger{repo: repo, now: now}
}

// AuditTarget names the records an audit entry refers to
type AuditTarget struct {
	DrawID   primitive.ObjectID
	PrizeID  primitive.ObjectID
	WinnerID primitive.ObjectID
}

// Record appends an entry; failures are logged and swallowed
func (a *AuditLogger) Record(ctx context.Context, action, actorID string, target AuditTarget, details map[string]any) {
	if a == nil || a.repo == nil {
		return
	}
	entry := &models.AuditEntry{
		Action:    action,
		ActorID:   actorID,
		DrawID:    target.DrawID,
		PrizeID:   target.PrizeID,
		WinnerID:  target.WinnerID,
		Details:   details,
		CreatedAt: a.now(),
	}
	if err := a.repo.Append(ctx, entry); err != nil {
		slog.Warn("Failed to append audit entry", "error", err, "action", action, "actor", actorID)
	}
}
