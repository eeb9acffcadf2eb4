package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// RolloverInput describes value leaving a prize for the ledger
type RolloverInput struct {
	SourceDrawID  primitive.ObjectID
	SourcePrizeID primitive.ObjectID
	AwardKind     models.AwardKind
	Amount        decimal.Decimal
	Currency      string
	Slots         int
	Reason        string
}

// RolloverLedger records carried-forward value and hands it to later prizes of the same kind
type RolloverLedger struct {
	repo repositories.RolloverRepository
	now  func() time.Time
}

// NewRolloverLedger creates a new RolloverLedger
func NewRolloverLedger(repo repositories.RolloverRepository, now func() time.Time) *RolloverLedger {
	if now == nil {
		now = time.Now
	}
	return &RolloverLedger{repo: repo, now: now}
}

// RecordRollover appends an OUTSTANDING entry
func (l *RolloverLedger) RecordRollover(ctx context.Context, in RolloverInput) (*models.RolloverEntry, error) {
	if !in.AwardKind.Valid() {
		return nil, fmt.Errorf("%w: unknown award kind %q", ErrInvalidInput, in.AwardKind)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: rollover amount must be positive", ErrInvalidInput)
	}
	entry := &models.RolloverEntry{
		SourceDrawID:  in.SourceDrawID,
		SourcePrizeID: in.SourcePrizeID,
		AwardKind:     in.AwardKind,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Slots:         in.Slots,
		Reason:        in.Reason,
		Status:        models.RolloverStatusOutstanding,
		CreatedAt:     l.now(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record rollover: %w", err)
	}
	slog.Info("Rollover recorded", "rolloverId", entry.ID.Hex(), "sourcePrizeId", in.SourcePrizeID.Hex(),
		"awardKind", in.AwardKind, "amount", in.Amount.String(), "currency", in.Currency, "reason", in.Reason)
	return entry, nil
}

// ConsumeRollover flips every outstanding entry of kind and currency to CONSUMED against the
// destination prize and returns the total taken. Entries flipped concurrently by someone else
// are skipped, so no amount is ever counted twice.
func (l *RolloverLedger) ConsumeRollover(ctx context.Context, kind models.AwardKind, currency string, destDrawID, destPrizeID primitive.ObjectID) (decimal.Decimal, error) {
	entries, err := l.repo.FindOutstanding(ctx, kind, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load outstanding rollovers: %w", err)
	}

	total := decimal.Zero
	now := l.now()
	for _, e := range entries {
		ok, err := l.repo.Consume(ctx, e.ID, destDrawID, destPrizeID, now)
		if err != nil {
			return total, fmt.Errorf("failed to consume rollover %s: %w", e.ID.Hex(), err)
		}
		if !ok {
			continue
		}
		total = total.Add(e.Amount)
	}
	if total.IsPositive() {
		slog.Info("Rollover consumed", "destinationPrizeId", destPrizeID.Hex(), "awardKind", kind,
			"currency", currency, "amount", total.String(), "entries", len(entries))
	}
	return total, nil
}

// Outstanding sums the unconsumed value for kind and currency
func (l *RolloverLedger) Outstanding(ctx context.Context, kind models.AwardKind, currency string) (decimal.Decimal, error) {
	entries, err := l.repo.FindOutstanding(ctx, kind, currency)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total, nil
}

// List returns ledger entries filtered by optional kind and status
func (l *RolloverLedger) List(ctx context.Context, kind models.AwardKind, status models.RolloverStatus) ([]*models.RolloverEntry, error) {
	return l.repo.FindAll(ctx, kind, status)
}
