package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// ClaimTracker drives the per-winner claim state machine
type ClaimTracker struct {
	winnerRepo repositories.WinnerRepository
	notifier   Notifier
	now        func() time.Time
}

// NewClaimTracker creates a new ClaimTracker
func NewClaimTracker(winnerRepo repositories.WinnerRepository, notifier Notifier, now func() time.Time) *ClaimTracker {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &ClaimTracker{winnerRepo: winnerRepo, notifier: notifier, now: now}
}

// Claim moves the winner to CLAIMED on behalf of its own member
func (t *ClaimTracker) Claim(ctx context.Context, winnerID primitive.ObjectID, callerMemberID string) (*models.Winner, error) {
	winner, err := t.winnerRepo.FindByID(ctx, winnerID)
	if err != nil {
		return nil, mapRepoErr(err, "winner")
	}
	if winner.MemberID != callerMemberID {
		return nil, ErrNotOwner
	}
	if winner.ClaimStatus != models.ClaimStatusPending {
		return nil, fmt.Errorf("%w: claim status is %s", ErrAlreadyResolved, winner.ClaimStatus)
	}

	now := t.now()
	if winner.PastDeadline(now) {
		// the sweep would do this too; doing it here keeps the row from dangling
		if ok, err := t.winnerRepo.MarkExpired(ctx, winner.ID, now); err != nil {
			slog.Warn("Eager expiry failed", "error", err, "winnerId", winner.ID.Hex())
		} else if ok {
			t.notifier.NotifyExpired(winner)
		}
		return nil, ErrDeadlinePassed
	}

	ok, err := t.winnerRepo.MarkClaimed(ctx, winner.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim winner: %w", err)
	}
	if !ok {
		// lost the race against another claim or the sweep
		return nil, ErrAlreadyResolved
	}

	winner.ClaimStatus = models.ClaimStatusClaimed
	winner.ClaimedAt = &now
	winner.UpdatedAt = now
	slog.Info("Prize claimed", "winnerId", winner.ID.Hex(), "prizeId", winner.PrizeID.Hex())
	return winner, nil
}

// MarkPaid records that the external payout system has paid a claimed winner
func (t *ClaimTracker) MarkPaid(ctx context.Context, winnerID primitive.ObjectID) (*models.Winner, error) {
	winner, err := t.winnerRepo.FindByID(ctx, winnerID)
	if err != nil {
		return nil, mapRepoErr(err, "winner")
	}
	if winner.ClaimStatus != models.ClaimStatusClaimed {
		return nil, fmt.Errorf("%w: winner has not claimed", ErrInvalidState)
	}
	if winner.PayoutStatus == models.PayoutStatusPaid {
		return nil, fmt.Errorf("%w: payout already recorded", ErrAlreadyResolved)
	}

	now := t.now()
	ok, err := t.winnerRepo.MarkPaid(ctx, winner.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark payout: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: payout already recorded", ErrAlreadyResolved)
	}
	winner.PayoutStatus = models.PayoutStatusPaid
	winner.PaidAt = &now
	winner.UpdatedAt = now
	return winner, nil
}
