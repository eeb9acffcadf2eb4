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

// SweepResult summarises one expire-and-redraw pass over a draw
type SweepResult struct {
	DrawID           primitive.ObjectID `json:"drawId"`
	Expired          int                `json:"expired"`
	Redrawn          int                `json:"redrawn"`
	RolledOverSlots  int                `json:"rolledOverSlots"`
	RolledOverAmount decimal.Decimal    `json:"rolledOverAmount"`
	Completed        bool               `json:"completed"`
	Errors           []string           `json:"errors,omitempty"`
}

// ExpiryOrchestrator expires lapsed claims, refills the freed slots and sends what cannot be
// refilled to the rollover ledger. Every step is conditional, so a pass can be re-run safely.
type ExpiryOrchestrator struct {
	drawRepo    repositories.DrawRepository
	prizeRepo   repositories.PrizeRepository
	winnerRepo  repositories.WinnerRepository
	eligibility *EligibilityResolver
	selector    *Selector
	ledger      *RolloverLedger
	notifier    Notifier
	audit       *AuditLogger
	now         func() time.Time
}

// NewExpiryOrchestrator creates a new ExpiryOrchestrator
func NewExpiryOrchestrator(
	drawRepo repositories.DrawRepository,
	prizeRepo repositories.PrizeRepository,
	winnerRepo repositories.WinnerRepository,
	eligibility *EligibilityResolver,
	selector *Selector,
	ledger *RolloverLedger,
	notifier Notifier,
	audit *AuditLogger,
	now func() time.Time,
) *ExpiryOrchestrator {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &ExpiryOrchestrator{
		drawRepo:    drawRepo,
		prizeRepo:   prizeRepo,
		winnerRepo:  winnerRepo,
		eligibility: eligibility,
		selector:    selector,
		ledger:      ledger,
		notifier:    notifier,
		audit:       audit,
		now:         now,
	}
}

// ExpireAndRedraw runs one pass over an ANNOUNCED draw. Per-prize failures are collected in
// the result and do not stop the other prizes.
func (o *ExpiryOrchestrator) ExpireAndRedraw(ctx context.Context, drawID primitive.ObjectID, actorID string) (*SweepResult, error) {
	draw, err := o.drawRepo.FindByID(ctx, drawID)
	if err != nil {
		return nil, mapRepoErr(err, "draw")
	}
	if draw.Status != models.DrawStatusAnnounced {
		return nil, fmt.Errorf("%w: draw is %s", ErrInvalidState, draw.Status)
	}

	result := &SweepResult{DrawID: drawID, RolledOverAmount: decimal.Zero}

	// 1. expire lapsed PENDING winners
	now := o.now()
	lapsed, err := o.winnerRepo.FindExpiredPending(ctx, drawID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find lapsed winners: %w", err)
	}
	for _, w := range lapsed {
		ok, err := o.winnerRepo.MarkExpired(ctx, w.ID, now)
		if err != nil {
			slog.Error("Failed to expire winner", "error", err, "winnerId", w.ID.Hex())
			result.Errors = append(result.Errors, fmt.Sprintf("expire winner %s: %v", w.ID.Hex(), err))
			continue
		}
		if !ok {
			continue
		}
		result.Expired++
		o.audit.Record(ctx, AuditWinnerExpired, actorID, AuditTarget{DrawID: drawID, PrizeID: w.PrizeID, WinnerID: w.ID}, nil)
		o.notifier.NotifyExpired(w)
	}

	prizes, err := o.prizeRepo.FindByDrawID(ctx, drawID, true)
	if err != nil {
		return result, fmt.Errorf("failed to load prizes: %w", err)
	}

	// eligibility is read once, outside every lock
	var eligible []string
	for _, p := range prizes {
		if p.AwardKind == models.AwardKindRandomDraw {
			eligible, err = o.eligibility.ResolveEligible(ctx, draw)
			if err != nil {
				return result, fmt.Errorf("failed to resolve eligible members: %w", err)
			}
			break
		}
	}

	// 2 + 3. refill, then roll over what cannot be filled
	for _, p := range prizes {
		prizeID := p.ID
		err := o.selector.withPrizeLock(ctx, prizeID, func(ctx context.Context) error {
			return o.refillPrize(ctx, draw, prizeID, eligible, actorID, result)
		})
		if err != nil {
			slog.Error("Failed to process prize during sweep", "error", err, "drawId", drawID.Hex(), "prizeId", prizeID.Hex())
			result.Errors = append(result.Errors, fmt.Sprintf("prize %s: %v", prizeID.Hex(), err))
		}
	}

	// 4. complete the draw once every prize is resolved
	if len(result.Errors) == 0 {
		completed, err := o.completeIfResolved(ctx, draw, actorID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("complete draw: %v", err))
		}
		result.Completed = completed
	}

	slog.Info("Expiry sweep finished", "drawId", drawID.Hex(), "expired", result.Expired, "redrawn", result.Redrawn,
		"rolledOverSlots", result.RolledOverSlots, "rolledOverAmount", result.RolledOverAmount.String(),
		"completed", result.Completed, "errors", len(result.Errors))
	return result, nil
}

// refillPrize must run inside the prize lock. Only slots vacated by an expired claim are
// touched, so a prize nobody has drawn yet is left for RunSelection. The vacated count is read
// from the stored rows, which lets a pass pick up a write-off an earlier pass failed to record.
func (o *ExpiryOrchestrator) refillPrize(ctx context.Context, draw *models.Draw, prizeID primitive.ObjectID, eligible []string, actorID string, result *SweepResult) error {
	prize, err := o.prizeRepo.FindByID(ctx, prizeID)
	if err != nil {
		return mapRepoErr(err, "prize")
	}
	if !prize.Active {
		return nil
	}
	state, err := o.selector.loadSlots(ctx, prize)
	if err != nil {
		return err
	}
	remainder := state.vacated(prize)
	if remainder == 0 {
		return nil
	}

	// hand-picked prizes are never redrawn at random
	if prize.AwardKind == models.AwardKindRandomDraw {
		outcome, err := o.selector.selectLocked(ctx, draw, prizeID, eligible, models.SelectedBySystem, remainder)
		if outcome != nil {
			result.Redrawn += len(outcome.Selected)
		}
		if err != nil {
			return err
		}
		remainder = outcome.Unfilled
	}
	if remainder <= 0 {
		return nil
	}
	return o.rollOver(ctx, prizeID, remainder, actorID, result)
}

// rollOver writes slots off the prize and records their value in the ledger
func (o *ExpiryOrchestrator) rollOver(ctx context.Context, prizeID primitive.ObjectID, slots int, actorID string, result *SweepResult) error {
	prize, err := o.prizeRepo.FindByID(ctx, prizeID)
	if err != nil {
		return mapRepoErr(err, "prize")
	}
	if slots > prize.Capacity() {
		slots = prize.Capacity()
	}
	if slots <= 0 {
		return nil
	}

	ok, err := o.prizeRepo.IncrementRolledOverSlots(ctx, prize.ID, prize.RolledOverSlots, slots)
	if err != nil {
		return fmt.Errorf("failed to write off slots: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: prize changed during rollover, retry on next sweep", ErrSelectionBusy)
	}

	reason := models.RolloverReasonInsufficientPool
	if prize.AwardKind == models.AwardKindCommunitySupport {
		reason = models.RolloverReasonClaimExpired
	}
	amount := prize.Value.Mul(decimal.NewFromInt(int64(slots)))
	entry, err := o.ledger.RecordRollover(ctx, RolloverInput{
		SourceDrawID:  prize.DrawID,
		SourcePrizeID: prize.ID,
		AwardKind:     prize.AwardKind,
		Amount:        amount,
		Currency:      prize.Currency,
		Slots:         slots,
		Reason:        reason,
	})
	if err != nil {
		// put the slots back so the next sweep can retry the whole step
		if _, rerr := o.prizeRepo.IncrementRolledOverSlots(ctx, prize.ID, prize.RolledOverSlots+slots, -slots); rerr != nil {
			slog.Error("Failed to revert rolled over slots", "error", rerr, "prizeId", prize.ID.Hex(), "slots", slots)
		}
		return err
	}

	result.RolledOverSlots += slots
	result.RolledOverAmount = result.RolledOverAmount.Add(amount)
	o.audit.Record(ctx, AuditRolloverRecorded, actorID, AuditTarget{DrawID: prize.DrawID, PrizeID: prize.ID},
		map[string]any{"rolloverId": entry.ID.Hex(), "slots": slots, "amount": amount.String(), "reason": reason})
	return nil
}

// completeIfResolved moves the draw to COMPLETED when no active prize has a pending claim or an
// open slot
func (o *ExpiryOrchestrator) completeIfResolved(ctx context.Context, draw *models.Draw, actorID string) (bool, error) {
	prizes, err := o.prizeRepo.FindByDrawID(ctx, draw.ID, true)
	if err != nil {
		return false, err
	}
	if len(prizes) == 0 {
		return false, nil
	}
	for _, p := range prizes {
		winners, err := o.winnerRepo.FindByPrizeID(ctx, p.ID)
		if err != nil {
			return false, err
		}
		claimed := 0
		for _, w := range winners {
			switch w.ClaimStatus {
			case models.ClaimStatusPending:
				return false, nil
			case models.ClaimStatusClaimed:
				claimed++
			}
		}
		if claimed+p.RolledOverSlots < p.SlotCount {
			return false, nil
		}
	}

	ok, err := o.drawRepo.UpdateStatus(ctx, draw.ID, models.DrawStatusAnnounced, models.DrawStatusCompleted, o.now())
	if err != nil || !ok {
		return false, err
	}
	slog.Info("Draw completed", "drawId", draw.ID.Hex())
	o.audit.Record(ctx, AuditDrawCompleted, actorID, AuditTarget{DrawID: draw.ID}, nil)
	return true, nil
}

// SweepAll runs ExpireAndRedraw for every ANNOUNCED draw
func (o *ExpiryOrchestrator) SweepAll(ctx context.Context) ([]*SweepResult, error) {
	draws, err := o.drawRepo.FindByStatus(ctx, models.DrawStatusAnnounced)
	if err != nil {
		return nil, fmt.Errorf("failed to list announced draws: %w", err)
	}

	results := make([]*SweepResult, 0, len(draws))
	for _, d := range draws {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := o.ExpireAndRedraw(ctx, d.ID, SystemCaller.ID)
		if err != nil {
			slog.Error("Sweep failed for draw", "error", err, "drawId", d.ID.Hex())
			continue
		}
		results = append(results, res)
	}
	return results, nil
}
