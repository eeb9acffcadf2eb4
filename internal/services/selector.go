package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

const lockRetryInterval = 50 * time.Millisecond

// fillOpen asks selectLocked for every open slot of the prize
const fillOpen = -1

// PrizeOutcome reports what one selection pass did for a prize
type PrizeOutcome struct {
	PrizeID  primitive.ObjectID `json:"prizeId"`
	Selected []*models.Winner   `json:"selected"`
	Unfilled int                `json:"unfilled"`
}

// SelectorConfig holds the timing knobs of the Selector
type SelectorConfig struct {
	ClaimWindow time.Duration
	LockTTL     time.Duration
	LockWait    time.Duration
}

// Selector fills prize slots from the eligible pool.
// All writes for one prize happen inside that prize's lease lock; the winner indexes reject
// anything that slips past an expired lease.
type Selector struct {
	prizeRepo  repositories.PrizeRepository
	winnerRepo repositories.WinnerRepository
	locker     repositories.PrizeLocker
	notifier   Notifier
	audit      *AuditLogger
	cfg        SelectorConfig
	now        func() time.Time
}

// NewSelector creates a new Selector
func NewSelector(
	prizeRepo repositories.PrizeRepository,
	winnerRepo repositories.WinnerRepository,
	locker repositories.PrizeLocker,
	notifier Notifier,
	audit *AuditLogger,
	cfg SelectorConfig,
	now func() time.Time,
) *Selector {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	if cfg.ClaimWindow <= 0 {
		cfg.ClaimWindow = 14 * 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Selector{
		prizeRepo:  prizeRepo,
		winnerRepo: winnerRepo,
		locker:     locker,
		notifier:   notifier,
		audit:      audit,
		cfg:        cfg,
		now:        now,
	}
}

// SelectWinners fills the open slots of prize from eligible, excluding every member that
// already holds a winner row for the prize. It is a no-op once the prize is full.
func (s *Selector) SelectWinners(ctx context.Context, draw *models.Draw, prizeID primitive.ObjectID, eligible []string, selectedBy string) (*PrizeOutcome, error) {
	var outcome *PrizeOutcome
	err := s.withPrizeLock(ctx, prizeID, func(ctx context.Context) error {
		var err error
		outcome, err = s.selectLocked(ctx, draw, prizeID, eligible, selectedBy, fillOpen)
		return err
	})
	return outcome, err
}

// AssignManual places memberID into a free slot of a COMMUNITY_SUPPORT prize.
// Eligibility must have been checked by the caller; uniqueness and capacity are checked here.
func (s *Selector) AssignManual(ctx context.Context, draw *models.Draw, prizeID primitive.ObjectID, memberID, assignedBy string) (*models.Winner, error) {
	var winner *models.Winner
	err := s.withPrizeLock(ctx, prizeID, func(ctx context.Context) error {
		prize, err := s.prizeRepo.FindByID(ctx, prizeID)
		if err != nil {
			return mapRepoErr(err, "prize")
		}
		if prize.AwardKind != models.AwardKindCommunitySupport {
			return fmt.Errorf("%w: manual assignment requires a %s prize", ErrInvalidInput, models.AwardKindCommunitySupport)
		}
		if !prize.Active {
			return fmt.Errorf("%w: prize is inactive", ErrInvalidState)
		}

		state, err := s.loadSlots(ctx, prize)
		if err != nil {
			return err
		}
		if state.excluded[memberID] {
			return fmt.Errorf("%w: member already holds a winner record for this prize", ErrNotEligible)
		}
		if len(state.free) == 0 || state.active >= prize.Capacity() {
			return fmt.Errorf("%w: prize has no open slot", ErrInvalidState)
		}

		w := s.newWinner(draw, prize, memberID, state.free[0], assignedBy)
		if err := s.winnerRepo.Create(ctx, w); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return fmt.Errorf("%w: member or slot already taken", ErrNotEligible)
			}
			return fmt.Errorf("failed to create winner: %w", err)
		}
		winner = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Winner assigned manually", "winnerId", winner.ID.Hex(), "prizeId", prizeID.Hex(), "assignedBy", assignedBy)
	s.audit.Record(ctx, AuditWinnerAssigned, assignedBy, AuditTarget{DrawID: draw.ID, PrizeID: prizeID, WinnerID: winner.ID},
		map[string]any{"memberId": memberID, "slot": winner.Slot})
	s.notifier.NotifyWinner(winner)
	return winner, nil
}

type slotState struct {
	excluded map[string]bool
	active   int
	expired  int
	redrawn  int
	free     []int
}

// vacated is the number of slots freed by an expired claim that have been neither redrawn
// nor written off, capped by the prize's open capacity. Slots that were never filled do not count.
func (st *slotState) vacated(prize *models.Prize) int {
	n := st.expired - st.redrawn - prize.RolledOverSlots
	if open := prize.Capacity() - st.active; open < n {
		n = open
	}
	if n < 0 {
		return 0
	}
	return n
}

// loadSlots reads the prize's winner rows. Every member with any row is excluded; only
// rows still holding a slot count as active.
func (s *Selector) loadSlots(ctx context.Context, prize *models.Prize) (*slotState, error) {
	winners, err := s.winnerRepo.FindByPrizeID(ctx, prize.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load winners: %w", err)
	}

	state := &slotState{excluded: make(map[string]bool, len(winners))}
	taken := make(map[int]bool, len(winners))
	for _, w := range winners {
		state.excluded[w.MemberID] = true
		if w.Redraw {
			state.redrawn++
		}
		if w.ClaimStatus == models.ClaimStatusExpired {
			state.expired++
		}
		if w.HoldsSlot() {
			state.active++
			if w.ActiveSlot != nil {
				taken[*w.ActiveSlot] = true
			}
		}
	}
	for i := 0; i < prize.SlotCount; i++ {
		if !taken[i] {
			state.free = append(state.free, i)
		}
	}
	return state, nil
}

// selectLocked must run inside the prize lock. A non-negative limit caps the number of slots
// filled and marks the new winners as redraws.
func (s *Selector) selectLocked(ctx context.Context, draw *models.Draw, prizeID primitive.ObjectID, eligible []string, selectedBy string, limit int) (*PrizeOutcome, error) {
	outcome := &PrizeOutcome{PrizeID: prizeID, Selected: []*models.Winner{}}

	prize, err := s.prizeRepo.FindByID(ctx, prizeID)
	if err != nil {
		return nil, mapRepoErr(err, "prize")
	}
	if !prize.Active {
		return outcome, nil
	}

	state, err := s.loadSlots(ctx, prize)
	if err != nil {
		return nil, err
	}
	need := prize.Capacity() - state.active
	if limit != fillOpen && limit < need {
		need = limit
	}
	if need <= 0 {
		return outcome, nil
	}

	pool := make([]string, 0, len(eligible))
	for _, m := range eligible {
		if !state.excluded[m] {
			pool = append(pool, m)
		}
	}

	picks, err := sampleWithoutReplacement(pool, need)
	if err != nil {
		return nil, fmt.Errorf("failed to sample winners: %w", err)
	}

	for i, memberID := range picks {
		w := s.newWinner(draw, prize, memberID, state.free[i], selectedBy)
		w.Redraw = limit != fillOpen
		if err := s.winnerRepo.Create(ctx, w); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				slog.Warn("Skipping duplicate winner insert", "prizeId", prizeID.Hex(), "slot", state.free[i])
				continue
			}
			outcome.Unfilled = need - len(outcome.Selected)
			return outcome, fmt.Errorf("failed to create winner: %w", err)
		}
		outcome.Selected = append(outcome.Selected, w)
	}
	outcome.Unfilled = need - len(outcome.Selected)

	for _, w := range outcome.Selected {
		s.audit.Record(ctx, AuditWinnerSelected, selectedBy, AuditTarget{DrawID: draw.ID, PrizeID: prizeID, WinnerID: w.ID},
			map[string]any{"slot": w.Slot, "poolSize": len(pool)})
		s.notifier.NotifyWinner(w)
	}
	slog.Info("Selection pass completed", "drawId", draw.ID.Hex(), "prizeId", prizeID.Hex(),
		"needed", need, "selected", len(outcome.Selected), "unfilled", outcome.Unfilled, "poolSize", len(pool))
	return outcome, nil
}

func (s *Selector) newWinner(draw *models.Draw, prize *models.Prize, memberID string, slot int, selectedBy string) *models.Winner {
	now := s.now()
	activeSlot := slot
	return &models.Winner{
		DrawID:        draw.ID,
		PrizeID:       prize.ID,
		MemberID:      memberID,
		AwardKind:     prize.AwardKind,
		Value:         prize.Value,
		Currency:      prize.Currency,
		Slot:          slot,
		ActiveSlot:    &activeSlot,
		SelectedBy:    selectedBy,
		SelectedAt:    now,
		ClaimStatus:   models.ClaimStatusPending,
		ClaimDeadline: now.Add(s.cfg.ClaimWindow),
		PayoutStatus:  models.PayoutStatusPending,
	}
}

// withPrizeLock runs fn while holding the prize lease, retrying until LockWait elapses
func (s *Selector) withPrizeLock(ctx context.Context, prizeID primitive.ObjectID, fn func(context.Context) error) error {
	key := "prize:" + prizeID.Hex()
	owner := uuid.NewString()
	deadline := time.Now().Add(s.cfg.LockWait)

	for {
		err := s.locker.Lock(ctx, key, owner, s.cfg.LockTTL)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrLockHeld) {
			return fmt.Errorf("failed to lock prize %s: %w", prizeID.Hex(), err)
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: prize %s", ErrSelectionBusy, prizeID.Hex())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.Unlock(unlockCtx, key, owner); err != nil {
			slog.Error("Failed to release prize lock", "error", err, "prizeId", prizeID.Hex())
		}
	}()
	return fn(ctx)
}

// mapRepoErr turns repository sentinels into engine errors
func mapRepoErr(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
