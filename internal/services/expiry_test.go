package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"github.com/shopspring/decimal"
)

const pastWindow = 15 * 24 * time.Hour

func TestExpireAndRedrawRefillsFromRemainingPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)
	prize := f.prize(t, draw.ID, models.AwardKindRandomDraw, 1000, 3)
	f.enterMembers(t, draw.ID, 5)

	if _, err := f.svc.RunSelection(ctx, admin, draw.ID); err != nil {
		t.Fatalf("RunSelection failed: %v", err)
	}
	first := f.winners(t, prize.ID)
	original := map[string]bool{}
	for _, w := range first {
		original[w.MemberID] = true
	}
	for _, w := range first[:2] {
		if _, err := f.svc.Claim(ctx, member(w.MemberID), w.ID); err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
	}

	f.clock.Advance(pastWindow)
	res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
	if err != nil {
		t.Fatalf("ExpireAndRedraw failed: %v", err)
	}
	if res.Expired != 1 || res.Redrawn != 1 || res.RolledOverSlots != 0 {
		t.Fatalf("Expected 1 expired, 1 redrawn, 0 rolled over, got %+v", res)
	}
	if res.Completed {
		t.Error("Expected draw to stay open while the replacement is pending")
	}

	all := f.winners(t, prize.ID)
	active := holding(all)
	if len(all) != 4 || len(active) != 3 {
		t.Fatalf("Expected 4 rows with 3 holding a slot, got %d and %d", len(all), len(active))
	}
	for _, w := range all {
		if w.ClaimStatus == models.ClaimStatusPending && original[w.MemberID] {
			t.Errorf("Replacement %s was already a winner of this prize", w.MemberID)
		}
	}

	t.Run("second pass is a no-op", func(t *testing.T) {
		res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
		if err != nil {
			t.Fatalf("ExpireAndRedraw failed: %v", err)
		}
		if res.Expired != 0 || res.Redrawn != 0 || res.RolledOverSlots != 0 {
			t.Errorf("Expected nothing to do, got %+v", res)
		}
	})
}

func TestExpireAndRedrawRollsOverWhenPoolIsExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)
	prize := f.prize(t, draw.ID, models.AwardKindRandomDraw, 1000, 3)
	f.enterMembers(t, draw.ID, 3)

	if _, err := f.svc.RunSelection(ctx, admin, draw.ID); err != nil {
		t.Fatalf("RunSelection failed: %v", err)
	}
	ws := f.winners(t, prize.ID)
	for _, w := range ws[:2] {
		if _, err := f.svc.Claim(ctx, member(w.MemberID), w.ID); err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
	}

	f.clock.Advance(pastWindow)
	res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
	if err != nil {
		t.Fatalf("ExpireAndRedraw failed: %v", err)
	}
	if res.Expired != 1 || res.Redrawn != 0 || res.RolledOverSlots != 1 {
		t.Fatalf("Expected 1 expired and 1 rolled over, got %+v", res)
	}
	if !res.RolledOverAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected 1000 rolled over, got %s", res.RolledOverAmount)
	}
	if !res.Completed {
		t.Error("Expected draw to complete once every slot is claimed or rolled over")
	}

	p, err := f.store.Prizes().FindByID(ctx, prize.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if p.RolledOverSlots != 1 {
		t.Errorf("Expected 1 rolled over slot on the prize, got %d", p.RolledOverSlots)
	}

	entries, err := f.svc.ListRollovers(ctx, admin, models.AwardKindRandomDraw, models.RolloverStatusOutstanding)
	if err != nil {
		t.Fatalf("ListRollovers failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 ledger entry, got %d", len(entries))
	}
	e := entries[0]
	if !e.Amount.Equal(decimal.NewFromInt(1000)) || e.Currency != "BDT" || e.Slots != 1 ||
		e.SourcePrizeID != prize.ID || e.Reason != models.RolloverReasonInsufficientPool {
		t.Errorf("Unexpected ledger entry %+v", e)
	}

	d, _ := f.svc.GetDraw(ctx, draw.ID)
	if d.Status != models.DrawStatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", d.Status)
	}

	t.Run("completed draw rejects sweeps", func(t *testing.T) {
		_, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("Expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("rollover feeds the next draw", func(t *testing.T) {
		next := f.announcedDraw(t)
		np := f.prize(t, next.ID, models.AwardKindRandomDraw, 1000, 1)
		if !np.Value.Equal(decimal.NewFromInt(2000)) {
			t.Errorf("Expected per-slot value 2000, got %s", np.Value)
		}
	})
}

func TestExpireAndRedrawCommunitySupport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)
	prize := f.prize(t, draw.ID, models.AwardKindCommunitySupport, 500, 2)
	members := f.enterMembers(t, draw.ID, 4)

	if _, err := f.svc.AssignManualWinner(ctx, admin, prize.ID, members[0]); err != nil {
		t.Fatalf("AssignManualWinner failed: %v", err)
	}

	f.clock.Advance(pastWindow)
	res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
	if err != nil {
		t.Fatalf("ExpireAndRedraw failed: %v", err)
	}
	if res.Expired != 1 || res.Redrawn != 0 || res.RolledOverSlots != 1 {
		t.Fatalf("Expected the vacated slot rolled over without a redraw, got %+v", res)
	}
	if res.Completed {
		t.Error("Expected draw to stay open while a slot awaits assignment")
	}
	if n := len(holding(f.winners(t, prize.ID))); n != 0 {
		t.Errorf("Expected no random replacement, got %d active winners", n)
	}

	entries, _ := f.svc.ListRollovers(ctx, admin, models.AwardKindCommunitySupport, "")
	if len(entries) != 1 || entries[0].Reason != models.RolloverReasonClaimExpired || !entries[0].Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Unexpected ledger entries %+v", entries)
	}

	t.Run("expired member cannot be reassigned", func(t *testing.T) {
		_, err := f.svc.AssignManualWinner(ctx, admin, prize.ID, members[0])
		if !errors.Is(err, ErrNotEligible) {
			t.Errorf("Expected ErrNotEligible, got %v", err)
		}
	})

	t.Run("remaining slot still assignable", func(t *testing.T) {
		if _, err := f.svc.AssignManualWinner(ctx, admin, prize.ID, members[1]); err != nil {
			t.Fatalf("AssignManualWinner failed: %v", err)
		}
		_, err := f.svc.AssignManualWinner(ctx, admin, prize.ID, members[2])
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("Expected ErrInvalidState once capacity is used, got %v", err)
		}
	})
}

func TestExpireAndRedrawGuards(t *testing.T) {
	f := newFixture(t)
	draw := f.announcedDraw(t)

	_, err := f.svc.ExpireAndRedraw(context.Background(), Caller{ID: "ops", Capabilities: CallerCapabilities{CanManageDraws: true}}, draw.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
}

func TestSweepAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var draws []*models.Draw
	for i := 0; i < 2; i++ {
		draw := f.announcedDraw(t)
		f.prize(t, draw.ID, models.AwardKindRandomDraw, 100, 1)
		draws = append(draws, draw)
	}
	f.enterMembers(t, draws[0].ID, 1)
	if _, err := f.svc.RunSelection(ctx, SystemCaller, draws[0].ID); err != nil {
		t.Fatalf("RunSelection failed: %v", err)
	}

	f.clock.Advance(pastWindow)
	results, err := f.svc.Sweeper().SweepAll(ctx)
	if err != nil {
		t.Fatalf("SweepAll failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected a result per announced draw, got %d", len(results))
	}
	for _, r := range results {
		switch r.DrawID {
		case draws[0].ID:
			if r.Expired != 1 || r.RolledOverSlots != 1 || !r.Completed {
				t.Errorf("Expected the drawn prize expired and rolled over, got %+v", r)
			}
		case draws[1].ID:
			if r.Expired != 0 || r.Redrawn != 0 || r.RolledOverSlots != 0 || r.Completed {
				t.Errorf("Expected the undrawn draw untouched, got %+v", r)
			}
		default:
			t.Errorf("Unexpected draw %s in results", r.DrawID.Hex())
		}
	}
	d, _ := f.svc.GetDraw(ctx, draws[1].ID)
	if d.Status != models.DrawStatusAnnounced {
		t.Errorf("Expected undrawn draw to stay ANNOUNCED, got %s", d.Status)
	}
}

func TestSweepLeavesUndrawnSlotsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)
	prize := f.prize(t, draw.ID, models.AwardKindRandomDraw, 1000, 3)

	f.clock.Advance(time.Hour)
	res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
	if err != nil {
		t.Fatalf("ExpireAndRedraw failed: %v", err)
	}
	if res.Redrawn != 0 || res.RolledOverSlots != 0 || res.Completed {
		t.Fatalf("Expected an empty pass before selection, got %+v", res)
	}
	entries, _ := f.svc.ListRollovers(ctx, admin, "", "")
	if len(entries) != 0 {
		t.Errorf("Expected no ledger entries, got %d", len(entries))
	}

	t.Run("entries arriving later are not drawn by the sweep", func(t *testing.T) {
		f.enterMembers(t, draw.ID, 2)
		res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
		if err != nil {
			t.Fatalf("ExpireAndRedraw failed: %v", err)
		}
		if res.Redrawn != 0 || len(f.winners(t, prize.ID)) != 0 {
			t.Errorf("Expected no winners before RunSelection, got %+v", res)
		}
	})

	t.Run("selection shortfall stays open", func(t *testing.T) {
		out, err := f.svc.RunSelection(ctx, admin, draw.ID)
		if err != nil {
			t.Fatalf("RunSelection failed: %v", err)
		}
		if out.Prizes[0].Unfilled != 1 {
			t.Fatalf("Expected 1 unfilled slot, got %d", out.Prizes[0].Unfilled)
		}
		res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
		if err != nil {
			t.Fatalf("ExpireAndRedraw failed: %v", err)
		}
		if res.RolledOverSlots != 0 {
			t.Errorf("Expected the never-filled slot to stay open, got %+v", res)
		}
		p, _ := f.store.Prizes().FindByID(ctx, prize.ID)
		if p.Capacity() != 3 {
			t.Errorf("Expected capacity 3, got %d", p.Capacity())
		}
	})
}

// failingRollovers fails every Create while fail is set
type failingRollovers struct {
	repositories.RolloverRepository
	fail bool
}

func (r *failingRollovers) Create(ctx context.Context, entry *models.RolloverEntry) error {
	if r.fail {
		return errors.New("ledger unavailable")
	}
	return r.RolloverRepository.Create(ctx, entry)
}

func TestExpireAndRedrawRetriesFailedRollover(t *testing.T) {
	var ledger *failingRollovers
	f := newFixture(t, func(d *DrawServiceDeps) {
		ledger = &failingRollovers{RolloverRepository: d.RolloverRepo, fail: true}
		d.RolloverRepo = ledger
	})
	ctx := context.Background()
	draw := f.announcedDraw(t)
	prize := f.prize(t, draw.ID, models.AwardKindCommunitySupport, 500, 2)
	members := f.enterMembers(t, draw.ID, 1)
	if _, err := f.svc.AssignManualWinner(ctx, admin, prize.ID, members[0]); err != nil {
		t.Fatalf("AssignManualWinner failed: %v", err)
	}

	f.clock.Advance(pastWindow)
	res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
	if err != nil {
		t.Fatalf("ExpireAndRedraw failed: %v", err)
	}
	if res.Expired != 1 || res.RolledOverSlots != 0 || len(res.Errors) == 0 {
		t.Fatalf("Expected the expiry recorded and the rollover failed, got %+v", res)
	}
	if p, _ := f.store.Prizes().FindByID(ctx, prize.ID); p.RolledOverSlots != 0 {
		t.Fatalf("Expected the write-off reverted, got %d rolled over slots", p.RolledOverSlots)
	}

	ledger.fail = false
	res, err = f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
	if err != nil {
		t.Fatalf("ExpireAndRedraw failed: %v", err)
	}
	if res.Expired != 0 || res.RolledOverSlots != 1 || !res.RolledOverAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("Expected the vacated slot rolled over on retry, got %+v", res)
	}
	if p, _ := f.store.Prizes().FindByID(ctx, prize.ID); p.RolledOverSlots != 1 {
		t.Errorf("Expected 1 rolled over slot, got %d", p.RolledOverSlots)
	}
	entries, _ := f.svc.ListRollovers(ctx, admin, models.AwardKindCommunitySupport, "")
	if len(entries) != 1 || !entries[0].Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected one 500 ledger entry, got %+v", entries)
	}

	t.Run("third pass is a no-op", func(t *testing.T) {
		res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
		if err != nil {
			t.Fatalf("ExpireAndRedraw failed: %v", err)
		}
		if res.RolledOverSlots != 0 {
			t.Errorf("Expected nothing to roll over, got %+v", res)
		}
	})
}

func TestSweepRedrawsClaimExpiredEagerly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)
	prize := f.prize(t, draw.ID, models.AwardKindRandomDraw, 1000, 1)
	f.enterMembers(t, draw.ID, 2)
	if _, err := f.svc.RunSelection(ctx, admin, draw.ID); err != nil {
		t.Fatalf("RunSelection failed: %v", err)
	}
	w := f.winners(t, prize.ID)[0]

	f.clock.Advance(pastWindow)
	if _, err := f.svc.Claim(ctx, member(w.MemberID), w.ID); !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("Expected ErrDeadlinePassed, got %v", err)
	}
	res, err := f.svc.ExpireAndRedraw(ctx, admin, draw.ID)
	if err != nil {
		t.Fatalf("ExpireAndRedraw failed: %v", err)
	}
	if res.Expired != 0 || res.Redrawn != 1 {
		t.Fatalf("Expected the claim-time expiry to be redrawn, got %+v", res)
	}
	for _, nw := range holding(f.winners(t, prize.ID)) {
		if !nw.Redraw || nw.MemberID == w.MemberID {
			t.Errorf("Unexpected replacement %+v", nw)
		}
	}
}
