package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDrawLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draw, err := f.svc.CreateDraw(ctx, admin, CreateDrawInput{
		Scope:                 "bd",
		ScheduledDate:         f.clock.Now().Add(time.Hour),
		EstimatedPoolCurrency: "bdt",
	})
	if err != nil {
		t.Fatalf("CreateDraw failed: %v", err)
	}
	if draw.Status != models.DrawStatusComingSoon {
		t.Fatalf("Expected COMING_SOON, got %s", draw.Status)
	}
	if draw.Scope != "BD" || draw.EstimatedPoolCurrency != "BDT" {
		t.Errorf("Expected normalised scope and currency, got %s %s", draw.Scope, draw.EstimatedPoolCurrency)
	}

	t.Run("announce", func(t *testing.T) {
		d, err := f.svc.AnnounceDraw(ctx, admin, draw.ID)
		if err != nil {
			t.Fatalf("AnnounceDraw failed: %v", err)
		}
		if d.Status != models.DrawStatusAnnounced {
			t.Errorf("Expected ANNOUNCED, got %s", d.Status)
		}
	})

	t.Run("announce twice", func(t *testing.T) {
		_, err := f.svc.AnnounceDraw(ctx, admin, draw.ID)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("Expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("revert without winners", func(t *testing.T) {
		d, err := f.svc.RevertDraw(ctx, admin, draw.ID)
		if err != nil {
			t.Fatalf("RevertDraw failed: %v", err)
		}
		if d.Status != models.DrawStatusComingSoon {
			t.Errorf("Expected COMING_SOON, got %s", d.Status)
		}
	})

	t.Run("missing capability", func(t *testing.T) {
		_, err := f.svc.AnnounceDraw(ctx, member("0001"), draw.ID)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
	})

	t.Run("unknown draw", func(t *testing.T) {
		_, err := f.svc.GetDraw(ctx, primitive.NewObjectID())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestRevertDrawWithWinners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)
	f.prize(t, draw.ID, models.AwardKindRandomDraw, 100, 1)
	f.enterMembers(t, draw.ID, 2)

	if _, err := f.svc.RunSelection(ctx, admin, draw.ID); err != nil {
		t.Fatalf("RunSelection failed: %v", err)
	}
	_, err := f.svc.RevertDraw(ctx, admin, draw.ID)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}

func TestCreatePrizeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)

	cases := []struct {
		name string
		in   CreatePrizeInput
	}{
		{"no title", CreatePrizeInput{AwardKind: models.AwardKindRandomDraw, Currency: "BDT", SlotCount: 1}},
		{"bad kind", CreatePrizeInput{Title: "x", AwardKind: "LUCKY", Currency: "BDT", SlotCount: 1}},
		{"zero slots", CreatePrizeInput{Title: "x", AwardKind: models.AwardKindRandomDraw, Currency: "BDT"}},
		{"negative value", CreatePrizeInput{Title: "x", AwardKind: models.AwardKindRandomDraw, Currency: "BDT", SlotCount: 1, BaseValue: decimal.NewFromInt(-1)}},
		{"no currency", CreatePrizeInput{Title: "x", AwardKind: models.AwardKindRandomDraw, SlotCount: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.DrawID = draw.ID
			_, err := f.svc.CreatePrize(ctx, admin, tc.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreatePrizeUpdatesEstimatedPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)

	f.prize(t, draw.ID, models.AwardKindRandomDraw, 1000, 3)
	f.prize(t, draw.ID, models.AwardKindCommunitySupport, 250, 2)

	d, err := f.svc.GetDraw(ctx, draw.ID)
	if err != nil {
		t.Fatalf("GetDraw failed: %v", err)
	}
	if !d.EstimatedPoolAmount.Equal(decimal.NewFromInt(3500)) {
		t.Errorf("Expected estimated pool 3500, got %s", d.EstimatedPoolAmount)
	}
}

func TestCreatePrizeFoldsRollover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	source := f.announcedDraw(t)
	sourcePrize := f.prize(t, source.ID, models.AwardKindRandomDraw, 1000, 1)

	if _, err := f.svc.ledger.RecordRollover(ctx, RolloverInput{
		SourceDrawID:  source.ID,
		SourcePrizeID: sourcePrize.ID,
		AwardKind:     models.AwardKindRandomDraw,
		Amount:        decimal.NewFromInt(1000),
		Currency:      "BDT",
		Slots:         1,
		Reason:        models.RolloverReasonInsufficientPool,
	}); err != nil {
		t.Fatalf("RecordRollover failed: %v", err)
	}

	next := f.announcedDraw(t)

	t.Run("other kind untouched", func(t *testing.T) {
		p := f.prize(t, next.ID, models.AwardKindCommunitySupport, 500, 3)
		if !p.Value.Equal(decimal.NewFromInt(500)) || !p.RolloverAmount.IsZero() {
			t.Errorf("Expected no rollover on COMMUNITY_SUPPORT prize, got value %s rollover %s", p.Value, p.RolloverAmount)
		}
	})

	p := f.prize(t, next.ID, models.AwardKindRandomDraw, 500, 3)
	if !p.Value.Equal(decimal.RequireFromString("833.33")) {
		t.Errorf("Expected per-slot value 833.33, got %s", p.Value)
	}
	if !p.RolloverAmount.Equal(decimal.RequireFromString("999.99")) {
		t.Errorf("Expected folded amount 999.99, got %s", p.RolloverAmount)
	}

	outstanding, err := f.svc.ledger.Outstanding(ctx, models.AwardKindRandomDraw, "BDT")
	if err != nil {
		t.Fatalf("Outstanding failed: %v", err)
	}
	if !outstanding.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("Expected 0.01 remainder outstanding, got %s", outstanding)
	}
	if !outstanding.Add(p.RolloverAmount).Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Rollover not conserved: folded %s + outstanding %s", p.RolloverAmount, outstanding)
	}

	consumed, err := f.svc.ListRollovers(ctx, admin, models.AwardKindRandomDraw, models.RolloverStatusConsumed)
	if err != nil {
		t.Fatalf("ListRollovers failed: %v", err)
	}
	if len(consumed) != 1 || consumed[0].DestinationPrizeID == nil || *consumed[0].DestinationPrizeID != p.ID {
		t.Errorf("Expected the source entry consumed into the new prize, got %+v", consumed)
	}
}

func TestDeactivatePrize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)
	sourcePrize := f.prize(t, draw.ID, models.AwardKindRandomDraw, 100, 1)

	if _, err := f.svc.ledger.RecordRollover(ctx, RolloverInput{
		SourceDrawID:  draw.ID,
		SourcePrizeID: sourcePrize.ID,
		AwardKind:     models.AwardKindRandomDraw,
		Amount:        decimal.NewFromInt(300),
		Currency:      "BDT",
		Reason:        models.RolloverReasonInsufficientPool,
	}); err != nil {
		t.Fatalf("RecordRollover failed: %v", err)
	}
	p := f.prize(t, draw.ID, models.AwardKindRandomDraw, 100, 3)

	deactivated, err := f.svc.DeactivatePrize(ctx, admin, p.ID)
	if err != nil {
		t.Fatalf("DeactivatePrize failed: %v", err)
	}
	if deactivated.Active {
		t.Error("Expected prize to be inactive")
	}

	outstanding, err := f.svc.ledger.Outstanding(ctx, models.AwardKindRandomDraw, "BDT")
	if err != nil {
		t.Fatalf("Outstanding failed: %v", err)
	}
	if !outstanding.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected folded 300 returned to the ledger, got %s", outstanding)
	}

	d, _ := f.svc.GetDraw(ctx, draw.ID)
	if !d.EstimatedPoolAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected estimated pool back to 100, got %s", d.EstimatedPoolAmount)
	}

	t.Run("twice", func(t *testing.T) {
		_, err := f.svc.DeactivatePrize(ctx, admin, p.ID)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("Expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("with winners", func(t *testing.T) {
		f.enterMembers(t, draw.ID, 2)
		if _, err := f.svc.RunSelection(ctx, admin, draw.ID); err != nil {
			t.Fatalf("RunSelection failed: %v", err)
		}
		_, err := f.svc.DeactivatePrize(ctx, admin, sourcePrize.ID)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("Expected ErrInvalidState, got %v", err)
		}
	})
}

func TestEnterDraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draw := f.announcedDraw(t)
	f.addMember(t, "0001")

	if _, err := f.svc.EnterDraw(ctx, member("0001"), draw.ID); err != nil {
		t.Fatalf("EnterDraw failed: %v", err)
	}

	t.Run("duplicate", func(t *testing.T) {
		_, err := f.svc.EnterDraw(ctx, member("0001"), draw.ID)
		if !errors.Is(err, ErrAlreadyResolved) {
			t.Errorf("Expected ErrAlreadyResolved, got %v", err)
		}
	})

	t.Run("operator without member id", func(t *testing.T) {
		_, err := f.svc.EnterDraw(ctx, admin, draw.ID)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
	})

	t.Run("no membership", func(t *testing.T) {
		_, err := f.svc.EnterDraw(ctx, member("9999"), draw.ID)
		if !errors.Is(err, ErrNotEligible) {
			t.Errorf("Expected ErrNotEligible, got %v", err)
		}
	})

	t.Run("blacklisted", func(t *testing.T) {
		err := f.store.Memberships().Upsert(ctx, &models.Membership{
			MemberID: "0002", Country: "BD", Status: models.MembershipStatusActive,
			EndDate: f.clock.Now().AddDate(1, 0, 0), IsBlacklisted: true,
		})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		_, err = f.svc.EnterDraw(ctx, member("0002"), draw.ID)
		if !errors.Is(err, ErrNotEligible) {
			t.Errorf("Expected ErrNotEligible, got %v", err)
		}
	})

	t.Run("other scope", func(t *testing.T) {
		err := f.store.Memberships().Upsert(ctx, &models.Membership{
			MemberID: "0003", Country: "NG", Status: models.MembershipStatusActive,
			EndDate: f.clock.Now().AddDate(1, 0, 0),
		})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		_, err = f.svc.EnterDraw(ctx, member("0003"), draw.ID)
		if !errors.Is(err, ErrNotEligible) {
			t.Errorf("Expected ErrNotEligible, got %v", err)
		}
	})
}

func TestListWinnersRequiresOperator(t *testing.T) {
	f := newFixture(t)
	draw := f.announcedDraw(t)

	_, err := f.svc.ListWinners(context.Background(), member("0001"), draw.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	ws, err := f.svc.ListWinners(context.Background(), Caller{ID: "payouts", Capabilities: CallerCapabilities{CanManagePayouts: true}}, draw.ID)
	if err != nil {
		t.Fatalf("ListWinners failed: %v", err)
	}
	if len(ws) != 0 {
		t.Errorf("Expected no winners, got %d", len(ws))
	}
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	draw := f.announcedDraw(t)
	f.prize(t, draw.ID, models.AwardKindRandomDraw, 100, 1)

	actions := map[string]bool{}
	for _, e := range f.store.AuditEntries() {
		actions[e.Action] = true
	}
	for _, want := range []string{AuditDrawCreated, AuditDrawAnnounced, AuditPrizeCreated} {
		if !actions[want] {
			t.Errorf("Expected audit entry %s", want)
		}
	}
}
