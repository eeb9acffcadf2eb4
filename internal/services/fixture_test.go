package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store *memory.Store
	clock *testClock
	svc   *DrawServiceImpl
}

var admin = Caller{
	ID: "admin-1",
	Capabilities: CallerCapabilities{
		CanManageDraws:   true,
		CanRunSelection:  true,
		CanAssignManual:  true,
		CanRunExpiry:     true,
		CanManagePayouts: true,
	},
}

func member(id string) Caller {
	return Caller{ID: id, MemberID: id}
}

// newFixture builds the service over a memory store; opts may swap collaborators
func newFixture(t *testing.T, opts ...func(*DrawServiceDeps)) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	deps := DrawServiceDeps{
		DrawRepo:       store.Draws(),
		PrizeRepo:      store.Prizes(),
		EntryRepo:      store.Entries(),
		MembershipRepo: store.Memberships(),
		WinnerRepo:     store.Winners(),
		RolloverRepo:   store.Rollovers(),
		AuditRepo:      store.Audit(),
		Locker:         store.Locker(),
		Selector: SelectorConfig{
			ClaimWindow: 14 * 24 * time.Hour,
			LockTTL:     10 * time.Second,
			LockWait:    5 * time.Second,
		},
		Now: clock.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &fixture{store: store, clock: clock, svc: NewDrawService(deps)}
}

// announcedDraw creates and announces a BD draw
func (f *fixture) announcedDraw(t *testing.T) *models.Draw {
	t.Helper()
	ctx := context.Background()
	draw, err := f.svc.CreateDraw(ctx, admin, CreateDrawInput{
		Scope:                 "BD",
		ScheduledDate:         f.clock.Now().Add(24 * time.Hour),
		EstimatedPoolCurrency: "BDT",
	})
	if err != nil {
		t.Fatalf("CreateDraw failed: %v", err)
	}
	draw, err = f.svc.AnnounceDraw(ctx, admin, draw.ID)
	if err != nil {
		t.Fatalf("AnnounceDraw failed: %v", err)
	}
	return draw
}

func (f *fixture) prize(t *testing.T, drawID primitive.ObjectID, kind models.AwardKind, value int64, slots int) *models.Prize {
	t.Helper()
	p, err := f.svc.CreatePrize(context.Background(), admin, CreatePrizeInput{
		DrawID:    drawID,
		Title:     fmt.Sprintf("%s prize", kind),
		AwardKind: kind,
		BaseValue: decimal.NewFromInt(value),
		Currency:  "BDT",
		SlotCount: slots,
	})
	if err != nil {
		t.Fatalf("CreatePrize failed: %v", err)
	}
	return p
}

// addMember stores an active BD membership
func (f *fixture) addMember(t *testing.T, id string) {
	t.Helper()
	err := f.store.Memberships().Upsert(context.Background(), &models.Membership{
		MemberID: id,
		Name:     "Member " + id,
		MSISDN:   "88017000" + id,
		Country:  "BD",
		Status:   models.MembershipStatusActive,
		EndDate:  f.clock.Now().AddDate(1, 0, 0),
	})
	if err != nil {
		t.Fatalf("Upsert membership failed: %v", err)
	}
}

// enterMembers creates n members m0..m(n-1) and enters them into the draw
func (f *fixture) enterMembers(t *testing.T, drawID primitive.ObjectID, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%04d", i)
		f.addMember(t, id)
		if _, err := f.svc.EnterDraw(context.Background(), member(id), drawID); err != nil {
			t.Fatalf("EnterDraw(%s) failed: %v", id, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func (f *fixture) winners(t *testing.T, prizeID primitive.ObjectID) []*models.Winner {
	t.Helper()
	ws, err := f.store.Winners().FindByPrizeID(context.Background(), prizeID)
	if err != nil {
		t.Fatalf("FindByPrizeID failed: %v", err)
	}
	return ws
}

func holding(ws []*models.Winner) []*models.Winner {
	out := []*models.Winner{}
	for _, w := range ws {
		if w.HoldsSlot() {
			out = append(out, w)
		}
	}
	return out
}
