package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories/memory"
	"github.com/ArowuTest/prizedraw-engine/pkg/smsgateway"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSMSNotifier(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gateway := smsgateway.NewMockGateway("mock")
	notifier := NewSMSNotifier(store.Notifications(), store.Memberships(), gateway)

	if err := store.Memberships().Upsert(ctx, &models.Membership{
		MemberID: "0001",
		MSISDN:   "8801712345678",
		Status:   models.MembershipStatusActive,
		EndDate:  time.Now().AddDate(1, 0, 0),
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	winner := &models.Winner{
		ID:            primitive.NewObjectID(),
		MemberID:      "0001",
		Value:         decimal.NewFromInt(1000),
		Currency:      "BDT",
		ClaimDeadline: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
	}
	notifier.NotifyWinner(winner)
	notifier.NotifyExpired(winner)
	notifier.NotifyWinner(&models.Winner{ID: primitive.NewObjectID(), MemberID: "unknown", Value: decimal.Zero})
	notifier.Wait()

	msgs := gateway.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	var sawWin, sawExpiry bool
	for _, m := range msgs {
		if m.MSISDN != "8801712345678" {
			t.Errorf("Unexpected recipient %s", m.MSISDN)
		}
		sawWin = sawWin || strings.Contains(m.Message, "1000.00 BDT") && strings.Contains(m.Message, "15 Mar 2026")
		sawExpiry = sawExpiry || strings.Contains(m.Message, "has closed")
	}
	if !sawWin || !sawExpiry {
		t.Errorf("Expected a winner and an expiry message, got %+v", msgs)
	}

	stored, err := store.Notifications().FindByMemberID(ctx, "0001", 1, 10)
	if err != nil {
		t.Fatalf("FindByMemberID failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 stored notifications, got %d", len(stored))
	}
	for _, n := range stored {
		if n.Status != models.NotificationStatusSent || n.MessageID == "" || n.Gateway != "mock" {
			t.Errorf("Unexpected notification %+v", n)
		}
	}
}
