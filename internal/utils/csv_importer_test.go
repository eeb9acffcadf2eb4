package utils

import (
	"context"
	"strings"
	"testing"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const membersCSV = `Member ID,Name,MSISDN,Country,Status,End Date,Blacklisted
1001,Rahim Uddin,+880 1712-345678,bd,active,2027-01-31,no
1002,Karim Mia,8801812345678,BD,SUSPENDED,31/12/2026,
,Missing Id,8801912345678,BD,ACTIVE,2027-01-31,
1003,Bad Date,8801612345678,BD,ACTIVE,someday,
1001,Rahim Uddin,8801712345678,BD,ACTIVE,2027-02-28,yes
`

func TestCSVImporter(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	importer := NewCSVImporter(store.Memberships(), store.Entries())
	drawID := primitive.NewObjectID()

	res, err := importer.Import(ctx, strings.NewReader(membersCSV), drawID)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if res.TotalRows != 5 {
		t.Errorf("Expected 5 rows, got %d", res.TotalRows)
	}
	if res.MembershipsUpdated != 3 {
		t.Errorf("Expected 3 membership writes, got %d", res.MembershipsUpdated)
	}
	if res.EntriesCreated != 2 || res.EntriesSkipped != 1 {
		t.Errorf("Expected 2 entries created and 1 skipped, got %d and %d", res.EntriesCreated, res.EntriesSkipped)
	}
	if len(res.Errors) != 2 {
		t.Errorf("Expected 2 row errors, got %v", res.Errors)
	}

	m, err := store.Memberships().FindByMemberID(ctx, "1001")
	if err != nil {
		t.Fatalf("FindByMemberID failed: %v", err)
	}
	if m.MSISDN != "8801712345678" || m.Country != "BD" || !m.IsBlacklisted {
		t.Errorf("Unexpected membership %+v", m)
	}
	if m.EndDate.Month() != 2 {
		t.Errorf("Expected the later row to win, got end date %s", m.EndDate)
	}

	suspended, _ := store.Memberships().FindByMemberID(ctx, "1002")
	if suspended == nil || suspended.Status != models.MembershipStatusSuspended {
		t.Errorf("Expected SUSPENDED membership, got %+v", suspended)
	}

	n, _ := store.Entries().CountByDrawID(ctx, drawID)
	if n != 2 {
		t.Errorf("Expected 2 entries, got %d", n)
	}
}

func TestCSVImporterMissingColumns(t *testing.T) {
	importer := NewCSVImporter(memory.NewStore().Memberships(), nil)
	_, err := importer.Import(context.Background(), strings.NewReader("Name,MSISDN\nx,1\n"), primitive.NilObjectID)
	if err == nil {
		t.Fatal("Expected an error for a CSV without a member id column")
	}
}
