package utils

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImportResult summarises one CSV import run
type ImportResult struct {
	TotalRows          int      `json:"totalRows"`
	MembershipsUpdated int      `json:"membershipsUpdated"`
	EntriesCreated     int      `json:"entriesCreated"`
	EntriesSkipped     int      `json:"entriesSkipped"`
	Errors             []string `json:"errors"`
}

// CSVImporter loads memberships, and optionally draw entries, from a CSV export
type CSVImporter struct {
	membershipRepo repositories.MembershipRepository
	entryRepo      repositories.EntryRepository
}

// NewCSVImporter creates a new CSVImporter
func NewCSVImporter(membershipRepo repositories.MembershipRepository, entryRepo repositories.EntryRepository) *CSVImporter {
	return &CSVImporter{
		membershipRepo: membershipRepo,
		entryRepo:      entryRepo,
	}
}

// Import reads r and upserts one membership per row. When drawID is non-zero every
// imported member is also entered into that draw; repeated entries are skipped.
func (i *CSVImporter) Import(ctx context.Context, r io.Reader, drawID primitive.ObjectID) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	memberIdx := findColumnIndex(header, []string{"Member ID", "MemberID", "member_id"})
	nameIdx := findColumnIndex(header, []string{"Name", "Full Name"})
	msisdnIdx := findColumnIndex(header, []string{"MSISDN", "Phone Number", "Mobile"})
	countryIdx := findColumnIndex(header, []string{"Country", "Country Code"})
	statusIdx := findColumnIndex(header, []string{"Status", "Membership Status"})
	endIdx := findColumnIndex(header, []string{"End Date", "Membership End", "Expires"})
	blacklistIdx := findColumnIndex(header, []string{"Blacklisted", "Is Blacklisted"})

	if memberIdx == -1 {
		return nil, errors.New("member id column not found in CSV")
	}
	if endIdx == -1 {
		return nil, errors.New("end date column not found in CSV")
	}

	result := &ImportResult{Errors: []string{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Error reading row: %v", err))
			continue
		}
		result.TotalRows++

		memberID := strings.TrimSpace(cell(row, memberIdx))
		if memberID == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: No member id found", result.TotalRows))
			continue
		}

		endDate, err := parseDate(cell(row, endIdx))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Invalid end date: %s", result.TotalRows, cell(row, endIdx)))
			continue
		}

		status := models.MembershipStatusActive
		if s := strings.ToUpper(strings.TrimSpace(cell(row, statusIdx))); s != "" {
			status = models.MembershipStatus(s)
		}

		membership := &models.Membership{
			MemberID:      memberID,
			Name:          strings.TrimSpace(cell(row, nameIdx)),
			MSISDN:        cleanMSISDN(cell(row, msisdnIdx)),
			Country:       strings.ToUpper(strings.TrimSpace(cell(row, countryIdx))),
			Status:        status,
			EndDate:       endDate,
			IsBlacklisted: parseBool(cell(row, blacklistIdx)),
		}
		if err := i.membershipRepo.Upsert(ctx, membership); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Failed to save membership: %v", result.TotalRows, err))
			continue
		}
		result.MembershipsUpdated++

		if drawID.IsZero() || i.entryRepo == nil {
			continue
		}
		err = i.entryRepo.Create(ctx, &models.Entry{DrawID: drawID, MemberID: memberID, CreatedAt: time.Now()})
		switch {
		case err == nil:
			result.EntriesCreated++
		case errors.Is(err, repositories.ErrDuplicate):
			result.EntriesSkipped++
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Failed to create entry: %v", result.TotalRows, err))
		}
	}

	return result, nil
}

// findColumnIndex finds the index of a column by possible names
func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// cleanMSISDN strips everything but digits
func cleanMSISDN(msisdn string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, msisdn)
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "true" || s == "1" || s == "y"
}

// parseDate parses a date string in various formats
func parseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)

	formats := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"02/01/2006",
		"2 Jan 2006",
	}

	for _, format := range formats {
		date, err := time.Parse(format, dateStr)
		if err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
