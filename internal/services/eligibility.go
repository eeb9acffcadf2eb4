package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
)

// EligibilityResolver decides which members may win in a draw
type EligibilityResolver struct {
	entryRepo      repositories.EntryRepository
	membershipRepo repositories.MembershipRepository
	now            func() time.Time
}

// NewEligibilityResolver creates a new EligibilityResolver
func NewEligibilityResolver(entryRepo repositories.EntryRepository, membershipRepo repositories.MembershipRepository, now func() time.Time) *EligibilityResolver {
	if now == nil {
		now = time.Now
	}
	return &EligibilityResolver{entryRepo: entryRepo, membershipRepo: membershipRepo, now: now}
}

// ResolveEligible returns the member ids that entered the draw and are in good standing.
// An empty result is not an error.
func (r *EligibilityResolver) ResolveEligible(ctx context.Context, draw *models.Draw) ([]string, error) {
	memberIDs, err := r.entryRepo.FindMemberIDsByDrawID(ctx, draw.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	if len(memberIDs) == 0 {
		return []string{}, nil
	}

	memberships, err := r.membershipRepo.FindByMemberIDs(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}

	now := r.now()
	eligible := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if inGoodStanding(m, draw, now) {
			eligible = append(eligible, m.MemberID)
		}
	}
	return eligible, nil
}

// IsEligible checks a single member against the same rules as ResolveEligible
func (r *EligibilityResolver) IsEligible(ctx context.Context, draw *models.Draw, memberID string) (bool, error) {
	entered, err := r.entryRepo.Exists(ctx, draw.ID, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to check entry: %w", err)
	}
	if !entered {
		return false, nil
	}

	m, err := r.membershipRepo.FindByMemberID(ctx, memberID)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load membership: %w", err)
	}
	return inGoodStanding(m, draw, r.now()), nil
}

// inGoodStanding applies the membership rules; entry existence is checked by the callers
func inGoodStanding(m *models.Membership, draw *models.Draw, now time.Time) bool {
	return m.ActiveAt(now) && (draw.Scope == "" || m.Country == draw.Scope)
}
