package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"github.com/ArowuTest/prizedraw-engine/internal/utils"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure DrawServiceImpl implements DrawService
var _ DrawService = (*DrawServiceImpl)(nil)

// DrawServiceDeps wires the stores and collaborators of the engine
type DrawServiceDeps struct {
	DrawRepo       repositories.DrawRepository
	PrizeRepo      repositories.PrizeRepository
	EntryRepo      repositories.EntryRepository
	MembershipRepo repositories.MembershipRepository
	WinnerRepo     repositories.WinnerRepository
	RolloverRepo   repositories.RolloverRepository
	AuditRepo      repositories.AuditRepository
	Locker         repositories.PrizeLocker
	Notifier       Notifier
	Selector       SelectorConfig
	Now            func() time.Time
}

// DrawServiceImpl is the engine facade: it checks capabilities and lifecycle state and
// delegates to the Selector, ClaimTracker, ExpiryOrchestrator and RolloverLedger.
type DrawServiceImpl struct {
	drawRepo       repositories.DrawRepository
	prizeRepo      repositories.PrizeRepository
	entryRepo      repositories.EntryRepository
	membershipRepo repositories.MembershipRepository
	winnerRepo     repositories.WinnerRepository

	eligibility *EligibilityResolver
	selector    *Selector
	claims      *ClaimTracker
	expiry      *ExpiryOrchestrator
	ledger      *RolloverLedger
	audit       *AuditLogger
	now         func() time.Time
}

// NewDrawService creates a new DrawServiceImpl
func NewDrawService(deps DrawServiceDeps) *DrawServiceImpl {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}

	audit := NewAuditLogger(deps.AuditRepo, now)
	eligibility := NewEligibilityResolver(deps.EntryRepo, deps.MembershipRepo, now)
	ledger := NewRolloverLedger(deps.RolloverRepo, now)
	selector := NewSelector(deps.PrizeRepo, deps.WinnerRepo, deps.Locker, notifier, audit, deps.Selector, now)

	return &DrawServiceImpl{
		drawRepo:       deps.DrawRepo,
		prizeRepo:      deps.PrizeRepo,
		entryRepo:      deps.EntryRepo,
		membershipRepo: deps.MembershipRepo,
		winnerRepo:     deps.WinnerRepo,
		eligibility:    eligibility,
		selector:       selector,
		claims:         NewClaimTracker(deps.WinnerRepo, notifier, now),
		expiry:         NewExpiryOrchestrator(deps.DrawRepo, deps.PrizeRepo, deps.WinnerRepo, eligibility, selector, ledger, notifier, audit, now),
		ledger:         ledger,
		audit:          audit,
		now:            now,
	}
}

// Sweeper exposes the scheduled sweep
func (s *DrawServiceImpl) Sweeper() *ExpiryOrchestrator {
	return s.expiry
}

// --- Draw lifecycle ---

// CreateDraw creates a draw in COMING_SOON
func (s *DrawServiceImpl) CreateDraw(ctx context.Context, caller Caller, in CreateDrawInput) (*models.Draw, error) {
	if err := require(caller.Capabilities.CanManageDraws, CapManageDraws); err != nil {
		return nil, err
	}
	if in.ScheduledDate.IsZero() {
		return nil, fmt.Errorf("%w: scheduled date is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.EstimatedPoolCurrency) == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrInvalidInput)
	}
	if in.ForecastParticipants < 0 {
		return nil, fmt.Errorf("%w: forecast participants cannot be negative", ErrInvalidInput)
	}

	draw := &models.Draw{
		Scope:                 strings.ToUpper(strings.TrimSpace(in.Scope)),
		ScheduledDate:         in.ScheduledDate,
		Status:                models.DrawStatusComingSoon,
		ForecastParticipants:  in.ForecastParticipants,
		EstimatedPoolAmount:   decimal.Zero,
		EstimatedPoolCurrency: strings.ToUpper(in.EstimatedPoolCurrency),
		Disclaimer:            in.Disclaimer,
		CreatedBy:             caller.ID,
	}
	if err := s.drawRepo.Create(ctx, draw); err != nil {
		slog.Error("Failed to create draw in repository", "error", err)
		return nil, fmt.Errorf("failed to save draw: %w", err)
	}

	slog.Info("Draw created", "drawId", draw.ID.Hex(), "scope", draw.Scope, "scheduledDate", draw.ScheduledDate)
	s.audit.Record(ctx, AuditDrawCreated, caller.ID, AuditTarget{DrawID: draw.ID}, nil)
	return draw, nil
}

// AnnounceDraw moves a draw from COMING_SOON to ANNOUNCED
func (s *DrawServiceImpl) AnnounceDraw(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*models.Draw, error) {
	if err := require(caller.Capabilities.CanManageDraws, CapManageDraws); err != nil {
		return nil, err
	}
	draw, err := s.transition(ctx, drawID, models.DrawStatusComingSoon, models.DrawStatusAnnounced)
	if err != nil {
		return nil, err
	}
	slog.Info("Draw announced", "drawId", drawID.Hex())
	s.audit.Record(ctx, AuditDrawAnnounced, caller.ID, AuditTarget{DrawID: drawID}, nil)
	return draw, nil
}

// RevertDraw moves an ANNOUNCED draw back to COMING_SOON while it has no winners
func (s *DrawServiceImpl) RevertDraw(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*models.Draw, error) {
	if err := require(caller.Capabilities.CanManageDraws, CapManageDraws); err != nil {
		return nil, err
	}
	count, err := s.winnerRepo.CountByDrawID(ctx, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to count winners: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: draw already has winners", ErrInvalidState)
	}
	draw, err := s.transition(ctx, drawID, models.DrawStatusAnnounced, models.DrawStatusComingSoon)
	if err != nil {
		return nil, err
	}
	slog.Info("Draw reverted", "drawId", drawID.Hex())
	s.audit.Record(ctx, AuditDrawReverted, caller.ID, AuditTarget{DrawID: drawID}, nil)
	return draw, nil
}

func (s *DrawServiceImpl) transition(ctx context.Context, drawID primitive.ObjectID, from, to models.DrawStatus) (*models.Draw, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
	}
	ok, err := s.drawRepo.UpdateStatus(ctx, drawID, from, to, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update draw status: %w", err)
	}
	draw, err := s.drawRepo.FindByID(ctx, drawID)
	if err != nil {
		return nil, mapRepoErr(err, "draw")
	}
	if !ok {
		return nil, fmt.Errorf("%w: draw is %s, expected %s", ErrInvalidState, draw.Status, from)
	}
	return draw, nil
}

// GetDraw returns a draw by id
func (s *DrawServiceImpl) GetDraw(ctx context.Context, drawID primitive.ObjectID) (*models.Draw, error) {
	draw, err := s.drawRepo.FindByID(ctx, drawID)
	if err != nil {
		return nil, mapRepoErr(err, "draw")
	}
	return draw, nil
}

// ListDraws returns a page of draws
func (s *DrawServiceImpl) ListDraws(ctx context.Context, page, limit int) ([]*models.Draw, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.drawRepo.FindAll(ctx, page, limit)
}

// --- Prize catalog ---

// CreatePrize adds a prize to a draw and folds any outstanding rollover of the same award kind
// and currency into its per-slot value. The share is floored to cents; the remainder goes back
// to the ledger.
func (s *DrawServiceImpl) CreatePrize(ctx context.Context, caller Caller, in CreatePrizeInput) (*models.Prize, error) {
	if err := require(caller.Capabilities.CanManageDraws, CapManageDraws); err != nil {
		return nil, err
	}
	if err := validatePrizeInput(in); err != nil {
		return nil, err
	}

	draw, err := s.drawRepo.FindByID(ctx, in.DrawID)
	if err != nil {
		return nil, mapRepoErr(err, "draw")
	}
	if draw.Status == models.DrawStatusCompleted {
		return nil, fmt.Errorf("%w: draw is completed", ErrInvalidState)
	}

	currency := strings.ToUpper(in.Currency)
	prizeID := primitive.NewObjectID()
	consumed, err := s.ledger.ConsumeRollover(ctx, in.AwardKind, currency, draw.ID, prizeID)
	if err != nil {
		// entries flipped before the failure are already counted in consumed
		if consumed.IsPositive() {
			s.reissue(ctx, draw.ID, prizeID, in.AwardKind, consumed, currency)
		}
		return nil, err
	}

	slots := decimal.NewFromInt(int64(in.SlotCount))
	share := consumed.Div(slots).RoundFloor(2)
	folded := share.Mul(slots)
	remainder := consumed.Sub(folded)

	prize := &models.Prize{
		ID:             prizeID,
		DrawID:         draw.ID,
		Title:          strings.TrimSpace(in.Title),
		AwardKind:      in.AwardKind,
		BaseValue:      in.BaseValue,
		RolloverAmount: folded,
		Value:          in.BaseValue.Add(share),
		Currency:       currency,
		SlotCount:      in.SlotCount,
		Active:         true,
		CreatedBy:      caller.ID,
	}
	if err := s.prizeRepo.Create(ctx, prize); err != nil {
		slog.Error("Failed to create prize", "error", err, "drawId", draw.ID.Hex())
		if consumed.IsPositive() {
			s.reissue(ctx, draw.ID, prizeID, in.AwardKind, consumed, currency)
		}
		return nil, fmt.Errorf("failed to save prize: %w", err)
	}

	if remainder.IsPositive() {
		if _, err := s.ledger.RecordRollover(ctx, RolloverInput{
			SourceDrawID:  draw.ID,
			SourcePrizeID: prize.ID,
			AwardKind:     prize.AwardKind,
			Amount:        remainder,
			Currency:      currency,
			Reason:        models.RolloverReasonRoundingRemainder,
		}); err != nil {
			slog.Error("CRITICAL: failed to record rounding remainder", "error", err, "prizeId", prize.ID.Hex(), "amount", remainder.String())
		}
	}

	if err := s.drawRepo.AddToEstimatedPool(ctx, draw.ID, prize.AdvertisedTotal()); err != nil {
		slog.Warn("Failed to update estimated pool", "error", err, "drawId", draw.ID.Hex())
	}

	slog.Info("Prize created", "prizeId", prize.ID.Hex(), "drawId", draw.ID.Hex(), "awardKind", prize.AwardKind,
		"value", prize.Value.String(), "rolloverFolded", folded.String(), "slots", prize.SlotCount)
	s.audit.Record(ctx, AuditPrizeCreated, caller.ID, AuditTarget{DrawID: draw.ID, PrizeID: prize.ID},
		map[string]any{"value": prize.Value.String(), "rolloverAmount": folded.String(), "slotCount": prize.SlotCount})
	return prize, nil
}

func (s *DrawServiceImpl) reissue(ctx context.Context, drawID, prizeID primitive.ObjectID, kind models.AwardKind, amount decimal.Decimal, currency string) {
	if _, err := s.ledger.RecordRollover(ctx, RolloverInput{
		SourceDrawID:  drawID,
		SourcePrizeID: prizeID,
		AwardKind:     kind,
		Amount:        amount,
		Currency:      currency,
		Reason:        models.RolloverReasonReissued,
	}); err != nil {
		slog.Error("CRITICAL: failed to reissue consumed rollover", "error", err, "amount", amount.String(), "currency", currency)
	}
}

func validatePrizeInput(in CreatePrizeInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case !in.AwardKind.Valid():
		return fmt.Errorf("%w: unknown award kind %q", ErrInvalidInput, in.AwardKind)
	case in.SlotCount < 1:
		return fmt.Errorf("%w: slot count must be at least 1", ErrInvalidInput)
	case in.BaseValue.IsNegative():
		return fmt.Errorf("%w: value cannot be negative", ErrInvalidInput)
	case strings.TrimSpace(in.Currency) == "":
		return fmt.Errorf("%w: currency is required", ErrInvalidInput)
	}
	return nil
}

// DeactivatePrize retires a prize that has not been drawn yet. Rollover folded into it is
// returned to the ledger.
func (s *DrawServiceImpl) DeactivatePrize(ctx context.Context, caller Caller, prizeID primitive.ObjectID) (*models.Prize, error) {
	if err := require(caller.Capabilities.CanManageDraws, CapManageDraws); err != nil {
		return nil, err
	}

	var prize *models.Prize
	err := s.selector.withPrizeLock(ctx, prizeID, func(ctx context.Context) error {
		p, err := s.prizeRepo.FindByID(ctx, prizeID)
		if err != nil {
			return mapRepoErr(err, "prize")
		}
		if !p.Active {
			return fmt.Errorf("%w: prize is already inactive", ErrInvalidState)
		}
		winners, err := s.winnerRepo.FindByPrizeID(ctx, prizeID)
		if err != nil {
			return fmt.Errorf("failed to load winners: %w", err)
		}
		if len(winners) > 0 {
			return fmt.Errorf("%w: prize already has winners", ErrInvalidState)
		}
		if err := s.prizeRepo.SetActive(ctx, prizeID, false); err != nil {
			return fmt.Errorf("failed to deactivate prize: %w", err)
		}
		p.Active = false
		prize = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if prize.RolloverAmount.IsPositive() {
		if _, err := s.ledger.RecordRollover(ctx, RolloverInput{
			SourceDrawID:  prize.DrawID,
			SourcePrizeID: prize.ID,
			AwardKind:     prize.AwardKind,
			Amount:        prize.RolloverAmount,
			Currency:      prize.Currency,
			Reason:        models.RolloverReasonPrizeDeactivated,
		}); err != nil {
			slog.Error("CRITICAL: failed to return folded rollover", "error", err, "prizeId", prize.ID.Hex())
		}
	}
	if err := s.drawRepo.AddToEstimatedPool(ctx, prize.DrawID, prize.AdvertisedTotal().Neg()); err != nil {
		slog.Warn("Failed to update estimated pool", "error", err, "drawId", prize.DrawID.Hex())
	}

	slog.Info("Prize deactivated", "prizeId", prize.ID.Hex())
	s.audit.Record(ctx, AuditPrizeDeactivated, caller.ID, AuditTarget{DrawID: prize.DrawID, PrizeID: prize.ID}, nil)
	return prize, nil
}

// ListPrizes returns every prize of a draw, including inactive ones
func (s *DrawServiceImpl) ListPrizes(ctx context.Context, drawID primitive.ObjectID) ([]*models.Prize, error) {
	if _, err := s.GetDraw(ctx, drawID); err != nil {
		return nil, err
	}
	return s.prizeRepo.FindByDrawID(ctx, drawID, false)
}

// --- Entries and selection ---

// EnterDraw records the calling member's entry
func (s *DrawServiceImpl) EnterDraw(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*models.Entry, error) {
	if caller.MemberID == "" {
		return nil, fmt.Errorf("%w: only members can enter a draw", ErrForbidden)
	}
	draw, err := s.GetDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if draw.Status == models.DrawStatusCompleted {
		return nil, fmt.Errorf("%w: draw is completed", ErrInvalidState)
	}

	membership, err := s.membershipRepo.FindByMemberID(ctx, caller.MemberID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: no membership", ErrNotEligible)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if !inGoodStanding(membership, draw, s.now()) {
		return nil, fmt.Errorf("%w: membership not in good standing", ErrNotEligible)
	}

	entry := &models.Entry{DrawID: drawID, MemberID: caller.MemberID, CreatedAt: s.now()}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: already entered", ErrAlreadyResolved)
		}
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}
	slog.Info("Draw entered", "drawId", drawID.Hex(), "memberId", utils.MaskMemberID(caller.MemberID))
	s.audit.Record(ctx, AuditEntryCreated, caller.ID, AuditTarget{DrawID: drawID}, map[string]any{"memberId": caller.MemberID})
	return entry, nil
}

// RunSelection fills every active RANDOM_DRAW prize of an ANNOUNCED draw. Running it again
// only touches prizes that still have open slots.
func (s *DrawServiceImpl) RunSelection(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*SelectionResult, error) {
	if err := require(caller.Capabilities.CanRunSelection, CapRunSelection); err != nil {
		return nil, err
	}
	draw, err := s.GetDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if draw.Status != models.DrawStatusAnnounced {
		return nil, fmt.Errorf("%w: selection requires an announced draw, draw is %s", ErrInvalidState, draw.Status)
	}

	prizes, err := s.prizeRepo.FindByDrawID(ctx, drawID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load prizes: %w", err)
	}
	eligible, err := s.eligibility.ResolveEligible(ctx, draw)
	if err != nil {
		return nil, err
	}

	selectedBy := models.SelectedBySystem
	result := &SelectionResult{DrawID: drawID, Prizes: []*PrizeOutcome{}}
	var errs []error
	for _, p := range prizes {
		if p.AwardKind != models.AwardKindRandomDraw {
			continue
		}
		outcome, err := s.selector.SelectWinners(ctx, draw, p.ID, eligible, selectedBy)
		if outcome != nil {
			result.Prizes = append(result.Prizes, outcome)
		}
		if err != nil {
			slog.Error("Selection failed for prize", "error", err, "prizeId", p.ID.Hex())
			errs = append(errs, fmt.Errorf("prize %s: %w", p.ID.Hex(), err))
		}
	}

	slog.Info("Selection run", "drawId", drawID.Hex(), "actor", caller.ID, "eligible", len(eligible), "prizes", len(result.Prizes))
	return result, errors.Join(errs...)
}

// AssignManualWinner places a hand-picked member on a COMMUNITY_SUPPORT prize
func (s *DrawServiceImpl) AssignManualWinner(ctx context.Context, caller Caller, prizeID primitive.ObjectID, memberID string) (*models.Winner, error) {
	if err := require(caller.Capabilities.CanAssignManual, CapAssignManual); err != nil {
		return nil, err
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, fmt.Errorf("%w: member id is required", ErrInvalidInput)
	}

	prize, err := s.prizeRepo.FindByID(ctx, prizeID)
	if err != nil {
		return nil, mapRepoErr(err, "prize")
	}
	if prize.AwardKind != models.AwardKindCommunitySupport {
		return nil, fmt.Errorf("%w: manual assignment requires a %s prize", ErrInvalidInput, models.AwardKindCommunitySupport)
	}
	draw, err := s.GetDraw(ctx, prize.DrawID)
	if err != nil {
		return nil, err
	}
	if draw.Status != models.DrawStatusAnnounced {
		return nil, fmt.Errorf("%w: assignment requires an announced draw, draw is %s", ErrInvalidState, draw.Status)
	}

	eligible, err := s.eligibility.IsEligible(ctx, draw, memberID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, ErrNotEligible
	}
	return s.selector.AssignManual(ctx, draw, prizeID, memberID, caller.ID)
}

// ExpireAndRedraw runs the expiry sweep for one draw on demand
func (s *DrawServiceImpl) ExpireAndRedraw(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*SweepResult, error) {
	if err := require(caller.Capabilities.CanRunExpiry, CapRunExpiry); err != nil {
		return nil, err
	}
	return s.expiry.ExpireAndRedraw(ctx, drawID, caller.ID)
}

// ListWinners returns every winner row of a draw
func (s *DrawServiceImpl) ListWinners(ctx context.Context, caller Caller, drawID primitive.ObjectID) ([]*models.Winner, error) {
	c := caller.Capabilities
	if !(c.CanManageDraws || c.CanRunSelection || c.CanAssignManual || c.CanManagePayouts) {
		return nil, fmt.Errorf("%w: listing winners requires an operator capability", ErrForbidden)
	}
	if _, err := s.GetDraw(ctx, drawID); err != nil {
		return nil, err
	}
	return s.winnerRepo.FindByDrawID(ctx, drawID)
}

// --- Claims and payouts ---

// Claim accepts a prize on behalf of the calling member
func (s *DrawServiceImpl) Claim(ctx context.Context, caller Caller, winnerID primitive.ObjectID) (*models.Winner, error) {
	if caller.MemberID == "" {
		return nil, ErrNotOwner
	}
	winner, err := s.claims.Claim(ctx, winnerID, caller.MemberID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditWinnerClaimed, caller.ID, AuditTarget{DrawID: winner.DrawID, PrizeID: winner.PrizeID, WinnerID: winner.ID}, nil)
	return winner, nil
}

// MarkPaid records a payout for a claimed winner
func (s *DrawServiceImpl) MarkPaid(ctx context.Context, caller Caller, winnerID primitive.ObjectID) (*models.Winner, error) {
	if err := require(caller.Capabilities.CanManagePayouts, CapManagePayouts); err != nil {
		return nil, err
	}
	winner, err := s.claims.MarkPaid(ctx, winnerID)
	if err != nil {
		return nil, err
	}
	slog.Info("Payout recorded", "winnerId", winner.ID.Hex(), "actor", caller.ID)
	s.audit.Record(ctx, AuditWinnerPaid, caller.ID, AuditTarget{DrawID: winner.DrawID, PrizeID: winner.PrizeID, WinnerID: winner.ID}, nil)
	return winner, nil
}

// ListRollovers returns ledger entries
func (s *DrawServiceImpl) ListRollovers(ctx context.Context, caller Caller, kind models.AwardKind, status models.RolloverStatus) ([]*models.RolloverEntry, error) {
	if err := require(caller.Capabilities.CanManageDraws, CapManageDraws); err != nil {
		return nil, err
	}
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown award kind %q", ErrInvalidInput, kind)
	}
	return s.ledger.List(ctx, kind, status)
}
