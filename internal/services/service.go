package services

import (
	"context"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateDrawInput carries the fields an operator sets on a new draw
type CreateDrawInput struct {
	Scope                 string    `json:"scope"`
	ScheduledDate         time.Time `json:"scheduledDate" binding:"required"`
	ForecastParticipants  int       `json:"forecastParticipants"`
	EstimatedPoolCurrency string    `json:"estimatedPoolCurrency" binding:"required"`
	Disclaimer            string    `json:"disclaimer"`
}

// CreatePrizeInput carries the fields an operator sets on a new prize
type CreatePrizeInput struct {
	DrawID    primitive.ObjectID `json:"-"`
	Title     string             `json:"title" binding:"required"`
	AwardKind models.AwardKind   `json:"awardKind" binding:"required"`
	BaseValue decimal.Decimal    `json:"value"`
	Currency  string             `json:"currency" binding:"required"`
	SlotCount int                `json:"slotCount" binding:"required"`
}

// SelectionResult is the outcome of RunSelection across a draw's prizes
type SelectionResult struct {
	DrawID primitive.ObjectID `json:"drawId"`
	Prizes []*PrizeOutcome    `json:"prizes"`
}

// DrawService defines the engine operations exposed to transports
type DrawService interface {
	CreateDraw(ctx context.Context, caller Caller, in CreateDrawInput) (*models.Draw, error)
	AnnounceDraw(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*models.Draw, error)
	RevertDraw(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*models.Draw, error)
	GetDraw(ctx context.Context, drawID primitive.ObjectID) (*models.Draw, error)
	ListDraws(ctx context.Context, page, limit int) ([]*models.Draw, error)

	CreatePrize(ctx context.Context, caller Caller, in CreatePrizeInput) (*models.Prize, error)
	DeactivatePrize(ctx context.Context, caller Caller, prizeID primitive.ObjectID) (*models.Prize, error)
	ListPrizes(ctx context.Context, drawID primitive.ObjectID) ([]*models.Prize, error)

	EnterDraw(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*models.Entry, error)
	RunSelection(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*SelectionResult, error)
	AssignManualWinner(ctx context.Context, caller Caller, prizeID primitive.ObjectID, memberID string) (*models.Winner, error)
	ExpireAndRedraw(ctx context.Context, caller Caller, drawID primitive.ObjectID) (*SweepResult, error)
	ListWinners(ctx context.Context, caller Caller, drawID primitive.ObjectID) ([]*models.Winner, error)

	Claim(ctx context.Context, caller Caller, winnerID primitive.ObjectID) (*models.Winner, error)
	MarkPaid(ctx context.Context, caller Caller, winnerID primitive.ObjectID) (*models.Winner, error)

	ListRollovers(ctx context.Context, caller Caller, kind models.AwardKind, status models.RolloverStatus) ([]*models.RolloverEntry, error)
}
