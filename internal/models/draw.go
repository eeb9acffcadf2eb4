package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DrawStatus represents the lifecycle status of a draw
type DrawStatus string

const (
	DrawStatusComingSoon DrawStatus = "COMING_SOON"
	DrawStatusAnnounced  DrawStatus = "ANNOUNCED"
	DrawStatusCompleted  DrawStatus = "COMPLETED"
)

// drawTransitions lists every legal draw status change.
// ANNOUNCED -> COMING_SOON is additionally guarded by "no winners yet" in the service layer.
var drawTransitions = map[DrawStatus][]DrawStatus{
	DrawStatusComingSoon: {DrawStatusAnnounced},
	DrawStatusAnnounced:  {DrawStatusCompleted, DrawStatusComingSoon},
	DrawStatusCompleted:  {},
}

// Valid reports whether s is a known draw status
func (s DrawStatus) Valid() bool {
	_, ok := drawTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s DrawStatus) CanTransitionTo(next DrawStatus) bool {
	for _, allowed := range drawTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Draw represents one periodic allocation cycle
type Draw struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Scope                 string             `bson:"scope" json:"scope"` // country/region code, e.g. "BD"
	ScheduledDate         time.Time          `bson:"scheduledDate" json:"scheduledDate"`
	Status                DrawStatus         `bson:"status" json:"status"`
	ForecastParticipants  int                `bson:"forecastParticipants" json:"forecastParticipants"`
	EstimatedPoolAmount   decimal.Decimal    `bson:"estimatedPoolAmount" json:"estimatedPoolAmount"`
	EstimatedPoolCurrency string             `bson:"estimatedPoolCurrency" json:"estimatedPoolCurrency"`
	Disclaimer            string             `bson:"disclaimer,omitempty" json:"disclaimer,omitempty"`
	CreatedBy             string             `bson:"createdBy" json:"createdBy"`
	AnnouncedAt           time.Time          `bson:"announcedAt,omitempty" json:"announcedAt,omitempty"`
	CompletedAt           time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt             time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt" json:"updatedAt"`
}
