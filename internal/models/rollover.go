package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RolloverStatus tracks whether a ledger entry has been folded into a later prize
type RolloverStatus string

const (
	RolloverStatusOutstanding RolloverStatus = "OUTSTANDING"
	RolloverStatusConsumed    RolloverStatus = "CONSUMED"
)

// Reasons recorded on rollover entries
const (
	RolloverReasonInsufficientPool  = "INSUFFICIENT_ELIGIBLE_POOL"
	RolloverReasonRoundingRemainder = "ROUNDING_REMAINDER"
	RolloverReasonReissued          = "REISSUED_AFTER_FAILED_PRIZE_CREATE"
	RolloverReasonClaimExpired      = "CLAIM_EXPIRED"
	RolloverReasonPrizeDeactivated  = "PRIZE_DEACTIVATED"
)

// RolloverEntry records value carried from one prize into a future prize of the same award kind.
// Entries are append-only; consumption only flips Status and fills the destination.
type RolloverEntry struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	SourceDrawID       primitive.ObjectID  `bson:"sourceDrawId" json:"sourceDrawId"`
	SourcePrizeID      primitive.ObjectID  `bson:"sourcePrizeId" json:"sourcePrizeId"`
	DestinationDrawID  *primitive.ObjectID `bson:"destinationDrawId,omitempty" json:"destinationDrawId,omitempty"`
	DestinationPrizeID *primitive.ObjectID `bson:"destinationPrizeId,omitempty" json:"destinationPrizeId,omitempty"`
	AwardKind          AwardKind           `bson:"awardKind" json:"awardKind"`
	Amount             decimal.Decimal     `bson:"amount" json:"amount"`
	Currency           string              `bson:"currency" json:"currency"`
	Slots              int                 `bson:"slots" json:"slots"`
	Reason             string              `bson:"reason" json:"reason"`
	Status             RolloverStatus      `bson:"status" json:"status"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	ConsumedAt         *time.Time          `bson:"consumedAt,omitempty" json:"consumedAt,omitempty"`
}
