package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AwardKind distinguishes lottery-selected prizes from admin hand-picked ones
type AwardKind string

const (
	AwardKindRandomDraw       AwardKind = "RANDOM_DRAW"
	AwardKindCommunitySupport AwardKind = "COMMUNITY_SUPPORT"
)

// Valid reports whether k is a known award kind
func (k AwardKind) Valid() bool {
	return k == AwardKindRandomDraw || k == AwardKindCommunitySupport
}

// Prize defines a named reward within a draw.
// Value is the per-slot amount a winner receives: BaseValue plus the slot's share of any
// rollover folded in at creation time.
type Prize struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DrawID          primitive.ObjectID `bson:"drawId" json:"drawId"`
	Title           string             `bson:"title" json:"title"`
	AwardKind       AwardKind          `bson:"awardKind" json:"awardKind"`
	BaseValue       decimal.Decimal    `bson:"baseValue" json:"baseValue"`
	RolloverAmount  decimal.Decimal    `bson:"rolloverAmount" json:"rolloverAmount"` // total folded in across all slots
	Value           decimal.Decimal    `bson:"value" json:"value"`
	Currency        string             `bson:"currency" json:"currency"`
	SlotCount       int                `bson:"slotCount" json:"slotCount"`
	RolledOverSlots int                `bson:"rolledOverSlots" json:"rolledOverSlots"` // slots written off to the rollover ledger
	Active          bool               `bson:"active" json:"active"`
	CreatedBy       string             `bson:"createdBy" json:"createdBy"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Capacity is the number of slots that can still hold a valid winner.
func (p *Prize) Capacity() int {
	c := p.SlotCount - p.RolledOverSlots
	if c < 0 {
		return 0
	}
	return c
}

// AdvertisedTotal is the full value on offer for the prize.
func (p *Prize) AdvertisedTotal() decimal.Decimal {
	return p.Value.Mul(decimal.NewFromInt(int64(p.SlotCount)))
}
