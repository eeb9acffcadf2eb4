package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClaimStatus is the per-winner claim state
type ClaimStatus string

const (
	ClaimStatusPending ClaimStatus = "PENDING"
	ClaimStatusClaimed ClaimStatus = "CLAIMED"
	ClaimStatusExpired ClaimStatus = "EXPIRED"
)

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusPending: {ClaimStatusClaimed, ClaimStatusExpired},
	ClaimStatusClaimed: {},
	ClaimStatusExpired: {},
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	for _, allowed := range claimTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further claim transitions are possible
func (s ClaimStatus) Terminal() bool {
	return len(claimTransitions[s]) == 0
}

// PayoutStatus is advanced by the external payout system
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "PENDING"
	PayoutStatusPaid    PayoutStatus = "PAID"
)

// SelectedBySystem marks winners picked by random selection
const SelectedBySystem = "system"

// Winner binds one member to one prize slot.
// ActiveSlot is set while the winner holds the slot (PENDING or CLAIMED) and removed on expiry;
// the store keeps (prizeId, activeSlot) unique. Redraw marks a winner drawn by the sweep to
// replace an expired claim.
type Winner struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DrawID        primitive.ObjectID `bson:"drawId" json:"drawId"`
	PrizeID       primitive.ObjectID `bson:"prizeId" json:"prizeId"`
	MemberID      string             `bson:"memberId" json:"memberId"`
	AwardKind     AwardKind          `bson:"awardKind" json:"awardKind"`
	Value         decimal.Decimal    `bson:"value" json:"value"`
	Currency      string             `bson:"currency" json:"currency"`
	Slot          int                `bson:"slot" json:"slot"`
	ActiveSlot    *int               `bson:"activeSlot,omitempty" json:"-"`
	SelectedBy    string             `bson:"selectedBy" json:"selectedBy"`
	Redraw        bool               `bson:"redraw,omitempty" json:"redraw,omitempty"`
	SelectedAt    time.Time          `bson:"selectedAt" json:"selectedAt"`
	ClaimStatus   ClaimStatus        `bson:"claimStatus" json:"claimStatus"`
	ClaimDeadline time.Time          `bson:"claimDeadline" json:"claimDeadline"`
	ClaimedAt     *time.Time         `bson:"claimedAt,omitempty" json:"claimedAt,omitempty"`
	ExpiredAt     *time.Time         `bson:"expiredAt,omitempty" json:"expiredAt,omitempty"`
	PayoutStatus  PayoutStatus       `bson:"payoutStatus" json:"payoutStatus"`
	PaidAt        *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HoldsSlot reports whether the winner still counts towards the prize's filled slots
func (w *Winner) HoldsSlot() bool {
	return w.ClaimStatus == ClaimStatusPending || w.ClaimStatus == ClaimStatusClaimed
}

// PastDeadline reports whether the claim window has closed at now
func (w *Winner) PastDeadline(now time.Time) bool {
	return now.After(w.ClaimDeadline)
}
