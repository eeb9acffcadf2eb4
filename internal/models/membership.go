package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipStatus mirrors the membership system's status values
type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "ACTIVE"
	MembershipStatusSuspended MembershipStatus = "SUSPENDED"
	MembershipStatusCancelled MembershipStatus = "CANCELLED"
)

// Membership is the read model the engine consumes from the membership system
type Membership struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MemberID      string             `bson:"memberId" json:"memberId"`
	Name          string             `bson:"name" json:"name"`
	MSISDN        string             `bson:"msisdn" json:"msisdn"`
	Country       string             `bson:"country" json:"country"`
	Status        MembershipStatus   `bson:"status" json:"status"`
	EndDate       time.Time          `bson:"endDate" json:"endDate"`
	IsBlacklisted bool               `bson:"isBlacklisted" json:"isBlacklisted"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ActiveAt reports whether the membership is in good standing at now
func (m *Membership) ActiveAt(now time.Time) bool {
	return m.Status == MembershipStatusActive && m.EndDate.After(now) && !m.IsBlacklisted
}

// Entry is a member's single participation ticket for a draw
type Entry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DrawID    primitive.ObjectID `bson:"drawId" json:"drawId"`
	MemberID  string             `bson:"memberId" json:"memberId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
