package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationTypeWinner = "WINNER"
	NotificationTypeExpiry = "CLAIM_EXPIRED"
)

// Notification statuses
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification represents a message sent to a member
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MemberID  string             `bson:"memberId" json:"memberId"`
	WinnerID  primitive.ObjectID `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	MSISDN    string             `bson:"msisdn" json:"msisdn"`
	Content   string             `bson:"content" json:"content"`
	Type      string             `bson:"type" json:"type"`
	Status    string             `bson:"status" json:"status"`
	Gateway   string             `bson:"gateway" json:"gateway"`
	MessageID string             `bson:"messageId,omitempty" json:"messageId,omitempty"`
	Error     string             `bson:"error,omitempty" json:"error,omitempty"`
	SentDate  time.Time          `bson:"sentDate,omitempty" json:"sentDate,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AuditEntry is an append-only record of an engine mutation
type AuditEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Action    string             `bson:"action" json:"action"`
	ActorID   string             `bson:"actorId" json:"actorId"`
	DrawID    primitive.ObjectID `bson:"drawId,omitempty" json:"drawId,omitempty"`
	PrizeID   primitive.ObjectID `bson:"prizeId,omitempty" json:"prizeId,omitempty"`
	WinnerID  primitive.ObjectID `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	Details   map[string]any     `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
