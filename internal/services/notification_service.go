package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"github.com/ArowuTest/prizedraw-engine/internal/utils"
	"github.com/ArowuTest/prizedraw-engine/pkg/smsgateway"
	"golang.org/x/exp/slog"
)

// Notifier tells members about winner state changes. Implementations must not block the caller
// and must never fail the operation that triggered them.
type Notifier interface {
	NotifyWinner(winner *models.Winner)
	NotifyExpired(winner *models.Winner)
}

// Compile-time check to ensure SMSNotifier implements Notifier
var _ Notifier = (*SMSNotifier)(nil)

// SMSNotifier sends SMS through a gateway and keeps a Notification record per message
type SMSNotifier struct {
	notificationRepo repositories.NotificationRepository
	membershipRepo   repositories.MembershipRepository
	gateway          smsgateway.Gateway
	timeout          time.Duration
	wg               sync.WaitGroup
}

// NewSMSNotifier creates a new SMSNotifier
func NewSMSNotifier(
	notificationRepo repositories.NotificationRepository,
	membershipRepo repositories.MembershipRepository,
	gateway smsgateway.Gateway,
) *SMSNotifier {
	return &SMSNotifier{
		notificationRepo: notificationRepo,
		membershipRepo:   membershipRepo,
		gateway:          gateway,
		timeout:          30 * time.Second,
	}
}

// NotifyWinner announces a new win with its claim deadline
func (n *SMSNotifier) NotifyWinner(winner *models.Winner) {
	content := fmt.Sprintf("Congratulations! You have won %s %s. Claim your prize before %s.",
		winner.Value.StringFixed(2), winner.Currency, winner.ClaimDeadline.Format("2 Jan 2006 15:04 MST"))
	n.dispatch(winner, models.NotificationTypeWinner, content)
}

// NotifyExpired tells the member the claim window closed
func (n *SMSNotifier) NotifyExpired(winner *models.Winner) {
	content := fmt.Sprintf("Your claim window for %s %s has closed and the prize has been reassigned.",
		winner.Value.StringFixed(2), winner.Currency)
	n.dispatch(winner, models.NotificationTypeExpiry, content)
}

// Wait blocks until every in-flight message has been handled
func (n *SMSNotifier) Wait() {
	n.wg.Wait()
}

func (n *SMSNotifier) dispatch(winner *models.Winner, notificationType, content string) {
	w := *winner
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		n.send(ctx, &w, notificationType, content)
	}()
}

func (n *SMSNotifier) send(ctx context.Context, winner *models.Winner, notificationType, content string) {
	membership, err := n.membershipRepo.FindByMemberID(ctx, winner.MemberID)
	if err != nil {
		slog.Warn("Skipping notification, membership lookup failed", "error", err, "memberId", utils.MaskMemberID(winner.MemberID))
		return
	}
	if membership.MSISDN == "" {
		slog.Warn("Skipping notification, member has no MSISDN", "memberId", utils.MaskMemberID(winner.MemberID))
		return
	}

	notification := &models.Notification{
		MemberID: winner.MemberID,
		WinnerID: winner.ID,
		MSISDN:   membership.MSISDN,
		Content:  content,
		Type:     notificationType,
		Status:   models.NotificationStatusPending,
		Gateway:  n.gateway.Name(),
	}
	if err := n.notificationRepo.Create(ctx, notification); err != nil {
		slog.Error("Failed to store notification", "error", err, "winnerId", winner.ID.Hex())
		return
	}

	messageID, err := n.gateway.SendSMS(ctx, membership.MSISDN, content)
	if err != nil {
		slog.Error("Failed to send SMS", "error", err, "msisdn", utils.MaskMSISDN(membership.MSISDN), "gateway", n.gateway.Name())
		if uerr := n.notificationRepo.UpdateStatus(ctx, notification.ID, models.NotificationStatusFailed, "", err.Error()); uerr != nil {
			slog.Error("Failed to update notification status", "error", uerr, "notificationId", notification.ID.Hex())
		}
		return
	}

	if err := n.notificationRepo.UpdateStatus(ctx, notification.ID, models.NotificationStatusSent, messageID, ""); err != nil {
		slog.Error("Failed to update notification status", "error", err, "notificationId", notification.ID.Hex())
		return
	}
	slog.Info("Notification sent", "type", notificationType, "msisdn", utils.MaskMSISDN(membership.MSISDN), "messageId", messageID)
}

// noopNotifier is used when no notifier is configured
type noopNotifier struct{}

func (noopNotifier) NotifyWinner(*models.Winner)  {}
func (noopNotifier) NotifyExpired(*models.Winner) {}
