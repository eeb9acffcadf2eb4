// Package memory holds map-backed repositories that honour the same unique-key and
// conditional-update contracts as the MongoDB implementation. It backs the service and
// handler tests and can run the API without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store owns every collection behind a single mutex
type Store struct {
	mu            sync.Mutex
	draws         map[primitive.ObjectID]models.Draw
	prizes        map[primitive.ObjectID]models.Prize
	entries       map[primitive.ObjectID]models.Entry
	memberships   map[string]models.Membership
	winners       map[primitive.ObjectID]models.Winner
	rollovers     map[primitive.ObjectID]models.RolloverEntry
	audit         []models.AuditEntry
	notifications map[primitive.ObjectID]models.Notification
	locks         map[string]lease
}

type lease struct {
	owner     string
	expiresAt time.Time
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		draws:         map[primitive.ObjectID]models.Draw{},
		prizes:        map[primitive.ObjectID]models.Prize{},
		entries:       map[primitive.ObjectID]models.Entry{},
		memberships:   map[string]models.Membership{},
		winners:       map[primitive.ObjectID]models.Winner{},
		rollovers:     map[primitive.ObjectID]models.RolloverEntry{},
		notifications: map[primitive.ObjectID]models.Notification{},
		locks:         map[string]lease{},
	}
}

func (s *Store) Draws() *DrawRepository                 { return &DrawRepository{s} }
func (s *Store) Prizes() *PrizeRepository               { return &PrizeRepository{s} }
func (s *Store) Entries() *EntryRepository              { return &EntryRepository{s} }
func (s *Store) Memberships() *MembershipRepository     { return &MembershipRepository{s} }
func (s *Store) Winners() *WinnerRepository             { return &WinnerRepository{s} }
func (s *Store) Rollovers() *RolloverRepository         { return &RolloverRepository{s} }
func (s *Store) Audit() *AuditRepository                { return &AuditRepository{s} }
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s} }
func (s *Store) Locker() *Locker                        { return &Locker{s} }

// AuditEntries returns a copy of the audit log
func (s *Store) AuditEntries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%w: %s %v", repositories.ErrNotFound, kind, id)
}

// DrawRepository is the in-memory repositories.DrawRepository
type DrawRepository struct{ s *Store }

var _ repositories.DrawRepository = (*DrawRepository)(nil)

func (r *DrawRepository) Create(_ context.Context, draw *models.Draw) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if draw.ID.IsZero() {
		draw.ID = primitive.NewObjectID()
	}
	if _, ok := r.s.draws[draw.ID]; ok {
		return repositories.ErrDuplicate
	}
	draw.CreatedAt = time.Now()
	draw.UpdatedAt = draw.CreatedAt
	r.s.draws[draw.ID] = *draw
	return nil
}

func (r *DrawRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Draw, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.draws[id]
	if !ok {
		return nil, notFound("draw", id.Hex())
	}
	return &d, nil
}

func (r *DrawRepository) FindByStatus(_ context.Context, status models.DrawStatus) ([]*models.Draw, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Draw{}
	for _, d := range r.s.draws {
		if d.Status == status {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (r *DrawRepository) FindAll(_ context.Context, page, limit int) ([]*models.Draw, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*models.Draw, 0, len(r.s.draws))
	for _, d := range r.s.draws {
		d := d
		all = append(all, &d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledDate.After(all[j].ScheduledDate) })
	return paginate(all, page, limit), nil
}

func (r *DrawRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.DrawStatus, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.draws[id]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	d.UpdatedAt = at
	switch to {
	case models.DrawStatusAnnounced:
		d.AnnouncedAt = at
	case models.DrawStatusCompleted:
		d.CompletedAt = at
	}
	r.s.draws[id] = d
	return true, nil
}

func (r *DrawRepository) AddToEstimatedPool(_ context.Context, id primitive.ObjectID, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.draws[id]
	if !ok {
		return notFound("draw", id.Hex())
	}
	d.EstimatedPoolAmount = d.EstimatedPoolAmount.Add(amount)
	d.UpdatedAt = time.Now()
	r.s.draws[id] = d
	return nil
}

// PrizeRepository is the in-memory repositories.PrizeRepository
type PrizeRepository struct{ s *Store }

var _ repositories.PrizeRepository = (*PrizeRepository)(nil)

func (r *PrizeRepository) Create(_ context.Context, prize *models.Prize) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if prize.ID.IsZero() {
		prize.ID = primitive.NewObjectID()
	}
	if _, ok := r.s.prizes[prize.ID]; ok {
		return repositories.ErrDuplicate
	}
	prize.CreatedAt = time.Now()
	prize.UpdatedAt = prize.CreatedAt
	r.s.prizes[prize.ID] = *prize
	return nil
}

func (r *PrizeRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Prize, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.prizes[id]
	if !ok {
		return nil, notFound("prize", id.Hex())
	}
	return &p, nil
}

func (r *PrizeRepository) FindByDrawID(_ context.Context, drawID primitive.ObjectID, activeOnly bool) ([]*models.Prize, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Prize{}
	for _, p := range r.s.prizes {
		if p.DrawID != drawID || (activeOnly && !p.Active) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (r *PrizeRepository) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.prizes[id]
	if !ok {
		return notFound("prize", id.Hex())
	}
	p.Active = active
	p.UpdatedAt = time.Now()
	r.s.prizes[id] = p
	return nil
}

func (r *PrizeRepository) IncrementRolledOverSlots(_ context.Context, id primitive.ObjectID, expected, delta int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.prizes[id]
	if !ok || p.RolledOverSlots != expected {
		return false, nil
	}
	p.RolledOverSlots += delta
	p.UpdatedAt = time.Now()
	r.s.prizes[id] = p
	return true, nil
}

// EntryRepository is the in-memory repositories.EntryRepository
type EntryRepository struct{ s *Store }

var _ repositories.EntryRepository = (*EntryRepository)(nil)

func (r *EntryRepository) Create(_ context.Context, entry *models.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.DrawID == entry.DrawID && e.MemberID == entry.MemberID {
			return repositories.ErrDuplicate
		}
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.s.entries[entry.ID] = *entry
	return nil
}

func (r *EntryRepository) Exists(_ context.Context, drawID primitive.ObjectID, memberID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.DrawID == drawID && e.MemberID == memberID {
			return true, nil
		}
	}
	return false, nil
}

func (r *EntryRepository) FindMemberIDsByDrawID(_ context.Context, drawID primitive.ObjectID) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []string{}
	for _, e := range r.s.entries {
		if e.DrawID == drawID {
			ids = append(ids, e.MemberID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *EntryRepository) CountByDrawID(_ context.Context, drawID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, e := range r.s.entries {
		if e.DrawID == drawID {
			n++
		}
	}
	return n, nil
}

// MembershipRepository is the in-memory repositories.MembershipRepository
type MembershipRepository struct{ s *Store }

var _ repositories.MembershipRepository = (*MembershipRepository)(nil)

func (r *MembershipRepository) FindByMemberID(_ context.Context, memberID string) (*models.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memberships[memberID]
	if !ok {
		return nil, notFound("membership", memberID)
	}
	return &m, nil
}

func (r *MembershipRepository) FindByMemberIDs(_ context.Context, memberIDs []string) ([]*models.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Membership{}
	for _, id := range memberIDs {
		if m, ok := r.s.memberships[id]; ok {
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *MembershipRepository) Upsert(_ context.Context, membership *models.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	if existing, ok := r.s.memberships[membership.MemberID]; ok {
		membership.ID = existing.ID
		membership.CreatedAt = existing.CreatedAt
	} else {
		membership.ID = primitive.NewObjectID()
		membership.CreatedAt = now
	}
	membership.UpdatedAt = now
	r.s.memberships[membership.MemberID] = *membership
	return nil
}

// WinnerRepository is the in-memory repositories.WinnerRepository
type WinnerRepository struct{ s *Store }

var _ repositories.WinnerRepository = (*WinnerRepository)(nil)

func cloneWinner(w models.Winner) *models.Winner {
	if w.ActiveSlot != nil {
		slot := *w.ActiveSlot
		w.ActiveSlot = &slot
	}
	return &w
}

func (r *WinnerRepository) Create(_ context.Context, winner *models.Winner) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.winners {
		if w.PrizeID != winner.PrizeID {
			continue
		}
		if w.MemberID == winner.MemberID {
			return fmt.Errorf("%w: member %s already holds prize %s", repositories.ErrDuplicate, winner.MemberID, winner.PrizeID.Hex())
		}
		if w.ActiveSlot != nil && winner.ActiveSlot != nil && *w.ActiveSlot == *winner.ActiveSlot {
			return fmt.Errorf("%w: slot %d of prize %s is taken", repositories.ErrDuplicate, *winner.ActiveSlot, winner.PrizeID.Hex())
		}
	}
	if winner.ID.IsZero() {
		winner.ID = primitive.NewObjectID()
	}
	winner.CreatedAt = time.Now()
	winner.UpdatedAt = winner.CreatedAt
	r.s.winners[winner.ID] = *cloneWinner(*winner)
	return nil
}

func (r *WinnerRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Winner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.winners[id]
	if !ok {
		return nil, notFound("winner", id.Hex())
	}
	return cloneWinner(w), nil
}

func (r *WinnerRepository) filter(keep func(models.Winner) bool) []*models.Winner {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Winner{}
	for _, w := range r.s.winners {
		if keep(w) {
			out = append(out, cloneWinner(w))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SelectedAt.Equal(out[j].SelectedAt) {
			return out[i].SelectedAt.Before(out[j].SelectedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out
}

func (r *WinnerRepository) FindByDrawID(_ context.Context, drawID primitive.ObjectID) ([]*models.Winner, error) {
	return r.filter(func(w models.Winner) bool { return w.DrawID == drawID }), nil
}

func (r *WinnerRepository) FindByPrizeID(_ context.Context, prizeID primitive.ObjectID) ([]*models.Winner, error) {
	return r.filter(func(w models.Winner) bool { return w.PrizeID == prizeID }), nil
}

func (r *WinnerRepository) FindExpiredPending(_ context.Context, drawID primitive.ObjectID, now time.Time) ([]*models.Winner, error) {
	return r.filter(func(w models.Winner) bool {
		return w.DrawID == drawID && w.ClaimStatus == models.ClaimStatusPending && w.ClaimDeadline.Before(now)
	}), nil
}

func (r *WinnerRepository) CountByDrawID(_ context.Context, drawID primitive.ObjectID) (int64, error) {
	return int64(len(r.filter(func(w models.Winner) bool { return w.DrawID == drawID }))), nil
}

func (r *WinnerRepository) update(id primitive.ObjectID, apply func(*models.Winner) bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.winners[id]
	if !ok || !apply(&w) {
		return false, nil
	}
	r.s.winners[id] = w
	return true, nil
}

func (r *WinnerRepository) MarkClaimed(_ context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	return r.update(id, func(w *models.Winner) bool {
		if w.ClaimStatus != models.ClaimStatusPending || w.ClaimDeadline.Before(now) {
			return false
		}
		w.ClaimStatus = models.ClaimStatusClaimed
		w.ClaimedAt = &now
		w.UpdatedAt = now
		return true
	})
}

func (r *WinnerRepository) MarkExpired(_ context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	return r.update(id, func(w *models.Winner) bool {
		if w.ClaimStatus != models.ClaimStatusPending || !w.ClaimDeadline.Before(now) {
			return false
		}
		w.ClaimStatus = models.ClaimStatusExpired
		w.ExpiredAt = &now
		w.ActiveSlot = nil
		w.UpdatedAt = now
		return true
	})
}

func (r *WinnerRepository) MarkPaid(_ context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	return r.update(id, func(w *models.Winner) bool {
		if w.ClaimStatus != models.ClaimStatusClaimed || w.PayoutStatus != models.PayoutStatusPending {
			return false
		}
		w.PayoutStatus = models.PayoutStatusPaid
		w.PaidAt = &now
		w.UpdatedAt = now
		return true
	})
}

// RolloverRepository is the in-memory repositories.RolloverRepository
type RolloverRepository struct{ s *Store }

var _ repositories.RolloverRepository = (*RolloverRepository)(nil)

func (r *RolloverRepository) Create(_ context.Context, entry *models.RolloverEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.s.rollovers[entry.ID] = *entry
	return nil
}

func (r *RolloverRepository) filter(keep func(models.RolloverEntry) bool) []*models.RolloverEntry {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.RolloverEntry{}
	for _, e := range r.s.rollovers {
		if keep(e) {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

func (r *RolloverRepository) FindOutstanding(_ context.Context, kind models.AwardKind, currency string) ([]*models.RolloverEntry, error) {
	return r.filter(func(e models.RolloverEntry) bool {
		return e.AwardKind == kind && e.Currency == currency && e.Status == models.RolloverStatusOutstanding
	}), nil
}

func (r *RolloverRepository) FindBySourceDrawID(_ context.Context, drawID primitive.ObjectID) ([]*models.RolloverEntry, error) {
	return r.filter(func(e models.RolloverEntry) bool { return e.SourceDrawID == drawID }), nil
}

func (r *RolloverRepository) FindAll(_ context.Context, kind models.AwardKind, status models.RolloverStatus) ([]*models.RolloverEntry, error) {
	return r.filter(func(e models.RolloverEntry) bool {
		return (kind == "" || e.AwardKind == kind) && (status == "" || e.Status == status)
	}), nil
}

func (r *RolloverRepository) Consume(_ context.Context, id, destDrawID, destPrizeID primitive.ObjectID, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.rollovers[id]
	if !ok || e.Status != models.RolloverStatusOutstanding {
		return false, nil
	}
	e.Status = models.RolloverStatusConsumed
	e.DestinationDrawID = &destDrawID
	e.DestinationPrizeID = &destPrizeID
	e.ConsumedAt = &at
	r.s.rollovers[id] = e
	return true, nil
}

// AuditRepository is the in-memory repositories.AuditRepository
type AuditRepository struct{ s *Store }

var _ repositories.AuditRepository = (*AuditRepository)(nil)

func (r *AuditRepository) Append(_ context.Context, entry *models.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

// NotificationRepository is the in-memory repositories.NotificationRepository
type NotificationRepository struct{ s *Store }

var _ repositories.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	r.s.notifications[n.ID] = *n
	return nil
}

func (r *NotificationRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status, messageID, errMsg string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return notFound("notification", id.Hex())
	}
	n.Status = status
	if messageID != "" {
		n.MessageID = messageID
	}
	if errMsg != "" {
		n.Error = errMsg
	}
	n.UpdatedAt = time.Now()
	if status == models.NotificationStatusSent {
		n.SentDate = n.UpdatedAt
	}
	r.s.notifications[id] = n
	return nil
}

func (r *NotificationRepository) FindByMemberID(_ context.Context, memberID string, page, limit int) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*models.Notification{}
	for _, n := range r.s.notifications {
		if n.MemberID == memberID {
			n := n
			all = append(all, &n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.Hex() > all[j].ID.Hex() })
	return paginate(all, page, limit), nil
}

// Locker is the in-memory repositories.PrizeLocker
type Locker struct{ s *Store }

var _ repositories.PrizeLocker = (*Locker)(nil)

func (l *Locker) Lock(_ context.Context, key, owner string, ttl time.Duration) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	now := time.Now()
	if cur, ok := l.s.locks[key]; ok && cur.expiresAt.After(now) {
		return repositories.ErrLockHeld
	}
	l.s.locks[key] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return nil
}

func (l *Locker) Unlock(_ context.Context, key, owner string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if cur, ok := l.s.locks[key]; ok && cur.owner == owner {
		delete(l.s.locks, key)
	}
	return nil
}

func paginate[T any](all []T, page, limit int) []T {
	if limit <= 0 {
		return all
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []T{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
