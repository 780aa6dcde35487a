package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConflictStatus is the lifecycle state of a pending conflict
type ConflictStatus string

const (
	ConflictStatusPending  ConflictStatus = "PENDING"
	ConflictStatusResolved ConflictStatus = "RESOLVED"
	ConflictStatusExpired  ConflictStatus = "EXPIRED"
)

// ResolutionAction is the human-chosen way to settle a pending conflict
type ResolutionAction string

const (
	ResolutionReject  ResolutionAction = "REJECT"
	ResolutionAccept  ResolutionAction = "ACCEPT"
	ResolutionPartial ResolutionAction = "PARTIAL"
	ResolutionAdjust  ResolutionAction = "ADJUST"
)

// IsValid checks if the resolution action is valid
func (a ResolutionAction) IsValid() bool {
	switch a {
	case ResolutionReject, ResolutionAccept, ResolutionPartial, ResolutionAdjust:
		return true
	}
	return false
}

// PendingConflict is a blocked-or-flagged event awaiting a human
// resolution. Resolution data is appended exactly once, never
// overwritten.
type PendingConflict struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ConflictID string             `bson:"conflictId" json:"conflictId"`
	TenantID   string             `bson:"tenantId" json:"tenantId"`

	Event    StockEvent      `bson:"event" json:"event"`
	Conflict ConflictDetails `bson:"conflict" json:"conflict"`

	Status ConflictStatus `bson:"status" json:"status"`

	Resolution        ResolutionAction `bson:"resolution,omitempty" json:"resolution,omitempty"`
	ResolvedBy        string           `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time       `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	ResolutionComment string           `bson:"resolutionComment,omitempty" json:"resolutionComment,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}

// NewPendingConflict records a conflicted event for human resolution
func NewPendingConflict(conflictID string, event *StockEvent, conflict *ConflictDetails, ttl time.Duration) *PendingConflict {
	now := time.Now().UTC()
	return &PendingConflict{
		ConflictID: conflictID,
		TenantID:   event.TenantID,
		Event:      *event,
		Conflict:   *conflict,
		Status:     ConflictStatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// IsExpired reports whether the conflict's resolution window has lapsed.
// Expiry is evaluated lazily on read; there is no background sweeper.
func (p *PendingConflict) IsExpired(now time.Time) bool {
	return p.Status == ConflictStatusPending && now.After(p.ExpiresAt)
}

// MarkExpired transitions a lapsed pending conflict to its terminal
// expired state
func (p *PendingConflict) MarkExpired(now time.Time) error {
	if p.Status != ConflictStatusPending {
		return ErrConflictResolved
	}
	p.Status = ConflictStatusExpired
	return nil
}

// Resolve appends the resolution outcome. A conflict resolves exactly
// once: any later attempt fails.
func (p *PendingConflict) Resolve(action ResolutionAction, resolvedBy, comment string, now time.Time) error {
	switch p.Status {
	case ConflictStatusResolved:
		return ErrConflictResolved
	case ConflictStatusExpired:
		return ErrConflictExpired
	}
	if p.IsExpired(now) {
		p.Status = ConflictStatusExpired
		return ErrConflictExpired
	}

	resolvedAt := now
	p.Status = ConflictStatusResolved
	p.Resolution = action
	p.ResolvedBy = resolvedBy
	p.ResolvedAt = &resolvedAt
	p.ResolutionComment = comment
	return nil
}
