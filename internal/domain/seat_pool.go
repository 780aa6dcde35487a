package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripSeatPool is the seat-count aggregate for one transport trip.
// Seats are discrete and non-fungible across passengers, so booking
// fails closed when requested seats exceed availability.
type TripSeatPool struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TripID   string             `bson:"tripId" json:"tripId"`
	TenantID string             `bson:"tenantId" json:"tenantId"`

	TotalSeats     int `bson:"totalSeats" json:"totalSeats"`
	BookedSeats    int `bson:"bookedSeats" json:"bookedSeats"`
	AvailableSeats int `bson:"availableSeats" json:"availableSeats"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewTripSeatPool creates a seat pool with all seats available
func NewTripSeatPool(tenantID, tripID string, totalSeats int) *TripSeatPool {
	now := time.Now().UTC()
	return &TripSeatPool{
		TripID:         tripID,
		TenantID:       tenantID,
		TotalSeats:     totalSeats,
		AvailableSeats: totalSeats,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Book reserves seats. Returns a capacity conflict when the request
// exceeds availability; no partial booking is ever made.
func (p *TripSeatPool) Book(seats int) (*ConflictDetails, error) {
	if seats <= 0 {
		return nil, ErrInvalidQuantity
	}
	if seats > p.AvailableSeats {
		return &ConflictDetails{
			Type:                ConflictCapacityExceeded,
			Severity:            SeverityCritical,
			RequestedQuantity:   seats,
			AvailableQuantity:   p.AvailableSeats,
			Shortage:            seats - p.AvailableSeats,
			Message:             fmt.Sprintf("requested %d seats but only %d available on trip %s", seats, p.AvailableSeats, p.TripID),
			SuggestedResolution: SuggestReject,
		}, nil
	}

	p.BookedSeats += seats
	p.AvailableSeats -= seats
	p.UpdatedAt = time.Now().UTC()
	return nil, nil
}

// CancelBooking releases previously booked seats, floored at zero
func (p *TripSeatPool) CancelBooking(seats int) error {
	if seats <= 0 {
		return ErrInvalidQuantity
	}
	if seats > p.BookedSeats {
		seats = p.BookedSeats
	}

	p.BookedSeats -= seats
	p.AvailableSeats += seats
	if p.AvailableSeats > p.TotalSeats {
		p.AvailableSeats = p.TotalSeats
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}
