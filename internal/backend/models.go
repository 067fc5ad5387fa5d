package backend

import (
	"strings"

	"github.com/richxcame/ride-booking-client/internal/location"
)

// BookingStatus is the server-side lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending        BookingStatus = "PENDING"
	StatusAccepted       BookingStatus = "ACCEPTED"
	StatusDriverAssigned BookingStatus = "DRIVER_ASSIGNED"
	StatusFinished       BookingStatus = "FINISHED"
	StatusCompleted      BookingStatus = "COMPLETED"
	StatusCancelled      BookingStatus = "CANCELLED"
)

// ParseStatus upper-cases and trims s.
func ParseStatus(s string) BookingStatus {
	return BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
}

// IsAssigned reports whether a driver has taken the booking.
func (s BookingStatus) IsAssigned() bool {
	return s == StatusAccepted || s == StatusDriverAssigned
}

// IsTerminal reports whether the ride lifecycle has ended.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Driver availability states
const (
	DriverOffline   = "OFFLINE"
	DriverAvailable = "AVAILABLE"
)

// DriverContact is what the rider sees once a driver is assigned.
type DriverContact struct {
	Name        string
	Phone       string
	Vehicle     string
	PlateNumber string
}

// Booking is the canonical client-side record of a booking or ride request.
type Booking struct {
	ID            string
	StartLocation string
	EndLocation   string
	Distance      float64
	EstimatedTime int
	EstimatedFare float64
	PickupCoords  *location.Coordinate
	DropoffCoords *location.Coordinate
	Status        BookingStatus
	Driver        *DriverContact
}

// DriverProfile is the canonical driver record.
type DriverProfile struct {
	ID          string
	Status      string
	IsAvailable bool
	Name        string
	Phone       string
	Email       string
	Vehicle     string
}

// Coords is the wire shape of a coordinate.
type Coords struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// CoordsOf converts a coordinate to its wire shape.
func CoordsOf(c location.Coordinate) Coords {
	return Coords{Lat: c.Latitude, Lng: c.Longitude}
}

// CreateBookingRequest is the body of POST /api/bookings.
type CreateBookingRequest struct {
	UserID        string  `json:"userId,omitempty"`
	StartLocation string  `json:"startLocation" validate:"required"`
	EndLocation   string  `json:"endLocation" validate:"required"`
	Distance      float64 `json:"distance" validate:"gt=0"`
	EstimatedTime int     `json:"estimatedTime" validate:"gte=0"`
	EstimatedFare float64 `json:"estimatedFare" validate:"gte=0"`
	PickupCoords  Coords  `json:"pickupCoords"`
	DropoffCoords Coords  `json:"dropoffCoords"`
}

type availabilityRequest struct {
	IsAvailable bool `json:"isAvailable"`
}

type driverActionRequest struct {
	DriverID string `json:"driverId"`
}
