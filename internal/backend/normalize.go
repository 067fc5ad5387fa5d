package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/richxcame/ride-booking-client/internal/location"
)

// The backend is not consistent about field names or envelopes. Everything
// below maps the known variants onto the canonical records in models.go.

var (
	idKeys       = []string{"bookingId", "_id", "id"}
	envelopeKeys = []string{"booking", "data"}
)

type object map[string]interface{}

func decodeObject(body []byte) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj object
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return obj, nil
}

func (o object) str(keys ...string) string {
	for _, key := range keys {
		switch v := o[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func (o object) num(keys ...string) float64 {
	for _, key := range keys {
		switch v := o[key].(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func (o object) boolean(key string) (bool, bool) {
	switch v := o[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	return false, false
}

func (o object) obj(keys ...string) object {
	for _, key := range keys {
		if v, ok := o[key].(map[string]interface{}); ok {
			return object(v)
		}
	}
	return nil
}

func (o object) list(keys ...string) []interface{} {
	for _, key := range keys {
		if v, ok := o[key].([]interface{}); ok {
			return v
		}
	}
	return nil
}

// unwrap returns the booking/data envelope when present.
func (o object) unwrap() object {
	if inner := o.obj(envelopeKeys...); inner != nil {
		return inner
	}
	return o
}

// ExtractBookingID finds the identifier at the top level or nested under
// "booking"/"data". It returns "" when none is present.
func ExtractBookingID(body []byte) string {
	obj, err := decodeObject(body)
	if err != nil {
		return ""
	}
	return extractID(obj)
}

func extractID(obj object) string {
	if id := obj.str(idKeys...); id != "" {
		return id
	}
	for _, key := range envelopeKeys {
		if inner := obj.obj(key); inner != nil {
			if id := inner.str(idKeys...); id != "" {
				return id
			}
		}
	}
	return ""
}

func normalizeBooking(raw object) Booking {
	b := raw.unwrap()
	booking := Booking{
		ID:            extractID(raw),
		StartLocation: b.str("startLocation", "pickupLocation", "pickup", "from"),
		EndLocation:   b.str("endLocation", "dropoffLocation", "dropoff", "destination", "to"),
		Distance:      b.num("distance", "distanceKm"),
		EstimatedTime: int(b.num("estimatedTime", "duration", "durationMin")),
		EstimatedFare: b.num("estimatedFare", "fare", "price"),
		PickupCoords:  coordsFrom(b.obj("pickupCoords", "pickupCoordinates")),
		DropoffCoords: coordsFrom(b.obj("dropoffCoords", "dropoffCoordinates")),
		Status:        ParseStatus(b.str("status", "bookingStatus")),
	}
	booking.Driver = driverContact(b)
	return booking
}

func coordsFrom(o object) *location.Coordinate {
	if o == nil {
		return nil
	}
	lat := o.num("lat", "latitude")
	lng := o.num("lng", "lon", "longitude")
	c, err := location.NewCoordinate(lat, lng)
	if err != nil {
		return nil
	}
	return &c
}

func driverContact(b object) *DriverContact {
	contact := &DriverContact{
		Name:        b.str("driverName"),
		Phone:       b.str("driverPhone"),
		Vehicle:     b.str("vehicleModel", "vehicle"),
		PlateNumber: b.str("plateNumber", "vehicleNumber"),
	}

	if d := b.obj("driver", "assignedDriver"); d != nil {
		if contact.Name == "" {
			contact.Name = d.str("name", "fullName", "driverName")
		}
		if contact.Phone == "" {
			contact.Phone = d.str("phone", "phoneNumber", "mobile")
		}
		if v := d.obj("vehicle"); v != nil {
			if contact.Vehicle == "" {
				contact.Vehicle = v.str("model", "make", "type")
			}
			if contact.PlateNumber == "" {
				contact.PlateNumber = v.str("plateNumber", "licensePlate", "number")
			}
		} else {
			if contact.Vehicle == "" {
				contact.Vehicle = d.str("vehicle", "vehicleModel")
			}
			if contact.PlateNumber == "" {
				contact.PlateNumber = d.str("plateNumber", "vehicleNumber")
			}
		}
	}

	if *contact == (DriverContact{}) {
		return nil
	}
	return contact
}

// normalizeBookingList accepts a bare array or an array under
// bookings/rides/data.
func normalizeBookingList(body []byte) ([]Booking, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items = object(v).list("bookings", "rides", "data", "pending")
	case nil:
		return []Booking{}, nil
	default:
		return nil, fmt.Errorf("unexpected pending rides payload %T", raw)
	}

	bookings := make([]Booking, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		b := normalizeBooking(object(m))
		if b.ID == "" {
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func normalizeDriver(raw object) DriverProfile {
	d := raw
	if inner := raw.obj("driver", "data"); inner != nil {
		d = inner
	}

	profile := DriverProfile{
		ID:     d.str("driverId", "_id", "id"),
		Status: strings.ToUpper(d.str("status")),
		Name:   d.str("name", "fullName"),
		Phone:  d.str("phone", "phoneNumber"),
		Email:  d.str("email"),
	}
	if v := d.obj("vehicle"); v != nil {
		profile.Vehicle = strings.TrimSpace(v.str("model", "make") + " " + v.str("plateNumber", "licensePlate"))
	} else {
		profile.Vehicle = d.str("vehicle", "vehicleModel")
	}

	if available, ok := d.boolean("isAvailable"); ok {
		profile.IsAvailable = available
	} else {
		profile.IsAvailable = profile.Status == DriverAvailable
	}
	if profile.Status == "" {
		profile.Status = DriverOffline
		if profile.IsAvailable {
			profile.Status = DriverAvailable
		}
	}
	return profile
}
