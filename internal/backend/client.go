package backend

import (
	"context"
	"errors"
	"net/url"

	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/richxcame/ride-booking-client/pkg/httpclient"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"github.com/richxcame/ride-booking-client/pkg/resilience"
	"github.com/richxcame/ride-booking-client/pkg/tracing"
	"github.com/richxcame/ride-booking-client/pkg/validation"
	"go.uber.org/zap"
)

const tracerName = "backend"

// ErrMissingBookingID is returned when a create response carries no identifier.
var ErrMissingBookingID = common.NewMissingIdentifierError("booking was created but no booking id was returned")

// Client talks to the booking and driver REST API. Every call is a single
// attempt; callers own timeouts through ctx.
type Client struct {
	http  *httpclient.Client
	reads *httpclient.Client
}

// NewClient creates a backend client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		http:  httpclient.NewClient(baseURL, 0),
		reads: httpclient.NewClient(baseURL, 0, httpclient.WithRetry(resilience.ConservativeRetryConfig())),
	}
}

func authHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return httpclient.Bearer(token)
}

func bookingPath(id string, suffix string) string {
	return "/api/bookings/" + url.PathEscape(id) + suffix
}

func driverPath(id string, suffix string) string {
	return "/api/drivers/" + url.PathEscape(id) + suffix
}

// CreateBooking submits a booking and returns its identifier. The payload is
// validated before sending and carries a fresh Idempotency-Key.
func (c *Client) CreateBooking(ctx context.Context, token string, req CreateBookingRequest) (string, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return "", common.NewAppError(common.KindPrecondition, "booking details are incomplete", err)
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "backend.create_booking")
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.BookingAttributes("", "", req.EstimatedFare)...)

	body, err := c.http.Post(ctx, "/api/bookings", req, httpclient.IdempotencyKey(authHeaders(token)))
	if err != nil {
		return "", classify("create booking", err)
	}

	id := ExtractBookingID(body)
	if id == "" {
		logger.WarnContext(ctx, "create booking response has no identifier", zap.ByteString("body", truncate(body, 512)))
		return "", ErrMissingBookingID
	}
	tracing.AddSpanAttributes(ctx, tracing.BookingIDKey.String(id))
	return id, nil
}

// BookingStatus fetches GET /api/bookings/{id}/status.
func (c *Client) BookingStatus(ctx context.Context, token, id string) (*Booking, error) {
	return c.getBooking(ctx, token, bookingPath(id, "/status"), id)
}

// GetBooking fetches GET /api/bookings/{id}.
func (c *Client) GetBooking(ctx context.Context, token, id string) (*Booking, error) {
	return c.getBooking(ctx, token, bookingPath(id, ""), id)
}

func (c *Client) getBooking(ctx context.Context, token, path, id string) (*Booking, error) {
	body, err := c.http.Get(ctx, path, authHeaders(token))
	if err != nil {
		return nil, classify("fetch booking", err)
	}
	obj, err := decodeObject(body)
	if err != nil {
		return nil, common.NewBackendError("", err)
	}
	booking := normalizeBooking(obj)
	if booking.ID == "" {
		booking.ID = id
	}
	return &booking, nil
}

// PendingBookings lists ride requests waiting for a driver.
func (c *Client) PendingBookings(ctx context.Context, token string) ([]Booking, error) {
	body, err := c.http.Get(ctx, "/api/bookings/pending", authHeaders(token))
	if err != nil {
		return nil, classify("list pending rides", err)
	}
	bookings, err := normalizeBookingList(body)
	if err != nil {
		return nil, common.NewBackendError("", err)
	}
	return bookings, nil
}

// AcceptBooking assigns the booking to driverID.
func (c *Client) AcceptBooking(ctx context.Context, token, id, driverID string) error {
	return c.driverAction(ctx, token, id, driverID, "accept")
}

// DeclineBooking declines the booking for driverID.
func (c *Client) DeclineBooking(ctx context.Context, token, id, driverID string) error {
	return c.driverAction(ctx, token, id, driverID, "decline")
}

func (c *Client) driverAction(ctx context.Context, token, id, driverID, action string) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "backend."+action+"_booking")
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.BookingAttributes(id, driverID, 0)...)

	_, err := c.http.Patch(ctx, bookingPath(id, "/"+action), driverActionRequest{DriverID: driverID}, authHeaders(token))
	return classify(action+" ride", err)
}

// GetDriver loads the driver profile. Transient failures are retried once.
func (c *Client) GetDriver(ctx context.Context, token, id string) (*DriverProfile, error) {
	body, err := c.reads.Get(ctx, driverPath(id, ""), authHeaders(token))
	if err != nil {
		return nil, classify("load driver profile", err)
	}
	obj, err := decodeObject(body)
	if err != nil {
		return nil, common.NewBackendError("", err)
	}
	profile := normalizeDriver(obj)
	if profile.ID == "" {
		profile.ID = id
	}
	return &profile, nil
}

// SetAvailability patches the driver's availability and returns the
// server's acknowledged profile.
func (c *Client) SetAvailability(ctx context.Context, token, id string, available bool) (*DriverProfile, error) {
	body, err := c.http.Patch(ctx, driverPath(id, "/availability"), availabilityRequest{IsAvailable: available}, authHeaders(token))
	if err != nil {
		return nil, classify("update availability", err)
	}
	obj, err := decodeObject(body)
	if err != nil {
		return nil, common.NewBackendError("", err)
	}
	profile := normalizeDriver(obj)
	if profile.ID == "" {
		profile.ID = id
	}
	return &profile, nil
}

// classify maps transport errors onto the client error taxonomy. The
// server-provided message, when any, becomes the user-facing message.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case httpclient.IsTimeout(err):
		return common.NewAppError(common.KindTimeout, "", err)
	case httpclient.IsNotFound(err):
		return common.NewAppError(common.KindNotFound, httpclient.ServerMessage(err), err)
	case httpclient.StatusCode(err) == 401:
		return common.NewAppError(common.KindUnauthenticated, httpclient.ServerMessage(err), errors.Join(common.ErrUnauthenticated, err))
	default:
		logger.Debug("backend call failed", zap.String("op", op), zap.Error(err))
		return common.NewBackendError(httpclient.ServerMessage(err), err)
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
