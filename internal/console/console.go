// Package console renders screen output on a terminal and reads commands.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/richxcame/ride-booking-client/internal/backend"
	"github.com/richxcame/ride-booking-client/internal/driver"
	"github.com/richxcame/ride-booking-client/internal/geocoding"
	"github.com/richxcame/ride-booking-client/internal/location"
	"github.com/richxcame/ride-booking-client/internal/rider"
)

// Console is a terminal presenter. It satisfies the notifier and map view
// interfaces of both screens.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	route []location.Coordinate
}

// New creates a console writing to out.
func New(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Alert implements the screen notifiers.
func (c *Console) Alert(message string) {
	c.printf("! %s\n", message)
}

// Redirect implements the screen notifiers.
func (c *Console) Redirect(path string) {
	if path == rider.LoginPath || path == driver.LoginPath {
		c.printf("! please log in: login <token> <user-id> [driver-id]\n")
		return
	}
	c.printf("! go to %s\n", path)
}

// Recenter implements rider.MapView.
func (c *Console) Recenter(pos location.Coordinate) {
	c.printf("map centred on %s\n", pos)
}

// DrawRoute implements rider.MapView.
func (c *Console) DrawRoute(path []location.Coordinate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.route = append(c.route[:0], path...)
	fmt.Fprintf(c.out, "route drawn with %d points\n", len(path))
	return nil
}

// ClearRoute implements rider.MapView.
func (c *Console) ClearRoute() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.route = c.route[:0]
	return nil
}

// RouteLen returns the number of points of the drawn route.
func (c *Console) RouteLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.route)
}

// Suggestions prints a numbered suggestion list.
func (c *Console) Suggestions(query string, places []geocoding.Place) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(places) == 0 {
		if strings.TrimSpace(query) != "" {
			fmt.Fprintf(c.out, "no places match %q\n", query)
		}
		return
	}
	fmt.Fprintf(c.out, "suggestions for %q:\n", query)
	for i, p := range places {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, p.Label)
	}
}

// Rides prints the pending ride list.
func (c *Console) Rides(rides []backend.Booking) {
	c.mu.Lock()
	defer c.mu.Unlock()
	writeRides(c.out, rides)
}

func writeRides(w io.Writer, rides []backend.Booking) {
	if len(rides) == 0 {
		fmt.Fprintln(w, "no pending rides")
		return
	}
	fmt.Fprintf(w, "%d pending ride(s):\n", len(rides))
	for _, r := range rides {
		fmt.Fprintf(w, "  [%s] %s -> %s, %.2f km, %d min, fare %.2f\n",
			r.ID, orDash(r.StartLocation), orDash(r.EndLocation), r.Distance, r.EstimatedTime, r.EstimatedFare)
	}
}

// RiderState prints the rider screen.
func (c *Console) RiderState(st rider.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := "locating..."
	if st.Position != nil {
		from = st.Position.String()
		if st.PlaceName != "" {
			from = st.PlaceName + " (" + from + ")"
		}
		if st.FallbackUsed {
			from += " [default position]"
		}
	}
	fmt.Fprintf(c.out, "from: %s\n", from)

	to := "not set"
	if st.Destination != nil {
		to = st.DestinationName + " (" + st.Destination.String() + ")"
	}
	fmt.Fprintf(c.out, "to:   %s\n", to)

	switch {
	case st.Estimate != nil:
		fmt.Fprintf(c.out, "trip: %.2f km, %d min, fare %.2f\n", st.Estimate.DistanceKm, st.Estimate.DurationMin, st.Fare)
	case st.Calculating:
		fmt.Fprintln(c.out, "trip: calculating...")
	}

	if st.BookingID != "" {
		fmt.Fprintf(c.out, "booking %s: %s (%s)\n", st.BookingID, orDash(string(st.Status)), st.Poll)
	}
	if st.Driver != nil {
		fmt.Fprintf(c.out, "driver: %s %s %s %s\n", st.Driver.Name, st.Driver.Phone, st.Driver.Vehicle, st.Driver.PlateNumber)
	}
}

// DriverState prints the driver screen.
func (c *Console) DriverState(st driver.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := "unknown driver"
	if st.Profile != nil && st.Profile.Name != "" {
		name = st.Profile.Name
	}
	status := "offline"
	if st.Available {
		status = "online"
	}
	fmt.Fprintf(c.out, "%s is %s (poller %s", name, status, st.Poll)
	if st.Period > 0 {
		fmt.Fprintf(c.out, ", every %s", st.Period)
	}
	fmt.Fprintln(c.out, ")")
	writeRides(c.out, st.Rides)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Command is one parsed input line.
type Command struct {
	Name string
	Args []string
	// Rest is everything after the command name, spacing preserved.
	Rest string
}

// Parse splits a line into a command. Blank lines yield ok=false.
func Parse(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, false
	}
	fields := strings.Fields(line)
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:], Rest: rest}, true
}

// Handler runs one command. Returning false ends the loop.
type Handler func(ctx context.Context, cmd Command) bool

// Run reads commands from in until EOF, ctx cancellation or a handler
// returning false.
func Run(ctx context.Context, in io.Reader, prompt func(), handle Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		if prompt != nil {
			prompt()
		}
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			cmd, ok := Parse(line)
			if !ok {
				continue
			}
			if !handle(ctx, cmd) {
				return nil
			}
		}
	}
}

// Prompt prints the input prompt.
func (c *Console) Prompt(name string) func() {
	return func() { c.printf("%s> ", name) }
}
