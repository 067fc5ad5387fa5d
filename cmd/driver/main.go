package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/richxcame/ride-booking-client/internal/app"
	"github.com/richxcame/ride-booking-client/internal/backend"
	"github.com/richxcame/ride-booking-client/internal/console"
	"github.com/richxcame/ride-booking-client/internal/driver"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"go.uber.org/zap"
)

const clientName = "driver"

const help = `commands:
  online | offline                   change availability
  rides                              list pending rides
  accept <id> | decline <id>         answer a ride request
  status                             show availability
  login <token> <user-id> <driver-id>
  logout
  quit`

// rideAnnouncer prints the ride list only when its membership changes.
type rideAnnouncer struct {
	con  *console.Console
	mu   sync.Mutex
	last string
}

func (a *rideAnnouncer) announce(rides []backend.Booking) {
	ids := make([]string, 0, len(rides))
	for _, r := range rides {
		ids = append(ids, r.ID)
	}
	key := strings.Join(ids, ",")

	a.mu.Lock()
	changed := key != a.last
	a.last = key
	a.mu.Unlock()

	if changed {
		a.con.Rides(rides)
	}
}

func main() {
	rt, err := app.Bootstrap(clientName)
	if err != nil {
		app.Fatal(err)
	}
	defer rt.Close()

	cfg := rt.Config
	con := console.New(os.Stdout)
	announcer := &rideAnnouncer{con: con}
	screen := driver.NewScreen(driver.Config{
		Intervals: driver.Intervals{
			Baseline: cfg.Polling.AvailabilityBaseline,
			Active:   cfg.Polling.AvailabilityActive,
			Idle:     cfg.Polling.AvailabilityIdle,
			Timeout:  cfg.Polling.RequestTimeout,
		},
		ActionTimeout: cfg.Backend.RequestTimeout,
	}, rt.Backend, rt.Sessions, con, rt.Reporter, announcer.announce)
	defer screen.Close()

	ctx, stop := rt.Context()
	defer stop()

	fmt.Println(help)
	if rt.Sessions.Current().HasToken() {
		if _, err := screen.LoadProfile(app.CommandContext(ctx)); err == nil {
			con.DriverState(screen.State())
		}
	} else {
		con.Redirect(driver.LoginPath)
	}

	err = console.Run(ctx, os.Stdin, con.Prompt(clientName), func(ctx context.Context, cmd console.Command) bool {
		ctx = app.CommandContext(ctx)
		switch cmd.Name {
		case "online", "offline":
			if err := screen.SetAvailable(ctx, cmd.Name == "online"); err == nil {
				con.DriverState(screen.State())
			}
		case "rides":
			con.Rides(screen.Rides())
		case "accept", "decline":
			if len(cmd.Args) != 1 {
				con.Alert("usage: " + cmd.Name + " <id>")
				return true
			}
			action := screen.Accept
			if cmd.Name == "decline" {
				action = screen.Decline
			}
			if err := action(ctx, cmd.Args[0]); err == nil {
				con.Rides(screen.Rides())
			}
		case "status":
			con.DriverState(screen.State())
		case "login":
			if err := rt.Login(cmd.Args); err != nil {
				con.Alert(err.Error())
				return true
			}
			if _, err := screen.LoadProfile(ctx); err == nil {
				con.DriverState(screen.State())
			}
		case "logout":
			screen.Close()
			if err := rt.Logout(); err != nil {
				con.Alert(err.Error())
			}
		case "help":
			fmt.Println(help)
		case "quit", "exit":
			return false
		default:
			con.Alert("unknown command " + cmd.Name)
		}
		return true
	})
	if err != nil {
		logger.Error("reading commands failed", zap.Error(err))
	}
	logger.Info("driver client stopped")
}
