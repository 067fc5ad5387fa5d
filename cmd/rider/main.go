package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/richxcame/ride-booking-client/internal/app"
	"github.com/richxcame/ride-booking-client/internal/console"
	"github.com/richxcame/ride-booking-client/internal/pricing"
	"github.com/richxcame/ride-booking-client/internal/rider"
	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"go.uber.org/zap"
)

const clientName = "rider"

const help = `commands:
  search <text>                      find a destination
  pick <n>                           choose suggestion n
  book                               request a ride
  status                             show the trip
  reset                              abandon the trip
  login <token> <user-id>            store the session
  logout                             forget the session
  quit`

func main() {
	rt, err := app.Bootstrap(clientName)
	if err != nil {
		app.Fatal(err)
	}
	defer rt.Close()

	cfg := rt.Config
	con := console.New(os.Stdout)
	screen := rider.NewScreen(rider.Config{
		SearchDelay:   cfg.Geocoding.DebounceDelay,
		SubmitTimeout: cfg.Backend.RequestTimeout,
		PollInterval:  cfg.Polling.StatusInterval,
		PollTimeout:   cfg.Polling.RequestTimeout,
		Tariff:        pricing.Tariff{RatePerKm: cfg.Tariff.RatePerKm},
	}, rider.Deps{
		Resolver: rt.Resolver,
		Geocoder: rt.Geocoder,
		Router:   rt.Router,
		Bookings: rt.Backend,
		Sessions: rt.Sessions,
		Notifier: con,
		View:     con,
		Reporter: rt.Reporter,
	}, con.Suggestions)
	defer screen.Close()

	ctx, stop := rt.Context()
	defer stop()

	screen.Initialize(app.CommandContext(ctx))
	con.RiderState(screen.State())
	fmt.Println(help)

	err = console.Run(ctx, os.Stdin, con.Prompt(clientName), func(ctx context.Context, cmd console.Command) bool {
		ctx = app.CommandContext(ctx)
		switch cmd.Name {
		case "search":
			screen.SetQuery(cmd.Rest)
		case "pick":
			if len(cmd.Args) != 1 {
				con.Alert("usage: pick <n>")
				return true
			}
			n, err := strconv.Atoi(cmd.Args[0])
			if err != nil {
				con.Alert("usage: pick <n>")
				return true
			}
			if err := screen.SelectIndex(ctx, n-1); err != nil {
				con.Alert(common.UserMessage(err, "no such suggestion"))
				return true
			}
			con.RiderState(screen.State())
		case "book":
			if err := screen.Submit(ctx); err == nil {
				con.RiderState(screen.State())
			}
		case "status":
			con.RiderState(screen.State())
		case "reset":
			screen.Reset()
			con.RiderState(screen.State())
		case "login":
			if err := rt.Login(cmd.Args); err != nil {
				con.Alert(err.Error())
			}
		case "logout":
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
	logger.Info("rider client stopped")
}
