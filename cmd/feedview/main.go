package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"parkwatch-service/internal/domain/parking"
	"parkwatch-service/internal/store"
	"parkwatch-service/internal/view"
)

// feedview is a terminal alert console: it polls the service the same way the
// web and mobile clients do and renders the rolling alert window.
func main() {
	serverURL := flag.String("server", "http://localhost:8001", "parkwatch server base URL")
	filter := flag.String("filter", "all", "time filter: all, today, last_24h")
	sortOrder := flag.String("sort", "newest", "sort order: newest, oldest, duration")
	pollSeconds := flag.Int("poll", 30, "poll interval in seconds")
	token := flag.String("token", "", "operator bearer token")
	reset := flag.Bool("reset", false, "clear all alerts and exit")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	client := store.NewClient(*serverURL, 30*time.Second)
	if *token != "" {
		client = client.WithToken(*token)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *reset {
		removed, err := client.ResetAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("reset failed")
		}
		fmt.Printf("removed %d alerts\n", removed)
		return
	}

	v := view.NewAlertView(client, time.Duration(*pollSeconds)*time.Second, 100, log)
	v.SetFilter(parking.TimeFilter(*filter))
	v.SetSort(parking.SortOrder(*sortOrder))

	go v.Run(ctx)

	render := time.NewTicker(time.Duration(*pollSeconds) * time.Second)
	defer render.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	printSnapshot(v)
	for {
		select {
		case <-quit:
			return
		case <-render.C:
			printSnapshot(v)
		}
	}
}

func printSnapshot(v *view.AlertView) {
	records := v.Snapshot(time.Now())
	if v.Stale() {
		fmt.Println("-- offline: showing last-known alerts --")
	}
	if len(records) == 0 {
		fmt.Println("no violations")
		return
	}
	for _, r := range records {
		fmt.Printf("#%d vehicle %s at %s: %.1fs (%s)\n",
			r.AlertID, r.VehicleID, r.Location, r.DurationSeconds, r.EmittedAt.Format(time.RFC3339))
	}
}
