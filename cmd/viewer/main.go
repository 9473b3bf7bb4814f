// Command viewer follows one package from the terminal: it opens a tracking
// session, subscribes to the live feed, and prints a line every time the
// merged view changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bbalwant/smart-tracking-system/internal/client"
	"github.com/bbalwant/smart-tracking-system/internal/config"
	"github.com/bbalwant/smart-tracking-system/internal/directions"
	"github.com/bbalwant/smart-tracking-system/internal/session"
)

func main() {
	cfg := config.Load()

	var (
		trackingID = flag.String("tracking", "", "tracking id of the package to follow")
		backend    = flag.String("backend", cfg.BackendBaseURL, "backend base URL")
		wsURL      = flag.String("ws", cfg.BackendWSURL, "backend websocket base URL")
		osrm       = flag.String("osrm", cfg.OSRMBaseURL, "OSRM base URL, empty to disable road geometry")
	)
	flag.Parse()

	if *trackingID == "" {
		fmt.Fprintln(os.Stderr, "usage: viewer -tracking PKT-XXXXXXXX [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	opts := session.Options{
		Backend:      client.New(*backend),
		BackendWSURL: *wsURL,
		ThresholdDeg: cfg.DuplicateThresholdDeg,
		OnChange:     printSnapshot,
	}
	if *osrm != "" {
		opts.Router = directions.NewRouter(*osrm)
	}

	sess, err := session.Open(context.Background(), *trackingID, opts)
	if err != nil {
		log.Fatalf("open session: %v", err)
	}
	defer sess.Close()

	printSnapshot(sess.Snapshot())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}

func printSnapshot(snap session.Snapshot) {
	pos := "no position yet"
	if snap.CurrentPosition != nil {
		pos = fmt.Sprintf("%.5f,%.5f", snap.CurrentPosition.Latitude, snap.CurrentPosition.Longitude)
	}
	eta := ""
	if snap.ETA != nil {
		eta = " eta " + snap.ETA.FormattedETA
	}
	log.Printf("[%s] %s %s at %s path=%s (%d points)%s",
		snap.TrackingID, snap.Status, snap.ConnectionState, pos,
		snap.RenderPath.Kind, len(snap.RenderPath.Points), eta)
}
