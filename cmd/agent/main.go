// Command agent publishes courier positions for one package. Without real
// device hardware it walks a simulated straight line between two points,
// which is enough to drive the backend's status transitions and live feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/client"
	"github.com/bbalwant/smart-tracking-system/internal/config"
	"github.com/bbalwant/smart-tracking-system/internal/publisher"
)

func main() {
	cfg := config.Load()

	var (
		trackingID = flag.String("tracking", "", "tracking id of the package to publish for")
		backend    = flag.String("backend", cfg.BackendBaseURL, "backend base URL")
		interval   = flag.Duration("interval", time.Duration(cfg.PublishIntervalSeconds)*time.Second, "publish interval")
		fromLat    = flag.Float64("from-lat", 0, "start latitude")
		fromLng    = flag.Float64("from-lng", 0, "start longitude")
		toLat      = flag.Float64("to-lat", 0, "end latitude")
		toLng      = flag.Float64("to-lng", 0, "end longitude")
		steps      = flag.Int("steps", 20, "number of simulated fixes between start and end")
		once       = flag.Bool("once", false, "publish the start position once and exit")
	)
	flag.Parse()

	if *trackingID == "" {
		fmt.Fprintln(os.Stderr, "usage: agent -tracking PKT-XXXXXXXX [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	backendClient := client.New(*backend)
	walker := newRouteWalker(
		publisher.Position{Latitude: *fromLat, Longitude: *fromLng},
		publisher.Position{Latitude: *toLat, Longitude: *toLng},
		*steps, *interval)

	pub := publisher.New(backendClient, walker, publisher.Options{
		Interval:        *interval,
		PositionTimeout: time.Duration(cfg.PositionTimeoutSeconds) * time.Second,
		OnError: func(err error) {
			log.Printf("publishing stopped: %v", err)
			cancel()
		},
	})
	pub.SelectPackage(*trackingID)

	if *once {
		if err := pub.PublishOnce(ctx, *fromLat, *fromLng); err != nil {
			log.Fatalf("publish: %v", err)
		}
		return
	}

	if err := pub.StartAuto(ctx); err != nil {
		log.Fatalf("start publishing: %v", err)
	}
	log.Printf("publishing positions for %s every %s", *trackingID, *interval)

	select {
	case <-signals:
	case <-ctx.Done():
	}
	pub.Stop()

	count, last := pub.Stats()
	log.Printf("published %d updates, last at %s", count, last.Format(time.RFC3339))
}
