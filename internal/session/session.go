package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/bbalwant/smart-tracking-system/internal/client"
	"github.com/bbalwant/smart-tracking-system/internal/live"
	"github.com/bbalwant/smart-tracking-system/internal/route"
	"github.com/bbalwant/smart-tracking-system/internal/track"
)

// Backend is the collaborator surface one tracking session consumes.
// *client.Client satisfies it.
type Backend interface {
	GetPackageByTrackingID(ctx context.Context, trackingID string) (client.Package, error)
	GetRouteHistory(ctx context.Context, trackingID string) ([]track.LocationSample, error)
	GetETA(ctx context.Context, trackingID string) (track.ETA, error)
}

// RoadRouter supplies the preferred road geometry. *directions.Router
// satisfies it.
type RoadRouter interface {
	Route(ctx context.Context, from, to route.Point) ([]route.Point, error)
}

// Transport is the live push subscription owned by the session.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
}

// Snapshot is the read-only view handed to the rendering layer. It always
// reflects the latest merged state.
type Snapshot struct {
	TrackingID      string                 `json:"tracking_id"`
	Status          string                 `json:"status"`
	ConnectionState live.State             `json:"connection_state"`
	RouteHistory    []track.LocationSample `json:"route_history"`
	CurrentPosition *track.LocationSample  `json:"current_position,omitempty"`
	RenderPath      route.Path             `json:"render_path"`
	ETA             *track.ETA             `json:"eta,omitempty"`
}

type Options struct {
	Backend Backend
	Router  RoadRouter // optional; nil disables road geometry
	// BackendWSURL is the push-channel base URL used to build the default
	// transport. Ignored when NewTransport is set.
	BackendWSURL string
	// NewTransport overrides the live transport construction (tests).
	NewTransport func(trackingID string, handlers live.Handlers) Transport
	ThresholdDeg float64
	// OnChange is invoked with a fresh snapshot after every applied event.
	// May be nil.
	OnChange func(Snapshot)
}

// Session is the aggregate for one open tracking view. All state mutation
// happens on its event loop, so merges are applied one sample at a time
// regardless of which origin produced them. Close tears down the transport
// and discards any fetch that resolves afterwards.
type Session struct {
	trackingID string
	opts       Options

	ctx    context.Context
	cancel context.CancelFunc
	events chan func()
	closed chan struct{}
	once   sync.Once

	conn Transport

	// loop-owned state
	store     *route.Store
	sender    track.Endpoint
	recipient track.Endpoint
	status    string
	connState live.State
	eta       *track.ETA
	road      []route.Point

	mu   sync.RWMutex
	snap Snapshot
}

var ErrNoBackend = errors.New("session backend is required")

// Open fetches the package, starts the event loop, kicks off the one-time
// historical fetch, and connects the live stream. The returned session is
// live until Close.
func Open(ctx context.Context, trackingID string, opts Options) (*Session, error) {
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}

	pkg, err := opts.Backend.GetPackageByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		trackingID: trackingID,
		opts:       opts,
		ctx:        sctx,
		cancel:     cancel,
		events:     make(chan func(), 32),
		closed:     make(chan struct{}),
		store:      route.NewStore(opts.ThresholdDeg),
		sender:     pkg.Sender.Endpoint(),
		recipient:  pkg.Recipient.Endpoint(),
		status:     pkg.Status,
		connState:  live.StateDisconnected,
	}

	handlers := live.Handlers{
		OnSample: func(sample track.LocationSample) {
			s.post(func() { s.applySample(sample) })
		},
		OnState: func(state live.State) {
			s.post(func() { s.applyConnState(state) })
		},
	}
	if opts.NewTransport != nil {
		s.conn = opts.NewTransport(trackingID, handlers)
	} else {
		s.conn = live.NewConnection(opts.BackendWSURL, trackingID, handlers)
	}

	go s.loop()
	s.post(func() {
		s.publish()
		if s.status != track.StatusDelivered {
			s.refreshETA()
		}
		s.refreshRoad()
	})

	go s.fetchHistory()
	go func() {
		if err := s.conn.Connect(s.ctx); err != nil {
			log.Printf("session %s: live connect failed: %v", trackingID, err)
		}
	}()

	return s, nil
}

// Close tears the session down: the transport is released, timers and
// in-flight fetches tied to the session are cancelled, and any result
// resolving afterwards is discarded. Idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.conn.Disconnect()
		<-s.closed
	})
}

// Snapshot returns the current view state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetStatus applies an externally observed package status change. A
// transition to delivered clears the estimate and suppresses further ETA
// fetches.
func (s *Session) SetStatus(status string) {
	s.post(func() {
		s.status = status
		if status == track.StatusDelivered {
			s.eta = nil
		}
		s.publish()
	})
}

func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	defer close(s.closed)
	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.events:
			fn()
		}
	}
}

// applySample folds one sample into the store. Runs on the loop only.
func (s *Session) applySample(sample track.LocationSample) {
	before, _ := s.store.Current()
	if !s.store.Merge(sample) {
		return
	}
	after, _ := s.store.Current()

	currentChanged := !after.SameEvent(before, s.store.ThresholdDeg())
	if currentChanged {
		if s.status != track.StatusDelivered {
			s.refreshETA()
		}
		s.refreshRoad()
	}
	s.publish()
}

func (s *Session) applyConnState(state live.State) {
	s.connState = state
	s.publish()
}

// fetchHistory performs the one-time historical fetch. Failure leaves the
// session with an empty history and live samples still flowing.
func (s *Session) fetchHistory() {
	samples, err := s.opts.Backend.GetRouteHistory(s.ctx, s.trackingID)
	if err != nil {
		log.Printf("session %s: route history fetch failed: %v", s.trackingID, err)
		return
	}
	s.post(func() {
		before, hadBefore := s.store.Current()
		if s.store.MergeAll(samples) == 0 {
			return
		}
		after, _ := s.store.Current()

		// One refresh for the whole batch; per-sample triggers during
		// bootstrap would fan out one fetch per historical point.
		if !hadBefore || !after.SameEvent(before, s.store.ThresholdDeg()) {
			if s.status != track.StatusDelivered {
				s.refreshETA()
			}
			s.refreshRoad()
		}
		s.publish()
	})
}

// refreshETA asks the backend for a new estimate. A failed fetch clears
// the displayed estimate; absence is a normal state, not an error.
func (s *Session) refreshETA() {
	go func() {
		eta, err := s.opts.Backend.GetETA(s.ctx, s.trackingID)
		s.post(func() {
			if s.status == track.StatusDelivered {
				s.eta = nil
			} else if err != nil {
				s.eta = nil
			} else {
				s.eta = &eta
			}
			s.publish()
		})
	}()
}

// refreshRoad requests road geometry from the current anchor to the
// recipient. Any failure simply drops back to the raw trace.
func (s *Session) refreshRoad() {
	if s.opts.Router == nil || !s.recipient.IsSet() {
		return
	}
	anchor, ok := route.RoadAnchor(s.sender, s.store)
	if !ok {
		return
	}
	dest := route.Point{Latitude: s.recipient.Latitude, Longitude: s.recipient.Longitude}
	go func() {
		points, err := s.opts.Router.Route(s.ctx, anchor, dest)
		s.post(func() {
			if err != nil {
				s.road = nil
			} else {
				s.road = points
			}
			s.publish()
		})
	}()
}

// publish rebuilds the snapshot from loop-owned state. Runs on the loop.
func (s *Session) publish() {
	snap := Snapshot{
		TrackingID:      s.trackingID,
		Status:          s.status,
		ConnectionState: s.connState,
		RouteHistory:    s.store.History(),
		RenderPath:      route.BuildPath(s.sender, s.recipient, s.store, s.road),
	}
	if current, ok := s.store.Current(); ok {
		snap.CurrentPosition = &current
	}
	if s.eta != nil {
		eta := *s.eta
		snap.ETA = &eta
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	if s.opts.OnChange != nil {
		s.opts.OnChange(snap)
	}
}
