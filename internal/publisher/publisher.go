package publisher

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/track"
)

type Mode string

const (
	ModeIdle   Mode = "idle"
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

var (
	ErrNoPackageSelected = errors.New("no package selected")
	ErrNoProvider        = errors.New("no location provider available")
)

// Emitter sends one location update for a tracking id to the backend.
type Emitter interface {
	UpdateLocation(ctx context.Context, trackingID string, lat, lng float64) error
}

// Position is a raw device fix.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Provider is the device location source. Current returns a single fix
// bounded by ctx; Watch streams fixes until ctx is cancelled and then
// closes the channel.
type Provider interface {
	Current(ctx context.Context) (Position, error)
	Watch(ctx context.Context) (<-chan Position, error)
}

type Options struct {
	// Interval is the fixed poll period of the backup strategy.
	Interval time.Duration
	// PositionTimeout bounds a single Current call so a stalled provider
	// cannot block the poll loop.
	PositionTimeout time.Duration
	// OnError is called when an emit failure cancels auto mode. May be nil.
	OnError func(error)
}

// Publisher turns device fixes into location updates for one selected
// package. In auto mode two strategies run concurrently as deliberate
// redundancy: the provider's continuous watch stream and a fixed-period
// poll. Both feed one serialized emit loop; a rejected update cancels auto
// mode outright.
type Publisher struct {
	emitter  Emitter
	provider Provider
	opts     Options

	mu          sync.Mutex
	mode        Mode
	trackingID  string
	cancel      context.CancelFunc
	done        chan struct{}
	updateCount int
	lastSuccess time.Time
	lastErr     error
}

func New(emitter Emitter, provider Provider, opts Options) *Publisher {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.PositionTimeout <= 0 {
		opts.PositionTimeout = 5 * time.Second
	}
	return &Publisher{
		emitter:  emitter,
		provider: provider,
		opts:     opts,
		mode:     ModeIdle,
	}
}

func (p *Publisher) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Stats reports how many updates were accepted and when the last one was.
// Observability only.
func (p *Publisher) Stats() (int, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateCount, p.lastSuccess
}

func (p *Publisher) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// SelectPackage picks the tracking id updates are emitted for. Switching
// packages while auto mode is active stops it first; two concurrent auto
// sessions for different ids can never exist.
func (p *Publisher) SelectPackage(trackingID string) {
	p.mu.Lock()
	if p.mode == ModeAuto && trackingID != p.trackingID {
		p.stopLocked()
	}
	p.trackingID = trackingID
	p.mu.Unlock()
}

// PublishOnce emits a single operator-entered coordinate pair. Validation
// failures are returned without anything being sent.
func (p *Publisher) PublishOnce(ctx context.Context, lat, lng float64) error {
	p.mu.Lock()
	trackingID := p.trackingID
	p.mu.Unlock()

	if trackingID == "" {
		return ErrNoPackageSelected
	}
	if err := track.ValidateCoordinates(lat, lng); err != nil {
		return err
	}

	if err := p.emitter.UpdateLocation(ctx, trackingID, lat, lng); err != nil {
		return err
	}

	p.mu.Lock()
	p.updateCount++
	p.lastSuccess = time.Now()
	if p.mode == ModeIdle {
		p.mode = ModeManual
	}
	p.mu.Unlock()
	return nil
}

// StartAuto begins continuous emission. Requires a selected package and a
// provider; calling it while auto is already running is a no-op.
func (p *Publisher) StartAuto(ctx context.Context) error {
	p.mu.Lock()
	if p.mode == ModeAuto {
		p.mu.Unlock()
		return nil
	}
	trackingID := p.trackingID
	p.mu.Unlock()

	if trackingID == "" {
		return ErrNoPackageSelected
	}
	if p.provider == nil {
		return ErrNoProvider
	}

	runCtx, cancel := context.WithCancel(ctx)
	watch, err := p.provider.Watch(runCtx)
	if err != nil {
		cancel()
		return err
	}

	fixes := make(chan Position, 8)
	done := make(chan struct{})

	p.mu.Lock()
	p.mode = ModeAuto
	p.cancel = cancel
	p.done = done
	p.lastErr = nil
	p.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(3)
	go p.watchLoop(runCtx, &wg, watch, fixes)
	go p.pollLoop(runCtx, &wg, fixes)
	go p.emitLoop(runCtx, &wg, trackingID, fixes)
	go func() {
		wg.Wait()
		close(done)
	}()
	return nil
}

// Stop cancels both sampling strategies and releases the provider
// subscription. It is idempotent; stopping an idle publisher is a no-op.
func (p *Publisher) Stop() {
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()
}

func (p *Publisher) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.mode == ModeAuto {
		p.mode = ModeIdle
	}
}

func (p *Publisher) watchLoop(ctx context.Context, wg *sync.WaitGroup, watch <-chan Position, fixes chan<- Position) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case pos, ok := <-watch:
			if !ok {
				log.Printf("publisher: watch stream ended, poll strategy continues")
				return
			}
			select {
			case fixes <- pos:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Publisher) pollLoop(ctx context.Context, wg *sync.WaitGroup, fixes chan<- Position) {
	defer wg.Done()
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cctx, cancel := context.WithTimeout(ctx, p.opts.PositionTimeout)
			pos, err := p.provider.Current(cctx)
			cancel()
			if err != nil {
				// Recoverable sampling failure: keep polling.
				log.Printf("publisher: position fix failed: %v", err)
				continue
			}
			select {
			case fixes <- pos:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Publisher) emitLoop(ctx context.Context, wg *sync.WaitGroup, trackingID string, fixes <-chan Position) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case pos := <-fixes:
			if err := p.emitter.UpdateLocation(ctx, trackingID, pos.Latitude, pos.Longitude); err != nil {
				// A rejected update usually signals an auth or validation
				// problem that will recur; auto mode must not continue.
				p.mu.Lock()
				p.lastErr = err
				p.stopLocked()
				p.mu.Unlock()
				if p.opts.OnError != nil {
					p.opts.OnError(err)
				}
				return
			}
			p.mu.Lock()
			p.updateCount++
			p.lastSuccess = time.Now()
			p.mu.Unlock()
		}
	}
}
