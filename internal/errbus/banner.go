package errbus

import (
	"sync"
	"time"
)

// DefaultBannerTTL is how long a banner shows an error unless dismissed.
const DefaultBannerTTL = 5 * time.Second

// Banner holds the most recent error broadcast on a bus until it is
// dismissed or its TTL runs out. A newer error replaces the older one and
// restarts the clock.
type Banner struct {
	ttl         time.Duration
	unsubscribe func()

	mu       sync.Mutex
	current  error
	shown    uint64
	timer    *time.Timer
	onChange func(err error)
}

// NewBanner subscribes a banner to bus. A non-positive ttl means
// DefaultBannerTTL.
func NewBanner(bus *Bus, ttl time.Duration) *Banner {
	if ttl <= 0 {
		ttl = DefaultBannerTTL
	}
	b := &Banner{ttl: ttl}
	b.unsubscribe = bus.Subscribe(b.show)
	return b
}

// OnChange registers fn to be called with the new banner error, or nil when
// the banner clears. Only one callback is kept.
func (b *Banner) OnChange(fn func(err error)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Current returns the error on display, or nil.
func (b *Banner) Current() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Dismiss clears the banner.
func (b *Banner) Dismiss() {
	b.mu.Lock()
	shown := b.shown
	b.mu.Unlock()
	b.clear(shown)
}

// Close detaches the banner from its bus and stops the expiry timer.
func (b *Banner) Close() {
	b.unsubscribe()
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()
}

func (b *Banner) show(err error) {
	b.mu.Lock()
	b.current = err
	b.shown++
	shown := b.shown
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.ttl, func() { b.clear(shown) })
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

// clear removes the banner if it still shows the error numbered shown.
func (b *Banner) clear(shown uint64) {
	b.mu.Lock()
	if b.shown != shown || b.current == nil {
		b.mu.Unlock()
		return
	}
	b.current = nil
	if b.timer != nil {
		b.timer.Stop()
	}
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(nil)
	}
}
