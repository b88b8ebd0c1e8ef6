package sources

import (
	"context"
	"math/rand/v2"
	"net/netip"
	"time"

	"github.com/rs/zerolog"
)

var reserved = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
}

func isPublic(a netip.Addr) bool {
	if !a.IsGlobalUnicast() || a.IsPrivate() {
		return false
	}
	for _, p := range reserved {
		if p.Contains(a) {
			return false
		}
	}
	return true
}

// Demo generates synthetic announcements for random public /24s and now
// and then withdraws one of them.
type Demo struct {
	Interval time.Duration
	// WithdrawEvery makes every n-th event a withdrawal. Zero disables
	// withdrawals.
	WithdrawEvery int
	Rand          *rand.Rand
	Logger        zerolog.Logger

	history []netip.Prefix
	count   int
}

func NewDemo(interval time.Duration, logger zerolog.Logger) *Demo {
	return &Demo{
		Interval:      interval,
		WithdrawEvery: 5,
		Rand:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		Logger:        logger.With().Str("component", "demo").Logger(),
	}
}

// Next returns the next synthetic event.
func (d *Demo) Next(now time.Time) Event {
	d.count++
	if d.WithdrawEvery > 0 && d.count%d.WithdrawEvery == 0 && len(d.history) > 0 {
		i := d.Rand.IntN(len(d.history))
		p := d.history[i]
		d.history = append(d.history[:i], d.history[i+1:]...)
		return Event{Kind: Withdrawal, Prefix: p, Peer: "demo", Time: now}
	}

	var addr netip.Addr
	for {
		v := d.Rand.Uint32()
		addr = netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), 0})
		if isPublic(addr) {
			break
		}
	}
	p := netip.PrefixFrom(addr, 24)
	d.history = append(d.history, p)
	if len(d.history) > 1000 {
		d.history = d.history[1:]
	}
	kind := Discovery
	if d.Rand.IntN(3) > 0 {
		kind = PathChange
	}
	return Event{
		Kind:      kind,
		Prefix:    p,
		Peer:      "demo",
		OriginASN: 64512 + d.Rand.Uint32N(1024),
		Time:      now,
	}
}

// Run emits one event per Interval until ctx is done.
func (d *Demo) Run(ctx context.Context, out chan<- Event) error {
	d.Logger.Info().Dur("interval", d.Interval).Msg("demo feed started")
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := send(ctx, out, []Event{d.Next(now)}); err != nil {
				return err
			}
		}
	}
}
