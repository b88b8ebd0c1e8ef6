package sources

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"time"

	"github.com/rs/zerolog"
)

type EventKind int

const (
	// Discovery is the first announcement of a prefix ever seen.
	Discovery EventKind = iota
	// PathChange is a re-announcement of a known prefix, or an
	// announcement shortly after a withdrawal.
	PathChange
	// Withdrawal is a withdrawal that was not followed by an announcement
	// within the resolution window.
	Withdrawal
	// Gossip is a repeat of a recent announcement for the same prefix.
	Gossip
)

func (k EventKind) String() string {
	switch k {
	case Discovery:
		return "new"
	case PathChange:
		return "upd"
	case Withdrawal:
		return "with"
	case Gossip:
		return "gossip"
	}
	return "unknown"
}

// Event is one classified routing change.
type Event struct {
	Kind      EventKind
	Prefix    netip.Prefix
	Peer      string
	OriginASN uint32
	Time      time.Time
}

// SeenSet remembers prefixes across sessions.
type SeenSet interface {
	Seen(prefix netip.Prefix) (bool, error)
	MarkSeen(prefix netip.Prefix) error
}

const (
	DefaultDedupeWindow  = 15 * time.Second
	DefaultResolveWindow = 10 * time.Second

	recentLimit  = 500000
	recentMaxAge = 5 * time.Minute
)

type recentEvent struct {
	time time.Time
	kind EventKind
}

type pendingWithdrawal struct {
	deadline time.Time
	event    Event
}

// Classifier turns raw announcements and withdrawals into events. It is not
// safe for concurrent use.
type Classifier struct {
	seen          SeenSet
	dedupeWindow  time.Duration
	resolveWindow time.Duration
	logger        zerolog.Logger

	recent  map[netip.Prefix]recentEvent
	pending map[netip.Prefix]pendingWithdrawal
}

// NewClassifier returns a classifier using seen to tell discoveries from
// path changes. A nil seen treats every first announcement in this
// process as a discovery.
func NewClassifier(seen SeenSet, logger zerolog.Logger) *Classifier {
	return &Classifier{
		seen:          seen,
		dedupeWindow:  DefaultDedupeWindow,
		resolveWindow: DefaultResolveWindow,
		logger:        logger,
		recent:        make(map[netip.Prefix]recentEvent),
		pending:       make(map[netip.Prefix]pendingWithdrawal),
	}
}

func (c *Classifier) recentIs(p netip.Prefix, now time.Time, kinds ...EventKind) bool {
	last, ok := c.recent[p]
	if !ok || now.Sub(last.time) >= c.dedupeWindow {
		return false
	}
	for _, k := range kinds {
		if last.kind == k {
			return true
		}
	}
	return false
}

// Withdraw records a withdrawal. It returns an event only when the prefix
// was withdrawn moments ago; otherwise the withdrawal waits for Expire.
// The repeat keeps the Withdrawal kind.
func (c *Classifier) Withdraw(p netip.Prefix, peer string, asn uint32, now time.Time) (Event, bool) {
	ev := Event{Kind: Withdrawal, Prefix: p, Peer: peer, OriginASN: asn, Time: now}
	if c.recentIs(p, now, Withdrawal) {
		return ev, true
	}
	c.pending[p] = pendingWithdrawal{deadline: now.Add(c.resolveWindow), event: ev}
	return Event{}, false
}

// Announce classifies an announcement.
func (c *Classifier) Announce(p netip.Prefix, peer string, asn uint32, now time.Time) Event {
	ev := Event{Kind: PathChange, Prefix: p, Peer: peer, OriginASN: asn, Time: now}
	switch {
	case c.recentIs(p, now, Withdrawal):
	case c.recentIs(p, now, Discovery, PathChange, Gossip):
		ev.Kind = Gossip
		return ev
	default:
		if _, ok := c.pending[p]; ok {
			delete(c.pending, p)
		} else if c.isNew(p) {
			ev.Kind = Discovery
		}
	}
	c.recent[p] = recentEvent{time: now, kind: ev.Kind}
	return ev
}

func (c *Classifier) isNew(p netip.Prefix) bool {
	if c.seen == nil {
		_, ok := c.recent[p]
		return !ok
	}
	seen, err := c.seen.Seen(p)
	if err != nil {
		c.logger.Warn().Err(err).Stringer("prefix", p).Msg("seen lookup failed")
		return false
	}
	if seen {
		return false
	}
	if err := c.seen.MarkSeen(p); err != nil {
		c.logger.Warn().Err(err).Stringer("prefix", p).Msg("failed to update seen database")
	}
	return true
}

// Expire emits withdrawals whose resolution window has passed and drops
// stale history.
func (c *Classifier) Expire(now time.Time) []Event {
	var out []Event
	for p, w := range c.pending {
		if now.After(w.deadline) {
			out = append(out, w.event)
			c.recent[p] = recentEvent{time: now, kind: Withdrawal}
			delete(c.pending, p)
		}
	}
	if len(c.recent) > recentLimit {
		for p, r := range c.recent {
			if now.Sub(r.time) > recentMaxAge {
				delete(c.recent, p)
			}
		}
	}
	return out
}

// Pending is the number of withdrawals awaiting resolution.
func (c *Classifier) Pending() int { return len(c.pending) }

type risMessage struct {
	Type string `json:"type"`
	Data struct {
		Peer          string            `json:"peer"`
		Path          []json.RawMessage `json:"path"`
		Announcements []struct {
			Prefixes []string `json:"prefixes"`
		} `json:"announcements"`
		Withdrawals []string `json:"withdrawals"`
		Message     string   `json:"message"`
	} `json:"data"`
}

// originASN returns the last path element when it is a plain AS number.
// AS_SET origins yield 0.
func originASN(path []json.RawMessage) uint32 {
	if len(path) == 0 {
		return 0
	}
	var asn uint32
	if err := json.Unmarshal(path[len(path)-1], &asn); err != nil {
		return 0
	}
	return asn
}

// Message classifies one RIS Live message. Withdrawals are handled before
// announcements. Beacon and unparsable prefixes are skipped.
func (c *Classifier) Message(data []byte, now time.Time) ([]Event, error) {
	var msg risMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode ris message: %w", err)
	}
	switch msg.Type {
	case "ris_message":
	case "ris_error":
		return nil, fmt.Errorf("ris error: %s", msg.Data.Message)
	default:
		return nil, nil
	}

	asn := originASN(msg.Data.Path)
	var out []Event
	for _, s := range msg.Data.Withdrawals {
		p, ok := parsePrefix(s)
		if !ok {
			continue
		}
		if ev, ok := c.Withdraw(p, msg.Data.Peer, asn, now); ok {
			out = append(out, ev)
		}
	}
	for _, ann := range msg.Data.Announcements {
		for _, s := range ann.Prefixes {
			if p, ok := parsePrefix(s); ok {
				out = append(out, c.Announce(p, msg.Data.Peer, asn, now))
			}
		}
	}
	return out, nil
}

func parsePrefix(s string) (netip.Prefix, bool) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, false
	}
	p = p.Masked()
	return p, !IsBeaconPrefix(p)
}
