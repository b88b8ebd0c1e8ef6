package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type subscription struct {
	Type string           `json:"type"`
	Data subscriptionData `json:"data"`
}

type subscriptionData struct {
	Type         string `json:"type"`
	Prefix       string `json:"prefix,omitempty"`
	MoreSpecific bool   `json:"moreSpecific,omitempty"`
	LessSpecific bool   `json:"lessSpecific,omitempty"`
}

// RISLive streams classified BGP updates from the RIPE RIS Live websocket.
type RISLive struct {
	URL        string
	Dialer     *websocket.Dialer
	Classifier *Classifier
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// ExpireEvery is how often pending withdrawals are resolved.
	ExpireEvery time.Duration
	Now         func() time.Time
	// Prefix narrows the subscription to updates covering or covered by
	// it. The zero value subscribes to every update.
	Prefix netip.Prefix
	Logger zerolog.Logger
}

func NewRISLive(seen SeenSet, logger zerolog.Logger) *RISLive {
	logger = logger.With().Str("component", "rislive").Logger()
	return &RISLive{
		URL:         RISLiveURL,
		Dialer:      websocket.DefaultDialer,
		Classifier:  NewClassifier(seen, logger),
		MinBackoff:  time.Second,
		MaxBackoff:  60 * time.Second,
		ExpireEvery: time.Second,
		Now:         time.Now,
		Logger:      logger,
	}
}

// Run connects and reconnects until ctx is done, sending events to out.
// It always returns ctx's error.
func (r *RISLive) Run(ctx context.Context, out chan<- Event) error {
	backoff := r.MinBackoff
	for {
		r.Logger.Info().Str("url", r.URL).Msg("connecting")
		connected, err := r.session(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = r.MinBackoff
			r.Logger.Warn().Err(err).Msg("connection lost; reconnecting")
		} else {
			r.Logger.Warn().Err(err).Dur("retry", backoff).Msg("dial failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if !connected {
			backoff = min(backoff*2, r.MaxBackoff)
		}
	}
}

func (r *RISLive) session(ctx context.Context, out chan<- Event) (bool, error) {
	conn, _, err := r.Dialer.DialContext(ctx, r.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, r.subscribeMessage()); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	msgs := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- data:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(r.ExpireEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return true, ctx.Err()
		case err := <-readErr:
			return true, fmt.Errorf("read: %w", err)
		case data := <-msgs:
			events, err := r.Classifier.Message(data, r.Now())
			if err != nil {
				r.Logger.Warn().Err(err).Msg("bad message")
				continue
			}
			if err := send(ctx, out, events); err != nil {
				return true, err
			}
		case <-ticker.C:
			if err := send(ctx, out, r.Classifier.Expire(r.Now())); err != nil {
				return true, err
			}
		}
	}
}

func (r *RISLive) subscribeMessage() []byte {
	sub := subscription{Type: "ris_subscribe", Data: subscriptionData{Type: "UPDATE"}}
	if r.Prefix.IsValid() {
		sub.Data.Prefix = r.Prefix.Masked().String()
		sub.Data.MoreSpecific = true
		sub.Data.LessSpecific = true
	}
	data, _ := json.Marshal(sub)
	return data
}

func send(ctx context.Context, out chan<- Event, events []Event) error {
	for _, ev := range events {
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
