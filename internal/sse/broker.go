// Package sse streams review activity to the reviewing user's open connections.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/memora/internal/models"
)

// Event is a typed SSE message addressed to one user.
type Event struct {
	UserID string `json:"-"`
	Type   string `json:"type"`
	Data   any    `json:"data"`
}

// ReviewedCard is the payload of a card.reviewed event.
type ReviewedCard struct {
	CardID      string    `json:"cardId"`
	DeckID      string    `json:"deckId"`
	EaseFactor  float64   `json:"easeFactor"`
	Interval    int       `json:"interval"`
	Repetitions int       `json:"repetitions"`
	NextReview  time.Time `json:"nextReview"`
	Mastered    bool      `json:"mastered"`
}

type subscription struct {
	userID string
	ch     chan []byte
}

type countReq struct {
	userID string
	resp   chan int
}

// Broker fans events out to subscribers grouped by user.
//
// A single goroutine owns the client table and the per-user stats throttle;
// public methods talk to it over channels.
type Broker struct {
	statsMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	reviewCh      chan Event
	countReqCh    chan countReq

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one stats.updated event per user
// per statsThrottle.
func NewBroker(statsThrottle time.Duration) *Broker {
	if statsThrottle <= 0 {
		statsThrottle = 2 * time.Second
	}

	b := &Broker{
		statsMin:      statsThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		reviewCh:      make(chan Event, 256),
		countReqCh:    make(chan countReq),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	lastStats := make(map[string]time.Time)

	send := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, user := range clients {
			if user != event.UserID {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.userID

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.reviewCh:
			send(event)

			now := time.Now()
			if now.Sub(lastStats[event.UserID]) >= b.statsMin {
				lastStats[event.UserID] = now
				send(Event{UserID: event.UserID, Type: "stats.updated", Data: map[string]string{}})
			}

		case req := <-b.countReqCh:
			n := 0
			for _, user := range clients {
				if req.userID == "" || user == req.userID {
					n++
				}
			}
			req.resp <- n
		}
	}
}

// Close stops the loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client for userID's events.
func (b *Broker) Subscribe(userID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{userID: userID, ch: ch}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of clients connected for userID, or all
// clients when userID is empty.
func (b *Broker) ClientCount(userID string) int {
	if b.closed.Load() {
		return 0
	}

	req := countReq{userID: userID, resp: make(chan int, 1)}
	select {
	case b.countReqCh <- req:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-req.resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishReview emits card.reviewed followed by a throttled stats.updated.
func (b *Broker) PublishReview(userID string, card models.Card) {
	if b.closed.Load() {
		return
	}
	event := Event{
		UserID: userID,
		Type:   "card.reviewed",
		Data: ReviewedCard{
			CardID:      card.ID,
			DeckID:      card.DeckID,
			EaseFactor:  card.EaseFactor,
			Interval:    card.Interval,
			Repetitions: card.Repetitions,
			NextReview:  card.NextReview,
			Mastered:    card.Mastered(),
		},
	}
	select {
	case b.reviewCh <- event:
	case <-b.stopped:
	}
}

// Handler returns the SSE endpoint. userOf resolves the caller; requests
// without a user are rejected.
func (b *Broker) Handler(userOf func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userOf(r)
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ch := b.Subscribe(userID)
		defer b.Unsubscribe(ch)

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_, _ = w.Write(msg)
				flusher.Flush()
			}
		}
	}
}
