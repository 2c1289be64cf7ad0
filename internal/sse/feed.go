package sse

import (
	"context"
	"ms-marketplace/internal/models"
	"sync"
)

// Feed fans committed festival events out to in-process subscribers such as
// SSE streams. Slow subscribers miss events rather than blocking the ledger.
type Feed struct {
	clients     map[string][]chan models.Event
	clientMutex sync.RWMutex
}

func NewFeed() *Feed {
	return &Feed{clients: make(map[string][]chan models.Event)}
}

// Subscribe registers a client for one festival's events until ctx is done.
// The returned channel is closed on unsubscribe.
func (f *Feed) Subscribe(ctx context.Context, festivalID string) <-chan models.Event {
	clientChan := make(chan models.Event, 32)

	f.clientMutex.Lock()
	f.clients[festivalID] = append(f.clients[festivalID], clientChan)
	f.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		f.removeClient(festivalID, clientChan)
	}()

	return clientChan
}

// Publish broadcasts events in order. It is installed as the store's
// OnCommit hook.
func (f *Feed) Publish(events []models.Event) {
	f.clientMutex.RLock()
	defer f.clientMutex.RUnlock()

	for _, ev := range events {
		for _, clientChan := range f.clients[ev.FestivalID] {
			select {
			case clientChan <- ev:
			default:
				// buffer full, drop for this client
			}
		}
	}
}

func (f *Feed) removeClient(festivalID string, clientChan chan models.Event) {
	f.clientMutex.Lock()
	defer f.clientMutex.Unlock()

	clients := f.clients[festivalID]
	for i, ch := range clients {
		if ch == clientChan {
			f.clients[festivalID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(f.clients[festivalID]) == 0 {
		delete(f.clients, festivalID)
	}
}

// ClientCount returns the number of live subscribers of a festival.
func (f *Feed) ClientCount(festivalID string) int {
	f.clientMutex.RLock()
	defer f.clientMutex.RUnlock()
	return len(f.clients[festivalID])
}
