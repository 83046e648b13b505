package ws

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestSendToUserDuringConnectionChurn(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	// Notifiers hammer the user while their connection is replaced and torn
	// down repeatedly. Sends must only ever see a live channel or no client.
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					hub.SendToUser(userID, []byte("x"))
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		client := NewClient(hub, nil, userID)
		hub.addClient(client)
		if i%3 == 0 {
			// Reconnect path: the next addClient replaces this client.
			replacement := NewClient(hub, nil, userID)
			hub.addClient(replacement)
			client = replacement
		}
		hub.removeClient(client)
	}
	close(done)
	wg.Wait()

	if _, ok := hub.Lookup(userID); ok {
		t.Fatal("client still registered after removal")
	}
	if hub.SendToUser(userID, []byte("x")) {
		t.Fatal("send to a disconnected user reported success")
	}
}

func TestRemoveClientIgnoresReplacedConnection(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	old := NewClient(hub, nil, userID)
	hub.addClient(old)
	replacement := NewClient(hub, nil, userID)
	hub.addClient(replacement)

	// The old connection's teardown must not unregister the replacement.
	if hub.removeClient(old) {
		t.Fatal("stale client removal reported success")
	}
	current, ok := hub.Lookup(userID)
	if !ok || current != replacement {
		t.Fatal("replacement connection lost")
	}

	if !hub.removeClient(replacement) {
		t.Fatal("current client removal failed")
	}
	if _, ok := hub.Lookup(userID); ok {
		t.Fatal("client still registered after removal")
	}
}
