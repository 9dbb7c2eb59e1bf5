package realtime

import (
	"sync"
	"testing"
)

// A stream delivery can invoke the snapshot callback while the read pump is
// tearing the connection down. Pushes racing the shutdown must be dropped,
// never sent on the closed channel.
func TestClient_PushDuringShutdownIsDropped(t *testing.T) {
	c := &Client{send: make(chan Event, sendBuffer)}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.push(Event{Type: "state"})
			}
		}()
	}

	c.shutdown()
	wg.Wait()
}

func TestClient_PushAfterShutdownIsNoOp(t *testing.T) {
	c := &Client{send: make(chan Event, sendBuffer)}

	c.shutdown()
	c.push(Event{Type: "state"})

	if _, ok := <-c.send; ok {
		t.Error("expected no events after shutdown")
	}
}

func TestClient_ShutdownIsIdempotent(t *testing.T) {
	c := &Client{send: make(chan Event, sendBuffer)}

	c.shutdown()
	c.shutdown()
}
