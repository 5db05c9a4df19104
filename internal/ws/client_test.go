package ws

import (
	"strconv"
	"testing"
)

func TestClientSendBufferFull(t *testing.T) {
	c := NewClient(nil, "u1", "m1")

	for i := 0; i < sendBuffer; i++ {
		if err := c.Send("state " + strconv.Itoa(i)); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	if err := c.Send("overflow"); err == nil {
		t.Fatal("expected an error once the buffer is full")
	}
}

func TestClientSendAfterMarkClosed(t *testing.T) {
	c := NewClient(nil, "u1", "m1")
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if err := c.Send("state x"); err == nil {
		t.Fatal("expected an error on a closed connection")
	}
}
