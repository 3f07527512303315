package conn

import (
	"testing"
	"time"

	"github.com/gomav/mavlink"
)

func testMessageSet() *mavlink.MessageSet {
	ms := mavlink.NewMessageSet()
	hb := mavlink.NewBuilder("HEARTBEAT", 0)
	hb.AddField("type", mavlink.FieldType{Base: mavlink.Uint8, ArraySize: 1})
	ms.Insert(hb.Build())
	cmd := mavlink.NewBuilder("COMMAND", 22)
	cmd.AddField("param", mavlink.FieldType{Base: mavlink.Uint8, ArraySize: 1})
	ms.Insert(cmd.Build())
	return ms
}

func newTestConnection(peer mavlink.PeerAddress) (*Connection, *mavlink.MessageSet) {
	ms := testMessageSet()
	c := New(peer, ms, func(*mavlink.Message) error { return nil })
	return c, ms
}

// Scenario 6 (spec.md §8): an expectation that is fed fires; one that is
// never fed times out and leaves no registered callback behind.
func TestExpectationDeliveryAndTimeout(t *testing.T) {
	peer := mavlink.PeerAddress{Port: 1}
	c, ms := newTestConnection(peer)

	cmdMsg := ms.MustCreate("COMMAND")
	cmdMsg.MustSetUint8("param", 0, 7)
	cmdMsg.SetSourcePeer(peer)

	e := c.Expect(22, mavlink.ANY, mavlink.ANY)
	c.OnInbound(cmdMsg)

	got, err := c.Receive(e, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.ID() != 22 {
		t.Fatalf("received id %d, want 22", got.ID())
	}

	timeoutExp := c.Expect(99, mavlink.ANY, mavlink.ANY)
	if _, err := c.Receive(timeoutExp, 50*time.Millisecond); err != ErrTimeout {
		t.Fatalf("Receive() error = %v, want ErrTimeout", err)
	}

	c.mu.Lock()
	remaining := len(c.callbacks)
	c.mu.Unlock()
	if remaining != 0 {
		t.Errorf("expected no callbacks left registered after delivery+timeout, got %d", remaining)
	}
}

// Filter correctness (spec.md §8): a connection bound to one peer must
// ignore messages sourced from anyone else.
func TestOnInboundFiltersBySourcePeer(t *testing.T) {
	peer := mavlink.PeerAddress{Port: 1}
	other := mavlink.PeerAddress{Port: 2}
	c, ms := newTestConnection(peer)

	var seen int
	c.AddMessageCallback(func(*mavlink.Message) { seen++ })

	foreign := ms.MustCreate("HEARTBEAT")
	foreign.SetSourcePeer(other)
	c.OnInbound(foreign)
	if seen != 0 {
		t.Fatalf("callback fired for a message from a foreign peer")
	}

	mine := ms.MustCreate("HEARTBEAT")
	mine.SetSourcePeer(peer)
	c.OnInbound(mine)
	if seen != 1 {
		t.Fatalf("callback fire count = %d, want 1", seen)
	}
}

// Expectation source/component filters must both match (or be ANY).
func TestExpectSourceAndComponentFilter(t *testing.T) {
	peer := mavlink.PeerAddress{Port: 1}
	c, ms := newTestConnection(peer)

	e := c.Expect(22, mavlink.NodeID(5), mavlink.NodeID(6))

	wrongComponent := ms.MustCreate("COMMAND")
	wrongComponent.MustFinalize(0, mavlink.Identity{SystemID: 5, ComponentID: 9}, false)
	wrongComponent.SetSourcePeer(peer)
	c.OnInbound(wrongComponent)

	match := ms.MustCreate("COMMAND")
	match.MustFinalize(0, mavlink.Identity{SystemID: 5, ComponentID: 6}, false)
	match.SetSourcePeer(peer)
	c.OnInbound(match)

	got, err := c.Receive(e, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	src := got.Header().Source()
	if src.SystemID != 5 || src.ComponentID != 6 {
		t.Fatalf("delivered message source = %+v, want (5,6)", src)
	}
}

func TestReceiveWakesOnConnectionError(t *testing.T) {
	peer := mavlink.PeerAddress{Port: 1}
	c, _ := newTestConnection(peer)

	e := c.Expect(22, mavlink.ANY, mavlink.ANY)

	done := make(chan error, 1)
	go func() {
		_, err := c.Receive(e, -1)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	c.OnInboundError(ErrTimeout)

	select {
	case err := <-done:
		if err != ErrTimeout {
			t.Fatalf("Receive() error = %v, want ErrTimeout", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not wake up after a connection error")
	}
}

func TestSendFailsBeforeHeartbeat(t *testing.T) {
	peer := mavlink.PeerAddress{Port: 1}
	c, ms := newTestConnection(peer)

	msg := ms.MustCreate("HEARTBEAT")
	if err := c.Send(msg); err != ErrTimeout {
		t.Fatalf("Send() before any heartbeat = %v, want ErrTimeout", err)
	}
	if err := c.ForceSend(msg); err != nil {
		t.Fatalf("ForceSend() should bypass the heartbeat check: %v", err)
	}
}
