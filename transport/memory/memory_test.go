package memory

import (
	"testing"

	"github.com/gomav/mavlink"
)

func TestPairRoundTrip(t *testing.T) {
	a, b := NewPair(
		mavlink.PeerAddress{Address: 1, Port: 1},
		mavlink.PeerAddress{Address: 2, Port: 2},
	)
	defer a.Close()
	defer b.Close()

	go func() {
		if err := a.Send([]byte("hello"), b.self); err != nil {
			t.Errorf("a.Send: %v", err)
		}
	}()

	buf := make([]byte, 5)
	peer, err := b.Receive(buf)
	if err != nil {
		t.Fatalf("b.Receive: %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("payload = %q, want hello", buf)
	}
	if peer != a.self {
		t.Errorf("peer = %+v, want %+v", peer, a.self)
	}
}

func TestSendToWrongPeerRejected(t *testing.T) {
	a, b := NewPair(
		mavlink.PeerAddress{Address: 1, Port: 1},
		mavlink.PeerAddress{Address: 2, Port: 2},
	)
	defer a.Close()
	defer b.Close()

	other := mavlink.PeerAddress{Address: 9, Port: 9}
	if err := a.Send([]byte("x"), other); err == nil {
		t.Error("expected an error sending to a peer that is not the pair's remote")
	}
}

func TestSendBroadcastAccepted(t *testing.T) {
	a, b := NewPair(
		mavlink.PeerAddress{Address: 1, Port: 1},
		mavlink.PeerAddress{Address: 2, Port: 2},
	)
	defer a.Close()
	defer b.Close()

	done := make(chan error, 1)
	go func() { done <- a.Send([]byte("hi"), mavlink.BroadcastPeer) }()

	buf := make([]byte, 2)
	if _, err := b.Receive(buf); err != nil {
		t.Fatalf("b.Receive: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("a.Send(broadcast): %v", err)
	}
}

func TestCloseIsIdempotentAndUnblocksReceive(t *testing.T) {
	a, b := NewPair(
		mavlink.PeerAddress{Address: 1, Port: 1},
		mavlink.PeerAddress{Address: 2, Port: 2},
	)
	if err := a.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	buf := make([]byte, 1)
	if _, err := b.Receive(buf); err == nil {
		t.Error("expected Receive on the peer of a closed endpoint to fail")
	}
}
