package udp

import (
	"testing"

	"github.com/gomav/mavlink"
)

func TestListenSendReceiveRoundTrip(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen a: %v", err)
	}
	defer a.Close()
	b, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen b: %v", err)
	}
	defer b.Close()

	bPeer := peerFromAddr(b.pc.LocalAddr())
	bPeer.Address = 0x7F000001 // 127.0.0.1
	if err := a.Send([]byte("hello"), bPeer); err != nil {
		t.Fatalf("a.Send: %v", err)
	}

	buf := make([]byte, 5)
	peer, err := b.Receive(buf)
	if err != nil {
		t.Fatalf("b.Receive: %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("payload = %q, want hello", buf)
	}
	if peer.Port == 0 {
		t.Error("expected a non-zero source port reported from Receive")
	}
}

func TestReceiveSplitsAcrossShorterReads(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen a: %v", err)
	}
	defer a.Close()
	b, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen b: %v", err)
	}
	defer b.Close()

	bPeer := peerFromAddr(b.pc.LocalAddr())
	bPeer.Address = 0x7F000001

	if err := a.Send([]byte("abcdef"), bPeer); err != nil {
		t.Fatalf("a.Send: %v", err)
	}

	first := make([]byte, 3)
	if _, err := b.Receive(first); err != nil {
		t.Fatalf("first Receive: %v", err)
	}
	if string(first) != "abc" {
		t.Errorf("first = %q, want abc", first)
	}

	second := make([]byte, 3)
	if _, err := b.Receive(second); err != nil {
		t.Fatalf("second Receive: %v", err)
	}
	if string(second) != "def" {
		t.Errorf("second = %q, want def", second)
	}
}

func TestBroadcastSendUnsupported(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer a.Close()

	if err := a.Send([]byte("x"), mavlink.BroadcastPeer); err == nil {
		t.Error("expected broadcast send on a connectionless transport to fail")
	}
}

func TestIPFromAddrRoundTrip(t *testing.T) {
	ip := ipFromAddr(0x01020304)
	if ip.String() != "1.2.3.4" {
		t.Errorf("ipFromAddr(0x01020304) = %s, want 1.2.3.4", ip)
	}
}
