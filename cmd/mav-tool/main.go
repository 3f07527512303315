// Command mav-tool is a small diagnostic binary: it opens a transport,
// loads a message dialect, and logs every inbound message and connection
// lifecycle event until interrupted.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gomav/mavlink"
	"github.com/gomav/mavlink/conn"
	"github.com/gomav/mavlink/network"
	"github.com/gomav/mavlink/schemacache"
	"github.com/gomav/mavlink/telemetry"
	"github.com/gomav/mavlink/transport"
	"github.com/gomav/mavlink/transport/serial"
	"github.com/gomav/mavlink/transport/tcp"
	"github.com/gomav/mavlink/transport/udp"
)

var (
	transportKind = flag.String("transport", "udp", "transport to use: tcp, udp, serial")
	addr          = flag.String("addr", "127.0.0.1:14550", "address to dial (tcp), listen on (udp), or device path (serial)")
	baud          = flag.Int("baud", 57600, "serial baud rate")
	dialectPath   = flag.String("dialect", "", "path to a MAVLink XML dialect file")
	cachePath     = flag.String("cache", "", "path to a compiled schema cache file (optional)")
	systemID      = flag.Int("system-id", mavlink.DefaultSystemID, "local system id")
	componentID   = flag.Int("component-id", mavlink.DefaultComponentID, "local component id")
	acceptV1      = flag.Bool("accept-v1", true, "accept MAVLink v1 framed messages")
	redisAddr     = flag.String("redis-addr", "", "optional Redis address for telemetry recording")
	redisPass     = flag.String("redis-pass", "", "Redis password")
	redisDB       = flag.Int("redis-db", 0, "Redis database number")
	redisKey      = flag.String("redis-key", "mavlink:peers", "Redis hash/channel key for telemetry")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting mav-tool")
	log.Printf("Transport: %s (%s)", *transportKind, *addr)

	if *dialectPath == "" {
		log.Fatalf("missing required -dialect flag")
	}

	loadXML := func() (*mavlink.MessageSet, error) {
		ms := mavlink.NewMessageSet()
		if err := mavlink.LoadXMLFileInto(ms, *dialectPath); err != nil {
			return nil, err
		}
		return ms, nil
	}

	var ms *mavlink.MessageSet
	var err error
	if *cachePath != "" {
		ms, err = schemacache.Load(*cachePath, loadXML)
	} else {
		ms, err = loadXML()
	}
	if err != nil {
		log.Fatalf("Failed to load dialect: %v", err)
	}
	log.Printf("Loaded %d message definitions", ms.Size())

	self := mavlink.Identity{
		SystemID:    mavlink.NodeID(*systemID),
		ComponentID: mavlink.NodeID(*componentID),
	}

	t, err := openTransport()
	if err != nil {
		log.Fatalf("Failed to open transport: %v", err)
	}
	log.Printf("Transport opened")

	rt := network.New(self, ms, t, *acceptV1)
	defer rt.Close()

	if *redisAddr != "" {
		recorder, err := telemetry.NewRedisRecorder(*redisAddr, *redisPass, *redisDB, *redisKey)
		if err != nil {
			log.Printf("Warning: failed to connect telemetry recorder: %v", err)
		} else {
			rt.SetRecorder(recorder)
			defer recorder.Close()
			log.Printf("Recording telemetry to %s", *redisAddr)
		}
	}

	rt.OnConnection(func(c *conn.Connection) {
		log.Printf("New peer: %s", c.Peer)
		c.AddMessageCallback(func(msg *mavlink.Message) {
			log.Printf("peer %s: %s (id=%d)", c.Peer, msg.Name(), msg.ID())
		})
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Printf("Shutting down...")
}

func openTransport() (transport.Transport, error) {
	switch *transportKind {
	case "tcp":
		return tcp.Dial(*addr, mavlink.PeerAddress{})
	case "udp":
		return udp.Listen(*addr)
	case "serial":
		return serial.NewSerial(*addr, *baud, mavlink.PeerAddress{IsSerial: true})
	default:
		log.Fatalf("unknown transport %q", *transportKind)
		return nil, nil
	}
}
