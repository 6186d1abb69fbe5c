package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/livepoll-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:5000/ws", "WebSocket address")
	user := flag.String("user", "tester", "identity (or token when auth is required)")
	poll := flag.String("poll", "1", "poll id to subscribe to")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ, data string) error {
		if err := wsjson.Write(ctx, conn, map[string]string{"type": typ, "data": data}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}
	if err := send(proto.InboundTypeIdentify, *user); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoinPoll, *poll); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type  string       `json:"type"`
			Event string       `json:"event"`
			Data  any          `json:"data"`
			Error *proto.Error `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s data=%v", outbound.Event, outbound.Data)
		}
		if outbound.Error != nil {
			fmt.Printf(" error=%s:%s", outbound.Error.Code, outbound.Error.Msg)
		}
		fmt.Println()
	}
}
