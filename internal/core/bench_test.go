package core

import (
	"fmt"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	h := NewHub(nil, nil)

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClient(fmt.Sprintf("c%d", i), 16)
		s, err := h.Connect(c)
		if err != nil {
			b.Fatal(err)
		}
		if err := s.Handle(&Command{Kind: CommandJoinPoll, Poll: "bench"}); err != nil {
			b.Fatal(err)
		}
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	drain(target.Events)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		h.Dispatcher.deliverAll(h.Rooms().MembersOf("bench"), &Event{Kind: EventPollResults})
		<-target.Events
	}
	b.StopTimer()
	h.Shutdown()
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
