package websocket

import "sync/atomic"

// Stats are process-lifetime counters for the hub, logged periodically by
// Run and exposed for health endpoints.
type Stats struct {
	connectionsOpened atomic.Int64
	connectionsClosed atomic.Int64
	eventsDispatched  atomic.Int64
	deliveries        atomic.Int64
	deliveryFailures  atomic.Int64
	inboundHandled    atomic.Int64
	inboundRejected   atomic.Int64
}

type StatsSnapshot struct {
	ActiveConnections int   `json:"activeConnections"`
	OnlineUsers       int   `json:"onlineUsers"`
	ConnectionsOpened int64 `json:"connectionsOpened"`
	ConnectionsClosed int64 `json:"connectionsClosed"`
	EventsDispatched  int64 `json:"eventsDispatched"`
	Deliveries        int64 `json:"deliveries"`
	DeliveryFailures  int64 `json:"deliveryFailures"`
	InboundHandled    int64 `json:"inboundHandled"`
	InboundRejected   int64 `json:"inboundRejected"`
}

func (s *Stats) recordDispatch(r DeliveryReport) {
	s.eventsDispatched.Add(1)
	s.deliveries.Add(int64(r.Delivered))
	s.deliveryFailures.Add(int64(r.Failed))
}

func (s *Stats) recordInbound(err error) {
	if err != nil {
		s.inboundRejected.Add(1)
		return
	}
	s.inboundHandled.Add(1)
}

func (h *Hub) Stats() StatsSnapshot {
	return StatsSnapshot{
		ActiveConnections: h.registry.Count(),
		OnlineUsers:       len(h.registry.OnlineUserIDs()),
		ConnectionsOpened: h.stats.connectionsOpened.Load(),
		ConnectionsClosed: h.stats.connectionsClosed.Load(),
		EventsDispatched:  h.stats.eventsDispatched.Load(),
		Deliveries:        h.stats.deliveries.Load(),
		DeliveryFailures:  h.stats.deliveryFailures.Load(),
		InboundHandled:    h.stats.inboundHandled.Load(),
		InboundRejected:   h.stats.inboundRejected.Load(),
	}
}
