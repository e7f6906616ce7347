package websocket

import (
	"context"
	"errors"

	"github.com/samber/lo"
)

// Event is one fan-out instruction. It is built after the state change it
// describes has committed and is discarded after delivery.
type Event struct {
	Name     EventName
	Payload  any
	Audience Audience
}

// DeliveryReport counts what happened to one event.
type DeliveryReport struct {
	Targeted  int
	Delivered int
	Failed    int
}

// Dispatch delivers ev at most once per connection. A failed enqueue is
// logged and counted; the rest of the audience still receives the event.
func (h *Hub) Dispatch(ctx context.Context, ev Event) DeliveryReport {
	var report DeliveryReport
	if ev.Audience == nil {
		return report
	}

	frame, err := Encode(ev.Name, ev.Payload)
	if err != nil {
		h.log.Error("Failed to encode event", "event", ev.Name, "error", err)
		return report
	}

	targets := lo.UniqBy(ev.Audience.resolve(h), func(c *Client) string { return c.id })
	report.Targeted = len(targets)

	for _, c := range targets {
		if err := c.Enqueue(frame); err != nil {
			report.Failed++
			msg := "Delivery failed"
			if errors.Is(err, ErrSendQueueFull) {
				msg = "Delivery failed, client too slow"
			}
			h.log.WarnContext(ctx, msg, "event", ev.Name, "clientID", c.id, "userID", c.userID, "error", err)
			continue
		}
		report.Delivered++
	}

	h.stats.recordDispatch(report)
	return report
}
