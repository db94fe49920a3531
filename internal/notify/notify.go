// Package notify fans order and line status changes out to interested consumers.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	EntityOrder     = "order"
	EntityDishOrder = "dish_order"
)

type StatusChanged struct {
	ID             string    `json:"id"`
	Entity         string    `json:"entity"`
	OrderReference string    `json:"order_reference"`
	DishOrderID    uint      `json:"dish_order_id,omitempty"`
	DishID         uint      `json:"dish_id,omitempty"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	ChangedAt      time.Time `json:"changed_at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt StatusChanged) error
}

// LogPublisher only logs the event. It stands in when no broker is configured.
type LogPublisher struct {
	Logger logrus.FieldLogger
}

func (p LogPublisher) Publish(_ context.Context, evt StatusChanged) error {
	p.Logger.WithFields(logrus.Fields{
		"entity":    evt.Entity,
		"reference": evt.OrderReference,
		"from":      evt.From,
		"to":        evt.To,
	}).Debug("status changed")
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []StatusChanged
	Err    error
}

func (r *Recorder) Publish(_ context.Context, evt StatusChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []StatusChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StatusChanged, len(r.events))
	copy(out, r.events)
	return out
}
