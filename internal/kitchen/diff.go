package kitchen

import (
	"context"
	"sort"

	"foh-coordinator/internal/models"
)

// Events is what changed between two kitchen snapshots.
type Events struct {
	// Arrived holds order ids present now but not in the previous snapshot.
	// The kitchen bell fires when this is non-empty.
	Arrived []string
	// Departed holds order ids that left the open set (served or cancelled).
	Departed []string
}

func (e Events) Empty() bool {
	return len(e.Arrived) == 0 && len(e.Departed) == 0
}

// Diff compares snapshots by order-id set, not by count or list length: one
// order leaving and another arriving in the same poll window must still
// raise the arrival edge.
func Diff(prev, next []models.OrderWithLines) Events {
	prevIDs := make(map[string]struct{}, len(prev))
	for _, o := range prev {
		prevIDs[o.Order.ID] = struct{}{}
	}
	nextIDs := make(map[string]struct{}, len(next))
	for _, o := range next {
		nextIDs[o.Order.ID] = struct{}{}
	}

	var events Events
	for id := range nextIDs {
		if _, ok := prevIDs[id]; !ok {
			events.Arrived = append(events.Arrived, id)
		}
	}
	for id := range prevIDs {
		if _, ok := nextIDs[id]; !ok {
			events.Departed = append(events.Departed, id)
		}
	}
	sort.Strings(events.Arrived)
	sort.Strings(events.Departed)
	return events
}

// Poller carries the previous snapshot as explicit local state so the diff
// stays a pure function. One Poller per terminal; not safe for concurrent
// use by more than one goroutine.
type Poller struct {
	service *Service
	prev    []models.OrderWithLines
	primed  bool
}

func NewPoller(service *Service) *Poller {
	return &Poller{service: service}
}

// Poll fetches the current snapshot and reports what changed since the last
// call. The first poll seeds the baseline and reports no events, so a
// display coming online does not ring for every order already open.
func (p *Poller) Poll(ctx context.Context) ([]models.OrderWithLines, Events, error) {
	next, err := p.service.Snapshot(ctx)
	if err != nil {
		return nil, Events{}, err
	}
	if !p.primed {
		p.prev = next
		p.primed = true
		return next, Events{}, nil
	}
	events := Diff(p.prev, next)
	p.prev = next
	return next, events, nil
}
