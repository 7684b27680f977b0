// Package feed fans chat events out to live subscribers.
//
// The hub is purely in-process: every write to a group's chat log goes
// through this service, so broadcasting after the store write is
// sufficient for all connected clients. Each subscriber owns a
// buffered channel; a subscriber that stops draining is dropped rather
// than allowed to stall the rest of the group.
package feed

import (
	"sync"

	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// subscriptionBuffer is the per-subscriber channel depth. A full
// buffer means the consumer is not keeping up and gets disconnected.
const subscriptionBuffer = 64

// Subscription is a live, cancellable view of one group's chat log.
// Events() yields messages in broadcast order. After Cancel returns,
// no further delivery occurs and the channel is closed.
type Subscription struct {
	hub     *Hub
	groupID primitive.ObjectID
	ch      chan models.ChatMessage
	once    sync.Once
}

// Events returns the message channel. The channel closes when the
// subscription is cancelled or the hub shuts down.
func (s *Subscription) Events() <-chan models.ChatMessage {
	return s.ch
}

// Cancel tears the subscription down. Safe to call more than once.
// Guarantees no delivery after it returns: removal and close happen
// under the hub lock that Broadcast also takes.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub tracks the live subscriptions for every group.
type Hub struct {
	mu     sync.Mutex
	groups map[primitive.ObjectID]map[*Subscription]struct{}
	closed bool
	log    *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		groups: make(map[primitive.ObjectID]map[*Subscription]struct{}),
		log:    logger,
	}
}

// Subscribe registers a new live subscription for a group. The caller
// is responsible for loading the existing log first (the handler does
// a key-ordered history read before attaching the subscription).
func (h *Hub) Subscribe(groupID primitive.ObjectID) *Subscription {
	sub := &Subscription{
		hub:     h,
		groupID: groupID,
		ch:      make(chan models.ChatMessage, subscriptionBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	set := h.groups[groupID]
	if set == nil {
		set = make(map[*Subscription]struct{})
		h.groups[groupID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Broadcast delivers msg to every live subscriber of its group.
// Subscribers whose buffers are full are dropped.
func (h *Hub) Broadcast(msg models.ChatMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.groups[msg.GroupID]
	if len(set) == 0 {
		return
	}
	var stalled []*Subscription
	for sub := range set {
		select {
		case sub.ch <- msg:
		default:
			stalled = append(stalled, sub)
		}
	}
	for _, sub := range stalled {
		h.dropLocked(sub)
		if h.log != nil {
			h.log.Warn("dropping stalled chat subscriber",
				zap.String("group_id", msg.GroupID.Hex()))
		}
	}
}

// DropGroup cancels every subscription for a group. Called when the
// group is deleted.
func (h *Hub) DropGroup(groupID primitive.ObjectID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.groups[groupID] {
		h.dropLocked(sub)
	}
}

// Close cancels all subscriptions; further Subscribe calls return an
// already-closed subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.groups {
		for sub := range set {
			h.dropLocked(sub)
		}
	}
	h.groups = make(map[primitive.ObjectID]map[*Subscription]struct{})
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

// dropLocked detaches and closes one subscription. Caller holds h.mu.
func (h *Hub) dropLocked(sub *Subscription) {
	set := h.groups[sub.groupID]
	if set == nil {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.groups, sub.groupID)
	}
	close(sub.ch)
}
