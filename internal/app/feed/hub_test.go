package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/studycircle/studycircle/internal/app/system/pushid"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestBroadcast_DeliversToGroupSubscribersOnly(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	groupA := primitive.NewObjectID()
	groupB := primitive.NewObjectID()

	subA := h.Subscribe(groupA)
	subB := h.Subscribe(groupB)

	h.Broadcast(models.ChatMessage{ID: "a", GroupID: groupA, Type: models.MessageUser, Body: "hi"})

	select {
	case msg := <-subA.Events():
		if msg.Body != "hi" {
			t.Errorf("body: got %q, want %q", msg.Body, "hi")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber A received nothing")
	}

	select {
	case msg := <-subB.Events():
		t.Fatalf("subscriber B received cross-group message %+v", msg)
	default:
	}
}

// Messages from concurrently posting users must come out of every
// subscription in non-decreasing key order once keyed by push-IDs.
func TestBroadcast_OrderedUnderConcurrentPosters(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	groupID := primitive.NewObjectID()
	sub := h.Subscribe(groupID)

	// Single generator, multiple posting goroutines: IDs are assigned
	// and broadcast under one mutex, as chatstore+workflow do.
	gen := pushid.New()
	var postMu sync.Mutex
	post := func(body string) {
		postMu.Lock()
		defer postMu.Unlock()
		h.Broadcast(models.ChatMessage{
			ID:      gen.Next(),
			GroupID: groupID,
			Type:    models.MessageUser,
			Body:    body,
		})
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			post("msg")
		}()
	}
	wg.Wait()

	prev := ""
	for i := 0; i < n; i++ {
		select {
		case msg := <-sub.Events():
			if msg.ID <= prev {
				t.Fatalf("message %d out of order: %q after %q", i, msg.ID, prev)
			}
			prev = msg.ID
		case <-time.After(time.Second):
			t.Fatalf("only received %d of %d messages", i, n)
		}
	}
}

func TestCancel_NoDeliveryAfterReturn(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	groupID := primitive.NewObjectID()
	sub := h.Subscribe(groupID)

	sub.Cancel()
	h.Broadcast(models.ChatMessage{ID: "x", GroupID: groupID, Body: "late"})

	// The channel must be closed and empty, not carrying the late message.
	msg, ok := <-sub.Events()
	if ok {
		t.Fatalf("received %+v after Cancel returned", msg)
	}
}

func TestCancel_Idempotent(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	sub := h.Subscribe(primitive.NewObjectID())
	sub.Cancel()
	sub.Cancel() // must not panic (double close)
}

func TestBroadcast_DropsStalledSubscriber(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	groupID := primitive.NewObjectID()
	stalled := h.Subscribe(groupID)

	gen := pushid.New()
	// Overfill the stalled subscriber's buffer without draining it.
	for i := 0; i < subscriptionBuffer+1; i++ {
		h.Broadcast(models.ChatMessage{ID: gen.Next(), GroupID: groupID, Body: "flood"})
	}

	// The stalled channel must now be closed after its buffered
	// backlog is drained.
	drained := 0
	closed := false
	for !closed {
		select {
		case _, ok := <-stalled.Events():
			if !ok {
				closed = true
				break
			}
			drained++
		case <-time.After(time.Second):
			t.Fatal("stalled subscriber was not dropped")
		}
	}
	if drained != subscriptionBuffer {
		t.Errorf("drained %d buffered messages, want %d", drained, subscriptionBuffer)
	}

	// A subscriber that keeps up is unaffected by the drop.
	healthy := h.Subscribe(groupID)
	h.Broadcast(models.ChatMessage{ID: gen.Next(), GroupID: groupID, Body: "after"})
	select {
	case msg, ok := <-healthy.Events():
		if !ok {
			t.Fatal("healthy subscriber was dropped")
		}
		if msg.Body != "after" {
			t.Errorf("got body %q, want %q", msg.Body, "after")
		}
	case <-time.After(time.Second):
		t.Fatal("healthy subscriber received nothing")
	}
}

func TestDropGroup_ClosesAllGroupSubscriptions(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	groupID := primitive.NewObjectID()
	s1 := h.Subscribe(groupID)
	s2 := h.Subscribe(groupID)

	h.DropGroup(groupID)

	for _, sub := range []*Subscription{s1, s2} {
		if _, ok := <-sub.Events(); ok {
			t.Fatal("subscription still open after DropGroup")
		}
	}
}
