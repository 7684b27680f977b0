package feed

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testIssuer() *TicketIssuer {
	hash := make([]byte, 64)
	block := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i)
	}
	return NewTicketIssuer(hash, block)
}

func TestTicket_RoundTrip(t *testing.T) {
	iss := testIssuer()
	groupID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	token, err := iss.Issue(groupID, userID, "Alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ticket, gotUser, err := iss.Redeem(token, groupID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if gotUser != userID || ticket.UserName != "Alice" {
		t.Errorf("redeemed %+v (user %s), want user %s", ticket, gotUser.Hex(), userID.Hex())
	}
}

func TestTicket_WrongGroup(t *testing.T) {
	iss := testIssuer()
	token, err := iss.Issue(primitive.NewObjectID(), primitive.NewObjectID(), "Alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := iss.Redeem(token, primitive.NewObjectID()); !errors.Is(err, ErrTicketInvalid) {
		t.Errorf("got %v, want ErrTicketInvalid", err)
	}
}

func TestTicket_Tampered(t *testing.T) {
	iss := testIssuer()
	groupID := primitive.NewObjectID()
	token, err := iss.Issue(groupID, primitive.NewObjectID(), "Alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := iss.Redeem(token+"x", groupID); !errors.Is(err, ErrTicketInvalid) {
		t.Errorf("got %v, want ErrTicketInvalid", err)
	}
	if _, _, err := testIssuer2().Redeem(token, groupID); !errors.Is(err, ErrTicketInvalid) {
		t.Errorf("foreign key: got %v, want ErrTicketInvalid", err)
	}
}

func testIssuer2() *TicketIssuer {
	hash := make([]byte, 64)
	for i := range hash {
		hash[i] = byte(255 - i)
	}
	return NewTicketIssuer(hash, nil)
}

func TestTicket_Expired(t *testing.T) {
	iss := testIssuer()
	groupID := primitive.NewObjectID()
	stale, err := iss.sc.Encode("ws-ticket", Ticket{
		GroupID:  groupID.Hex(),
		UserID:   primitive.NewObjectID().Hex(),
		Nonce:    "n",
		IssuedAt: time.Now().Add(-2 * ticketTTL).Unix(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, _, err := iss.Redeem(stale, groupID); !errors.Is(err, ErrTicketExpired) && !errors.Is(err, ErrTicketInvalid) {
		t.Errorf("got %v, want expired or invalid", err)
	}
}
