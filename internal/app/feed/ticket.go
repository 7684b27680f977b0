package feed

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Browsers cannot attach headers to websocket upgrades, so the session
// cookie is exchanged for a short-lived signed ticket first: POST the
// ticket endpoint while session-authed, then connect with the ticket
// in the query string.

const ticketTTL = 30 * time.Second

var (
	ErrTicketInvalid = errors.New("ticket invalid")
	ErrTicketExpired = errors.New("ticket expired")
)

// Ticket authorizes one websocket connection to one group's feed.
type Ticket struct {
	GroupID  string `json:"g"`
	UserID   string `json:"u"`
	UserName string `json:"n"`
	Nonce    string `json:"x"`
	IssuedAt int64  `json:"t"`
}

// TicketIssuer mints and verifies tickets with securecookie's
// authenticated encryption.
type TicketIssuer struct {
	sc *securecookie.SecureCookie
}

// NewTicketIssuer derives the issuer from the hash and block keys.
// blockKey may be nil for sign-only tickets; 32 bytes enables AES-256.
func NewTicketIssuer(hashKey, blockKey []byte) *TicketIssuer {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(ticketTTL / time.Second))
	return &TicketIssuer{sc: sc}
}

// Issue mints a ticket for userID to stream groupID.
func (i *TicketIssuer) Issue(groupID, userID primitive.ObjectID, userName string) (string, error) {
	return i.sc.Encode("ws-ticket", Ticket{
		GroupID:  groupID.Hex(),
		UserID:   userID.Hex(),
		UserName: userName,
		Nonce:    uuid.NewString(),
		IssuedAt: time.Now().Unix(),
	})
}

// Redeem verifies a ticket and checks it was minted for groupID.
// Expiry is enforced both by securecookie's MaxAge and the embedded
// issue time.
func (i *TicketIssuer) Redeem(token string, groupID primitive.ObjectID) (Ticket, primitive.ObjectID, error) {
	var t Ticket
	if err := i.sc.Decode("ws-ticket", token, &t); err != nil {
		return Ticket{}, primitive.NilObjectID, ErrTicketInvalid
	}
	if time.Since(time.Unix(t.IssuedAt, 0)) > ticketTTL {
		return Ticket{}, primitive.NilObjectID, ErrTicketExpired
	}
	if t.GroupID != groupID.Hex() {
		return Ticket{}, primitive.NilObjectID, ErrTicketInvalid
	}
	userID, err := primitive.ObjectIDFromHex(t.UserID)
	if err != nil {
		return Ticket{}, primitive.NilObjectID, ErrTicketInvalid
	}
	return t, userID, nil
}
