package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer. Chat bodies are capped far
	// below this; the limit only bounds hostile frames.
	maxMessageSize = 8192
)

// PostFunc appends a user message on behalf of the connected user.
// Satisfied by workflow.Service.PostMessage.
type PostFunc func(ctx context.Context, groupID, userID primitive.ObjectID, text string) (models.ChatMessage, error)

// inboundFrame is what the browser sends to post a message.
type inboundFrame struct {
	Body string `json:"body"`
}

// errorFrame is pushed back when a post is rejected.
type errorFrame struct {
	Error string `json:"error"`
}

// Client bridges one websocket connection to a group's feed: the write
// pump replays the history snapshot and then streams the subscription;
// the read pump turns incoming frames into PostFunc calls.
type Client struct {
	conn    *websocket.Conn
	sub     *Subscription
	backlog []models.ChatMessage

	groupID primitive.ObjectID
	userID  primitive.ObjectID

	post PostFunc
	errs chan errorFrame // read pump -> write pump; the conn has one writer
	log  *zap.Logger
}

// NewClient wires a just-upgraded connection to a subscription.
// backlog is the full current log, already in key order; it is sent
// before any live event so the peer always sees a gapless stream.
func NewClient(conn *websocket.Conn, sub *Subscription, backlog []models.ChatMessage, groupID, userID primitive.ObjectID, post PostFunc, logger *zap.Logger) *Client {
	return &Client{
		conn:    conn,
		sub:     sub,
		backlog: backlog,
		groupID: groupID,
		userID:  userID,
		post:    post,
		errs:    make(chan errorFrame, 4),
		log:     logger,
	}
}

// Run serves the connection until the peer disconnects, the
// subscription is dropped, or ctx is cancelled. It always cancels the
// subscription and closes the connection before returning.
func (c *Client) Run(ctx context.Context) {
	defer c.sub.Cancel()
	defer c.conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx, cancel)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		var in inboundFrame
		if err := json.Unmarshal(raw, &in); err != nil {
			c.sendError("malformed frame")
			continue
		}
		if _, err := c.post(ctx, c.groupID, c.userID, in.Body); err != nil {
			// The broadcast echoes accepted posts back through the
			// subscription, so only rejections need a direct reply.
			c.sendError(err.Error())
		}
	}
}

func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer cancel()

	for _, msg := range c.backlog {
		if !c.writeMessage(msg) {
			return
		}
	}
	c.backlog = nil

	for {
		select {
		case msg, ok := <-c.sub.Events():
			if !ok {
				// Subscription dropped: group deleted, hub shut down,
				// or this client stalled.
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if !c.writeMessage(msg) {
				return
			}
		case e := <-c.errs:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) writeMessage(msg models.ChatMessage) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}

func (c *Client) sendError(reason string) {
	select {
	case c.errs <- errorFrame{Error: reason}:
	default:
		// Peer is flooding rejected posts faster than we reply; drop.
	}
}
