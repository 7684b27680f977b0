// internal/app/store/chat/chatstore.go
package chatstore

import (
	"context"
	"time"

	"github.com/studycircle/studycircle/internal/app/system/pushid"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store appends to and reads per-group chat logs. Messages are keyed
// by push-ID, so _id order is the authoritative chronological order of
// each log; the created_at field is informational.
type Store struct {
	c   *mongo.Collection
	ids *pushid.Generator
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection("chat_messages"),
		ids: pushid.New(),
	}
}

// AppendUser appends a user-authored message and returns it.
func (s *Store) AppendUser(ctx context.Context, groupID, userID primitive.ObjectID, userName, body string) (models.ChatMessage, error) {
	msg := models.ChatMessage{
		ID:        s.ids.Next(),
		GroupID:   groupID,
		Type:      models.MessageUser,
		Body:      body,
		UserID:    &userID,
		UserName:  userName,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, msg); err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// AppendSystem appends an automatically generated audit entry for a
// membership/state transition.
func (s *Store) AppendSystem(ctx context.Context, groupID primitive.ObjectID, body string) (models.ChatMessage, error) {
	msg := models.ChatMessage{
		ID:        s.ids.Next(),
		GroupID:   groupID,
		Type:      models.MessageSystem,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, msg); err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// ListByGroup returns messages in key order (chronological). afterID
// may be empty for the start of the log; limit <= 0 means a default
// page of 100.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, afterID string, limit int64) ([]models.ChatMessage, error) {
	filter := bson.M{"group_id": groupID}
	if afterID != "" {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []models.ChatMessage
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteByGroup removes a group's entire chat log (group deletion
// cascade). Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
