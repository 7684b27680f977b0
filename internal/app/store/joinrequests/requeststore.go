// internal/app/store/joinrequests/requeststore.go
package requeststore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicatePending = errors.New("user already has a pending request for this group")
	ErrNotFound         = errors.New("join request not found")
	ErrNotPending       = errors.New("join request is no longer pending")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("join_requests")}
}

// Create inserts a pending request. Uniqueness of one pending request
// per (group, user) is enforced by the partial unique index, so the
// read-then-write race the client version had cannot produce
// duplicates here.
func (s *Store) Create(ctx context.Context, groupID, userID primitive.ObjectID, userName, message string) (models.JoinRequest, error) {
	req := models.JoinRequest{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		UserName:  userName,
		Message:   message,
		Status:    models.RequestPending,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, req); err != nil {
		if wafflemongo.IsDup(err) {
			return models.JoinRequest{}, ErrDuplicatePending
		}
		return models.JoinRequest{}, err
	}
	return req, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.JoinRequest, error) {
	var req models.JoinRequest
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return models.JoinRequest{}, ErrNotFound
	}
	if err != nil {
		return models.JoinRequest{}, err
	}
	return req, nil
}

// Resolve transitions a pending request to accepted or declined. The
// status filter makes the transition atomic: a request that was
// already resolved (by a concurrent admin) matches nothing and the
// caller gets ErrNotPending, so one admin action can never clobber
// another's.
func (s *Store) Resolve(ctx context.Context, id primitive.ObjectID, status string) (models.JoinRequest, error) {
	if status != models.RequestAccepted && status != models.RequestDeclined {
		return models.JoinRequest{}, errors.New("status must be accepted or declined")
	}

	now := time.Now().UTC()
	after := options.After
	opts := options.FindOneAndUpdate().SetReturnDocument(after)

	var req models.JoinRequest
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.RequestPending},
		bson.M{"$set": bson.M{"status": status, "responded_at": now}},
		opts,
	).Decode(&req)
	if err == mongo.ErrNoDocuments {
		// Distinguish "gone" from "already resolved" for the caller.
		if _, getErr := s.GetByID(ctx, id); getErr == ErrNotFound {
			return models.JoinRequest{}, ErrNotFound
		}
		return models.JoinRequest{}, ErrNotPending
	}
	if err != nil {
		return models.JoinRequest{}, err
	}
	return req, nil
}

// ListByGroup returns requests for a group, optionally filtered by
// status, oldest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, status string) ([]models.JoinRequest, error) {
	filter := bson.M{"group_id": groupID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reqs []models.JoinRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// HasPending reports whether the user has an open request for the group.
func (s *Store) HasPending(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"status":   models.RequestPending,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteByGroup removes all requests for a group (group deletion
// cascade). Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
