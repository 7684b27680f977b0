// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
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
	ErrNotFound = errors.New("group not found")
	ErrFull     = errors.New("group is at member capacity")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

// Insert writes a fully-populated group document. Callers (the
// membership workflow) are responsible for member_count/version
// bookkeeping; this store never writes those fields on its own.
func (s *Store) Insert(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	g.CreatedAt = now
	g.UpdatedAt = now
	g.LastActivity = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// ApplyMembershipDelta adjusts member_count and bumps the version
// token in a single update. The floor filter keeps member_count from
// going negative even if a concurrent repair already lowered it.
func (s *Store) ApplyMembershipDelta(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["member_count"] = bson.M{"$gte": -delta}
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"member_count": delta, "version": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the group vanished or the floor filter refused the
		// decrement; clamp to zero in the latter case.
		res2, err2 := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
			"$set": bson.M{"member_count": 0, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		})
		if err2 != nil {
			return err2
		}
		if res2.MatchedCount == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// IncrementMemberGuarded adds one to member_count only while the group
// is below max_members, bumping the version token. Returns ErrFull when
// the guard refuses and ErrNotFound when the group is gone, so two
// racing joins for the last seat cannot both succeed.
func (s *Store) IncrementMemberGuarded(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":   id,
			"$expr": bson.M{"$lt": bson.A{"$member_count", "$max_members"}},
		},
		bson.M{
			"$inc": bson.M{"member_count": 1, "version": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return ErrNotFound
			}
			return err
		}
		return ErrFull
	}
	return nil
}

// TouchActivity updates last_activity. Best-effort; callers ignore the
// error apart from logging.
func (s *Store) TouchActivity(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"last_activity": time.Now().UTC()},
	})
	return err
}

// SetMemberCount overwrites member_count; used by the nightly repair
// pass when re-deriving the count from group_members.
func (s *Store) SetMemberCount(ctx context.Context, id primitive.ObjectID, count int) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"member_count": count, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	})
	return err
}

// Delete removes a group document. Cascading deletes of members,
// requests, chat log, and meetings are the workflow's responsibility.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	ModuleCode  string
	PublicOnly  bool
	CreatedBy   primitive.ObjectID // NilObjectID means any
	SearchName  string
	Limit       int64
}

// List returns groups newest-first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Group, error) {
	filter := bson.M{}
	if code := strings.TrimSpace(f.ModuleCode); code != "" {
		filter["module_code"] = strings.ToUpper(code)
	}
	if f.PublicOnly {
		filter["is_private"] = false
	}
	if f.CreatedBy != primitive.NilObjectID {
		filter["created_by"] = f.CreatedBy
	}
	if q := strings.TrimSpace(f.SearchName); q != "" {
		filter["name_ci"] = bson.M{"$regex": text.Fold(q)}
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ListByIDs returns the groups with the given IDs, newest-first.
// Missing IDs are silently skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Group, error) {
	if len(ids) == 0 {
		return []models.Group{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ListIDs returns every group ID. The nightly member-count repair pass
// iterates these.
func (s *Store) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}
