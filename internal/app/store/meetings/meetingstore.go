// internal/app/store/meetings/meetingstore.go
package meetingstore

import (
	"context"
	"time"

	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("meetings")}
}

// InsertSeries writes a generated series of occurrences. The first
// occurrence is inserted alone to obtain the series anchor ID, which
// is then stamped on every record (including the first) as
// original_meeting_id.
func (s *Store) InsertSeries(ctx context.Context, series []models.Meeting) ([]models.Meeting, error) {
	if len(series) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	first := series[0]
	first.ID = primitive.NewObjectID()
	first.OriginalMeetingID = &first.ID
	first.CreatedAt = now
	if _, err := s.c.InsertOne(ctx, first); err != nil {
		return nil, err
	}
	out := []models.Meeting{first}

	if len(series) > 1 {
		docs := make([]interface{}, 0, len(series)-1)
		for _, m := range series[1:] {
			m.ID = primitive.NewObjectID()
			m.OriginalMeetingID = &first.ID
			m.CreatedAt = now
			docs = append(docs, m)
			out = append(out, m)
		}
		if _, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
			return out, err
		}
	}
	return out, nil
}

// ListByGroup returns a group's meetings in date order.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Meeting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "starts_on", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var meetings []models.Meeting
	if err := cur.All(ctx, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// DeleteByGroup removes all meetings generated for a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
