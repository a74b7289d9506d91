// internal/app/store/clicks/clickstore.go
package clickstore

import (
	"context"
	"time"

	"github.com/dalemusser/hackreg/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Stats windows.
const (
	StatsDays   = 30
	RecentLimit = 100
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("click_events")}
}

// Insert records a click. ID and CreatedAt are assigned if unset.
func (s *Store) Insert(ctx context.Context, ev models.ClickEvent) (models.ClickEvent, error) {
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, ev); err != nil {
		return models.ClickEvent{}, err
	}
	return ev, nil
}

// DayCount is the number of clicks on one UTC day (YYYY-MM-DD).
type DayCount struct {
	Date  string `bson:"_id" json:"date"`
	Count int64  `bson:"count" json:"count"`
}

// Stats summarizes click events.
type Stats struct {
	Total  int64               `json:"total"`
	ByType map[string]int64    `json:"byType"`
	ByDay  []DayCount          `json:"byDay"`
	Recent []models.ClickEvent `json:"recent"`
}

// Stats returns the all-time total, the total per button type, per-day
// counts over the StatsDays days before now, and the RecentLimit most recent
// events (newest first).
func (s *Store) Stats(ctx context.Context, now time.Time) (Stats, error) {
	out := Stats{ByType: map[string]int64{}}

	total, err := s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return Stats{}, err
	}
	out.Total = total

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$button_type", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return Stats{}, err
	}
	var byType []struct {
		Type  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &byType); err != nil {
		return Stats{}, err
	}
	for _, t := range byType {
		out.ByType[t.Type] = t.Count
	}

	since := now.UTC().AddDate(0, 0, -StatsDays)
	cur, err = s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return Stats{}, err
	}
	if err := cur.All(ctx, &out.ByDay); err != nil {
		return Stats{}, err
	}

	cur, err = s.c.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(RecentLimit))
	if err != nil {
		return Stats{}, err
	}
	if err := cur.All(ctx, &out.Recent); err != nil {
		return Stats{}, err
	}
	return out, nil
}
