package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/demotours/tour-builder/internal/core/domain"
	"github.com/demotours/tour-builder/internal/core/ports"
)

const toursCollection = "tours"

// TourRepository persists tours as single documents with their steps embedded.
type TourRepository struct {
	col *mongo.Collection
}

func NewTourRepository(db *mongo.Database) *TourRepository {
	return &TourRepository{col: db.Collection(toursCollection)}
}

type mongoStep struct {
	ID          string `bson:"id"`
	Title       string `bson:"title"`
	Description string `bson:"description"`
	Image       string `bson:"image,omitempty"`
	Duration    int    `bson:"duration"`
	Annotations []any  `bson:"annotations"`
}

type mongoTour struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID     string             `bson:"ownerId"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Thumbnail   string             `bson:"thumbnail,omitempty"`
	Status      string             `bson:"status"`
	IsPublic    bool               `bson:"isPublic"`
	Views       int64              `bson:"views"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
	Steps       []mongoStep        `bson:"steps"`
}

func toMongoSteps(steps []domain.Step) []mongoStep {
	out := make([]mongoStep, len(steps))
	for i, s := range steps {
		annotations := s.Annotations
		if annotations == nil {
			annotations = []any{}
		}
		out[i] = mongoStep{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Image:       s.Image,
			Duration:    s.Duration,
			Annotations: annotations,
		}
	}
	return out
}

func (m mongoTour) toDomain() *domain.Tour {
	steps := make([]domain.Step, len(m.Steps))
	for i, s := range m.Steps {
		annotations := s.Annotations
		if annotations == nil {
			annotations = []any{}
		}
		steps[i] = domain.Step{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Image:       s.Image,
			Duration:    s.Duration,
			Annotations: annotations,
		}
	}
	return &domain.Tour{
		ID:          m.ID.Hex(),
		OwnerID:     m.OwnerID,
		Title:       m.Title,
		Description: m.Description,
		Thumbnail:   m.Thumbnail,
		Status:      domain.TourStatus(m.Status),
		IsPublic:    m.IsPublic,
		Views:       m.Views,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
		Steps:       steps,
	}
}

// ownedFilter scopes a query to one tour of one owner. An id that is not a
// valid ObjectID cannot match anything and is reported as not found.
func ownedFilter(id, ownerID string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTourNotFound
	}
	return bson.M{"_id": oid, "ownerId": ownerID}, nil
}

// Create inserts a new tour document and returns it with its generated id.
func (r *TourRepository) Create(ctx context.Context, t *domain.Tour) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoTour{
		ID:          primitive.NewObjectID(),
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Thumbnail:   t.Thumbnail,
		Status:      string(t.Status),
		IsPublic:    t.IsPublic,
		Views:       t.Views,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Steps:       toMongoSteps(t.Steps),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert tour: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TourRepository) FindByID(ctx context.Context, id, ownerID string) (*domain.Tour, error) {
	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, filter)
}

func (r *TourRepository) FindPublic(ctx context.Context, id string) (*domain.Tour, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTourNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid, "isPublic": true})
}

func (r *TourRepository) findOne(ctx context.Context, filter bson.M) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoTour
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTourNotFound
		}
		return nil, fmt.Errorf("find tour: %w", err)
	}
	return m.toDomain(), nil
}

// ListByOwner returns every tour of ownerID, most recently created first.
func (r *TourRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	defer cur.Close(ctx)

	tours := make([]*domain.Tour, 0)
	for cur.Next(ctx) {
		var m mongoTour
		if err := cur.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode tour: %w", err)
		}
		tours = append(tours, m.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	return tours, nil
}

// Update applies patch in a single atomic document update and returns the
// tour as stored afterwards.
func (r *TourRepository) Update(ctx context.Context, id, ownerID string, patch ports.TourPatch) (*domain.Tour, error) {
	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m mongoTour
	err = r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": patchToSet(patch)}, opts).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTourNotFound
		}
		return nil, fmt.Errorf("update tour: %w", err)
	}
	return m.toDomain(), nil
}

func patchToSet(p ports.TourPatch) bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Thumbnail != nil {
		set["thumbnail"] = *p.Thumbnail
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.IsPublic != nil {
		set["isPublic"] = *p.IsPublic
	}
	if p.Steps != nil {
		set["steps"] = toMongoSteps(p.Steps)
	}
	return set
}

func (r *TourRepository) Delete(ctx context.Context, id, ownerID string) error {
	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTourNotFound
	}
	return nil
}

// IncrementViews adds n to the views counter with $inc, so concurrent
// increments never lose updates.
func (r *TourRepository) IncrementViews(ctx context.Context, id string, n int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrTourNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"views": n}})
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTourNotFound
	}
	return nil
}

// StatsByOwner aggregates the dashboard counters for ownerID.
func (r *TourRepository) StatsByOwner(ctx context.Context, ownerID string) (*domain.TourStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ownerId": ownerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"published": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", string(domain.StatusPublished)}}, 1, 0},
			}},
			"views": bson.M{"$sum": "$views"},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total     int64 `bson:"total"`
		Published int64 `bson:"published"`
		Views     int64 `bson:"views"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}

	stats := &domain.TourStats{}
	if len(rows) > 0 {
		stats.Total = rows[0].Total
		stats.Published = rows[0].Published
		stats.Drafts = rows[0].Total - rows[0].Published
		stats.TotalViews = rows[0].Views
	}
	return stats, nil
}

// EnsureIndexes creates the indexes used by owner listings.
func (r *TourRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
