package repository

import (
	"context"
	"errors"
	"fmt"
	hotelserrors "roost/internal/hotels/errors"
	"roost/pkg/config"
	mongotx "roost/pkg/db/mongo"
	"roost/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Hotels"
)

type mongoHotelRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type HotelRepository interface {
	Create(ctx context.Context, hotel *model.Hotel) error
	FindByID(ctx context.Context, id string) (*model.Hotel, error)
	FindAll(ctx context.Context, filter *model.HotelFilter) ([]*model.Hotel, error)
	FindSummariesByIDs(ctx context.Context, ids []string) (map[string]*model.HotelSummary, error)
	Update(ctx context.Context, id string, hotel *model.Hotel) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	PriceStats(ctx context.Context) (*model.HotelPriceStats, error)
	RatingDistribution(ctx context.Context) ([]model.RatingBucket, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoHotelRepository(cfg *config.Config) HotelRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoHotelRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoHotelRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoHotelRepository) Create(ctx context.Context, hotel *model.Hotel) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	hotel.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, hotel)
	if err != nil {
		return fmt.Errorf("failed to create hotel: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		hotel.ID = oid.Hex()
	}
	return nil
}

func (r *mongoHotelRepository) FindByID(ctx context.Context, id string) (*model.Hotel, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", hotelserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}

	var hotel model.Hotel
	err = r.collection.FindOne(ctx, filter).Decode(&hotel)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, hotelserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find hotel: %w", err)
	}

	return &hotel, nil
}

func (r *mongoHotelRepository) FindAll(ctx context.Context, filter *model.HotelFilter) ([]*model.Hotel, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, r.buildCatalogFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find hotels: %w", err)
	}
	defer cursor.Close(ctx)

	var hotels []*model.Hotel
	if err = cursor.All(ctx, &hotels); err != nil {
		return nil, fmt.Errorf("failed to decode hotels: %w", err)
	}

	return hotels, nil
}

func (r *mongoHotelRepository) buildCatalogFilter(filter *model.HotelFilter) bson.M {
	query := bson.M{}
	if filter == nil {
		return query
	}

	if filter.Location != "" {
		query["location"] = bson.M{"$regex": filter.Location, "$options": "i"}
	}

	if filter.PriceMin != nil || filter.PriceMax != nil {
		price := bson.M{}
		if filter.PriceMin != nil {
			price["$gte"] = *filter.PriceMin
		}
		if filter.PriceMax != nil {
			price["$lte"] = *filter.PriceMax
		}
		query["price"] = price
	}

	if filter.MinRating != nil {
		query["rating"] = bson.M{"$gte": *filter.MinRating}
	}

	if len(filter.Amenities) > 0 {
		query["amenities"] = bson.M{"$all": filter.Amenities}
	}

	return query
}

func (r *mongoHotelRepository) FindSummariesByIDs(ctx context.Context, ids []string) (map[string]*model.HotelSummary, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			// Skip malformed ids; the caller treats missing entries as absent.
			continue
		}
		objectIDs = append(objectIDs, objectID)
	}
	if len(objectIDs) == 0 {
		return map[string]*model.HotelSummary{}, nil
	}

	opts := options.Find().SetProjection(bson.M{
		"name":     1,
		"location": 1,
		"image":    1,
		"rating":   1,
	})

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find hotel summaries: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []*model.HotelSummary
	if err = cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode hotel summaries: %w", err)
	}

	result := make(map[string]*model.HotelSummary, len(summaries))
	for _, s := range summaries {
		result[s.ID] = s
	}
	return result, nil
}

func (r *mongoHotelRepository) Update(ctx context.Context, id string, hotel *model.Hotel) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", hotelserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"name":        hotel.Name,
			"location":    hotel.Location,
			"description": hotel.Description,
			"price":       hotel.Price,
			"rating":      hotel.Rating,
			"image":       hotel.Image,
			"images":      hotel.Images,
			"amenities":   hotel.Amenities,
			"policies":    hotel.Policies,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update hotel: %w", err)
	}

	if result.MatchedCount == 0 {
		return hotelserrors.ErrNotFound
	}

	return nil
}

func (r *mongoHotelRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", hotelserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete hotel: %w", err)
	}

	if result.DeletedCount == 0 {
		return hotelserrors.ErrNotFound
	}

	return nil
}

func (r *mongoHotelRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count hotels: %w", err)
	}

	return count, nil
}

func (r *mongoHotelRepository) PriceStats(ctx context.Context) (*model.HotelPriceStats, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"avg_price": bson.M{"$avg": "$price"},
			"min_price": bson.M{"$min": "$price"},
			"max_price": bson.M{"$max": "$price"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate hotel prices: %w", err)
	}
	defer cursor.Close(ctx)

	var results []model.HotelPriceStats
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode price aggregation: %w", err)
	}

	if len(results) == 0 {
		return &model.HotelPriceStats{}, nil
	}
	return &results[0], nil
}

func (r *mongoHotelRepository) RatingDistribution(ctx context.Context) ([]model.RatingBucket, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$floor": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate hotel ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []model.RatingBucket
	if err = cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("failed to decode rating aggregation: %w", err)
	}

	return buckets, nil
}

func (r *mongoHotelRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
