package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arjun/nft-marketplace/backend/internal/models"
)

// MongoStore handles NFT listing CRUD and search in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("listings")}
}

func (s *MongoStore) Insert(ctx context.Context, nft *models.NFT) (string, error) {
	nft.CreatedAt = time.Now()
	res, err := s.col.InsertOne(ctx, nft)
	if err != nil {
		return "", fmt.Errorf("mongo insert: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	return oid.Hex(), nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.NFT, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %w", err)
	}
	var nft models.NFT
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&nft); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &nft, nil
}

// SetMediaKey records the object-storage key after a successful upload.
func (s *MongoStore) SetMediaKey(ctx context.Context, id, key string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	_, err = s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"media_key": key}})
	return err
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	_, err = s.col.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (s *MongoStore) ListByCreator(ctx context.Context, creatorID string) ([]models.NFT, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"creator_id": creatorID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var nfts []models.NFT
	if err := cur.All(ctx, &nfts); err != nil {
		return nil, err
	}
	return nfts, nil
}

// Search runs one filtered, sorted, paginated listing query and returns the
// page of rows with the total match count.
func (s *MongoStore) Search(ctx context.Context, q models.ListingQuery) ([]models.NFT, int64, error) {
	filter := buildFilter(q)

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo count: %w", err)
	}

	sortKey := q.SortBy
	if sortKey == "" {
		sortKey = models.SortByCreatedAt
	}
	dir := 1
	if q.SortDesc {
		dir = -1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortKey, Value: dir}}).
		SetSkip(q.Offset).
		SetLimit(q.Limit)

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var nfts []models.NFT
	if err := cur.All(ctx, &nfts); err != nil {
		return nil, 0, err
	}
	return nfts, total, nil
}

// Suggest returns up to limit listing names starting with the given prefix.
func (s *MongoStore) Suggest(ctx context.Context, prefix string, limit int64) ([]string, error) {
	filter := bson.M{"name": bson.M{
		"$regex": "^" + escapeRegex(prefix), "$options": "i",
	}}
	opts := options.Find().
		SetLimit(limit).
		SetProjection(bson.M{"name": 1}).
		SetSort(bson.D{{Key: "name", Value: 1}})

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Name string `bson:"name"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	return names, nil
}

func buildFilter(q models.ListingQuery) bson.M {
	filter := bson.M{}

	if q.Text != "" {
		re := bson.M{"$regex": escapeRegex(q.Text), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"name": re}, bson.M{"description": re}}
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Creator != "" {
		filter["creator_id"] = q.Creator
	}
	if q.IsAuction != nil {
		filter["is_auction"] = *q.IsAuction
	}
	if q.PriceMin != nil || q.PriceMax != nil {
		price := bson.M{}
		if q.PriceMin != nil {
			price["$gte"] = *q.PriceMin
		}
		if q.PriceMax != nil {
			price["$lte"] = *q.PriceMax
		}
		filter["price_eth"] = price
	}
	if len(q.Attributes) > 0 {
		var and bson.A
		for _, tf := range q.Attributes {
			and = append(and, bson.M{"attributes": bson.M{"$elemMatch": bson.M{
				"trait_type": tf.TraitType, "value": tf.Value,
			}}})
		}
		filter["$and"] = and
	}
	return filter
}

// escapeRegex neutralizes regex metacharacters in user-supplied text.
func escapeRegex(s string) string {
	const meta = `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(meta); j++ {
			if s[i] == meta[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}
