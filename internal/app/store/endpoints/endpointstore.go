package endpointstore

import (
	"context"

	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the Docker/Kubernetes environments known to the console.
type Store struct {
	c *mongo.Collection
}

// New creates a new endpoint store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("endpoints")}
}

// List returns all endpoints ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Endpoint, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Endpoint
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts an endpoint.
func (s *Store) Create(ctx context.Context, ep models.Endpoint) (models.Endpoint, error) {
	ep.ID = primitive.NewObjectID()
	if _, err := s.c.InsertOne(ctx, ep); err != nil {
		return models.Endpoint{}, err
	}
	return ep, nil
}

// NodesCount sums the node counts of all endpoints; this is the number of
// nodes counted against the license.
func (s *Store) NodesCount(ctx context.Context) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"nodes": bson.M{"$sum": "$node_count"},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var res []struct {
		Nodes int `bson:"nodes"`
	}
	if err := cur.All(ctx, &res); err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0].Nodes, nil
}
