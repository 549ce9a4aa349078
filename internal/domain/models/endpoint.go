// internal/domain/models/endpoint.go
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Endpoint types.
const (
	EndpointDocker     = "docker"
	EndpointKubernetes = "kubernetes"
)

// Endpoint is a managed Docker or Kubernetes environment. NodeCount is the
// number of nodes last reported by its snapshot and counts toward the license.
type Endpoint struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Type      string             `bson:"type" json:"type"`
	URL       string             `bson:"url" json:"url"`
	NodeCount int                `bson:"node_count" json:"nodeCount"`
}
