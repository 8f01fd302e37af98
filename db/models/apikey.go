package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// APIKey is a caller credential. Only the SHA-256 of the key is stored.
type APIKey struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	KeyHash       string             `bson:"key_hash" json:"-"`
	Prefix        string             `bson:"prefix" json:"prefix"`
	RequestsLimit int64              `bson:"requests_limit" json:"requestsLimit"`
	RequestsUsed  int64              `bson:"requests_used" json:"requestsUsed"`
	Active        bool               `bson:"active" json:"active"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	LastUsedAt    time.Time          `bson:"last_used_at,omitempty" json:"lastUsedAt,omitempty"`
}

func (k *APIKey) Remaining() int64 {
	if k.RequestsUsed >= k.RequestsLimit {
		return 0
	}
	return k.RequestsLimit - k.RequestsUsed
}
