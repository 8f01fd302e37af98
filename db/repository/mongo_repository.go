package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amankumarsingh77/go-scraper-api/db"
	"github.com/amankumarsingh77/go-scraper-api/db/models"
	"github.com/sethvargo/go-password/password"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrKeyNotFound   = errors.New("api key not found")
	ErrKeyRevoked    = errors.New("api key revoked")
	ErrQuotaExceeded = errors.New("api key quota exceeded")
)

const keyPrefix = "sk_"

type MongoRepo struct {
	keys    *mongo.Collection
	domains *mongo.Collection
}

func NewMongoRepo(database *mongo.Database) *MongoRepo {
	return &MongoRepo{
		keys:    database.Collection(db.KeysCollection),
		domains: database.Collection(db.DomainsCollection),
	}
}

// HashKey is the stored form of a plaintext key.
func HashKey(plain string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(plain)))
	return hex.EncodeToString(sum[:])
}

// GenerateKey returns a new random plaintext key.
func GenerateKey() (string, error) {
	secret, err := password.Generate(40, 10, 0, false, true)
	if err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return keyPrefix + secret, nil
}

// CreateKey stores a new key and returns it with its plaintext. The plaintext is not recoverable later.
func (m *MongoRepo) CreateKey(ctx context.Context, name string, limit int64) (*models.APIKey, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	plain, err := GenerateKey()
	if err != nil {
		return nil, "", err
	}
	key := &models.APIKey{
		ID:            primitive.NewObjectID(),
		Name:          name,
		KeyHash:       HashKey(plain),
		Prefix:        plain[:len(keyPrefix)+6],
		RequestsLimit: limit,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := m.keys.InsertOne(ctx, key); err != nil {
		return nil, "", fmt.Errorf("insert api key: %w", err)
	}
	return key, plain, nil
}

// ConsumeKey spends one request of the key's quota. The check and the increment are a single
// findOneAndUpdate, so concurrent requests can never push requests_used past requests_limit.
func (m *MongoRepo) ConsumeKey(ctx context.Context, plain string) (*models.APIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	hash := HashKey(plain)
	filter := bson.M{
		"key_hash": hash,
		"active":   true,
		"$expr":    bson.M{"$lt": bson.A{"$requests_used", "$requests_limit"}},
	}
	update := bson.M{
		"$inc": bson.M{"requests_used": 1},
		"$set": bson.M{"last_used_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var key models.APIKey
	err := m.keys.FindOneAndUpdate(ctx, filter, update, opts).Decode(&key)
	if err == nil {
		return &key, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("consume api key: %w", err)
	}

	// Nothing matched: tell unknown, revoked and exhausted keys apart.
	existing, err := m.GetKeyByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !existing.Active {
		return existing, ErrKeyRevoked
	}
	return existing, ErrQuotaExceeded
}

func (m *MongoRepo) GetKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var key models.APIKey
	err := m.keys.FindOne(ctx, bson.M{"key_hash": hash}).Decode(&key)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find api key: %w", err)
	}
	return &key, nil
}

func (m *MongoRepo) RevokeKey(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrKeyNotFound
	}
	res, err := m.keys.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// ProviderDomain returns the stored override for provider, or "" when there is none.
func (m *MongoRepo) ProviderDomain(ctx context.Context, provider string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d models.ProviderDomain
	err := m.domains.FindOne(ctx, bson.M{"provider": strings.ToLower(provider)}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find provider domain: %w", err)
	}
	return d.BaseURL, nil
}

func (m *MongoRepo) SetProviderDomain(ctx context.Context, provider, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	provider = strings.ToLower(provider)
	_, err := m.domains.UpdateOne(ctx,
		bson.M{"provider": provider},
		bson.M{"$set": models.ProviderDomain{Provider: provider, BaseURL: baseURL, UpdatedAt: time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set provider domain: %w", err)
	}
	return nil
}
