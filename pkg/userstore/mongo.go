package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is the mongo collection holding user records.
const CollectionName = "users"

// MongoStore implements Store on top of a mongo collection.
// Refresh credentials are encrypted with the given cipher before writes and
// decrypted after reads; everything else is stored as-is.
type MongoStore struct {
	col    *mongo.Collection
	cipher *Cipher
}

// NewMongoStore returns a store backed by the "users" collection of db.
func NewMongoStore(db *mongo.Database, cipher *Cipher) *MongoStore {
	return &MongoStore{
		col:    db.Collection(CollectionName),
		cipher: cipher,
	}
}

// EnsureIndexes creates the unique provider identity index. Call once at boot.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "provider", Value: 1},
			{Key: "provider_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create provider identity index: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, ErrInvalidUserID
	}

	var u User
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}

	if err := s.decryptCredential(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, patch Patch) (*User, error) {
	if id == "" {
		return nil, ErrInvalidUserID
	}

	set := bson.M{}
	if patch.RefreshCredential != nil {
		enc, err := s.cipher.EncryptString(*patch.RefreshCredential)
		if err != nil {
			return nil, err
		}
		set["refresh_credential"] = enc
	}
	if patch.ProviderAccessToken != nil {
		set["provider_access_token"] = *patch.ProviderAccessToken
	}
	if patch.SessionID != nil {
		set["session_id"] = *patch.SessionID
	}
	if patch.LastActiveAt != nil {
		set["last_active_at"] = *patch.LastActiveAt
	}
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}

	var u User
	err := s.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}

	if err := s.decryptCredential(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) FindOrCreate(ctx context.Context, nu NewUser) (*User, error) {
	if nu.Provider == "" || nu.ProviderID == "" {
		return nil, ErrInvalidUserID
	}

	encCred, err := s.cipher.EncryptString(nu.RefreshCredential)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var u User
	err = s.col.FindOneAndUpdate(
		ctx,
		bson.M{"provider": nu.Provider, "provider_id": nu.ProviderID},
		bson.M{
			"$set": bson.M{
				"email":                 nu.Email,
				"name":                  nu.Name,
				"verified":              nu.Verified,
				"refresh_credential":    encCred,
				"provider_access_token": nu.ProviderAccessToken,
				"last_active_at":        now,
			},
			"$setOnInsert": bson.M{
				"_id":        uuid.New().String(),
				"session_id": "",
				"created_at": now,
			},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, fmt.Errorf("find or create user %s/%s: %w", nu.Provider, nu.ProviderID, err)
	}

	if err := s.decryptCredential(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) decryptCredential(u *User) error {
	plain, err := s.cipher.DecryptString(u.RefreshCredential)
	if err != nil {
		return err
	}
	u.RefreshCredential = plain
	return nil
}

// Compile-time interface assertion
var _ Store = (*MongoStore)(nil)
