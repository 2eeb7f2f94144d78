package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adminkit/admin-console/internal/core/domain"
)

const sessionCollection = "console_sessions"

// SessionStore keeps one document per console profile holding the
// credential pair and the UI preferences.
type SessionStore struct {
	coll    *mongo.Collection
	client  *mongo.Client
	profile string
}

// NewSessionStore returns a store for profile in db.
func NewSessionStore(db *mongo.Database, profile string) *SessionStore {
	return newSessionStore(db.Collection(sessionCollection), profile)
}

func newSessionStore(coll *mongo.Collection, profile string) *SessionStore {
	return &SessionStore{coll: coll, client: coll.Database().Client(), profile: profile}
}

type sessionDoc struct {
	Profile      string             `bson:"_id"`
	AccessToken  string             `bson:"access_token"`
	RefreshToken string             `bson:"refresh_token"`
	Preferences  domain.Preferences `bson:"preferences"`
	UpdatedAt    int64              `bson:"updated_at"`
}

func (s *SessionStore) Load(ctx context.Context) (domain.Credentials, error) {
	doc, err := s.find(ctx)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	return domain.Credentials{AccessToken: doc.AccessToken, RefreshToken: doc.RefreshToken}, nil
}

// Save sets both tokens in a single-document update, which MongoDB applies
// atomically.
func (s *SessionStore) Save(ctx context.Context, creds domain.Credentials) error {
	return s.set(ctx, "save credentials", bson.M{
		"access_token":  creds.AccessToken,
		"refresh_token": creds.RefreshToken,
	})
}

func (s *SessionStore) SetAccessToken(ctx context.Context, token string) error {
	return s.set(ctx, "set access token", bson.M{"access_token": token})
}

// Clear empties both token slots; preferences are kept.
func (s *SessionStore) Clear(ctx context.Context) error {
	return s.set(ctx, "clear credentials", bson.M{
		"access_token":  "",
		"refresh_token": "",
	})
}

func (s *SessionStore) LoadPreferences(ctx context.Context) (domain.Preferences, error) {
	doc, err := s.find(ctx)
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return doc.Preferences, nil
}

func (s *SessionStore) SavePreferences(ctx context.Context, prefs domain.Preferences) error {
	return s.set(ctx, "save preferences", bson.M{"preferences": prefs})
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *SessionStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *SessionStore) find(ctx context.Context) (sessionDoc, error) {
	var doc sessionDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": s.profile}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sessionDoc{Profile: s.profile}, nil
	}
	if err != nil {
		return sessionDoc{}, err
	}
	return doc, nil
}

func (s *SessionStore) set(ctx context.Context, op string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC().Unix()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": s.profile},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
