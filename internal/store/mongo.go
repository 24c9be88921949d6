package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdg-garage/qr-checkin/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "registrations"

// Mongo keeps each registration as one document with an embedded history array.
type Mongo struct {
	coll *mongo.Collection
}

func NewMongo(coll *mongo.Collection) *Mongo {
	return &Mongo{coll: coll}
}

// DialMongo connects, pings and prepares the registrations collection.
func DialMongo(ctx context.Context, uri, database string) (*Mongo, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewMongo(client.Database(database).Collection(CollectionName))
	// Not unique: duplicate emails are rejected by the registration flow only.
	_, err = s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("create email index: %w", err)
	}
	return s, client, nil
}

func (s *Mongo) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CheckIns == nil {
		reg.CheckIns = []models.CheckIn{}
	}
	if _, err := s.coll.InsertOne(ctx, reg); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *Mongo) Get(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration %s: %w", id, err)
	}
	return &reg, nil
}

func (s *Mongo) FindByEmail(ctx context.Context, email string) ([]models.Registration, error) {
	cur, err := s.coll.Find(ctx, bson.M{"email": email})
	if err != nil {
		return nil, fmt.Errorf("query registrations by email: %w", err)
	}
	var regs []models.Registration
	if err := cur.All(ctx, &regs); err != nil {
		return nil, fmt.Errorf("decode registrations: %w", err)
	}
	return regs, nil
}

func (s *Mongo) RecordCheckIn(ctx context.Context, id string, stamp models.CheckInStamp) (*models.Registration, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var reg models.Registration
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, checkInUpdate(stamp), opts).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record check-in for %s: %w", id, err)
	}
	return &reg, nil
}

// checkInUpdate pushes onto the history array so concurrent writers append
// rather than replace, and increments the counter server-side.
func checkInUpdate(stamp models.CheckInStamp) bson.M {
	return bson.M{
		"$push": bson.M{"checkIns": stamp},
		"$inc":  bson.M{"totalCheckIns": 1},
		"$set":  bson.M{"lastCheckIn": stamp},
	}
}
