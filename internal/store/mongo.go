package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// publicProjection excludes the fields that must never reach a requester.
var publicProjection = bson.M{"password": 0, "refreshToken": 0}

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`

	Username string `bson:"username"`
	Email    string `bson:"email"`
	FullName string `bson:"fullName"`

	Avatar     models.MediaAsset  `bson:"avatar"`
	CoverImage *models.MediaAsset `bson:"coverImage,omitempty"`

	Password     string `bson:"password,omitempty"`
	RefreshToken string `bson:"refreshToken,omitempty"`
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		Avatar:       d.Avatar,
		CoverImage:   d.CoverImage,
		Password:     d.Password,
		RefreshToken: d.RefreshToken,
	}
}

type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique indexes that make the store the
// authoritative guard against duplicate usernames and emails.
// Called on startup from main after Mongo has connected.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("uniq_username").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
	}
	if _, err := s.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}}
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})

	var doc userDocument
	err := s.col.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MongoStore) Create(ctx context.Context, u *models.User) (string, error) {
	now := time.Now().UTC()
	doc := userDocument{
		ID:         primitive.NewObjectID(),
		CreatedAt:  now,
		UpdatedAt:  now,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		Password:   u.Password,
	}

	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return doc.ID.Hex(), nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, id, options.FindOne().SetProjection(publicProjection))
}

func (s *MongoStore) FindByIDWithSecrets(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, id, options.FindOne())
}

func (s *MongoStore) findOne(ctx context.Context, id string, opts *options.FindOneOptions) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc userDocument
	err = s.col.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}

	var doc userDocument
	err := s.col.FindOne(ctx, bson.M{"$or": or}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) SetRefreshToken(ctx context.Context, id, token string) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": time.Now().UTC()}})
}

func (s *MongoStore) ClearRefreshToken(ctx context.Context, id string) error {
	return s.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"refreshToken": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (s *MongoStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()}})
}

func (s *MongoStore) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.User, error) {
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{
		"fullName":  fullName,
		"email":     email,
		"updatedAt": time.Now().UTC(),
	}})
}

func (s *MongoStore) UpdateAvatar(ctx context.Context, id string, avatar models.MediaAsset) (*models.User, error) {
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{"avatar": avatar, "updatedAt": time.Now().UTC()}})
}

func (s *MongoStore) UpdateCoverImage(ctx context.Context, id string, cover *models.MediaAsset) (*models.User, error) {
	now := time.Now().UTC()
	if cover == nil {
		return s.findAndUpdate(ctx, id, bson.M{
			"$unset": bson.M{"coverImage": ""},
			"$set":   bson.M{"updatedAt": now},
		})
	}
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{"coverImage": cover, "updatedAt": now}})
}

func (s *MongoStore) findAndUpdate(ctx context.Context, id string, update bson.M) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(publicProjection)

	var doc userDocument
	err = s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}
