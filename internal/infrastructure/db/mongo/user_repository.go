package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketsquare/auth-service/internal/core/domain"
)

const usersCollection = "users"

// UserRepository is the Mongo-backed credential store.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type userDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	FirstName         string             `bson:"first_name"`
	LastName          string             `bson:"last_name"`
	Email             string             `bson:"email"`
	PasswordHash      string             `bson:"password_hash"`
	Role              string             `bson:"role"`
	FederatedID       string             `bson:"federated_id,omitempty"`
	IsEmailVerified   bool               `bson:"is_email_verified"`
	ProfilePicture    string             `bson:"profile_picture,omitempty"`
	ResetToken        string             `bson:"reset_token,omitempty"`
	ResetTokenExpiry  time.Time          `bson:"reset_token_expiry,omitempty"`
	VerifyToken       string             `bson:"verify_token,omitempty"`
	VerifyTokenExpiry time.Time          `bson:"verify_token_expiry,omitempty"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:                d.ID.Hex(),
		FirstName:         d.FirstName,
		LastName:          d.LastName,
		Email:             d.Email,
		PasswordHash:      d.PasswordHash,
		Role:              d.Role,
		FederatedID:       d.FederatedID,
		IsEmailVerified:   d.IsEmailVerified,
		ProfilePicture:    d.ProfilePicture,
		ResetToken:        d.ResetToken,
		ResetTokenExpiry:  d.ResetTokenExpiry,
		VerifyToken:       d.VerifyToken,
		VerifyTokenExpiry: d.VerifyTokenExpiry,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// EnsureIndexes creates the uniqueness constraints the auth flows rely
// on: email is unique (stored lowercased), federated id unique when
// present, and the recovery tokens are indexed for their consume paths.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "federated_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "reset_token", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "verify_token", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := userDoc{
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Email:           domain.NormalizeEmail(user.Email),
		PasswordHash:    user.PasswordHash,
		Role:            user.Role,
		FederatedID:     user.FederatedID,
		IsEmailVerified: user.IsEmailVerified,
		ProfilePicture:  user.ProfilePicture,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	created.Email = doc.Email
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByFederatedID(ctx context.Context, federatedID string) (*domain.User, error) {
	if federatedID == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"federated_id": federatedID})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error {
	return r.setFields(ctx, userID, bson.M{
		"reset_token":        token,
		"reset_token_expiry": expiry,
	})
}

// ConsumeResetToken redeems the token in a single findOneAndUpdate: the
// filter matches token plus unexpired timestamp, the update swaps the
// password hash and clears the token fields. No read-then-save window.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time, newPasswordHash string) (*domain.User, error) {
	filter := bson.M{
		"reset_token":        token,
		"reset_token_expiry": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"password_hash": newPasswordHash, "updated_at": now},
		"$unset": bson.M{"reset_token": "", "reset_token_expiry": ""},
	}
	return r.consume(ctx, filter, update)
}

func (r *UserRepository) SetVerifyToken(ctx context.Context, userID, token string, expiry time.Time) error {
	return r.setFields(ctx, userID, bson.M{
		"verify_token":        token,
		"verify_token_expiry": expiry,
	})
}

// ConsumeVerifyToken mirrors ConsumeResetToken for the verification
// token: mark verified and clear the token atomically.
func (r *UserRepository) ConsumeVerifyToken(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	filter := bson.M{
		"verify_token":        token,
		"verify_token_expiry": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"is_email_verified": true, "updated_at": now},
		"$unset": bson.M{"verify_token": "", "verify_token_expiry": ""},
	}
	return r.consume(ctx, filter, update)
}

func (r *UserRepository) LinkFederatedIdentity(ctx context.Context, userID, federatedID, picture string) error {
	fields := bson.M{
		"federated_id":      federatedID,
		"is_email_verified": true,
	}
	if picture != "" {
		fields["profile_picture"] = picture
	}
	return r.setFields(ctx, userID, fields)
}

func (r *UserRepository) UpdateRole(ctx context.Context, userID, role string) error {
	return r.setFields(ctx, userID, bson.M{"role": role})
}

func (r *UserRepository) setFields(ctx context.Context, userID string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	fields["updated_at"] = time.Now().UTC()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) consume(ctx context.Context, filter, update bson.M) (*domain.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("consume token: %w", err)
	}
	return doc.toDomain(), nil
}
