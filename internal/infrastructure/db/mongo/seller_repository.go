package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marketsquare/auth-service/internal/core/domain"
)

const sellersCollection = "sellers"

// SellerRepository reads seller records to enrich token claims. The
// seller lifecycle (onboarding, subscription expiry) is owned elsewhere.
type SellerRepository struct {
	coll *mongo.Collection
}

func NewSellerRepository(db *mongo.Database) *SellerRepository {
	return &SellerRepository{coll: db.Collection(sellersCollection)}
}

type sellerDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID         primitive.ObjectID `bson:"user_id"`
	SubscriptionID string             `bson:"subscription_id,omitempty"`
}

func (r *SellerRepository) FindByUserID(ctx context.Context, userID string) (*domain.Seller, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrSellerNotFound
	}

	var doc sellerDoc
	if err := r.coll.FindOne(ctx, bson.M{"user_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSellerNotFound
		}
		return nil, fmt.Errorf("find seller: %w", err)
	}

	return &domain.Seller{
		ID:             doc.ID.Hex(),
		UserID:         doc.UserID.Hex(),
		SubscriptionID: doc.SubscriptionID,
	}, nil
}
