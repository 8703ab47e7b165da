// repositories/partner_repository.go
package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clearline-hq/partnerhub_backend/models"
	"github.com/clearline-hq/partnerhub_backend/services"
)

// PartnerRepository persists partner records in MongoDB.
type PartnerRepository struct {
	partners *mongo.Collection
}

func NewPartnerRepository(db *mongo.Database) *PartnerRepository {
	return &PartnerRepository{partners: db.Collection("partners")}
}

func (r *PartnerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Partner, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *PartnerRepository) GetByEmail(ctx context.Context, email string) (*models.Partner, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *PartnerRepository) GetByReferralCode(ctx context.Context, code string) (*models.Partner, error) {
	return r.findOne(ctx, bson.M{"referralCode": code})
}

func (r *PartnerRepository) findOne(ctx context.Context, filter bson.M) (*models.Partner, error) {
	var partner models.Partner
	err := r.partners.FindOne(ctx, filter).Decode(&partner)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, services.ErrPartnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *PartnerRepository) Create(ctx context.Context, partner *models.Partner) error {
	_, err := r.partners.InsertOne(ctx, partner)
	return err
}

func (r *PartnerRepository) ChildrenOf(ctx context.Context, id primitive.ObjectID) ([]models.Partner, error) {
	cursor, err := r.partners.Find(ctx, bson.M{"parentPartnerId": id})
	if err != nil {
		return nil, err
	}
	children := []models.Partner{}
	if err := cursor.All(ctx, &children); err != nil {
		return nil, err
	}
	return children, nil
}

func (r *PartnerRepository) ListRoots(ctx context.Context) ([]models.Partner, error) {
	cursor, err := r.partners.Find(ctx, bson.M{"parentPartnerId": bson.M{"$exists": false}})
	if err != nil {
		return nil, err
	}
	roots := []models.Partner{}
	if err := cursor.All(ctx, &roots); err != nil {
		return nil, err
	}
	return roots, nil
}

// SetParentOnce links a partner under its sponsor. The filter requires the
// parent field to be absent, so a second attempt matches nothing and the
// sponsor link stays immutable.
func (r *PartnerRepository) SetParentOnce(ctx context.Context, id, parentID primitive.ObjectID) (bool, error) {
	result, err := r.partners.UpdateOne(ctx,
		bson.M{"_id": id, "parentPartnerId": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"parentPartnerId": parentID}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}
