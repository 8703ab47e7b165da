// repositories/policy_repository.go
package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// PolicyRepository resolves commission rate rows from MongoDB. A missing row
// is reported as (nil, nil); the attribution engine decides what that means.
type PolicyRepository struct {
	policies *mongo.Collection
}

func NewPolicyRepository(db *mongo.Database) *PolicyRepository {
	return &PolicyRepository{policies: db.Collection("commissionPolicies")}
}

func (r *PolicyRepository) Get(ctx context.Context, productType models.ProductType, level int) (*models.CommissionPolicy, error) {
	var policy models.CommissionPolicy
	err := r.policies.FindOne(ctx, bson.M{"productType": productType, "level": level}).Decode(&policy)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *PolicyRepository) List(ctx context.Context) ([]models.CommissionPolicy, error) {
	cursor, err := r.policies.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	policies := []models.CommissionPolicy{}
	if err := cursor.All(ctx, &policies); err != nil {
		return nil, err
	}
	return policies, nil
}
