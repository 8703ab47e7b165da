// repositories/deal_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clearline-hq/partnerhub_backend/models"
	"github.com/clearline-hq/partnerhub_backend/services"
)

// DealRepository persists deals and their transition events in MongoDB.
type DealRepository struct {
	deals  *mongo.Collection
	events *mongo.Collection
}

func NewDealRepository(db *mongo.Database) *DealRepository {
	return &DealRepository{
		deals:  db.Collection("deals"),
		events: db.Collection("stageEvents"),
	}
}

func (r *DealRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Deal, error) {
	var deal models.Deal
	err := r.deals.FindOne(ctx, bson.M{"_id": id}).Decode(&deal)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, services.ErrDealNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *DealRepository) Create(ctx context.Context, deal *models.Deal) error {
	_, err := r.deals.InsertOne(ctx, deal)
	return err
}

// UpdateStageCAS applies the stage change only if the deal is still in the
// expected fromStage. MatchedCount 0 means another writer won the race.
func (r *DealRepository) UpdateStageCAS(ctx context.Context, id primitive.ObjectID, from, to models.Stage, at time.Time) (bool, error) {
	update := bson.M{"$set": bson.M{"stage": to, "updatedAt": at}}
	if to == models.StageSignupSubmitted {
		update["$set"].(bson.M)["signupCompletedAt"] = at
	}
	result, err := r.deals.UpdateOne(ctx, bson.M{"_id": id, "stage": from}, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *DealRepository) NextEventSeq(ctx context.Context, dealID primitive.ObjectID) (int64, error) {
	count, err := r.events.CountDocuments(ctx, bson.M{"dealId": dealID})
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

func (r *DealRepository) AppendEvent(ctx context.Context, event *models.StageTransitionEvent) error {
	_, err := r.events.InsertOne(ctx, event)
	return err
}

func (r *DealRepository) EventsForDeal(ctx context.Context, dealID primitive.ObjectID) ([]models.StageTransitionEvent, error) {
	cursor, err := r.events.Find(ctx, bson.M{"dealId": dealID}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	events := []models.StageTransitionEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *DealRepository) ListByStage(ctx context.Context, stage models.Stage) ([]models.Deal, error) {
	return r.list(ctx, bson.M{"stage": stage})
}

func (r *DealRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Deal, error) {
	return r.list(ctx, bson.M{"ownerPartnerId": ownerID})
}

func (r *DealRepository) CountByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return r.deals.CountDocuments(ctx, bson.M{"ownerPartnerId": ownerID})
}

func (r *DealRepository) list(ctx context.Context, filter bson.M) ([]models.Deal, error) {
	cursor, err := r.deals.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	deals := []models.Deal{}
	if err := cursor.All(ctx, &deals); err != nil {
		return nil, err
	}
	return deals, nil
}
