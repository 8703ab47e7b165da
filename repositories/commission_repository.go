// repositories/commission_repository.go
package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// CommissionRepository persists commission records in MongoDB. The partial
// unique index on (dealId, level) for non-voided records (see config/db.go)
// backs the attribution idempotency guard against concurrent redelivery.
type CommissionRepository struct {
	commissions *mongo.Collection
}

func NewCommissionRepository(db *mongo.Database) *CommissionRepository {
	return &CommissionRepository{commissions: db.Collection("commissionRecords")}
}

func (r *CommissionRepository) ExistingLevels(ctx context.Context, dealID primitive.ObjectID) (map[int]bool, error) {
	cursor, err := r.commissions.Find(ctx, bson.M{"dealId": dealID, "voided": false})
	if err != nil {
		return nil, err
	}
	var records []models.CommissionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	levels := make(map[int]bool, len(records))
	for _, record := range records {
		levels[record.Level] = true
	}
	return levels, nil
}

func (r *CommissionRepository) InsertMany(ctx context.Context, records []models.CommissionRecord) error {
	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}
	_, err := r.commissions.InsertMany(ctx, docs)
	return err
}

func (r *CommissionRepository) ByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.CommissionRecord, error) {
	return r.list(ctx, bson.M{"beneficiaryPartnerId": partnerID})
}

func (r *CommissionRepository) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.CommissionRecord, error) {
	return r.list(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *CommissionRepository) ByInvoice(ctx context.Context, invoiceID primitive.ObjectID) ([]models.CommissionRecord, error) {
	return r.list(ctx, bson.M{"invoiceId": invoiceID})
}

func (r *CommissionRepository) ListPayable(ctx context.Context) ([]models.CommissionRecord, error) {
	return r.list(ctx, bson.M{"status": models.CommissionPayable, "voided": false})
}

func (r *CommissionRepository) MarkInvoiced(ctx context.Context, ids []primitive.ObjectID, invoiceID primitive.ObjectID) (int64, error) {
	result, err := r.commissions.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": models.CommissionPayable, "voided": false},
		bson.M{"$set": bson.M{"status": models.CommissionInvoiced, "invoiceId": invoiceID}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *CommissionRepository) MarkPaidByInvoice(ctx context.Context, invoiceID primitive.ObjectID, at time.Time) error {
	_, err := r.commissions.UpdateMany(ctx,
		bson.M{"invoiceId": invoiceID, "status": models.CommissionInvoiced, "voided": false},
		bson.M{"$set": bson.M{"status": models.CommissionPaid, "paidAt": at}},
	)
	return err
}

func (r *CommissionRepository) VoidPendingForDeal(ctx context.Context, dealID primitive.ObjectID, at time.Time) (int64, error) {
	result, err := r.commissions.UpdateMany(ctx,
		bson.M{"dealId": dealID, "voided": false, "status": bson.M{"$ne": models.CommissionPaid}},
		bson.M{"$set": bson.M{"voided": true, "voidedAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *CommissionRepository) list(ctx context.Context, filter bson.M) ([]models.CommissionRecord, error) {
	cursor, err := r.commissions.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	records := []models.CommissionRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
