// repositories/invoice_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clearline-hq/partnerhub_backend/models"
	"github.com/clearline-hq/partnerhub_backend/services"
)

// InvoiceRepository persists invoices in MongoDB.
type InvoiceRepository struct {
	invoices *mongo.Collection
}

func NewInvoiceRepository(db *mongo.Database) *InvoiceRepository {
	return &InvoiceRepository{invoices: db.Collection("invoices")}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	_, err := r.invoices.InsertOne(ctx, invoice)
	return err
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.invoices.FindOne(ctx, bson.M{"_id": id}).Decode(&invoice)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, services.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, paymentRef, notes string, at time.Time) error {
	set := bson.M{"status": models.InvoicePaid, "paymentReference": paymentRef, "paidAt": at}
	if notes != "" {
		set["notes"] = notes
	}
	_, err := r.invoices.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (r *InvoiceRepository) ListByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.Invoice, error) {
	cursor, err := r.invoices.Find(ctx, bson.M{"partnerId": partnerID})
	if err != nil {
		return nil, err
	}
	invoices := []models.Invoice{}
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}
