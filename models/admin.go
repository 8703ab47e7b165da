// models/admin.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin is a back-office user who progresses deals and settles invoices.
type Admin struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	FullName  string             `bson:"fullName" json:"fullName"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
