// models/stage_event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StageTransitionEvent is the append-only audit record of one stage change.
// It is never mutated after creation and is the sole trigger for commission
// attribution. Seq is a per-deal sequence number; (dealId, seq) is unique.
type StageTransitionEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DealID     primitive.ObjectID `bson:"dealId" json:"dealId"`
	Seq        int64              `bson:"seq" json:"seq"`
	FromStage  Stage              `bson:"fromStage" json:"fromStage"`
	ToStage    Stage              `bson:"toStage" json:"toStage"`
	ActingRole Role               `bson:"actingRole" json:"actingRole"`
	OccurredAt time.Time          `bson:"occurredAt" json:"occurredAt"`
}
