// internal/domain/models/crush.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Crush is the single per-month slot a user holds. The slot is identified by
// (FromEmail, Month); re-submitting during the window re-targets ToEmail.
type Crush struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	FromEmail string             `bson:"from_email" json:"-"`
	ToEmail   string             `bson:"to_email" json:"toEmail"`
	Month     string             `bson:"month" json:"month"` // YYYY-MM in the service time zone
	Message   string             `bson:"message" json:"message"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}
