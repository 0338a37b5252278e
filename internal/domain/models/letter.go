// internal/domain/models/letter.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Letter is an anonymous note sent to someone through a shared group.
// ReplyContent is written at most once, by the recipient.
type Letter struct {
	ID             primitive.ObjectID `bson:"_id"`
	FromEmail      string             `bson:"from_email"`
	FromGroupID    primitive.ObjectID `bson:"from_group_id"`
	ToEmail        string             `bson:"to_email"`
	Alias          string             `bson:"alias"`
	Content        string             `bson:"content"`
	ReplyContent   string             `bson:"reply_content,omitempty"`
	ReplyTimestamp *time.Time         `bson:"reply_timestamp,omitempty"`
	Timestamp      time.Time          `bson:"timestamp"`
}

// Replied reports whether the one-shot reply has been used.
func (l Letter) Replied() bool {
	return l.ReplyContent != ""
}

// LetterQuota counts the letters a sender has sent on one UTC day.
// Documents expire shortly after the day ends.
type LetterQuota struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Day       string             `bson:"day"` // YYYY-MM-DD, UTC
	Count     int                `bson:"count"`
	ExpiresAt time.Time          `bson:"expires_at"`
}
