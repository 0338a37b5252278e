// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is created the first time an identity is resolved to an email.
// Email is the durable key; every other collection refers to users by it.
type User struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Email  string             `bson:"email" json:"email"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Lang   string             `bson:"lang" json:"lang"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// Supported interface languages. An empty Lang means "not chosen yet".
const (
	LangEnglish = "en"
	LangChinese = "zh"
)

// IsSupportedLang reports whether lang may be stored on a profile.
func IsSupportedLang(lang string) bool {
	switch lang {
	case "", LangEnglish, LangChinese:
		return true
	}
	return false
}
