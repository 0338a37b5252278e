// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is an interest group owned by its creator.
//
// NOTE:
//   - CreatorEmail is always present in MemberEmails.
//   - MemberEmails and InvitedEmails are disjoint, and their combined
//     size never exceeds the configured member limit.
//   - Version is bumped on every creator edit and used as the
//     optimistic-concurrency guard for UpdateGroup.
type Group struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Name          string             `bson:"name" json:"name"`
	NameCI        string             `bson:"name_ci" json:"-"`
	Description   string             `bson:"description" json:"description"`
	CreatorEmail  string             `bson:"creator_email" json:"creatorEmail"`
	MemberEmails  []string           `bson:"member_emails" json:"memberEmails"`
	InvitedEmails []string           `bson:"invited_emails" json:"invitedEmails"`
	Version       int64              `bson:"version" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasMember reports whether email is a current member.
func (g Group) HasMember(email string) bool {
	return contains(g.MemberEmails, email)
}

// IsInvited reports whether email holds a pending invitation.
func (g Group) IsInvited(email string) bool {
	return contains(g.InvitedEmails, email)
}

// Size is the number of members plus pending invitations.
func (g Group) Size() int {
	return len(g.MemberEmails) + len(g.InvitedEmails)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
