// internal/app/system/limits/limits.go
package limits

import (
	"errors"
	"fmt"
)

// MaxRequestBody caps JSON request bodies.
const MaxRequestBody = 100 << 10 // 100 KiB

// Limits holds the business limits the engines enforce. It is built once from
// configuration and handed to each engine constructor.
type Limits struct {
	NameLength        int // group names, display names, letter aliases
	DescriptionLength int
	MessageLength     int // crush messages
	LetterLength      int // letter content and replies
	MaxGroupsPerUser  int // counted by creator
	MaxTotalMembers   int // members plus pending invitations
	LettersPerDay     int // per sender, per UTC day
}

// Default returns the production limits.
func Default() Limits {
	return Limits{
		NameLength:        20,
		DescriptionLength: 300,
		MessageLength:     25000,
		LetterLength:      25000,
		MaxGroupsPerUser:  10,
		MaxTotalMembers:   250,
		LettersPerDay:     2,
	}
}

// Validate rejects non-positive values.
func (l Limits) Validate() error {
	var errs []error
	check := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	check("name_length_limit", l.NameLength)
	check("description_length_limit", l.DescriptionLength)
	check("message_length_limit", l.MessageLength)
	check("letter_length_limit", l.LetterLength)
	check("max_groups_per_user", l.MaxGroupsPerUser)
	check("max_total_members", l.MaxTotalMembers)
	check("letters_per_day", l.LettersPerDay)
	if l.MaxTotalMembers == 1 {
		errs = append(errs, errors.New("max_total_members must leave room for invitations"))
	}
	return errors.Join(errs...)
}
