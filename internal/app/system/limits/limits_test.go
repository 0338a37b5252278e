package limits

import (
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate(): %v", err)
	}
}

func TestDefault_Values(t *testing.T) {
	l := Default()
	if l.NameLength != 20 || l.DescriptionLength != 300 {
		t.Errorf("text limits: got %d/%d", l.NameLength, l.DescriptionLength)
	}
	if l.MaxGroupsPerUser != 10 || l.MaxTotalMembers != 250 {
		t.Errorf("group limits: got %d/%d", l.MaxGroupsPerUser, l.MaxTotalMembers)
	}
	if l.LettersPerDay != 2 {
		t.Errorf("LettersPerDay: got %d, want 2", l.LettersPerDay)
	}
}

func TestValidate_ReportsEveryBadField(t *testing.T) {
	l := Default()
	l.NameLength = 0
	l.LettersPerDay = -1

	err := l.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"name_length_limit", "letters_per_day"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}
