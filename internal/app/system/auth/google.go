// internal/app/system/auth/google.go
package auth

import (
	"context"
	"strings"

	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"google.golang.org/api/idtoken"
)

// GoogleVerifier resolves a Google ID-token credential to a verified email.
type GoogleVerifier interface {
	VerifyCredential(ctx context.Context, credential string) (string, error)
}

// IDTokenVerifier checks credentials against Google's published keys.
type IDTokenVerifier struct {
	// Audience is the OAuth client ID the token must be issued for.
	Audience string

	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{Audience: clientID, validate: idtoken.Validate}
}

// VerifyCredential fails with a Validation error ("Invalid user detected.")
// for any credential that does not check out or lacks a verified email.
func (v *IDTokenVerifier) VerifyCredential(ctx context.Context, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", apperr.Validation("Invalid user detected.")
	}
	payload, err := v.validate(ctx, credential, v.Audience)
	if err != nil {
		return "", &apperr.Error{Kind: apperr.KindValidation, Message: "Invalid user detected.", Err: err}
	}
	return emailFromClaims(payload.Claims)
}

func emailFromClaims(claims map[string]any) (string, error) {
	email, _ := claims["email"].(string)
	if email == "" {
		return "", apperr.Validation("Invalid user detected.")
	}
	// Google sends email_verified as a bool, older tokens as a string.
	switch ev := claims["email_verified"].(type) {
	case bool:
		if !ev {
			return "", apperr.Validation("Invalid user detected.")
		}
	case string:
		if ev != "true" {
			return "", apperr.Validation("Invalid user detected.")
		}
	}
	return strings.ToLower(strings.TrimSpace(email)), nil
}
