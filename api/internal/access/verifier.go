package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var ErrNoToken = errors.New("no bearer token")

// Identity — проверенная личность вызывающего.
type Identity struct {
	UID   string
	Email string
}

type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}

// tokenVerifier — подмножество *fbauth.Client.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type FirebaseVerifier struct {
	client tokenVerifier
}

func NewFirebaseVerifier(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	cl, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: cl}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, ErrNoToken
	}
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, err
	}
	// неподтверждённый email не годится для allow-list: личность есть, email нет
	email, _ := tok.Claims["email"].(string)
	if verified, _ := tok.Claims["email_verified"].(bool); !verified {
		email = ""
	}
	return Identity{UID: tok.UID, Email: email}, nil
}

// BearerToken достаёт токен из "Authorization: Bearer <token>".
func BearerToken(header string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
