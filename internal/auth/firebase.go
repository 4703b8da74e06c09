package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/FreePeak/db-query-proxy/internal/logger"
)

// idTokenVerifier is the part of the Firebase Admin auth client the proxy uses
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier verifies Firebase Authentication ID tokens with the
// Firebase Admin SDK. The SDK checks the RS256 signature against Google's
// published certificates, which it caches for their advertised lifetime, and
// the issuer, audience, subject and time claims.
type FirebaseVerifier struct {
	projectID string
	tokens    idTokenVerifier
}

// NewFirebaseVerifier creates a verifier for tokens issued to projectID.
// Verifying ID tokens needs no service account, so the app is created
// without credentials unless opts supply some.
func NewFirebaseVerifier(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirebaseVerifier, error) {
	opts = append([]option.ClientOption{option.WithoutAuthentication()}, opts...)

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}

	return &FirebaseVerifier{projectID: projectID, tokens: client}, nil
}

// Verify checks raw and returns the identity it carries
func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	token, err := v.tokens.VerifyIDToken(ctx, raw)
	if err != nil {
		logger.Debug("firebase token for project %s rejected: %v", v.projectID, err)
		return nil, fmt.Errorf("%w: %v", ErrAuthInvalid, err)
	}

	if token.UID == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrAuthInvalid)
	}

	email, _ := token.Claims["email"].(string)
	return &Identity{UID: token.UID, Email: email, Claims: token.Claims}, nil
}
