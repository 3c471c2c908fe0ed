package push

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// firebaseMessagingScope is the OAuth scope required by the FCM v1 API.
const firebaseMessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// jwtBearerGrantType identifies the signed-assertion grant in the token
// exchange request.
const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// TokenSource yields a bearer token scoped to the push capability.
// A fresh token is obtained on every call; nothing is cached across dispatch
// cycles.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// GoogleTokenSourceConfig holds Google token source configuration.
type GoogleTokenSourceConfig struct {
	// ClientEmail is the service account identity.
	ClientEmail string

	// PrivateKeyPEM is the PKCS#8 signing key from the service account file.
	PrivateKeyPEM []byte

	// TokenURL is the OAuth token endpoint (optional, for testing).
	TokenURL string

	// Timeout for the exchange request.
	Timeout time.Duration
}

// GoogleTokenSource exchanges a signed service-account assertion for a
// short-lived access token at the Google OAuth2 token endpoint.
type GoogleTokenSource struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
	tokenURL    string
	httpClient  *http.Client
	now         func() time.Time
}

// NewGoogleTokenSource creates a token source from service account
// credentials.
func NewGoogleTokenSource(config GoogleTokenSourceConfig) (*GoogleTokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(config.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account private key: %w", err)
	}

	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = "https://oauth2.googleapis.com/token"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &GoogleTokenSource{
		clientEmail: config.ClientEmail,
		privateKey:  key,
		tokenURL:    tokenURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}, nil
}

// Token performs the signed authorization exchange and returns a bearer
// token valid for the remainder of the current dispatch cycle.
func (s *GoogleTokenSource) Token(ctx context.Context) (string, error) {
	assertion, err := s.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, truncate(string(respBody), 256))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	return result.AccessToken, nil
}

// signAssertion builds the RS256-signed JWT presented to the token endpoint.
func (s *GoogleTokenSource) signAssertion() (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"iss":   s.clientEmail,
		"scope": firebaseMessagingScope,
		"aud":   s.tokenURL,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(time.Hour)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
