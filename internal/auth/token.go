package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Verification error texts surface verbatim as 401 response messages, which
// is why they are capitalized.
var (
	// ErrInvalidToken indicates a structurally broken token: wrong part
	// count, undecodable payload, or non-JSON claims.
	ErrInvalidToken = errors.New("Invalid token")
	// ErrInvalidSignature indicates the signature does not match the
	// header and payload under the configured secret.
	ErrInvalidSignature = errors.New("Invalid signature")
	// ErrTokenExpired indicates the token carried an exp claim in the past.
	ErrTokenExpired = errors.New("Token expired")
)

// tokenHeader is the fixed header of every issued token.
const tokenHeader = `{"alg":"HS256","typ":"JWT"}`

// Identity is the authenticated principal carried in a token payload.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenService issues and verifies stateless HMAC-SHA256 signed tokens.
//
// The wire format is "header.payload.signature" with every segment encoded
// using the STANDARD base64 alphabet including padding. This is the shape of
// a JWT but not its encoding (RFC 7515 mandates unpadded base64url), so
// generic JWT libraries cannot produce or consume these tokens. Existing
// clients hold tokens in this format; do not "fix" the alphabet.
type TokenService struct {
	secret []byte
	ttl    time.Duration

	// now is overridable in tests.
	now func() time.Time
}

// NewTokenService builds a service around the shared secret. The secret is
// used verbatim as HMAC key material and must be loaded once at startup.
//
// If ttl is zero, issued tokens carry no exp claim and never expire; Verify
// still enforces exp on tokens that carry one. A zero ttl matches the
// historical issue path.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

type tokenPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Exp   int64  `json:"exp,omitempty"`
}

// Issue signs a token for the given identity.
func (s *TokenService) Issue(identity Identity) (string, error) {
	payload := tokenPayload{
		ID:    identity.ID,
		Email: identity.Email,
	}
	if s.ttl > 0 {
		payload.Exp = s.now().Add(s.ttl).Unix()
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	encodedHeader := base64.StdEncoding.EncodeToString([]byte(tokenHeader))
	encodedPayload := base64.StdEncoding.EncodeToString(payloadJSON)

	signature := s.sign(encodedHeader + "." + encodedPayload)

	return encodedHeader + "." + encodedPayload + "." + signature, nil
}

// Verify checks the token's signature and expiry and returns the decoded
// claims mapping. The error is one of ErrInvalidToken, ErrInvalidSignature
// or ErrTokenExpired.
func (s *TokenService) Verify(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	expected := s.sign(parts[0] + "." + parts[1])
	// Constant-time over the encoded form; a length mismatch is a mismatch.
	if subtle.ConstantTimeCompare([]byte(expected), []byte(parts[2])) != 1 {
		return nil, ErrInvalidSignature
	}

	payloadJSON, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, ErrInvalidToken
	}

	if exp, ok := claims["exp"]; ok {
		expAt, ok := exp.(float64)
		if !ok {
			return nil, ErrInvalidToken
		}
		if int64(expAt) < s.now().Unix() {
			return nil, ErrTokenExpired
		}
	}

	return claims, nil
}

func (s *TokenService) sign(input string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(input))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
