package session

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ahitposter/Brovado/internal/models"
)

// Claims is the payload the authentication endpoint puts in its bearer
// tokens. The client never holds the signing secret, so tokens are decoded
// without signature verification; the server re-verifies on every call and
// at socket connect time.
type Claims struct {
	Address     string `json:"address"`
	DisplayName string `json:"twitterName,omitempty"`
	AvatarURL   string `json:"twitterPfpUrl,omitempty"`
	jwt.RegisteredClaims
}

var jwtPattern = regexp.MustCompile(`^[A-Za-z0-9-_=]+\.[A-Za-z0-9-_=]+\.?[A-Za-z0-9-_.+/=]*$`)

// ValidTokenShape reports whether s is shaped like a JWT. Cheap pre-check
// for pasted tokens before attempting a decode.
func ValidTokenShape(s string) bool {
	return jwtPattern.MatchString(strings.TrimSpace(s))
}

// IdentityFromToken decodes a bearer token into a stored identity.
func IdentityFromToken(token string) (models.Identity, error) {
	token = strings.TrimSpace(token)
	if !ValidTokenShape(token) {
		return models.Identity{}, fmt.Errorf("invalid token")
	}

	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return models.Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.Address == "" {
		return models.Identity{}, fmt.Errorf("invalid token")
	}

	id := models.Identity{
		Address:     claims.Address,
		Token:       token,
		DisplayName: claims.DisplayName,
		AvatarURL:   claims.AvatarURL,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// Usable reports whether an identity can open a session right now: a
// well-formed token that has not expired.
func Usable(id models.Identity, now time.Time) bool {
	return ValidTokenShape(id.Token) && !id.Expired(now)
}
