package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sudohumans/api/internal/models"
)

// Claims are the user's public fields embedded in a session token. Hash and
// salt are never part of a token.
type Claims struct {
	UserID      string   `json:"_id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Visibility  string   `json:"visibility"`
	Collectives []string `json:"collectives"`
	Pronouns    string   `json:"pronouns"`
	FullName    string   `json:"fullName"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	jwt.RegisteredClaims
}

// GenerateToken signs a session token over the user's public fields with the
// configured expiry.
func GenerateToken(secret string, user models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Visibility:  user.Visibility,
		Collectives: user.Collectives,
		Pronouns:    user.Pronouns,
		FullName:    user.FullName,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature and expiry and returns the embedded claims.
func ParseToken(tokenStr string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
