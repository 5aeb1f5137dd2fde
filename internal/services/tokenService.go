package services

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenValidity = 24 * time.Hour

// Claims is the payload of a session credential: the account id and a fixed
// role claim. No server-side session record exists; validity is entirely
// the signature plus the built-in expiry.
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints a signed session credential for an account. Kept as a
// single-method interface so the signer can be swapped without touching the
// verification flow.
type TokenIssuer interface {
	Mint(accountID, role string) (string, error)
}

type jwtIssuer struct {
	secret []byte
}

func NewJWTIssuer() TokenIssuer {
	return &jwtIssuer{secret: []byte(os.Getenv("JWT_SECRET"))}
}

func (i *jwtIssuer) Mint(accountID, role string) (string, error) {
	claims := &Claims{
		ID:   accountID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenValidity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}
