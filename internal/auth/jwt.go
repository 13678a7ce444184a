package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt"

	"github.com/avoronov/huddle/internal/domain"
)

// TokenClaims carries the user identifier issued at login.
type TokenClaims struct {
	UserID string `json:"userId"`
	jwt.StandardClaims
}

// JWTVerifier checks HS256 tokens against a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(credential string) (domain.Identity, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return "", &Failure{Reason: classify(err)}
	}
	if !token.Valid || claims.UserID == "" {
		return "", &Failure{Reason: CredentialInvalid}
	}
	return domain.Identity(claims.UserID), nil
}

// classify maps library errors onto the admission taxonomy. Expiry must stay
// distinguishable from a forged token so the client knows to re-login.
func classify(err error) Reason {
	ve, ok := err.(*jwt.ValidationError)
	if !ok {
		return VerifierUnavailable
	}
	switch {
	case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
		return CredentialExpired
	case ve.Errors&(jwt.ValidationErrorMalformed|jwt.ValidationErrorSignatureInvalid|jwt.ValidationErrorUnverifiable|jwt.ValidationErrorClaimsInvalid) != 0:
		return CredentialInvalid
	default:
		return CredentialInvalid
	}
}

// Sign issues a token for the given identity. The gateway itself never
// signs; this exists for login tooling and tests.
func (v *JWTVerifier) Sign(id domain.Identity, claims jwt.StandardClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &TokenClaims{
		UserID:         string(id),
		StandardClaims: claims,
	})
	return token.SignedString(v.secret)
}
