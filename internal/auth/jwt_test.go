package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

func signedToken(t *testing.T, userID string, expiresAt time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &TokenClaims{
		UserID:         userID,
		StandardClaims: jwt.StandardClaims{ExpiresAt: expiresAt.Unix()},
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func reasonOf(t *testing.T, err error) Reason {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	return f.Reason
}

func TestVerify_ValidToken(t *testing.T) {
	v := NewJWTVerifier("test-secret")
	token := signedToken(t, "42", time.Now().Add(time.Hour))

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id != "42" {
		t.Errorf("identity = %q, want %q", id, "42")
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	v := NewJWTVerifier("test-secret")
	token := signedToken(t, "42", time.Now().Add(-time.Hour))

	_, err := v.Verify(token)
	if err == nil {
		t.Fatal("Verify() expected error for expired token")
	}
	if r := reasonOf(t, err); r != CredentialExpired {
		t.Errorf("reason = %q, want %q", r, CredentialExpired)
	}
}

func TestVerify_ForgedToken(t *testing.T) {
	v := NewJWTVerifier("test-secret")
	other := NewJWTVerifier("other-secret")
	token, err := other.Sign("42", jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = v.Verify(token)
	if err == nil {
		t.Fatal("Verify() expected error for forged token")
	}
	if r := reasonOf(t, err); r != CredentialInvalid {
		t.Errorf("reason = %q, want %q", r, CredentialInvalid)
	}
}

func TestVerify_MalformedToken(t *testing.T) {
	v := NewJWTVerifier("test-secret")

	_, err := v.Verify("not-a-token")
	if err == nil {
		t.Fatal("Verify() expected error for malformed token")
	}
	if r := reasonOf(t, err); r != CredentialInvalid {
		t.Errorf("reason = %q, want %q", r, CredentialInvalid)
	}
}

func TestVerify_MissingUserID(t *testing.T) {
	v := NewJWTVerifier("test-secret")
	token := signedToken(t, "", time.Now().Add(time.Hour))

	_, err := v.Verify(token)
	if err == nil {
		t.Fatal("Verify() expected error for token without userId")
	}
	if r := reasonOf(t, err); r != CredentialInvalid {
		t.Errorf("reason = %q, want %q", r, CredentialInvalid)
	}
}

func TestVerify_WrongSigningMethod(t *testing.T) {
	v := NewJWTVerifier("test-secret")
	// alg=none tokens must never pass.
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, &TokenClaims{UserID: "42"})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := v.Verify(s); err == nil {
		t.Fatal("Verify() expected error for alg=none token")
	}
}
