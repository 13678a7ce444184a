package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"github.com/avoronov/huddle/internal/app"
	"github.com/avoronov/huddle/internal/auth"
	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	gw := app.NewGateway(app.NewRegistry(), nil, nil, nil)
	verifier := auth.NewJWTVerifier("test-secret")
	return NewController(gw, verifier, 32768, 54*time.Second, 32)
}

func admissionRequest(t *testing.T, ctl *Controller, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/ws", func(c *gin.Context) {
		ctl.HandleWS(context.Background(), c)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: CredentialCookie, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdmission_MissingCredential(t *testing.T) {
	ctl := newTestController(t)
	w := admissionRequest(t, ctl, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAdmission_ExpiredCredential(t *testing.T) {
	ctl := newTestController(t)
	verifier := auth.NewJWTVerifier("test-secret")
	token, err := verifier.Sign("42", jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	w := admissionRequest(t, ctl, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	// The refused connection never reached the registry.
	if n := ctl.Gateway.Registry.Len(); n != 0 {
		t.Errorf("registry holds %d connections after refused admission, want 0", n)
	}
}

func TestAdmission_InvalidCredential(t *testing.T) {
	ctl := newTestController(t)
	w := admissionRequest(t, ctl, "garbage-token")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

type verifierFunc func(string) (domain.Identity, error)

func (f verifierFunc) Verify(credential string) (domain.Identity, error) {
	return f(credential)
}

func TestAdmission_VerifierUnavailable(t *testing.T) {
	ctl := newTestController(t)
	ctl.Verifier = verifierFunc(func(string) (domain.Identity, error) {
		return "", errors.New("verifier down")
	})
	w := admissionRequest(t, ctl, "anything")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestDispatch_Robustness(t *testing.T) {
	ctl := newTestController(t)
	conn := &fakeConn{}
	ctl.Gateway.Connected("a", "u1", conn, func() {})

	// None of these may panic or kill the connection.
	ctl.dispatch("a", []byte("not json at all"))
	ctl.dispatch("a", []byte(`{"type":"no-such-event"}`))
	ctl.dispatch("a", []byte(`{"type":"join-room"}`))                  // missing fields
	ctl.dispatch("a", []byte(`{"type":"message","roomId":"general"}`)) // missing text

	if n := ctl.Gateway.Registry.Len(); n != 1 {
		t.Errorf("registry holds %d connections, want 1", n)
	}

	ctl.dispatch("a", []byte(`{"type":"join-room","roomId":"general","userName":"Alice"}`))
	if room, ok := ctl.Gateway.Registry.ChatRoomOf("a"); !ok || room != "general" {
		t.Errorf("after join-room, room = %q, %v; want general, true", room, ok)
	}
}
