package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/app"
	"github.com/avoronov/huddle/internal/auth"
	"github.com/avoronov/huddle/internal/core"
)

// CredentialCookie carries the login token on the handshake. Verified once
// here; no per-event re-authentication.
const CredentialCookie = "auth_token"

type Controller struct {
	Gateway  *app.Gateway
	Verifier auth.Verifier

	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

func NewController(gw *app.Gateway, verifier auth.Verifier, readLimit int64, pingPeriod time.Duration, sendBuffer int) *Controller {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{
		Gateway:    gw,
		Verifier:   verifier,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
		SendBuffer: sendBuffer,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS gates admission and promotes the request to a websocket. A
// failed admission answers with a reason-specific status and never
// upgrades; the client reconnects after re-login, the gateway does not retry.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	token, err := c.Cookie(CredentialCookie)
	if err != nil || token == "" {
		log.Warn().Str("module", "adapters.ws").Msg("admission refused: no credential")
		c.JSON(statusFor(auth.MissingCredential), gin.H{"error": string(auth.MissingCredential)})
		return
	}

	identity, err := ctl.Verifier.Verify(token)
	if err != nil {
		reason := auth.VerifierUnavailable
		var failure *auth.Failure
		if errors.As(err, &failure) {
			reason = failure.Reason
		}
		log.Warn().Str("module", "adapters.ws").Str("reason", string(reason)).Msg("admission refused")
		c.JSON(statusFor(reason), gin.H{"error": string(reason)})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	id := core.ConnID(uuid.NewString())
	conn := newWireConn(ws, ctl.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)

	ctl.Gateway.Connected(id, identity, conn, cancel)
	log.Info().Str("module", "adapters.ws").Str("conn", string(id)).Str("user", string(identity)).Msg("new connection")

	go ctl.writePump(ctx, id, conn)
	go ctl.readPump(ctx, id, conn, cancel)
}

func statusFor(r auth.Reason) int {
	switch r {
	case auth.MissingCredential, auth.CredentialExpired:
		return http.StatusUnauthorized
	case auth.CredentialInvalid:
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}
