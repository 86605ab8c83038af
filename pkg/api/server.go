// Package api exposes the vesting manager's query and admin operations
// over HTTP with gin-gonic/gin, plus a live event feed over
// gorilla/websocket. Every mutating route authenticates its caller via
// a signed header before the manager ever sees the request, matching
// the host responsibility spec §6 assumes ("the runtime must verify
// that the named principal authorized this invocation") before
// Manager's own capability checks run.
package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/beans-labs/vesting-manager/internal/logger"
	"github.com/beans-labs/vesting-manager/pkg/metrics"
	"github.com/beans-labs/vesting-manager/pkg/ratelimit"
	"github.com/beans-labs/vesting-manager/pkg/token"
	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

// Server wires the manager, rate limiter, and event hub behind a gin
// router.
type Server struct {
	mgr         *vesting.Manager
	limiter     *ratelimit.Limiter
	hub         *Hub
	otherTokens *token.Registry
	metrics     *metrics.Exporter
	secret      []byte
	log         *logger.Logger
	engine      *gin.Engine
	server      *http.Server
}

// New builds a Server. secret is the shared HMAC key callers sign
// requests with; hub may be nil to disable the /events feed. otherTokens
// resolves addresses passed to withdraw_other_token to the Token
// implementation holding the manager's custody balance of that token;
// it may be nil to disable that route. exporter may be nil to skip
// per-error metrics (the manager's own event stream still needs to be
// wired to exporter.EventSink by the caller for the success counters).
func New(mgr *vesting.Manager, limiter *ratelimit.Limiter, hub *Hub, otherTokens *token.Registry, exporter *metrics.Exporter, secret []byte, log *logger.Logger, port int) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{mgr: mgr, limiter: limiter, hub: hub, otherTokens: otherTokens, metrics: exporter, secret: secret, log: log, engine: engine}
	s.routes()
	s.server = &http.Server{Addr: ":" + strconv.Itoa(port), Handler: engine}
	return s
}

func (s *Server) Start() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if s.hub != nil {
		s.engine.GET("/events", s.handleEvents)
	}

	v1 := s.engine.Group("/v1")
	v1.Use(s.rateLimitMiddleware())

	v1.GET("/vestings/:id", s.handleGetVestingInfo)
	v1.GET("/vestings/:id/vested", s.handleCalculateVestedAmount)
	v1.GET("/recipients", s.handleGetRecipients)
	v1.GET("/recipients/sliced", s.handleGetRecipientsSliced)
	v1.GET("/recipients/count", s.handleGetRecipientsLen)
	v1.GET("/recipients/:address", s.handleIsRecipient)
	v1.GET("/recipients/:address/vestings", s.handleGetRecipientVestings)
	v1.GET("/recipients/:address/vestings/sliced", s.handleGetRecipientVestingsSliced)
	v1.GET("/recipients/:address/vestings/count", s.handleGetRecipientVestingsLen)
	v1.GET("/token", s.handleGetTokenAddress)
	v1.GET("/reserved", s.handleGetReserved)
	v1.GET("/admins/:address", s.handleIsAdmin)
	v1.GET("/admins/count", s.handleAdminsCount)
	v1.GET("/debug/snapshot", s.handleSnapshot)

	authed := v1.Group("/")
	authed.Use(s.authMiddleware())

	authed.POST("/vestings", s.handleCreateVesting)
	authed.POST("/vestings/batch", s.handleCreateVestingBatch)
	authed.POST("/vestings/:id/claim", s.handleClaim)
	authed.POST("/vestings/:id/revoke", s.handleRevoke)
	authed.POST("/admin/withdraw", s.handleWithdrawAdmin)
	if s.otherTokens != nil {
		authed.POST("/admin/withdraw-other", s.handleWithdrawOtherToken)
	}
	authed.POST("/admins/:address", s.handleSetAdmin)
}

// rateLimitMiddleware throttles by the X-Caller header if present, or
// by remote IP otherwise, so even unauthenticated query traffic can't
// flood the manager.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetHeader("X-Caller")
		if caller == "" {
			caller = c.ClientIP()
		}
		if !s.limiter.Allow(caller) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// authMiddleware verifies X-Caller is backed by an HMAC-SHA256
// signature in X-Signature over the request method, URL path and
// X-Caller value (the request body is not signed), establishing that
// the caller address the handler hands to Manager is authentic before
// Manager's own admin/owner checks run.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetHeader("X-Caller")
		sigHex := c.GetHeader("X-Signature")
		if caller == "" || sigHex == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-Caller or X-Signature"})
			return
		}

		sig, err := hex.DecodeString(sigHex)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed signature"})
			return
		}

		mac := hmac.New(sha256.New, s.secret)
		mac.Write([]byte(c.Request.Method + c.Request.URL.Path + caller))
		expected := mac.Sum(nil)
		if !hmac.Equal(sig, expected) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature mismatch"})
			return
		}

		c.Set("caller", vesting.Address(caller))
		c.Next()
	}
}

func callerOf(c *gin.Context) vesting.Address {
	v, _ := c.Get("caller")
	addr, _ := v.(vesting.Address)
	return addr
}

func (s *Server) writeError(c *gin.Context, err error) {
	kind, ok := vesting.KindOf(err)
	if !ok {
		kind = "internal"
	}
	if s.metrics != nil {
		s.metrics.IncClaimError(string(kind))
	}
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
		return
	}

	status := http.StatusBadRequest
	switch kind {
	case vesting.ErrNotAdmin, vesting.ErrNotOwner, vesting.ErrNotAuthenticated:
		status = http.StatusForbidden
	case vesting.ErrUnknownSchedule:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": string(kind), "message": err.Error()})
}

func parseBigInt(c *gin.Context, s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": "amount must be a base-10 integer"})
		return nil, false
	}
	return v, true
}

func parseID(c *gin.Context) (vesting.ID, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": "id must be a non-negative integer"})
		return 0, false
	}
	return vesting.ID(id), true
}

func parseRange(c *gin.Context) (from, to uint64, ok bool) {
	from, err := strconv.ParseUint(c.Query("from"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OutOfRange", "message": "from must be a non-negative integer"})
		return 0, 0, false
	}
	to, err = strconv.ParseUint(c.Query("to"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OutOfRange", "message": "to must be a non-negative integer"})
		return 0, 0, false
	}
	return from, to, true
}
