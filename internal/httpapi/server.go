// Package httpapi exposes the account service and the bridge snapshot over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trading-journal/internal/accounts"
	"trading-journal/internal/interfaces"
	"trading-journal/internal/logger"
	"trading-journal/internal/platform/core"
	"trading-journal/internal/trace"
	"trading-journal/internal/types"
)

type Server struct {
	svc    interfaces.AccountService
	bridge interfaces.Bridge
	http   *http.Server
}

// New builds the API around svc. bridge may be nil when the bridge is disabled.
func New(svc interfaces.AccountService, bridge interfaces.Bridge) *Server {
	return &Server{svc: svc, bridge: bridge}
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": trace.Version})
	})

	api := r.Group("/api")

	accts := api.Group("/accounts")
	accts.GET("", s.handleAccountsList)
	accts.POST("", s.handleAccountsConnect)

	acct := accts.Group("/:id")
	acct.GET("", s.handleAccountGet)
	acct.DELETE("", s.handleAccountDisconnect)
	acct.POST("/sync", s.handleAccountSync)
	acct.GET("/trades", s.handleAccountTrades)

	api.GET("/bridge", s.handleBridge)

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP API listening", "addr", addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "Shutting down HTTP API")
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleAccountsList(c *gin.Context) {
	accs, err := s.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if accs == nil {
		accs = []types.TradingAccount{}
	}
	c.JSON(http.StatusOK, accs)
}

func (s *Server) handleAccountsConnect(c *gin.Context) {
	var req types.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	acc, err := s.svc.Connect(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (s *Server) handleAccountGet(c *gin.Context) {
	acc, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (s *Server) handleAccountDisconnect(c *gin.Context) {
	if err := s.svc.Disconnect(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAccountSync(c *gin.Context) {
	res, err := s.svc.Sync(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleAccountTrades accepts ?status=open|closed
func (s *Server) handleAccountTrades(c *gin.Context) {
	trades, err := s.svc.Trades(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	status := types.TradeStatus(c.Query("status"))
	switch status {
	case "":
	case types.TradeOpen, types.TradeClosed:
		filtered := trades[:0:0]
		for _, t := range trades {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		trades = filtered
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be open or closed"})
		return
	}

	if trades == nil {
		trades = []types.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) handleBridge(c *gin.Context) {
	if s.bridge == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bridge is not enabled"})
		return
	}
	c.JSON(http.StatusOK, s.bridge.Snapshot())
}

// writeError maps service errors onto HTTP statuses
func writeError(c *gin.Context, err error) {
	var verr *accounts.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, accounts.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case core.IsPlatformError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		logger.ErrorWithErr(c.Request.Context(), "Request failed", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
