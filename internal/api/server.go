// Package api exposes drafts, invoices, usage and the assistant over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoiceai/internal/assistant"
	"invoiceai/internal/identity"
	"invoiceai/internal/logger"
	"invoiceai/internal/store"
	"invoiceai/internal/tools"
	"invoiceai/internal/usage"
	"invoiceai/pkg/models"
)

const (
	// ConversationHeader scopes direct tool calls to one conversation's
	// draft selection.
	ConversationHeader = "X-Conversation-ID"
	requestIDHeader    = "X-Request-ID"

	ctxIdentity = "identity"
	ctxLogger   = "logger"
)

// Records is the read side of the record store used by the API.
type Records interface {
	FindOne(ctx context.Context, owner *string, q store.Query) (*models.InvoiceDraft, error)
	FindMany(ctx context.Context, owner *string, q store.Query) ([]models.InvoiceDraft, error)
	CountByStatus(ctx context.Context, owner *string) (map[models.DraftStatus]int64, error)
	ListInvoices(ctx context.Context, owner string) ([]models.Invoice, error)
	CountInvoices(ctx context.Context, owner string) (int64, error)
}

// Runner answers chat turns.
type Runner interface {
	Run(ctx context.Context, turn assistant.Turn) (*assistant.Reply, error)
}

// UsageReporter reads and records monthly usage.
type UsageReporter interface {
	Current(ctx context.Context, subject usage.Subject) (models.MonthlyUsage, error)
	Limits(subject usage.Subject) usage.Limits
	RecordTokens(ctx context.Context, subject usage.Subject, tokens int64) error
}

type Deps struct {
	Records Records
	Tools   tools.Deps
	// Assistant may be nil when no model is configured; chat then answers 503.
	Assistant  Runner
	Usage      UsageReporter
	TestUserID string
}

// Server routes HTTP requests to the record store, the tool set and the
// assistant.
type Server struct {
	deps Deps
	log  zerolog.Logger
}

func NewServer(deps Deps) *Server {
	return &Server{deps: deps, log: logger.WithComponent("api")}
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestContext())

	engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := engine.Group("/api")
	// Preview links are public: a guest draft is readable by id, an owned
	// draft only by its owner.
	api.GET("/invoice/:id", s.wrap(s.getDraft))

	authed := api.Group("", s.requireUser())
	authed.POST("/chat", s.wrap(s.chat))
	authed.GET("/invoices", s.wrap(s.listInvoices))
	authed.GET("/drafts", s.wrap(s.listDrafts))
	authed.GET("/dashboard", s.wrap(s.dashboard))
	authed.POST("/user/usage/tokens", s.wrap(s.recordTokens))
	authed.POST("/tools/:name", s.wrap(s.invokeTool))

	return engine
}

// requestContext resolves the caller and attaches a request-scoped logger.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		id := identity.Resolve(c.GetHeader(identity.Header), s.deps.TestUserID)
		log := logger.WithOwner(s.log.With().Str("request_id", requestID).Logger(), id.ID)
		c.Set(ctxIdentity, id)
		c.Set(ctxLogger, log)

		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if callerIdentity(c).IsGuest() {
			s.respondError(c, NewRequestError(ErrUnauthenticated, http.StatusUnauthorized))
			return
		}
		c.Next()
	}
}

func callerIdentity(c *gin.Context) identity.Identity {
	id, _ := c.Get(ctxIdentity)
	resolved, _ := id.(identity.Identity)
	return resolved
}

func requestLogger(c *gin.Context) *zerolog.Logger {
	if l, ok := c.Get(ctxLogger); ok {
		if log, ok := l.(zerolog.Logger); ok {
			return &log
		}
	}
	log := logger.WithComponent("api")
	return &log
}
