package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invoiceai/internal/assistant"
	"invoiceai/internal/store"
	"invoiceai/internal/tools"
	"invoiceai/internal/usage"
	"invoiceai/pkg/models"
)

type chatRequest struct {
	ConversationID string              `json:"conversationId"`
	Messages       []assistant.Message `json:"messages" binding:"required,min=1,dive"`
}

type chatResponse struct {
	ConversationID string           `json:"conversationId"`
	Reply          *assistant.Reply `json:"reply"`
	// StepLimitReached marks a reply cut short by the step limit; the tool
	// calls made so far were applied.
	StepLimitReached bool `json:"stepLimitReached,omitempty"`
}

func (s *Server) chat(c *gin.Context) error {
	if s.deps.Assistant == nil {
		return NewRequestError(ErrAssistantDisabled, http.StatusServiceUnavailable)
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return NewRequestError(err, http.StatusBadRequest)
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	reply, err := s.deps.Assistant.Run(c.Request.Context(), assistant.Turn{
		Caller:   tools.Caller{OwnerID: callerIdentity(c).ID, ConversationID: req.ConversationID},
		Messages: req.Messages,
	})
	switch {
	case errors.Is(err, assistant.ErrStepLimit):
		c.JSON(http.StatusOK, chatResponse{ConversationID: req.ConversationID, Reply: reply, StepLimitReached: true})
		return nil
	case errors.Is(err, assistant.ErrUsageLimit):
		return NewRequestError(err, http.StatusTooManyRequests)
	case errors.Is(err, assistant.ErrInvalidRole), errors.Is(err, assistant.ErrEmptyConversation):
		return NewRequestError(err, http.StatusBadRequest)
	case err != nil:
		return err
	}

	c.JSON(http.StatusOK, chatResponse{ConversationID: req.ConversationID, Reply: reply})
	return nil
}

func (s *Server) getDraft(c *gin.Context) error {
	draft, err := s.deps.Records.FindOne(c.Request.Context(), callerIdentity(c).ID, store.Query{ID: c.Param("id")})
	if errors.Is(err, store.ErrNotFound) {
		return NewRequestError(errors.New(tools.MsgDraftNotFound), http.StatusNotFound)
	}
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, draft)
	return nil
}

func (s *Server) listInvoices(c *gin.Context) error {
	invoices, err := s.deps.Records.ListInvoices(c.Request.Context(), *callerIdentity(c).ID)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
	return nil
}

// listDrafts accepts ?status=SENT,PAID to filter by status.
func (s *Server) listDrafts(c *gin.Context) error {
	var q store.Query
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := models.DraftStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				return NewRequestError(ErrInvalidStatusFilter, http.StatusBadRequest)
			}
			q.Statuses = append(q.Statuses, status)
		}
	}

	drafts, err := s.deps.Records.FindMany(c.Request.Context(), callerIdentity(c).ID, q)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
	return nil
}

type dashboardResponse struct {
	Drafts           map[models.DraftStatus]int64 `json:"drafts"`
	Invoices         int64                        `json:"invoices"`
	Usage            models.MonthlyUsage          `json:"usage"`
	Limits           usage.Limits                 `json:"limits"`
	CanCreateInvoice bool                         `json:"canCreateInvoice"`
}

func (s *Server) dashboard(c *gin.Context) error {
	ctx := c.Request.Context()
	owner := callerIdentity(c).ID

	drafts, err := s.deps.Records.CountByStatus(ctx, owner)
	if err != nil {
		return err
	}
	invoices, err := s.deps.Records.CountInvoices(ctx, *owner)
	if err != nil {
		return err
	}

	resp := dashboardResponse{Drafts: drafts, Invoices: invoices}
	if s.deps.Usage != nil {
		subject := usage.Subject{OwnerID: owner}
		current, err := s.deps.Usage.Current(ctx, subject)
		if err != nil {
			return err
		}
		resp.Usage = current
		resp.Limits = s.deps.Usage.Limits(subject)
		resp.CanCreateInvoice = resp.Limits.AllowsInvoice(current)
	}

	c.JSON(http.StatusOK, resp)
	return nil
}

type tokensRequest struct {
	Tokens int64 `json:"tokens" binding:"required,gt=0"`
}

func (s *Server) recordTokens(c *gin.Context) error {
	if s.deps.Usage == nil {
		return NewRequestError(errors.New("usage metering is not configured"), http.StatusServiceUnavailable)
	}

	var req tokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return NewRequestError(err, http.StatusBadRequest)
	}

	subject := usage.Subject{OwnerID: callerIdentity(c).ID}
	if err := s.deps.Usage.RecordTokens(c.Request.Context(), subject, req.Tokens); err != nil {
		return err
	}
	current, err := s.deps.Usage.Current(c.Request.Context(), subject)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, current)
	return nil
}

// invokeTool runs one catalog tool directly with the request body as its
// arguments.
func (s *Server) invokeTool(c *gin.Context) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return NewRequestError(err, http.StatusBadRequest)
	}

	toolset := tools.New(s.deps.Tools, tools.Caller{
		OwnerID:        callerIdentity(c).ID,
		ConversationID: c.GetHeader(ConversationHeader),
	})
	result, err := toolset.Invoke(c.Request.Context(), c.Param("name"), body)

	var argErr *tools.ArgumentError
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		return NewRequestError(err, http.StatusNotFound)
	case errors.As(err, &argErr):
		return &RequestError{Err: err, Status: http.StatusBadRequest, Violations: argErr.Violations}
	case err != nil:
		return err
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
	return nil
}
