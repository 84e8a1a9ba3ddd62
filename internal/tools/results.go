package tools

import (
	"time"

	"invoiceai/pkg/models"
)

// Plain-sentence results. Tools return these instead of errors so the model
// can relay them to the user.
const (
	MsgSpecifyInvoice = "Please specify an invoice."
	MsgLoginRequired  = "Only authenticated users can save and edit existing invoices. Please, create an account."
	MsgSomethingWrong = "Something went wrong while processing your request."
	MsgDraftNotFound  = "No invoice draft matching your query was found."
)

// MessageResult carries a sentence for the model and nothing else.
type MessageResult struct {
	Message string `json:"message"`
}

// DraftCheck is returned by every tool that writes a draft.
type DraftCheck struct {
	Message         string               `json:"message,omitempty"`
	Draft           *models.InvoiceDraft `json:"draft"`
	IsDraftComplete bool                 `json:"isDraftComplete"`
	DraftID         string               `json:"draftId"`
	LastUpdated     time.Time            `json:"lastUpdated"`
	MissingSections []models.SectionName `json:"missingSections,omitempty"`
}

type SelectResult struct {
	Message string `json:"message"`
	DraftID string `json:"draftId"`
}

type CountResult struct {
	Count int64 `json:"count"`
}

type CreateResult struct {
	Message         string   `json:"message"`
	DraftID         string   `json:"draftId"`
	InvoiceNumber   string   `json:"invoiceNumber"`
	PrefilledFields []string `json:"prefilledFields"`
}

// Client is a previously billed client as offered back to the user.
type Client struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type ClientsResult struct {
	Message string   `json:"message"`
	Clients []Client `json:"clients"`
}

// CopyClientResult is a draft check that also echoes the copied client.
type CopyClientResult struct {
	*DraftCheck
	ClientData *models.ClientInfo `json:"clientData"`
}

type FetchResult struct {
	Draft *models.InvoiceDraft `json:"draft"`
}

type PreviewResult struct {
	PreviewLink string `json:"previewLink"`
}

type DeleteResult struct {
	DraftID string `json:"draftId"`
}

type FinalizeResult struct {
	Invoice *models.Invoice `json:"invoice"`
	// Saved is false for guests and for payloads finalized without a
	// selected draft; the invoice is then only returned, not stored.
	Saved bool `json:"saved"`
}
