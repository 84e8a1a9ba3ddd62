package models

import (
	"encoding/json"
	"time"
)

// DraftStatus is the lifecycle state of an invoice draft.
type DraftStatus string

const (
	StatusInProgress DraftStatus = "IN_PROGRESS"
	StatusComplete   DraftStatus = "COMPLETE"
	StatusSent       DraftStatus = "SENT"
	StatusPaid       DraftStatus = "PAID"
	StatusOverdue    DraftStatus = "OVERDUE"
	StatusCancelled  DraftStatus = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []DraftStatus{
	StatusInProgress,
	StatusComplete,
	StatusSent,
	StatusPaid,
	StatusOverdue,
	StatusCancelled,
}

// Valid reports whether s is one of the known statuses.
func (s DraftStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// FinishedStatuses are the states a draft can serve as a template from.
var FinishedStatuses = []DraftStatus{StatusComplete, StatusSent, StatusPaid}

// InvoiceType distinguishes invoices from estimates and quotes.
type InvoiceType string

const (
	TypeInvoice  InvoiceType = "INVOICE"
	TypeEstimate InvoiceType = "ESTIMATE"
	TypeQuote    InvoiceType = "QUOTE"
)

// Currency is one of the supported ISO currency codes.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyTRY Currency = "TRY"
	CurrencyINR Currency = "INR"
)

// SectionName identifies one of the structured draft sections.
type SectionName string

const (
	SectionFreelancerInfo SectionName = "freelancerInfo"
	SectionClientInfo     SectionName = "clientInfo"
	SectionInvoiceDetails SectionName = "invoiceDetails"
	SectionLineItems      SectionName = "lineItems"
	SectionPaymentTerms   SectionName = "paymentTerms"
)

// RequiredSections must all be present before a draft counts as complete.
var RequiredSections = []SectionName{
	SectionFreelancerInfo,
	SectionClientInfo,
	SectionInvoiceDetails,
	SectionLineItems,
	SectionPaymentTerms,
}

// Section is implemented by every structured draft section. The set of
// implementations is closed: only the section types in this package satisfy it.
type Section interface {
	SectionName() SectionName
	isSection()
}

type FreelancerInfo struct {
	Name         string `json:"name"`
	BusinessName string `json:"businessName,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

type ClientInfo struct {
	ClientName    string `json:"clientName"`
	ClientEmail   string `json:"clientEmail"`
	ClientPhone   string `json:"clientPhone,omitempty"`
	ClientAddress string `json:"clientAddress,omitempty"`
}

type InvoiceDetails struct {
	InvoiceNumber string   `json:"invoiceNumber,omitempty"`
	IssueDate     string   `json:"issueDate,omitempty"` // YYYY-MM-DD
	DueDate       string   `json:"dueDate,omitempty"`   // YYYY-MM-DD
	Currency      Currency `json:"currency,omitempty"`
	Tax           *float64 `json:"tax,omitempty"` // percent
}

// LineItem is a single billed service. Amount is derived, never stored.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

// Amount returns quantity × rate.
func (li LineItem) Amount() float64 {
	return li.Quantity * li.Rate
}

// MarshalJSON renders the derived amount next to the stored fields.
func (li LineItem) MarshalJSON() ([]byte, error) {
	type stored LineItem
	return json.Marshal(struct {
		stored
		Amount float64 `json:"amount"`
	}{stored(li), li.Amount()})
}

type LineItems struct {
	Items []LineItem `json:"items"`
}

type PaymentTerms struct {
	PaymentMethod   string   `json:"paymentMethod"`
	DepositRequired bool     `json:"depositRequired"`
	DepositAmount   *float64 `json:"depositAmount,omitempty"`
}

func (*FreelancerInfo) SectionName() SectionName { return SectionFreelancerInfo }
func (*ClientInfo) SectionName() SectionName     { return SectionClientInfo }
func (*InvoiceDetails) SectionName() SectionName { return SectionInvoiceDetails }
func (*LineItems) SectionName() SectionName      { return SectionLineItems }
func (*PaymentTerms) SectionName() SectionName   { return SectionPaymentTerms }

func (*FreelancerInfo) isSection() {}
func (*ClientInfo) isSection()     {}
func (*InvoiceDetails) isSection() {}
func (*LineItems) isSection()      {}
func (*PaymentTerms) isSection()   {}

// DraftSections holds the five structured sections. A nil field means the
// section has not been written yet.
type DraftSections struct {
	FreelancerInfo *FreelancerInfo `json:"freelancerInfo"`
	ClientInfo     *ClientInfo     `json:"clientInfo"`
	InvoiceDetails *InvoiceDetails `json:"invoiceDetails"`
	LineItems      *LineItems      `json:"lineItems"`
	PaymentTerms   *PaymentTerms   `json:"paymentTerms"`
}

// Has reports whether the named section is present.
func (s DraftSections) Has(name SectionName) bool {
	switch name {
	case SectionFreelancerInfo:
		return s.FreelancerInfo != nil
	case SectionClientInfo:
		return s.ClientInfo != nil
	case SectionInvoiceDetails:
		return s.InvoiceDetails != nil
	case SectionLineItems:
		return s.LineItems != nil
	case SectionPaymentTerms:
		return s.PaymentTerms != nil
	}
	return false
}

// Missing returns the required sections that have not been written, in
// RequiredSections order.
func (s DraftSections) Missing() []SectionName {
	var missing []SectionName
	for _, name := range RequiredSections {
		if !s.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether every required section is present.
func (s DraftSections) Complete() bool {
	return len(s.Missing()) == 0
}

// Set stores section into its slot, replacing any previous value.
func (s *DraftSections) Set(section Section) {
	switch v := section.(type) {
	case *FreelancerInfo:
		s.FreelancerInfo = v
	case *ClientInfo:
		s.ClientInfo = v
	case *InvoiceDetails:
		s.InvoiceDetails = v
	case *LineItems:
		s.LineItems = v
	case *PaymentTerms:
		s.PaymentTerms = v
	}
}

// InvoiceDraft is the mutable work-in-progress document built by the assistant.
type InvoiceDraft struct {
	ID            string      `json:"id"`
	OwnerID       *string     `json:"ownerId"` // nil for guest drafts
	Type          InvoiceType `json:"type"`
	Status        DraftStatus `json:"status"`
	InvoiceNumber string      `json:"invoiceNumber"`

	DraftSections

	CustomNote *string   `json:"customNote"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsGuest reports whether the draft has no owner.
func (d *InvoiceDraft) IsGuest() bool {
	return d.OwnerID == nil
}
