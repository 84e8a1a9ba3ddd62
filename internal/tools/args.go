package tools

// Argument types double as the JSON schema sent to the model: `json` names the
// property (omitempty marks it optional), `description` and `enum` document it,
// and `validate` is enforced before any tool body runs.

type noArgs struct{}

type selectDraftArgs struct {
	InvoiceNumber string `json:"invoiceNumber" description:"Invoice number of the draft to edit, e.g. INV-003" validate:"required"`
}

type countDraftsArgs struct {
	Status string `json:"status,omitempty" description:"Only count drafts with this status" enum:"IN_PROGRESS,COMPLETE,SENT,PAID,OVERDUE,CANCELLED" validate:"omitempty,oneof=IN_PROGRESS COMPLETE SENT PAID OVERDUE CANCELLED"`
}

type createDraftArgs struct {
	SkipPrefill bool   `json:"skipPrefill,omitempty" description:"Start from a completely blank draft instead of copying freelancer info, payment terms, currency and tax from the previous invoice"`
	Type        string `json:"type,omitempty" description:"Document type, defaults to INVOICE" enum:"INVOICE,ESTIMATE,QUOTE" validate:"omitempty,oneof=INVOICE ESTIMATE QUOTE"`
}

type freelancerInfoArgs struct {
	Name         string `json:"name" description:"Freelancer's full name" validate:"required"`
	BusinessName string `json:"businessName,omitempty" description:"Registered business name, if any"`
	Email        string `json:"email" description:"Freelancer's email address" validate:"required,email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

type clientInfoArgs struct {
	ClientName    string `json:"clientName" validate:"required"`
	ClientEmail   string `json:"clientEmail" validate:"required,email"`
	ClientPhone   string `json:"clientPhone,omitempty"`
	ClientAddress string `json:"clientAddress,omitempty"`
}

type invoiceDetailsArgs struct {
	DueDate   string  `json:"dueDate" description:"Payment due date, YYYY-MM-DD" validate:"required,datetime=2006-01-02"`
	Currency  string  `json:"currency,omitempty" description:"Invoice currency; keeps the current one when omitted" enum:"USD,EUR,GBP,TRY,INR" validate:"omitempty,oneof=USD EUR GBP TRY INR"`
	Tax       float64 `json:"tax,omitempty" description:"Tax rate in percent; keeps the current one when omitted" validate:"gte=0,lte=100"`
	IssueDate string  `json:"issueDate,omitempty" description:"Issue date, YYYY-MM-DD; today when omitted" validate:"omitempty,datetime=2006-01-02"`
}

type lineItemArgs struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" description:"Units billed, at least 1" validate:"gte=1"`
	Rate        float64 `json:"rate" description:"Price per unit" validate:"gte=0"`
}

type lineItemsArgs struct {
	Items []lineItemArgs `json:"items" description:"The complete list of line items; replaces any existing items" validate:"required,min=1,dive"`
}

type paymentTermsArgs struct {
	PaymentMethod   string  `json:"paymentMethod" description:"How the client should pay, e.g. Bank Transfer" validate:"required"`
	DepositRequired bool    `json:"depositRequired"`
	DepositAmount   float64 `json:"depositAmount,omitempty" description:"Required when depositRequired is true" validate:"required_if=DepositRequired true,gte=0"`
}

type customNoteArgs struct {
	CustomNote string `json:"customNote,omitempty" description:"Note to the client; omit to clear it"`
}

type copyClientArgs struct {
	ClientIdentifier string `json:"clientIdentifier" description:"Client name or email to search for" validate:"required"`
}

type updateStatusArgs struct {
	Status string `json:"status" enum:"IN_PROGRESS,COMPLETE,SENT,PAID,OVERDUE,CANCELLED" validate:"required,oneof=IN_PROGRESS COMPLETE SENT PAID OVERDUE CANCELLED"`
}

type partyArgs struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
}

type invoicePayloadArgs struct {
	Number         string         `json:"number,omitempty"`
	Date           string         `json:"date,omitempty" description:"Issue date, YYYY-MM-DD" validate:"omitempty,datetime=2006-01-02"`
	DueDate        string         `json:"dueDate,omitempty" description:"YYYY-MM-DD" validate:"omitempty,datetime=2006-01-02"`
	Currency       string         `json:"currency,omitempty" enum:"USD,EUR,GBP,TRY,INR" validate:"omitempty,oneof=USD EUR GBP TRY INR"`
	PaymentDetails string         `json:"paymentDetails,omitempty"`
	CustomNotes    string         `json:"customNotes,omitempty"`
	BillTo         partyArgs      `json:"billTo,omitempty"`
	From           partyArgs      `json:"from,omitempty"`
	Items          []lineItemArgs `json:"items,omitempty" validate:"omitempty,dive"`
	TaxRate        float64        `json:"taxRate,omitempty" description:"Tax rate in percent" validate:"gte=0,lte=100"`
}

type finalizeArgs struct {
	Draft invoicePayloadArgs `json:"draft" description:"Invoice data known so far; anything omitted is taken from the selected draft or defaulted"`
}
