package tools

func (ts *Toolset) registerAll() {
	register(ts, "selectDraftByNumber",
		"Select an existing invoice draft by its invoice number so that later tools operate on it.",
		ts.selectDraftByNumber)
	register(ts, "countUserInvoiceDrafts",
		"Count the user's invoice drafts, optionally only those with a given status.",
		ts.countDrafts)
	register(ts, "createDraft",
		"Create a new invoice draft and make it the active one. By default freelancer info, payment terms, currency and tax are copied from the user's previous invoice.",
		ts.createDraft)
	register(ts, "setFreelancerInfo",
		"Set the freelancer's (sender's) details on the active draft, replacing any previous values.",
		ts.setFreelancerInfo)
	register(ts, "setClientInfo",
		"Set the client's (recipient's) details on the active draft, replacing any previous values.",
		ts.setClientInfo)
	register(ts, "setInvoiceDetails",
		"Set the due date of the active draft and optionally update currency, tax and issue date.",
		ts.setInvoiceDetails)
	register(ts, "setLineItems",
		"Replace the line items of the active draft. Always send the complete list; to add an item, fetch the draft first and resubmit every item.",
		ts.setLineItems)
	register(ts, "setPaymentTerms",
		"Set how the client should pay the active draft and whether a deposit is required.",
		ts.setPaymentTerms)
	register(ts, "setCustomNote",
		"Set or clear the free-form note printed on the active draft.",
		ts.setCustomNote)
	register(ts, "getAvailableClients",
		"List clients from the user's previous invoices.",
		ts.getAvailableClients)
	register(ts, "copyClientFromPrevious",
		"Copy a previous client's details into the active draft, matching by name or email.",
		ts.copyClientFromPrevious)
	register(ts, "fetchDraft",
		"Fetch the current state of the active draft.",
		ts.fetchDraft)
	register(ts, "createPreviewLink",
		"Create a link where the user can preview the active draft.",
		ts.createPreviewLink)
	register(ts, "updateStatus",
		"Change the status of the active draft, e.g. mark it SENT or PAID. A draft becomes COMPLETE on its own once every required section is filled in.",
		ts.updateStatus)
	register(ts, "deleteDraft",
		"Delete the active draft permanently.",
		ts.deleteDraft)
	register(ts, "finalizeInvoice",
		"Finalize the active draft into an invoice with computed totals. Any invoice fields passed override the draft.",
		ts.finalizeInvoice)
}
