package tools

import (
	"context"
	"fmt"
	"strings"

	"invoiceai/internal/store"
	"invoiceai/pkg/models"
)

// previousClients returns the clients of the owner's finished drafts, newest
// first, one per email address.
func (ts *Toolset) previousClients(ctx context.Context) ([]models.ClientInfo, error) {
	drafts, err := ts.deps.Store.FindMany(ctx, ts.caller.OwnerID, store.Query{
		Statuses:     models.FinishedStatuses,
		WithSections: []models.SectionName{models.SectionClientInfo},
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(drafts))
	clients := make([]models.ClientInfo, 0, len(drafts))
	for _, d := range drafts {
		email := strings.ToLower(strings.TrimSpace(d.ClientInfo.ClientEmail))
		if seen[email] {
			continue
		}
		seen[email] = true
		clients = append(clients, *d.ClientInfo)
	}
	return clients, nil
}

func (ts *Toolset) getAvailableClients(ctx context.Context, _ *noArgs) any {
	if ts.caller.OwnerID == nil {
		return MsgLoginRequired
	}

	clients, err := ts.previousClients(ctx)
	if err != nil {
		return ts.failure(err, "list clients")
	}

	result := ClientsResult{
		Message: fmt.Sprintf("Found %d previous clients", len(clients)),
		Clients: make([]Client, len(clients)),
	}
	for i, c := range clients {
		result.Clients[i] = Client{
			Name:    c.ClientName,
			Email:   c.ClientEmail,
			Phone:   c.ClientPhone,
			Address: c.ClientAddress,
		}
	}
	return result
}

func (ts *Toolset) copyClientFromPrevious(ctx context.Context, args *copyClientArgs) any {
	draftID, ok := ts.selection()
	if !ok {
		return MsgSpecifyInvoice
	}
	if ts.caller.OwnerID == nil {
		return MsgLoginRequired
	}

	clients, err := ts.previousClients(ctx)
	if err != nil {
		return ts.failure(err, "list clients")
	}

	match := matchClient(clients, args.ClientIdentifier)
	if match == nil {
		names := make([]string, len(clients))
		for i, c := range clients {
			names[i] = c.ClientName
		}
		return MessageResult{Message: fmt.Sprintf("No previous client found matching %q. Available clients: %s",
			args.ClientIdentifier, strings.Join(names, ", "))}
	}

	draft, err := ts.deps.Store.UpdateSection(ctx, ts.caller.OwnerID, draftID, match)
	if err != nil {
		return ts.failure(err, "copy client")
	}
	check, err := ts.check(ctx, draft, "Copied client information for "+match.ClientName)
	if err != nil {
		return ts.failure(err, "check draft")
	}
	return CopyClientResult{DraftCheck: check, ClientData: match}
}

// matchClient returns the first client whose name or email contains ident,
// ignoring case.
func matchClient(clients []models.ClientInfo, ident string) *models.ClientInfo {
	needle := strings.ToLower(strings.TrimSpace(ident))
	for i := range clients {
		c := clients[i]
		if strings.Contains(strings.ToLower(c.ClientName), needle) ||
			strings.Contains(strings.ToLower(c.ClientEmail), needle) {
			return &c
		}
	}
	return nil
}
