package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"personal-organizer/backend/internal/model"
	"personal-organizer/backend/internal/provider"
)

// mailFolderIDs maps canonical folder names onto the provider's
// well-known folder ids
var mailFolderIDs = map[model.Folder]string{
	model.FolderInbox:  "inbox",
	model.FolderSent:   "sentitems",
	model.FolderDrafts: "drafts",
	model.FolderTrash:  "deleteditems",
	model.FolderSpam:   "junkemail",
}

// graphMessage is the wire shape of a message resource
type graphMessage struct {
	ID           string           `json:"id,omitempty"`
	Subject      string           `json:"subject,omitempty"`
	BodyPreview  string           `json:"bodyPreview,omitempty"`
	From         *graphRecipient  `json:"from,omitempty"`
	ToRecipients []graphRecipient `json:"toRecipients,omitempty"`
	IsRead       bool             `json:"isRead,omitempty"`
	ReceivedAt   string           `json:"receivedDateTime,omitempty"`
	LastModified string           `json:"lastModifiedDateTime,omitempty"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

// Mail adapts the Office-style mailbox API
type Mail struct {
	*Client
}

func mailFolderPath(folder model.Folder) string {
	id, ok := mailFolderIDs[folder]
	if !ok {
		id = mailFolderIDs[model.FolderInbox]
	}
	return fmt.Sprintf("/v1.0/me/mailFolders/%s/messages", id)
}

// Fetch returns one page of messages from the requested folder
func (a *Mail) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.EmailMessage], error) {
	folder := q.Folder
	if folder == "" {
		folder = model.FolderInbox
	}
	path := mailFolderPath(folder)
	params := url.Values{"$orderby": {"receivedDateTime desc"}}
	if q.Search != "" {
		params.Set("$search", fmt.Sprintf("%q", q.Search))
		// $search and $orderby are mutually exclusive
		params.Del("$orderby")
	}

	env, err := a.list(ctx, path, params, p.Page, p.PageSize)
	if err != nil {
		return nil, err
	}

	var messages []graphMessage
	if err := json.Unmarshal(env.Value, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	result := &provider.FetchResult[model.EmailMessage]{}
	for _, msg := range messages {
		result.Items = append(result.Items, a.convertMessage(msg, folder))
	}
	result.TotalCount = a.totalCount(ctx, path, env, p.Page, p.PageSize, len(messages))
	result.HasMore = hasMore(env, result.TotalCount, p.Page, p.PageSize, len(messages))
	return result, nil
}

// Create drafts a message on the provider side
func (a *Mail) Create(ctx context.Context, msg model.EmailMessage) (*model.EmailMessage, error) {
	body, err := json.Marshal(a.toWire(msg))
	if err != nil {
		return nil, fmt.Errorf("marshal draft: %w", err)
	}
	payload, err := a.send(ctx, http.MethodPost, "/v1.0/me/messages", body)
	if err != nil {
		return nil, err
	}
	var created graphMessage
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("decode created draft: %w", err)
	}
	converted := a.convertMessage(created, model.FolderDrafts)
	return &converted, nil
}

// Update changes read state on the provider side
func (a *Mail) Update(ctx context.Context, msg model.EmailMessage) (*model.EmailMessage, error) {
	if msg.Link.ProviderID == "" {
		return nil, fmt.Errorf("message has no provider id")
	}
	body, err := json.Marshal(map[string]bool{"isRead": msg.Read})
	if err != nil {
		return nil, fmt.Errorf("marshal read state: %w", err)
	}
	path := fmt.Sprintf("/v1.0/me/messages/%s", url.PathEscape(msg.Link.ProviderID))
	payload, err := a.send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	var updated graphMessage
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decode updated message: %w", err)
	}
	converted := a.convertMessage(updated, msg.Folder)
	return &converted, nil
}

// Delete moves a message to the deleted-items folder
func (a *Mail) Delete(ctx context.Context, providerID string) error {
	body, err := json.Marshal(map[string]string{"destinationId": mailFolderIDs[model.FolderTrash]})
	if err != nil {
		return fmt.Errorf("marshal move: %w", err)
	}
	path := fmt.Sprintf("/v1.0/me/messages/%s/move", url.PathEscape(providerID))
	_, err = a.send(ctx, http.MethodPost, path, body)
	return err
}

// ListFolders enumerates the account's mail folders
func (a *Mail) ListFolders(ctx context.Context) ([]provider.Collection, error) {
	body, err := a.get(ctx, "/v1.0/me/mailFolders", nil)
	if err != nil {
		return nil, err
	}
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode mail folders: %w", err)
	}
	var folders []struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(env.Value, &folders); err != nil {
		return nil, fmt.Errorf("decode mail folders: %w", err)
	}
	out := make([]provider.Collection, 0, len(folders))
	for _, f := range folders {
		out = append(out, provider.Collection{ID: f.ID, Name: f.DisplayName})
	}
	return out, nil
}

func (a *Mail) convertMessage(wire graphMessage, folder model.Folder) model.EmailMessage {
	msg := model.EmailMessage{
		Subject:           wire.Subject,
		Snippet:           wire.BodyPreview,
		Folder:            folder,
		Read:              wire.IsRead,
		SentAt:            parseGraphTime(wire.ReceivedAt),
		Link:              model.Linkage{ProviderID: wire.ID, AccountID: a.accountID()},
		ProviderUpdatedAt: parseGraphTime(wire.LastModified),
	}
	if msg.ProviderUpdatedAt.IsZero() {
		msg.ProviderUpdatedAt = msg.SentAt
	}
	if wire.From != nil {
		msg.Sender = wire.From.EmailAddress.Address
	}
	for _, rcpt := range wire.ToRecipients {
		if rcpt.EmailAddress.Address != "" {
			msg.Recipients = append(msg.Recipients, rcpt.EmailAddress.Address)
		}
	}
	return msg
}

func (a *Mail) toWire(msg model.EmailMessage) graphMessage {
	wire := graphMessage{
		Subject:     msg.Subject,
		BodyPreview: msg.Snippet,
		IsRead:      msg.Read,
	}
	for _, rcpt := range msg.Recipients {
		wire.ToRecipients = append(wire.ToRecipients, graphRecipient{EmailAddress: graphEmailAddress{Address: rcpt}})
	}
	return wire
}
