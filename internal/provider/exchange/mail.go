package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"personal-organizer/backend/internal/model"
	"personal-organizer/backend/internal/provider"
)

// wellKnownFolders maps canonical folder names onto the server's
// well-known folder ids; the scan order is fixed
var wellKnownFolders = []struct {
	folder model.Folder
	id     string
}{
	{model.FolderInbox, "Inbox"},
	{model.FolderSent, "SentItems"},
	{model.FolderDrafts, "Drafts"},
	{model.FolderTrash, "DeletedItems"},
	{model.FolderSpam, "JunkEmail"},
}

func wellKnownID(folder model.Folder) string {
	for _, wk := range wellKnownFolders {
		if wk.folder == folder {
			return wk.id
		}
	}
	return "Inbox"
}

// exchangeMessage is the wire shape of a mail item
type exchangeMessage struct {
	ID           string              `json:"Id,omitempty"`
	Subject      string              `json:"Subject,omitempty"`
	BodyPreview  string              `json:"BodyPreview,omitempty"`
	From         *exchangeRecipient  `json:"From,omitempty"`
	ToRecipients []exchangeRecipient `json:"ToRecipients,omitempty"`
	IsRead       bool                `json:"IsRead,omitempty"`
	ReceivedAt   string              `json:"ReceivedDateTime,omitempty"`
	LastModified string              `json:"LastModifiedDateTime,omitempty"`
}

type exchangeRecipient struct {
	EmailAddress exchangeAddress `json:"EmailAddress"`
}

type messagePage struct {
	Value    []exchangeMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// Mail adapts the Exchange-style mailbox API
type Mail struct {
	*Client
}

func messagesPath(folder model.Folder) string {
	return fmt.Sprintf("/api/v2.0/me/MailFolders/%s/messages", wellKnownID(folder))
}

// Fetch returns one page of messages from the requested folder
func (a *Mail) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.EmailMessage], error) {
	folder := q.Folder
	if folder == "" {
		folder = model.FolderInbox
	}
	path := messagesPath(folder)
	params := url.Values{"$orderby": {"ReceivedDateTime desc"}}

	var page messagePage
	served, err := a.linkPage(ctx, path, params, p.Page, p.PageSize, func(body []byte) (string, error) {
		page = messagePage{}
		if err := json.Unmarshal(body, &page); err != nil {
			return "", fmt.Errorf("decode messages page: %w", err)
		}
		return page.NextLink, nil
	})
	if err != nil {
		return nil, err
	}
	if !served {
		return &provider.FetchResult[model.EmailMessage]{}, nil
	}

	result := &provider.FetchResult[model.EmailMessage]{HasMore: page.NextLink != ""}
	for _, msg := range page.Value {
		result.Items = append(result.Items, a.convertMessage(msg, folder))
	}
	result.TotalCount = len(result.Items)
	return result, nil
}

// Create drafts a message on the provider side
func (a *Mail) Create(ctx context.Context, msg model.EmailMessage) (*model.EmailMessage, error) {
	body, err := json.Marshal(a.toWire(msg))
	if err != nil {
		return nil, fmt.Errorf("marshal draft: %w", err)
	}
	payload, err := a.send(ctx, http.MethodPost, "/api/v2.0/me/messages", body)
	if err != nil {
		return nil, err
	}
	var created exchangeMessage
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
	body, err := json.Marshal(map[string]bool{"IsRead": msg.Read})
	if err != nil {
		return nil, fmt.Errorf("marshal read state: %w", err)
	}
	path := fmt.Sprintf("/api/v2.0/me/messages/%s", url.PathEscape(msg.Link.ProviderID))
	payload, err := a.send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	var updated exchangeMessage
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decode updated message: %w", err)
	}
	converted := a.convertMessage(updated, msg.Folder)
	return &converted, nil
}

// Delete moves a message to the deleted-items folder
func (a *Mail) Delete(ctx context.Context, providerID string) error {
	body, err := json.Marshal(map[string]string{"DestinationId": wellKnownID(model.FolderTrash)})
	if err != nil {
		return fmt.Errorf("marshal move: %w", err)
	}
	path := fmt.Sprintf("/api/v2.0/me/messages/%s/move", url.PathEscape(providerID))
	_, err = a.send(ctx, http.MethodPost, path, body)
	return err
}

// ListFolders scans the well-known folders, returning the ones the
// server actually exposes under their canonical names
func (a *Mail) ListFolders(ctx context.Context) ([]provider.Collection, error) {
	folders := make([]provider.Collection, 0, len(wellKnownFolders))
	for _, wk := range wellKnownFolders {
		body, err := a.get(ctx, fmt.Sprintf("/api/v2.0/me/MailFolders/%s", wk.id), nil)
		if err != nil {
			return nil, fmt.Errorf("probe folder %s: %w", wk.id, err)
		}
		var f struct {
			ID string `json:"Id"`
		}
		if err := json.Unmarshal(body, &f); err != nil {
			return nil, fmt.Errorf("decode folder %s: %w", wk.id, err)
		}
		if f.ID == "" {
			continue
		}
		folders = append(folders, provider.Collection{ID: f.ID, Name: string(wk.folder)})
	}
	return folders, nil
}

func (a *Mail) convertMessage(wire exchangeMessage, folder model.Folder) model.EmailMessage {
	msg := model.EmailMessage{
		Subject:           wire.Subject,
		Snippet:           wire.BodyPreview,
		Folder:            folder,
		Read:              wire.IsRead,
		SentAt:            parseExchangeTime(wire.ReceivedAt),
		Link:              model.Linkage{ProviderID: wire.ID, AccountID: a.accountID()},
		ProviderUpdatedAt: parseExchangeTime(wire.LastModified),
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

func (a *Mail) toWire(msg model.EmailMessage) exchangeMessage {
	wire := exchangeMessage{
		Subject:     msg.Subject,
		BodyPreview: msg.Snippet,
		IsRead:      msg.Read,
	}
	for _, rcpt := range msg.Recipients {
		wire.ToRecipients = append(wire.ToRecipients, exchangeRecipient{EmailAddress: exchangeAddress{Address: rcpt}})
	}
	return wire
}
