package gworkspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"personal-organizer/backend/internal/model"
	"personal-organizer/backend/internal/provider"

	gmail "google.golang.org/api/gmail/v1"
)

// labelFolders maps provider label ids onto the canonical folder names
var labelFolders = map[string]model.Folder{
	"INBOX": model.FolderInbox,
	"SENT":  model.FolderSent,
	"DRAFT": model.FolderDrafts,
	"TRASH": model.FolderTrash,
	"SPAM":  model.FolderSpam,
}

// folderLabels is the reverse mapping, used to scope listings
var folderLabels = map[model.Folder]string{
	model.FolderInbox:  "INBOX",
	model.FolderSent:   "SENT",
	model.FolderDrafts: "DRAFT",
	model.FolderTrash:  "TRASH",
	model.FolderSpam:   "SPAM",
}

// Mail adapts the Gmail-style mailbox API. Listing is two-step: the
// list call returns message ids only, each id is then fetched with
// metadata headers.
type Mail struct {
	*Client
}

// Fetch returns one page of messages from the requested folder
func (a *Mail) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.EmailMessage], error) {
	folder := q.Folder
	if folder == "" {
		folder = model.FolderInbox
	}
	params := url.Values{}
	if label, ok := folderLabels[folder]; ok {
		params.Set("labelIds", label)
	}
	if q.Search != "" {
		params.Set("q", q.Search)
	}

	var resp gmail.ListMessagesResponse
	served, err := a.cursorPage(ctx, "/gmail/v1/users/me/messages", params, p.Page, p.PageSize, func(body []byte) (string, error) {
		resp = gmail.ListMessagesResponse{}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decode message list: %w", err)
		}
		return resp.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}
	if !served {
		return &provider.FetchResult[model.EmailMessage]{TotalCount: int(resp.ResultSizeEstimate)}, nil
	}

	result := &provider.FetchResult[model.EmailMessage]{
		TotalCount: int(resp.ResultSizeEstimate),
		HasMore:    resp.NextPageToken != "",
	}
	for _, stub := range resp.Messages {
		if stub == nil || stub.Id == "" {
			continue
		}
		msg, err := a.fetchMessage(ctx, stub.Id)
		if err != nil {
			return nil, fmt.Errorf("fetch message %s: %w", stub.Id, err)
		}
		result.Items = append(result.Items, *msg)
	}
	return result, nil
}

// Create drafts a message on the provider side
func (a *Mail) Create(ctx context.Context, msg model.EmailMessage) (*model.EmailMessage, error) {
	draft := map[string]any{
		"message": map[string]any{
			"raw": rawMessage(msg),
		},
	}
	body, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("marshal draft: %w", err)
	}
	payload, err := a.send(ctx, http.MethodPost, "/gmail/v1/users/me/drafts", body)
	if err != nil {
		return nil, err
	}
	var created gmail.Draft
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("decode created draft: %w", err)
	}
	out := msg
	out.Folder = model.FolderDrafts
	if created.Message != nil {
		out.Link = model.Linkage{ProviderID: created.Message.Id, AccountID: a.accountID()}
	}
	return &out, nil
}

// Update changes read state by adding or removing the unread label
func (a *Mail) Update(ctx context.Context, msg model.EmailMessage) (*model.EmailMessage, error) {
	if msg.Link.ProviderID == "" {
		return nil, fmt.Errorf("message has no provider id")
	}
	mod := map[string][]string{}
	if msg.Read {
		mod["removeLabelIds"] = []string{"UNREAD"}
	} else {
		mod["addLabelIds"] = []string{"UNREAD"}
	}
	body, err := json.Marshal(mod)
	if err != nil {
		return nil, fmt.Errorf("marshal label change: %w", err)
	}
	path := fmt.Sprintf("/gmail/v1/users/me/messages/%s/modify", url.PathEscape(msg.Link.ProviderID))
	if _, err := a.send(ctx, http.MethodPost, path, body); err != nil {
		return nil, err
	}
	return a.fetchMessage(ctx, msg.Link.ProviderID)
}

// Delete moves a message to the trash
func (a *Mail) Delete(ctx context.Context, providerID string) error {
	path := fmt.Sprintf("/gmail/v1/users/me/messages/%s/trash", url.PathEscape(providerID))
	_, err := a.send(ctx, http.MethodPost, path, nil)
	return err
}

// ListFolders enumerates the mailbox labels
func (a *Mail) ListFolders(ctx context.Context) ([]provider.Collection, error) {
	body, err := a.get(ctx, "/gmail/v1/users/me/labels", nil)
	if err != nil {
		return nil, err
	}
	var resp gmail.ListLabelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	folders := make([]provider.Collection, 0, len(resp.Labels))
	for _, label := range resp.Labels {
		if label == nil {
			continue
		}
		folders = append(folders, provider.Collection{ID: label.Id, Name: label.Name})
	}
	return folders, nil
}

func (a *Mail) fetchMessage(ctx context.Context, id string) (*model.EmailMessage, error) {
	params := url.Values{
		"format":          {"metadata"},
		"metadataHeaders": {"Subject", "From", "To", "Date"},
	}
	body, err := a.get(ctx, fmt.Sprintf("/gmail/v1/users/me/messages/%s", url.PathEscape(id)), params)
	if err != nil {
		return nil, err
	}
	var wire gmail.Message
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	msg := a.convertMessage(&wire)
	return &msg, nil
}

func (a *Mail) convertMessage(wire *gmail.Message) model.EmailMessage {
	msg := model.EmailMessage{
		Snippet: wire.Snippet,
		Folder:  model.FolderInbox,
		Read:    true,
		Link:    model.Linkage{ProviderID: wire.Id, AccountID: a.accountID()},
	}
	for _, label := range wire.LabelIds {
		if folder, ok := labelFolders[label]; ok {
			msg.Folder = folder
		}
		if label == "UNREAD" {
			msg.Read = false
		}
	}
	if wire.InternalDate > 0 {
		msg.SentAt = time.UnixMilli(wire.InternalDate).UTC()
		msg.ProviderUpdatedAt = msg.SentAt
	}
	if wire.Payload != nil {
		for _, h := range wire.Payload.Headers {
			if h == nil {
				continue
			}
			switch strings.ToLower(h.Name) {
			case "subject":
				msg.Subject = h.Value
			case "from":
				msg.Sender = h.Value
			case "to":
				msg.Recipients = splitAddresses(h.Value)
			}
		}
	}
	return msg
}

func splitAddresses(header string) []string {
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func rawMessage(msg model.EmailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("\r\n")
	b.WriteString(msg.Snippet)
	return base64URLEncode(b.String())
}
