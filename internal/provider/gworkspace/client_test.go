package gworkspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/provider"
	"personal-organizer/backend/internal/remote"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopRefresher struct{}

func (noopRefresher) Refresh(ctx context.Context, acct *account.IntegrationAccount) (account.CredentialState, error) {
	return acct.Credential, nil
}

func connectedAccount() *account.IntegrationAccount {
	expiry := time.Now().Add(time.Hour)
	return &account.IntegrationAccount{
		ID:           uuid.New(),
		Kind:         account.KindGoogle,
		DisplayEmail: "user@example.com",
		Credential: account.CredentialState{
			AccessToken: "token",
			TokenExpiry: &expiry,
			Connected:   true,
		},
	}
}

func newTestSet(t *testing.T, handler http.Handler) (*provider.Set, *account.IntegrationAccount) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	exec := remote.NewExecutor(noopRefresher{}, nil, srv.Client())
	acct := connectedAccount()
	return NewFactory(exec, srv.URL)(acct), acct
}

// connectionsServer serves a paginated contact listing where page N's
// token is "tok-N" and records which tokens were requested, in order
type connectionsServer struct {
	mu              sync.Mutex
	pages           int
	perPage         int
	requestedTokens []string
}

func (s *connectionsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("pageToken")

	s.mu.Lock()
	s.requestedTokens = append(s.requestedTokens, token)
	s.mu.Unlock()

	page := 0
	if token != "" {
		fmt.Sscanf(token, "tok-%d", &page)
	}

	resp := map[string]any{"totalItems": s.pages * s.perPage}
	var people []map[string]any
	for i := 0; i < s.perPage; i++ {
		people = append(people, map[string]any{
			"resourceName": fmt.Sprintf("people/p%d-%d", page, i),
			"names":        []map[string]any{{"displayName": fmt.Sprintf("Contact %d-%d", page, i)}},
		})
	}
	resp["connections"] = people
	if page < s.pages-1 {
		resp["nextPageToken"] = fmt.Sprintf("tok-%d", page+1)
	}
	json.NewEncoder(w).Encode(resp)
}

func (s *connectionsServer) tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestedTokens...)
}

func TestCursorReplayFromPageZero(t *testing.T) {
	srv := &connectionsServer{pages: 5, perPage: 2}
	set, _ := newTestSet(t, srv)

	// Page 3 with a cold cache walks pages 0, 1, 2, 3 in order
	result, err := set.Contacts.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "tok-1", "tok-2", "tok-3"}, srv.tokens())
	assert.Len(t, result.Items, 2)
	assert.Equal(t, "Contact 3-0", result.Items[0].Name)
	assert.True(t, result.HasMore)
	assert.Equal(t, 10, result.TotalCount)
}

func TestCursorReplayUsesCache(t *testing.T) {
	srv := &connectionsServer{pages: 5, perPage: 2}
	set, _ := newTestSet(t, srv)

	_, err := set.Contacts.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, srv.tokens(), 4)

	// Page 2 again: its token is cached, one request suffices
	_, err = set.Contacts.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	tokens := srv.tokens()
	require.Len(t, tokens, 5)
	assert.Equal(t, "tok-2", tokens[4])
}

func TestCursorFetchBeyondEnd(t *testing.T) {
	srv := &connectionsServer{pages: 2, perPage: 2}
	set, _ := newTestSet(t, srv)

	result, err := set.Contacts.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 7, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.False(t, result.HasMore)
}

func TestContactsFetchMapsFields(t *testing.T) {
	set, acct := newTestSet(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"totalItems": 1,
			"connections": []map[string]any{{
				"resourceName": "people/c42",
				"names": []map[string]any{{
					"displayName": "Ada Lovelace",
					"givenName":   "Ada",
					"familyName":  "Lovelace",
				}},
				"emailAddresses": []map[string]any{{"value": "ada@example.com"}},
				"phoneNumbers":   []map[string]any{{"value": "555-0100"}},
				"organizations":  []map[string]any{{"name": "Analytical Engines", "title": "Engineer"}},
				"birthdays":      []map[string]any{{"date": map[string]int{"year": 1815, "month": 12, "day": 10}}},
				"metadata": map[string]any{
					"sources": []map[string]any{{"updateTime": "2025-05-01T10:00:00Z"}},
				},
			}},
		})
	}))

	result, err := set.Contacts.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 0, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	person := result.Items[0]
	assert.Equal(t, "Ada Lovelace", person.Name)
	assert.Equal(t, "Ada", person.FirstName)
	assert.Equal(t, "ada@example.com", person.Email)
	assert.Equal(t, "555-0100", person.Phone)
	assert.Equal(t, "Analytical Engines", person.Company)
	assert.Equal(t, "Engineer", person.JobTitle)
	require.NotNil(t, person.Birthday)
	assert.Equal(t, 1815, person.Birthday.Year())
	assert.Equal(t, "people/c42", person.Link.ProviderID)
	assert.Equal(t, acct.ID.String(), person.Link.AccountID)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC), person.ProviderUpdatedAt)
	assert.False(t, result.HasMore)
}

func TestMailFetchMapsLabelsToFolders(t *testing.T) {
	set, _ := newTestSet(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/gmail/v1/users/me/messages":
			assert.Equal(t, "INBOX", r.URL.Query().Get("labelIds"))
			json.NewEncoder(w).Encode(map[string]any{
				"messages":           []map[string]any{{"id": "m1"}},
				"resultSizeEstimate": 1,
			})
		case r.URL.Path == "/gmail/v1/users/me/messages/m1":
			json.NewEncoder(w).Encode(map[string]any{
				"id":           "m1",
				"snippet":      "see you tomorrow",
				"labelIds":     []string{"INBOX", "UNREAD"},
				"internalDate": "1717243200000",
				"payload": map[string]any{
					"headers": []map[string]string{
						{"name": "Subject", "value": "Dinner"},
						{"name": "From", "value": "grace@example.com"},
						{"name": "To", "value": "ada@example.com, alan@example.com"},
					},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	result, err := set.Mail.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 0, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	msg := result.Items[0]
	assert.Equal(t, "Dinner", msg.Subject)
	assert.Equal(t, "grace@example.com", msg.Sender)
	assert.Equal(t, []string{"ada@example.com", "alan@example.com"}, msg.Recipients)
	assert.False(t, msg.Read)
	assert.Equal(t, "inbox", string(msg.Folder))
	assert.Equal(t, time.UnixMilli(1717243200000).UTC(), msg.SentAt)
}

func TestTaskFetchDefaultsStatus(t *testing.T) {
	set, _ := newTestSet(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "t1", "title": "Write report", "status": "needsAction"},
				{"id": "t2", "title": "Ship release", "status": "completed"},
			},
		})
	}))

	result, err := set.Tasks.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 0, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "open", string(result.Items[0].Status))
	assert.Equal(t, "completed", string(result.Items[1].Status))
}
