package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/model"
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

func newTestSet(t *testing.T, handler http.Handler) *provider.Set {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	expiry := time.Now().Add(time.Hour)
	acct := &account.IntegrationAccount{
		ID:           uuid.New(),
		Kind:         account.KindOffice,
		DisplayEmail: "user@example.com",
		Credential: account.CredentialState{
			AccessToken: "token",
			TokenExpiry: &expiry,
			Connected:   true,
		},
	}
	exec := remote.NewExecutor(noopRefresher{}, nil, srv.Client())
	return NewFactory(exec, srv.URL)(acct)
}

func contactValue(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{
			"id":          fmt.Sprintf("c%d", i),
			"displayName": fmt.Sprintf("Contact %d", i),
		}
	}
	return out
}

func TestListSendsOffsetParams(t *testing.T) {
	set := newTestSet(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/me/contacts", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("$skip"))
		assert.Equal(t, "10", r.URL.Query().Get("$top"))
		assert.Equal(t, "true", r.URL.Query().Get("$count"))
		json.NewEncoder(w).Encode(map[string]any{
			"@odata.count": 57,
			"value":        contactValue(10),
		})
	}))

	result, err := set.Contacts.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 57, result.TotalCount)
	assert.True(t, result.HasMore)
	assert.Len(t, result.Items, 10)
}

func TestTotalCountSecondaryCall(t *testing.T) {
	var countCalls int
	set := newTestSet(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.0/me/contacts/$count" {
			countCalls++
			fmt.Fprint(w, "57\n")
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"value": contactValue(3)})
	}))

	result, err := set.Contacts.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 0, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, countCalls)
	assert.Equal(t, 57, result.TotalCount)
	assert.False(t, result.HasMore)
}

func TestTotalCountEstimateFallback(t *testing.T) {
	set := newTestSet(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.0/me/contacts/$count" {
			http.Error(w, "not supported", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"value": contactValue(3)})
	}))

	// Page 1 of 5 with 3 items: the estimate is offset plus page length
	result, err := set.Contacts.Fetch(context.Background(), provider.Query{}, provider.PageRequest{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 8, result.TotalCount)
	assert.False(t, result.HasMore)
}

func TestHasMore(t *testing.T) {
	tests := []struct {
		name     string
		env      listEnvelope
		total    int
		page     int
		pageSize int
		pageLen  int
		want     bool
	}{
		{"next link always wins", listEnvelope{NextLink: "https://x/next"}, 0, 0, 10, 0, true},
		{"full page below total", listEnvelope{}, 25, 0, 10, 10, true},
		{"short page", listEnvelope{}, 25, 0, 10, 7, false},
		{"last full page", listEnvelope{}, 20, 1, 10, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasMore(&tt.env, tt.total, tt.page, tt.pageSize, tt.pageLen))
		})
	}
}

func TestMailFolderPaths(t *testing.T) {
	tests := []struct {
		folder string
		path   string
	}{
		{"inbox", "/v1.0/me/mailFolders/inbox/messages"},
		{"sent", "/v1.0/me/mailFolders/sentitems/messages"},
		{"drafts", "/v1.0/me/mailFolders/drafts/messages"},
		{"trash", "/v1.0/me/mailFolders/deleteditems/messages"},
		{"spam", "/v1.0/me/mailFolders/junkemail/messages"},
	}
	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			assert.Equal(t, tt.path, mailFolderPath(model.Folder(tt.folder)))
		})
	}
}

func TestMailSearchDropsOrdering(t *testing.T) {
	set := newTestSet(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"quarterly report"`, r.URL.Query().Get("$search"))
		assert.Empty(t, r.URL.Query().Get("$orderby"))
		json.NewEncoder(w).Encode(map[string]any{"@odata.count": 0, "value": []any{}})
	}))

	_, err := set.Mail.Fetch(context.Background(), provider.Query{Search: "quarterly report"}, provider.PageRequest{Page: 0, PageSize: 10})
	require.NoError(t, err)
}

func TestParseGraphTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", "2025-05-01T10:00:00Z", time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"fractional without zone", "2025-05-01T10:00:00.1234567", time.Date(2025, 5, 1, 10, 0, 0, 123456700, time.UTC)},
		{"garbage", "yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseGraphTime(tt.in)), "got %v", parseGraphTime(tt.in))
		})
	}
}
