package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/config"
	"personal-organizer/backend/internal/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// stateTTL bounds how long an OAuth consent round-trip may take
const stateTTL = 10 * time.Minute

var googleScopes = []string{
	"https://www.googleapis.com/auth/contacts",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/tasks",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/userinfo.email",
}

var officeScopes = []string{
	"offline_access",
	"Contacts.ReadWrite",
	"Calendars.ReadWrite",
	"Tasks.ReadWrite",
	"Mail.ReadWrite",
	"User.Read",
}

var exchangeScopes = []string{
	"offline_access",
	"EWS.AccessAsUser.All",
}

type pendingState struct {
	kind      account.Kind
	expiresAt time.Time
}

// LinkService runs the OAuth account-linking flow: it hands out consent
// URLs with CSRF state and turns the returned authorization code into a
// stored IntegrationAccount.
type LinkService struct {
	accounts account.Store
	configs  map[account.Kind]*oauth2.Config
	userinfo map[account.Kind]string
	client   *http.Client

	mu     sync.Mutex
	states map[string]pendingState
}

// NewLinkService creates a link service from the provider settings
func NewLinkService(accounts account.Store, providers config.ProvidersConfig) *LinkService {
	configs := map[account.Kind]*oauth2.Config{
		account.KindGoogle: {
			ClientID:     providers.Google.ClientID,
			ClientSecret: providers.Google.ClientSecret,
			RedirectURL:  providers.Google.RedirectURL,
			Scopes:       googleScopes,
			Endpoint:     google.Endpoint,
		},
		account.KindOffice: {
			ClientID:     providers.Office.ClientID,
			ClientSecret: providers.Office.ClientSecret,
			RedirectURL:  providers.Office.RedirectURL,
			Scopes:       officeScopes,
			Endpoint:     microsoft.AzureADEndpoint("common"),
		},
		account.KindExchange: {
			ClientID:     providers.Exchange.ClientID,
			ClientSecret: providers.Exchange.ClientSecret,
			RedirectURL:  providers.Exchange.RedirectURL,
			Scopes:       exchangeScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  providers.Exchange.BaseURL + "/oauth/authorize",
				TokenURL: providers.Exchange.BaseURL + "/oauth/token",
			},
		},
	}
	userinfo := map[account.Kind]string{
		account.KindGoogle:   "https://www.googleapis.com/oauth2/v2/userinfo",
		account.KindOffice:   providers.Office.BaseURL + "/me",
		account.KindExchange: providers.Exchange.BaseURL + "/api/v2.0/me",
	}
	return &LinkService{
		accounts: accounts,
		configs:  configs,
		userinfo: userinfo,
		client:   &http.Client{Timeout: 30 * time.Second},
		states:   make(map[string]pendingState),
	}
}

// AuthURL returns the provider consent URL and its CSRF state token
func (s *LinkService) AuthURL(kind account.Kind) (string, string, error) {
	cfg, ok := s.configs[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown account kind: %q", kind)
	}
	if cfg.ClientID == "" {
		return "", "", fmt.Errorf("%s provider is not configured", kind)
	}

	state, err := generateState()
	if err != nil {
		return "", "", err
	}

	s.mu.Lock()
	s.states[state] = pendingState{kind: kind, expiresAt: time.Now().Add(stateTTL)}
	s.prune()
	s.mu.Unlock()

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return url, state, nil
}

// Complete validates the CSRF state, exchanges the authorization code
// and stores the linked account with every capability enabled
func (s *LinkService) Complete(ctx context.Context, state, code string) (*account.IntegrationAccount, error) {
	s.mu.Lock()
	pending, ok := s.states[state]
	delete(s.states, state)
	s.mu.Unlock()

	if !ok || time.Now().After(pending.expiresAt) {
		return nil, fmt.Errorf("invalid or expired oauth state")
	}

	cfg := s.configs[pending.kind]
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	email, err := s.fetchEmail(ctx, pending.kind, tok)
	if err != nil {
		return nil, fmt.Errorf("fetch account email: %w", err)
	}

	acct := &account.IntegrationAccount{
		Kind:         pending.kind,
		DisplayEmail: email,
		Capabilities: account.Capabilities{
			SyncMail:     true,
			SyncCalendar: true,
			SyncContacts: true,
			SyncTasks:    true,
		},
		Credential: account.CredentialState{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Connected:    true,
		},
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		acct.Credential.TokenExpiry = &expiry
	}

	if err := s.accounts.Save(ctx, acct); err != nil {
		return nil, fmt.Errorf("save linked account: %w", err)
	}

	logger.Info().
		Str("kind", string(pending.kind)).
		Str("email", email).
		Msg("Account linked")
	return acct, nil
}

// fetchEmail resolves the account's address from the provider's profile
// endpoint; the three providers disagree on the field name
func (s *LinkService) fetchEmail(ctx context.Context, kind account.Kind, tok *oauth2.Token) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfo[kind], nil)
	if err != nil {
		return "", err
	}
	tok.SetAuthHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("profile endpoint returned %d", resp.StatusCode)
	}

	var profile struct {
		Email             string `json:"email"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
		EmailAddress      string `json:"EmailAddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("decode profile: %w", err)
	}

	for _, email := range []string{profile.Email, profile.Mail, profile.UserPrincipalName, profile.EmailAddress} {
		if email != "" {
			return email, nil
		}
	}
	return "", fmt.Errorf("profile carries no email address")
}

// prune drops expired states; caller holds the lock
func (s *LinkService) prune() {
	now := time.Now()
	for state, pending := range s.states {
		if now.After(pending.expiresAt) {
			delete(s.states, state)
		}
	}
}

func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
