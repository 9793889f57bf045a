package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds {
		parsed, err := ParseKind(string(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseKind("imap")
	assert.Error(t, err)
	_, err = ParseKind("")
	assert.Error(t, err)
}

func TestParseDomain(t *testing.T) {
	for _, domain := range Domains {
		parsed, err := ParseDomain(string(domain))
		require.NoError(t, err)
		assert.Equal(t, domain, parsed)
	}

	_, err := ParseDomain("notes")
	assert.Error(t, err)
}

func TestCanSync(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	acct := IntegrationAccount{
		Kind: KindGoogle,
		Capabilities: Capabilities{
			SyncMail:     true,
			SyncContacts: true,
		},
		Credential: CredentialState{
			AccessToken:  "at",
			RefreshToken: "rt",
			TokenExpiry:  &expiry,
			Connected:    true,
		},
	}

	assert.True(t, acct.CanSync(DomainMail))
	assert.True(t, acct.CanSync(DomainContacts))
	assert.False(t, acct.CanSync(DomainCalendar))
	assert.False(t, acct.CanSync(DomainTasks))

	// A disconnected account never syncs, whatever its capabilities say
	acct.Credential.Connected = false
	assert.False(t, acct.CanSync(DomainMail))
	assert.False(t, acct.CanSync(DomainContacts))
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		cred CredentialState
		want Status
	}{
		{"never linked", CredentialState{}, StatusNoCredentials},
		{"connected", CredentialState{AccessToken: "at", RefreshToken: "rt", Connected: true}, StatusConnected},
		{"refresh token rejected", CredentialState{AccessToken: "at", RefreshToken: "rt", Connected: false}, StatusReauthNeeded},
		{"access token only, still connected", CredentialState{AccessToken: "at", Connected: true}, StatusConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := IntegrationAccount{Credential: tt.cred}
			assert.Equal(t, tt.want, acct.Status())
		})
	}
}
