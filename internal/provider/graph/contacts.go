package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"personal-organizer/backend/internal/model"
	"personal-organizer/backend/internal/provider"
)

const contactsPath = "/v1.0/me/contacts"

// graphContact is the wire shape of a contact resource
type graphContact struct {
	ID             string              `json:"id,omitempty"`
	DisplayName    string              `json:"displayName,omitempty"`
	GivenName      string              `json:"givenName,omitempty"`
	Surname        string              `json:"surname,omitempty"`
	EmailAddresses []graphEmailAddress `json:"emailAddresses,omitempty"`
	BusinessPhones []string            `json:"businessPhones,omitempty"`
	MobilePhone    string              `json:"mobilePhone,omitempty"`
	CompanyName    string              `json:"companyName,omitempty"`
	JobTitle       string              `json:"jobTitle,omitempty"`
	Birthday       string              `json:"birthday,omitempty"`
	LastModified   string              `json:"lastModifiedDateTime,omitempty"`
}

type graphEmailAddress struct {
	Address string `json:"address,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Contacts adapts the Office-style contacts API
type Contacts struct {
	*Client
}

// Fetch returns one page of contacts
func (a *Contacts) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Person], error) {
	params := url.Values{}
	if q.Search != "" {
		params.Set("$search", fmt.Sprintf("%q", q.Search))
	}
	env, err := a.list(ctx, contactsPath, params, p.Page, p.PageSize)
	if err != nil {
		return nil, err
	}

	var contacts []graphContact
	if err := json.Unmarshal(env.Value, &contacts); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}

	result := &provider.FetchResult[model.Person]{}
	for _, contact := range contacts {
		result.Items = append(result.Items, a.convertContact(contact))
	}
	result.TotalCount = a.totalCount(ctx, contactsPath, env, p.Page, p.PageSize, len(contacts))
	result.HasMore = hasMore(env, result.TotalCount, p.Page, p.PageSize, len(contacts))
	return result, nil
}

// Create adds a contact on the provider side
func (a *Contacts) Create(ctx context.Context, person model.Person) (*model.Person, error) {
	body, err := json.Marshal(a.toWire(person))
	if err != nil {
		return nil, fmt.Errorf("marshal contact: %w", err)
	}
	payload, err := a.send(ctx, http.MethodPost, contactsPath, body)
	if err != nil {
		return nil, err
	}
	var created graphContact
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("decode created contact: %w", err)
	}
	converted := a.convertContact(created)
	return &converted, nil
}

// Update modifies a contact on the provider side
func (a *Contacts) Update(ctx context.Context, person model.Person) (*model.Person, error) {
	if person.Link.ProviderID == "" {
		return nil, fmt.Errorf("contact has no provider id")
	}
	body, err := json.Marshal(a.toWire(person))
	if err != nil {
		return nil, fmt.Errorf("marshal contact: %w", err)
	}
	path := fmt.Sprintf("%s/%s", contactsPath, url.PathEscape(person.Link.ProviderID))
	payload, err := a.send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	var updated graphContact
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decode updated contact: %w", err)
	}
	converted := a.convertContact(updated)
	return &converted, nil
}

// Delete removes a contact on the provider side
func (a *Contacts) Delete(ctx context.Context, providerID string) error {
	path := fmt.Sprintf("%s/%s", contactsPath, url.PathEscape(providerID))
	_, err := a.send(ctx, http.MethodDelete, path, nil)
	return err
}

// ListGroups enumerates contact folders
func (a *Contacts) ListGroups(ctx context.Context) ([]provider.Collection, error) {
	body, err := a.get(ctx, "/v1.0/me/contactFolders", nil)
	if err != nil {
		return nil, err
	}
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode contact folders: %w", err)
	}
	var folders []struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(env.Value, &folders); err != nil {
		return nil, fmt.Errorf("decode contact folders: %w", err)
	}
	groups := make([]provider.Collection, 0, len(folders))
	for _, f := range folders {
		groups = append(groups, provider.Collection{ID: f.ID, Name: f.DisplayName})
	}
	return groups, nil
}

func (a *Contacts) convertContact(contact graphContact) model.Person {
	person := model.Person{
		Name:      contact.DisplayName,
		FirstName: contact.GivenName,
		LastName:  contact.Surname,
		Phone:     contact.MobilePhone,
		Company:   contact.CompanyName,
		JobTitle:  contact.JobTitle,
		Link:      model.Linkage{ProviderID: contact.ID, AccountID: a.accountID()},
	}
	if person.Name == "" {
		person.Name = joinName(contact.GivenName, contact.Surname)
	}
	if len(contact.EmailAddresses) > 0 {
		person.Email = contact.EmailAddresses[0].Address
	}
	if person.Phone == "" && len(contact.BusinessPhones) > 0 {
		person.Phone = contact.BusinessPhones[0]
	}
	if contact.Birthday != "" {
		if bd := parseGraphTime(contact.Birthday); !bd.IsZero() {
			person.Birthday = &bd
		}
	}
	person.ProviderUpdatedAt = parseGraphTime(contact.LastModified)
	return person
}

func (a *Contacts) toWire(person model.Person) graphContact {
	wire := graphContact{
		DisplayName: person.Name,
		GivenName:   person.FirstName,
		Surname:     person.LastName,
		MobilePhone: person.Phone,
		CompanyName: person.Company,
		JobTitle:    person.JobTitle,
	}
	if person.Email != "" {
		wire.EmailAddresses = []graphEmailAddress{{Address: person.Email, Name: person.Name}}
	}
	return wire
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// parseGraphTime reads the RFC 3339 timestamps the API emits, tolerating
// the fractional-seconds variant
func parseGraphTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
