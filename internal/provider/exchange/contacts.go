package exchange

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

const contactsPath = "/api/v2.0/me/contacts"

// exchangeContact is the wire shape of a contact item
type exchangeContact struct {
	ID             string            `json:"Id,omitempty"`
	DisplayName    string            `json:"DisplayName,omitempty"`
	GivenName      string            `json:"GivenName,omitempty"`
	Surname        string            `json:"Surname,omitempty"`
	EmailAddresses []exchangeAddress `json:"EmailAddresses,omitempty"`
	BusinessPhones []string          `json:"BusinessPhones,omitempty"`
	MobilePhone1   string            `json:"MobilePhone1,omitempty"`
	CompanyName    string            `json:"CompanyName,omitempty"`
	JobTitle       string            `json:"JobTitle,omitempty"`
	Birthday       string            `json:"Birthday,omitempty"`
	LastModified   string            `json:"LastModifiedDateTime,omitempty"`
}

type exchangeAddress struct {
	Address string `json:"Address,omitempty"`
	Name    string `json:"Name,omitempty"`
}

type contactPage struct {
	Value    []exchangeContact `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// Contacts adapts the Exchange-style contacts API
type Contacts struct {
	*Client
}

// Fetch returns one page of contacts
func (a *Contacts) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Person], error) {
	var page contactPage
	served, err := a.linkPage(ctx, contactsPath, nil, p.Page, p.PageSize, func(body []byte) (string, error) {
		page = contactPage{}
		if err := json.Unmarshal(body, &page); err != nil {
			return "", fmt.Errorf("decode contacts page: %w", err)
		}
		return page.NextLink, nil
	})
	if err != nil {
		return nil, err
	}
	if !served {
		return &provider.FetchResult[model.Person]{}, nil
	}

	result := &provider.FetchResult[model.Person]{HasMore: page.NextLink != ""}
	for _, contact := range page.Value {
		result.Items = append(result.Items, a.convertContact(contact))
	}
	result.TotalCount = len(result.Items)
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
	var created exchangeContact
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
	var updated exchangeContact
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
	body, err := a.get(ctx, "/api/v2.0/me/contactfolders", nil)
	if err != nil {
		return nil, err
	}
	var page struct {
		Value []struct {
			ID          string `json:"Id"`
			DisplayName string `json:"DisplayName"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode contact folders: %w", err)
	}
	groups := make([]provider.Collection, 0, len(page.Value))
	for _, f := range page.Value {
		groups = append(groups, provider.Collection{ID: f.ID, Name: f.DisplayName})
	}
	return groups, nil
}

func (a *Contacts) convertContact(contact exchangeContact) model.Person {
	person := model.Person{
		Name:      contact.DisplayName,
		FirstName: contact.GivenName,
		LastName:  contact.Surname,
		Phone:     contact.MobilePhone1,
		Company:   contact.CompanyName,
		JobTitle:  contact.JobTitle,
		Link:      model.Linkage{ProviderID: contact.ID, AccountID: a.accountID()},
	}
	if len(contact.EmailAddresses) > 0 {
		person.Email = contact.EmailAddresses[0].Address
	}
	if person.Phone == "" && len(contact.BusinessPhones) > 0 {
		person.Phone = contact.BusinessPhones[0]
	}
	if contact.Birthday != "" {
		if bd := parseExchangeTime(contact.Birthday); !bd.IsZero() {
			person.Birthday = &bd
		}
	}
	person.ProviderUpdatedAt = parseExchangeTime(contact.LastModified)
	return person
}

func (a *Contacts) toWire(person model.Person) exchangeContact {
	wire := exchangeContact{
		DisplayName:  person.Name,
		GivenName:    person.FirstName,
		Surname:      person.LastName,
		MobilePhone1: person.Phone,
		CompanyName:  person.Company,
		JobTitle:     person.JobTitle,
	}
	if person.Email != "" {
		wire.EmailAddresses = []exchangeAddress{{Address: person.Email, Name: person.Name}}
	}
	return wire
}

func parseExchangeTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
