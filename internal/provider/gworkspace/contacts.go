package gworkspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"personal-organizer/backend/internal/model"
	"personal-organizer/backend/internal/provider"

	"google.golang.org/api/people/v1"
)

const (
	contactsPath = "/v1/people/me/connections"
	// personFields mirrors what the sync needs; everything else stays
	// on the provider side
	personFields = "names,emailAddresses,phoneNumbers,organizations,birthdays,photos,metadata"
)

// Contacts adapts the People-style contacts API
type Contacts struct {
	*Client
}

// Fetch returns one page of contacts
func (a *Contacts) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Person], error) {
	params := url.Values{"personFields": {personFields}}

	var resp people.ListConnectionsResponse
	served, err := a.cursorPage(ctx, contactsPath, params, p.Page, p.PageSize, func(body []byte) (string, error) {
		resp = people.ListConnectionsResponse{}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decode connections page: %w", err)
		}
		return resp.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}
	if !served {
		return &provider.FetchResult[model.Person]{TotalCount: int(resp.TotalItems)}, nil
	}

	result := &provider.FetchResult[model.Person]{
		TotalCount: int(resp.TotalItems),
		HasMore:    resp.NextPageToken != "",
	}
	for _, person := range resp.Connections {
		if person == nil {
			continue
		}
		result.Items = append(result.Items, a.convertPerson(person))
	}
	return result, nil
}

// Create adds a contact on the provider side
func (a *Contacts) Create(ctx context.Context, person model.Person) (*model.Person, error) {
	body, err := json.Marshal(a.toWire(person))
	if err != nil {
		return nil, fmt.Errorf("marshal contact: %w", err)
	}
	payload, err := a.send(ctx, http.MethodPost, "/v1/people:createContact", body)
	if err != nil {
		return nil, err
	}
	var created people.Person
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("decode created contact: %w", err)
	}
	converted := a.convertPerson(&created)
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
	path := fmt.Sprintf("/v1/%s:updateContact", person.Link.ProviderID)
	payload, err := a.send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	var updated people.Person
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decode updated contact: %w", err)
	}
	converted := a.convertPerson(&updated)
	return &converted, nil
}

// Delete removes a contact on the provider side
func (a *Contacts) Delete(ctx context.Context, providerID string) error {
	_, err := a.send(ctx, http.MethodDelete, fmt.Sprintf("/v1/%s:deleteContact", providerID), nil)
	return err
}

// ListGroups enumerates contact groups
func (a *Contacts) ListGroups(ctx context.Context) ([]provider.Collection, error) {
	body, err := a.get(ctx, "/v1/contactGroups", nil)
	if err != nil {
		return nil, err
	}
	var resp people.ListContactGroupsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode contact groups: %w", err)
	}
	groups := make([]provider.Collection, 0, len(resp.ContactGroups))
	for _, g := range resp.ContactGroups {
		if g == nil {
			continue
		}
		groups = append(groups, provider.Collection{ID: g.ResourceName, Name: g.FormattedName})
	}
	return groups, nil
}

// convertPerson maps the wire shape into the canonical entity,
// substituting explicit defaults for anything missing
func (a *Contacts) convertPerson(p *people.Person) model.Person {
	person := model.Person{
		Link: model.Linkage{ProviderID: p.ResourceName, AccountID: a.accountID()},
	}

	if len(p.Names) > 0 && p.Names[0] != nil {
		person.Name = p.Names[0].DisplayName
		person.FirstName = p.Names[0].GivenName
		person.LastName = p.Names[0].FamilyName
	}
	if len(p.EmailAddresses) > 0 && p.EmailAddresses[0] != nil {
		person.Email = p.EmailAddresses[0].Value
	}
	if len(p.PhoneNumbers) > 0 && p.PhoneNumbers[0] != nil {
		person.Phone = p.PhoneNumbers[0].Value
	}
	if len(p.Organizations) > 0 && p.Organizations[0] != nil {
		person.Company = p.Organizations[0].Name
		person.JobTitle = p.Organizations[0].Title
	}
	if len(p.Photos) > 0 && p.Photos[0] != nil {
		person.PhotoURL = p.Photos[0].Url
	}
	if len(p.Birthdays) > 0 && p.Birthdays[0] != nil && p.Birthdays[0].Date != nil {
		date := p.Birthdays[0].Date
		if date.Year > 0 && date.Month > 0 && date.Day > 0 {
			t := time.Date(int(date.Year), time.Month(date.Month), int(date.Day), 0, 0, 0, 0, time.UTC)
			person.Birthday = &t
		}
	}
	if p.Metadata != nil {
		for _, src := range p.Metadata.Sources {
			if src != nil && src.UpdateTime != "" {
				person.ProviderUpdatedAt = parseTimestamp(src.UpdateTime)
				break
			}
		}
	}

	return person
}

func (a *Contacts) toWire(person model.Person) *people.Person {
	wire := &people.Person{
		Names: []*people.Name{{
			DisplayName: person.Name,
			GivenName:   person.FirstName,
			FamilyName:  person.LastName,
		}},
	}
	if person.Email != "" {
		wire.EmailAddresses = []*people.EmailAddress{{Value: person.Email}}
	}
	if person.Phone != "" {
		wire.PhoneNumbers = []*people.PhoneNumber{{Value: person.Phone}}
	}
	if person.Company != "" || person.JobTitle != "" {
		wire.Organizations = []*people.Organization{{Name: person.Company, Title: person.JobTitle}}
	}
	return wire
}
