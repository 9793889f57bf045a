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

const eventsPath = "/api/v2.0/me/events"

// exchangeEvent is the wire shape of a calendar item
type exchangeEvent struct {
	ID           string             `json:"Id,omitempty"`
	Subject      string             `json:"Subject,omitempty"`
	BodyPreview  string             `json:"BodyPreview,omitempty"`
	Location     *exchangeLocation  `json:"Location,omitempty"`
	Start        *exchangeDateTime  `json:"Start,omitempty"`
	End          *exchangeDateTime  `json:"End,omitempty"`
	IsAllDay     bool               `json:"IsAllDay,omitempty"`
	IsCancelled  bool               `json:"IsCancelled,omitempty"`
	ShowAs       string             `json:"ShowAs,omitempty"`
	Attendees    []exchangeAttendee `json:"Attendees,omitempty"`
	LastModified string             `json:"LastModifiedDateTime,omitempty"`
}

type exchangeLocation struct {
	DisplayName string `json:"DisplayName,omitempty"`
}

type exchangeDateTime struct {
	DateTime string `json:"DateTime,omitempty"`
	TimeZone string `json:"TimeZone,omitempty"`
}

type exchangeAttendee struct {
	EmailAddress exchangeAddress `json:"EmailAddress"`
}

type eventPage struct {
	Value    []exchangeEvent `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

// Calendar adapts the Exchange-style calendar API
type Calendar struct {
	*Client
}

// Fetch returns one page of events
func (a *Calendar) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.CalendarEvent], error) {
	path := eventsPath
	if q.CalendarID != "" {
		path = fmt.Sprintf("/api/v2.0/me/calendars/%s/events", url.PathEscape(q.CalendarID))
	}
	params := url.Values{"$orderby": {"Start/DateTime"}}

	var page eventPage
	served, err := a.linkPage(ctx, path, params, p.Page, p.PageSize, func(body []byte) (string, error) {
		page = eventPage{}
		if err := json.Unmarshal(body, &page); err != nil {
			return "", fmt.Errorf("decode events page: %w", err)
		}
		return page.NextLink, nil
	})
	if err != nil {
		return nil, err
	}
	if !served {
		return &provider.FetchResult[model.CalendarEvent]{}, nil
	}

	result := &provider.FetchResult[model.CalendarEvent]{HasMore: page.NextLink != ""}
	for _, ev := range page.Value {
		result.Items = append(result.Items, a.convertEvent(ev, q.CalendarID))
	}
	result.TotalCount = len(result.Items)
	return result, nil
}

// Create adds an event on the provider side
func (a *Calendar) Create(ctx context.Context, event model.CalendarEvent) (*model.CalendarEvent, error) {
	body, err := json.Marshal(a.toWire(event))
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	payload, err := a.send(ctx, http.MethodPost, eventsPath, body)
	if err != nil {
		return nil, err
	}
	var created exchangeEvent
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("decode created event: %w", err)
	}
	converted := a.convertEvent(created, event.CalendarID)
	return &converted, nil
}

// Update modifies an event on the provider side
func (a *Calendar) Update(ctx context.Context, event model.CalendarEvent) (*model.CalendarEvent, error) {
	if event.Link.ProviderID == "" {
		return nil, fmt.Errorf("event has no provider id")
	}
	body, err := json.Marshal(a.toWire(event))
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	path := fmt.Sprintf("%s/%s", eventsPath, url.PathEscape(event.Link.ProviderID))
	payload, err := a.send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	var updated exchangeEvent
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decode updated event: %w", err)
	}
	converted := a.convertEvent(updated, event.CalendarID)
	return &converted, nil
}

// Delete removes an event on the provider side
func (a *Calendar) Delete(ctx context.Context, providerID string) error {
	path := fmt.Sprintf("%s/%s", eventsPath, url.PathEscape(providerID))
	_, err := a.send(ctx, http.MethodDelete, path, nil)
	return err
}

// ListCalendars enumerates the account's calendars
func (a *Calendar) ListCalendars(ctx context.Context) ([]provider.Collection, error) {
	body, err := a.get(ctx, "/api/v2.0/me/calendars", nil)
	if err != nil {
		return nil, err
	}
	var page struct {
		Value []struct {
			ID   string `json:"Id"`
			Name string `json:"Name"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode calendars: %w", err)
	}
	calendars := make([]provider.Collection, 0, len(page.Value))
	for _, cal := range page.Value {
		calendars = append(calendars, provider.Collection{ID: cal.ID, Name: cal.Name})
	}
	return calendars, nil
}

func (a *Calendar) convertEvent(ev exchangeEvent, calendarID string) model.CalendarEvent {
	event := model.CalendarEvent{
		Title:             ev.Subject,
		Description:       ev.BodyPreview,
		Status:            exchangeEventStatus(ev),
		AllDay:            ev.IsAllDay,
		CalendarID:        calendarID,
		Link:              model.Linkage{ProviderID: ev.ID, AccountID: a.accountID()},
		ProviderUpdatedAt: parseExchangeTime(ev.LastModified),
	}
	if ev.Location != nil {
		event.Location = ev.Location.DisplayName
	}
	if ev.Start != nil {
		event.StartsAt = parseExchangeDateTime(ev.Start)
	}
	if ev.End != nil {
		event.EndsAt = parseExchangeDateTime(ev.End)
	}
	for _, att := range ev.Attendees {
		if att.EmailAddress.Address != "" {
			event.Attendees = append(event.Attendees, att.EmailAddress.Address)
		}
	}
	return event
}

func (a *Calendar) toWire(event model.CalendarEvent) exchangeEvent {
	wire := exchangeEvent{
		Subject:  event.Title,
		IsAllDay: event.AllDay,
		Start:    &exchangeDateTime{DateTime: event.StartsAt.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:      &exchangeDateTime{DateTime: event.EndsAt.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}
	if event.Location != "" {
		wire.Location = &exchangeLocation{DisplayName: event.Location}
	}
	if event.Status == model.EventStatusTentative {
		wire.ShowAs = "Tentative"
	}
	for _, email := range event.Attendees {
		wire.Attendees = append(wire.Attendees, exchangeAttendee{EmailAddress: exchangeAddress{Address: email}})
	}
	return wire
}

// parseExchangeDateTime tolerates the timezone-less local form some
// servers emit alongside RFC 3339
func parseExchangeDateTime(dt *exchangeDateTime) time.Time {
	if dt == nil || dt.DateTime == "" {
		return time.Time{}
	}
	if t := parseExchangeTime(dt.DateTime); !t.IsZero() {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", dt.DateTime); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func exchangeEventStatus(ev exchangeEvent) model.EventStatus {
	if ev.IsCancelled {
		return model.EventStatusCancelled
	}
	if ev.ShowAs == "Tentative" {
		return model.EventStatusTentative
	}
	return model.EventStatusConfirmed
}
