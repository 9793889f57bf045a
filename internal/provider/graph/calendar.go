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

const eventsPath = "/v1.0/me/events"

// graphEvent is the wire shape of an event resource
type graphEvent struct {
	ID           string          `json:"id,omitempty"`
	Subject      string          `json:"subject,omitempty"`
	BodyPreview  string          `json:"bodyPreview,omitempty"`
	Location     *graphLocation  `json:"location,omitempty"`
	Start        *graphDateTime  `json:"start,omitempty"`
	End          *graphDateTime  `json:"end,omitempty"`
	IsAllDay     bool            `json:"isAllDay,omitempty"`
	IsCancelled  bool            `json:"isCancelled,omitempty"`
	ShowAs       string          `json:"showAs,omitempty"`
	Attendees    []graphAttendee `json:"attendees,omitempty"`
	LastModified string          `json:"lastModifiedDateTime,omitempty"`
}

type graphLocation struct {
	DisplayName string `json:"displayName,omitempty"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type graphAttendee struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

// Calendar adapts the Office-style events API
type Calendar struct {
	*Client
}

// Fetch returns one page of events
func (a *Calendar) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.CalendarEvent], error) {
	path := eventsPath
	if q.CalendarID != "" {
		path = fmt.Sprintf("/v1.0/me/calendars/%s/events", url.PathEscape(q.CalendarID))
	}
	params := url.Values{"$orderby": {"start/dateTime"}}
	if q.UpdatedSince != nil {
		params.Set("$filter", fmt.Sprintf("lastModifiedDateTime ge %s", q.UpdatedSince.UTC().Format(time.RFC3339)))
	}

	env, err := a.list(ctx, path, params, p.Page, p.PageSize)
	if err != nil {
		return nil, err
	}

	var events []graphEvent
	if err := json.Unmarshal(env.Value, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	result := &provider.FetchResult[model.CalendarEvent]{}
	for _, ev := range events {
		result.Items = append(result.Items, a.convertEvent(ev, q.CalendarID))
	}
	result.TotalCount = a.totalCount(ctx, path, env, p.Page, p.PageSize, len(events))
	result.HasMore = hasMore(env, result.TotalCount, p.Page, p.PageSize, len(events))
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
	var created graphEvent
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
	var updated graphEvent
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
	body, err := a.get(ctx, "/v1.0/me/calendars", nil)
	if err != nil {
		return nil, err
	}
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode calendars: %w", err)
	}
	var calendars []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(env.Value, &calendars); err != nil {
		return nil, fmt.Errorf("decode calendars: %w", err)
	}
	out := make([]provider.Collection, 0, len(calendars))
	for _, cal := range calendars {
		out = append(out, provider.Collection{ID: cal.ID, Name: cal.Name})
	}
	return out, nil
}

func (a *Calendar) convertEvent(ev graphEvent, calendarID string) model.CalendarEvent {
	event := model.CalendarEvent{
		Title:             ev.Subject,
		Description:       ev.BodyPreview,
		Status:            graphEventStatus(ev),
		AllDay:            ev.IsAllDay,
		CalendarID:        calendarID,
		Link:              model.Linkage{ProviderID: ev.ID, AccountID: a.accountID()},
		ProviderUpdatedAt: parseGraphTime(ev.LastModified),
	}
	if ev.Location != nil {
		event.Location = ev.Location.DisplayName
	}
	if ev.Start != nil {
		event.StartsAt = parseGraphTime(ev.Start.DateTime)
	}
	if ev.End != nil {
		event.EndsAt = parseGraphTime(ev.End.DateTime)
	}
	for _, att := range ev.Attendees {
		if att.EmailAddress.Address != "" {
			event.Attendees = append(event.Attendees, att.EmailAddress.Address)
		}
	}
	return event
}

func (a *Calendar) toWire(event model.CalendarEvent) graphEvent {
	wire := graphEvent{
		Subject:  event.Title,
		IsAllDay: event.AllDay,
		Start:    &graphDateTime{DateTime: event.StartsAt.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:      &graphDateTime{DateTime: event.EndsAt.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}
	if event.Location != "" {
		wire.Location = &graphLocation{DisplayName: event.Location}
	}
	if event.Status == model.EventStatusTentative {
		wire.ShowAs = "tentative"
	}
	for _, email := range event.Attendees {
		wire.Attendees = append(wire.Attendees, graphAttendee{EmailAddress: graphEmailAddress{Address: email}})
	}
	return wire
}

func graphEventStatus(ev graphEvent) model.EventStatus {
	if ev.IsCancelled {
		return model.EventStatusCancelled
	}
	if ev.ShowAs == "tentative" {
		return model.EventStatusTentative
	}
	return model.EventStatusConfirmed
}
