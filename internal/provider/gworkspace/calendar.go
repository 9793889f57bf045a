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

	gcalendar "google.golang.org/api/calendar/v3"
)

const defaultCalendarID = "primary"

// Calendar adapts the Calendar-style events API
type Calendar struct {
	*Client
}

// Fetch returns one page of events from the requested calendar
func (a *Calendar) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.CalendarEvent], error) {
	calendarID := q.CalendarID
	if calendarID == "" {
		calendarID = defaultCalendarID
	}
	params := url.Values{"singleEvents": {"true"}, "orderBy": {"startTime"}}
	if q.UpdatedSince != nil {
		params.Set("updatedMin", q.UpdatedSince.UTC().Format(time.RFC3339))
	}
	if q.Search != "" {
		params.Set("q", q.Search)
	}

	path := fmt.Sprintf("/calendar/v3/calendars/%s/events", url.PathEscape(calendarID))

	var resp gcalendar.Events
	served, err := a.cursorPage(ctx, path, params, p.Page, p.PageSize, func(body []byte) (string, error) {
		resp = gcalendar.Events{}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decode events page: %w", err)
		}
		return resp.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}
	if !served {
		return &provider.FetchResult[model.CalendarEvent]{}, nil
	}

	result := &provider.FetchResult[model.CalendarEvent]{HasMore: resp.NextPageToken != ""}
	for _, ev := range resp.Items {
		if ev == nil {
			continue
		}
		result.Items = append(result.Items, a.convertEvent(ev, calendarID))
	}
	result.TotalCount = len(result.Items)
	return result, nil
}

// Create adds an event on the provider side
func (a *Calendar) Create(ctx context.Context, event model.CalendarEvent) (*model.CalendarEvent, error) {
	calendarID := event.CalendarID
	if calendarID == "" {
		calendarID = defaultCalendarID
	}
	body, err := json.Marshal(a.toWire(event))
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	path := fmt.Sprintf("/calendar/v3/calendars/%s/events", url.PathEscape(calendarID))
	payload, err := a.send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var created gcalendar.Event
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("decode created event: %w", err)
	}
	converted := a.convertEvent(&created, calendarID)
	return &converted, nil
}

// Update modifies an event on the provider side
func (a *Calendar) Update(ctx context.Context, event model.CalendarEvent) (*model.CalendarEvent, error) {
	if event.Link.ProviderID == "" {
		return nil, fmt.Errorf("event has no provider id")
	}
	calendarID := event.CalendarID
	if calendarID == "" {
		calendarID = defaultCalendarID
	}
	body, err := json.Marshal(a.toWire(event))
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	path := fmt.Sprintf("/calendar/v3/calendars/%s/events/%s", url.PathEscape(calendarID), url.PathEscape(event.Link.ProviderID))
	payload, err := a.send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	var updated gcalendar.Event
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decode updated event: %w", err)
	}
	converted := a.convertEvent(&updated, calendarID)
	return &converted, nil
}

// Delete removes an event from the primary calendar
func (a *Calendar) Delete(ctx context.Context, providerID string) error {
	path := fmt.Sprintf("/calendar/v3/calendars/%s/events/%s", defaultCalendarID, url.PathEscape(providerID))
	_, err := a.send(ctx, http.MethodDelete, path, nil)
	return err
}

// ListCalendars enumerates the account's calendars
func (a *Calendar) ListCalendars(ctx context.Context) ([]provider.Collection, error) {
	body, err := a.get(ctx, "/calendar/v3/users/me/calendarList", nil)
	if err != nil {
		return nil, err
	}
	var resp gcalendar.CalendarList
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode calendar list: %w", err)
	}
	calendars := make([]provider.Collection, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		calendars = append(calendars, provider.Collection{ID: item.Id, Name: item.Summary})
	}
	return calendars, nil
}

func (a *Calendar) convertEvent(ev *gcalendar.Event, calendarID string) model.CalendarEvent {
	event := model.CalendarEvent{
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Status:      eventStatus(ev.Status),
		CalendarID:  calendarID,
		Link:        model.Linkage{ProviderID: ev.Id, AccountID: a.accountID()},
	}
	if ev.Updated != "" {
		event.ProviderUpdatedAt = parseTimestamp(ev.Updated)
	}
	event.StartsAt, event.AllDay = eventTime(ev.Start)
	event.EndsAt, _ = eventTime(ev.End)
	for _, att := range ev.Attendees {
		if att != nil && att.Email != "" {
			event.Attendees = append(event.Attendees, att.Email)
		}
	}
	return event
}

func (a *Calendar) toWire(event model.CalendarEvent) *gcalendar.Event {
	wire := &gcalendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Status:      string(event.Status),
	}
	if event.AllDay {
		wire.Start = &gcalendar.EventDateTime{Date: event.StartsAt.Format("2006-01-02")}
		wire.End = &gcalendar.EventDateTime{Date: event.EndsAt.Format("2006-01-02")}
	} else {
		wire.Start = &gcalendar.EventDateTime{DateTime: event.StartsAt.UTC().Format(time.RFC3339)}
		wire.End = &gcalendar.EventDateTime{DateTime: event.EndsAt.UTC().Format(time.RFC3339)}
	}
	for _, email := range event.Attendees {
		wire.Attendees = append(wire.Attendees, &gcalendar.EventAttendee{Email: email})
	}
	return wire
}

// eventTime resolves a calendar timestamp, reporting whether the event
// is date-only
func eventTime(dt *gcalendar.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		return parseTimestamp(dt.DateTime), false
	}
	if dt.Date != "" {
		t, err := time.Parse("2006-01-02", dt.Date)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func eventStatus(s string) model.EventStatus {
	switch s {
	case "tentative":
		return model.EventStatusTentative
	case "cancelled":
		return model.EventStatusCancelled
	default:
		return model.EventStatusConfirmed
	}
}
