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

const tasksPath = "/api/v2.0/me/tasks"

// exchangeTask is the wire shape of a task item
type exchangeTask struct {
	ID           string            `json:"Id,omitempty"`
	Subject      string            `json:"Subject,omitempty"`
	Body         *exchangeBody     `json:"Body,omitempty"`
	Status       string            `json:"Status,omitempty"`
	DueDateTime  *exchangeDateTime `json:"DueDateTime,omitempty"`
	LastModified string            `json:"LastModifiedDateTime,omitempty"`
}

type exchangeBody struct {
	Content     string `json:"Content,omitempty"`
	ContentType string `json:"ContentType,omitempty"`
}

type taskPage struct {
	Value    []exchangeTask `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

// Tasks adapts the Exchange-style tasks API
type Tasks struct {
	*Client
}

// Fetch returns one page of tasks
func (a *Tasks) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Task], error) {
	path := tasksPath
	if q.ListID != "" {
		path = fmt.Sprintf("/api/v2.0/me/taskfolders/%s/tasks", url.PathEscape(q.ListID))
	}

	var page taskPage
	served, err := a.linkPage(ctx, path, nil, p.Page, p.PageSize, func(body []byte) (string, error) {
		page = taskPage{}
		if err := json.Unmarshal(body, &page); err != nil {
			return "", fmt.Errorf("decode tasks page: %w", err)
		}
		return page.NextLink, nil
	})
	if err != nil {
		return nil, err
	}
	if !served {
		return &provider.FetchResult[model.Task]{}, nil
	}

	result := &provider.FetchResult[model.Task]{HasMore: page.NextLink != ""}
	for _, task := range page.Value {
		result.Items = append(result.Items, a.convertTask(task, q.ListID))
	}
	result.TotalCount = len(result.Items)
	return result, nil
}

// Create adds a task on the provider side
func (a *Tasks) Create(ctx context.Context, task model.Task) (*model.Task, error) {
	body, err := json.Marshal(a.toWire(task))
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	payload, err := a.send(ctx, http.MethodPost, tasksPath, body)
	if err != nil {
		return nil, err
	}
	var created exchangeTask
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("decode created task: %w", err)
	}
	converted := a.convertTask(created, task.ListID)
	return &converted, nil
}

// Update modifies a task on the provider side
func (a *Tasks) Update(ctx context.Context, task model.Task) (*model.Task, error) {
	if task.Link.ProviderID == "" {
		return nil, fmt.Errorf("task has no provider id")
	}
	body, err := json.Marshal(a.toWire(task))
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	path := fmt.Sprintf("%s/%s", tasksPath, url.PathEscape(task.Link.ProviderID))
	payload, err := a.send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	var updated exchangeTask
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decode updated task: %w", err)
	}
	converted := a.convertTask(updated, task.ListID)
	return &converted, nil
}

// Delete removes a task on the provider side
func (a *Tasks) Delete(ctx context.Context, providerID string) error {
	path := fmt.Sprintf("%s/%s", tasksPath, url.PathEscape(providerID))
	_, err := a.send(ctx, http.MethodDelete, path, nil)
	return err
}

// ListTaskLists enumerates the account's task folders
func (a *Tasks) ListTaskLists(ctx context.Context) ([]provider.Collection, error) {
	body, err := a.get(ctx, "/api/v2.0/me/taskfolders", nil)
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
		return nil, fmt.Errorf("decode task folders: %w", err)
	}
	lists := make([]provider.Collection, 0, len(page.Value))
	for _, f := range page.Value {
		lists = append(lists, provider.Collection{ID: f.ID, Name: f.Name})
	}
	return lists, nil
}

func (a *Tasks) convertTask(t exchangeTask, listID string) model.Task {
	task := model.Task{
		Title:             t.Subject,
		Status:            exchangeTaskStatus(t.Status),
		ListID:            listID,
		Link:              model.Linkage{ProviderID: t.ID, AccountID: a.accountID()},
		ProviderUpdatedAt: parseExchangeTime(t.LastModified),
	}
	if t.Body != nil {
		task.Notes = t.Body.Content
	}
	if t.DueDateTime != nil {
		if due := parseExchangeDateTime(t.DueDateTime); !due.IsZero() {
			task.DueAt = &due
		}
	}
	return task
}

func (a *Tasks) toWire(task model.Task) exchangeTask {
	wire := exchangeTask{Subject: task.Title}
	if task.Notes != "" {
		wire.Body = &exchangeBody{Content: task.Notes, ContentType: "Text"}
	}
	if task.Status == model.TaskStatusCompleted {
		wire.Status = "Completed"
	} else {
		wire.Status = "NotStarted"
	}
	if task.DueAt != nil {
		wire.DueDateTime = &exchangeDateTime{DateTime: task.DueAt.UTC().Format(time.RFC3339), TimeZone: "UTC"}
	}
	return wire
}

func exchangeTaskStatus(s string) model.TaskStatus {
	if s == "Completed" {
		return model.TaskStatusCompleted
	}
	return model.TaskStatusOpen
}
