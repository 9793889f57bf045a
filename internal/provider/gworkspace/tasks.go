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

	gtasks "google.golang.org/api/tasks/v1"
)

const defaultTaskList = "@default"

// Tasks adapts the Tasks-style to-do API
type Tasks struct {
	*Client
}

// Fetch returns one page of tasks from the requested list
func (a *Tasks) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Task], error) {
	listID := q.ListID
	if listID == "" {
		listID = defaultTaskList
	}
	params := url.Values{"showCompleted": {"true"}, "showHidden": {"true"}}
	if q.UpdatedSince != nil {
		params.Set("updatedMin", q.UpdatedSince.UTC().Format(time.RFC3339))
	}

	path := fmt.Sprintf("/tasks/v1/lists/%s/tasks", url.PathEscape(listID))

	var resp gtasks.Tasks
	served, err := a.cursorPage(ctx, path, params, p.Page, p.PageSize, func(body []byte) (string, error) {
		resp = gtasks.Tasks{}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decode tasks page: %w", err)
		}
		return resp.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}
	if !served {
		return &provider.FetchResult[model.Task]{}, nil
	}

	result := &provider.FetchResult[model.Task]{HasMore: resp.NextPageToken != ""}
	for _, task := range resp.Items {
		if task == nil {
			continue
		}
		result.Items = append(result.Items, a.convertTask(task, listID))
	}
	result.TotalCount = len(result.Items)
	return result, nil
}

// Create adds a task on the provider side
func (a *Tasks) Create(ctx context.Context, task model.Task) (*model.Task, error) {
	listID := task.ListID
	if listID == "" {
		listID = defaultTaskList
	}
	body, err := json.Marshal(a.toWire(task))
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	path := fmt.Sprintf("/tasks/v1/lists/%s/tasks", url.PathEscape(listID))
	payload, err := a.send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var created gtasks.Task
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("decode created task: %w", err)
	}
	converted := a.convertTask(&created, listID)
	return &converted, nil
}

// Update modifies a task on the provider side
func (a *Tasks) Update(ctx context.Context, task model.Task) (*model.Task, error) {
	if task.Link.ProviderID == "" {
		return nil, fmt.Errorf("task has no provider id")
	}
	listID := task.ListID
	if listID == "" {
		listID = defaultTaskList
	}
	body, err := json.Marshal(a.toWire(task))
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	path := fmt.Sprintf("/tasks/v1/lists/%s/tasks/%s", url.PathEscape(listID), url.PathEscape(task.Link.ProviderID))
	payload, err := a.send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	var updated gtasks.Task
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decode updated task: %w", err)
	}
	converted := a.convertTask(&updated, listID)
	return &converted, nil
}

// Delete removes a task from the default list
func (a *Tasks) Delete(ctx context.Context, providerID string) error {
	path := fmt.Sprintf("/tasks/v1/lists/%s/tasks/%s", defaultTaskList, url.PathEscape(providerID))
	_, err := a.send(ctx, http.MethodDelete, path, nil)
	return err
}

// ListTaskLists enumerates the account's task lists
func (a *Tasks) ListTaskLists(ctx context.Context) ([]provider.Collection, error) {
	body, err := a.get(ctx, "/tasks/v1/users/@me/lists", nil)
	if err != nil {
		return nil, err
	}
	var resp gtasks.TaskLists
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode task lists: %w", err)
	}
	lists := make([]provider.Collection, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		lists = append(lists, provider.Collection{ID: item.Id, Name: item.Title})
	}
	return lists, nil
}

func (a *Tasks) convertTask(t *gtasks.Task, listID string) model.Task {
	task := model.Task{
		Title:  t.Title,
		Notes:  t.Notes,
		Status: taskStatus(t.Status),
		ListID: listID,
		Link:   model.Linkage{ProviderID: t.Id, AccountID: a.accountID()},
	}
	if t.Due != "" {
		if due := parseTimestamp(t.Due); !due.IsZero() {
			task.DueAt = &due
		}
	}
	if t.Updated != "" {
		task.ProviderUpdatedAt = parseTimestamp(t.Updated)
	}
	return task
}

func (a *Tasks) toWire(task model.Task) *gtasks.Task {
	wire := &gtasks.Task{
		Title: task.Title,
		Notes: task.Notes,
	}
	if task.Status == model.TaskStatusCompleted {
		wire.Status = "completed"
	} else {
		wire.Status = "needsAction"
	}
	if task.DueAt != nil {
		wire.Due = task.DueAt.UTC().Format(time.RFC3339)
	}
	return wire
}

func taskStatus(s string) model.TaskStatus {
	if s == "completed" {
		return model.TaskStatusCompleted
	}
	return model.TaskStatusOpen
}
