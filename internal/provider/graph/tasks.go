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

// defaultTaskList is the well-known id of the built-in task list
const defaultTaskList = "tasks"

// graphTask is the wire shape of a to-do task resource
type graphTask struct {
	ID           string         `json:"id,omitempty"`
	Title        string         `json:"title,omitempty"`
	Body         *graphItemBody `json:"body,omitempty"`
	Status       string         `json:"status,omitempty"`
	DueDateTime  *graphDateTime `json:"dueDateTime,omitempty"`
	LastModified string         `json:"lastModifiedDateTime,omitempty"`
}

type graphItemBody struct {
	Content     string `json:"content,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// Tasks adapts the Office-style to-do API
type Tasks struct {
	*Client
}

func taskListPath(listID string) string {
	if listID == "" {
		listID = defaultTaskList
	}
	return fmt.Sprintf("/v1.0/me/todo/lists/%s/tasks", url.PathEscape(listID))
}

// Fetch returns one page of tasks from the requested list
func (a *Tasks) Fetch(ctx context.Context, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Task], error) {
	path := taskListPath(q.ListID)
	params := url.Values{}
	if q.UpdatedSince != nil {
		params.Set("$filter", fmt.Sprintf("lastModifiedDateTime ge %s", q.UpdatedSince.UTC().Format(time.RFC3339)))
	}

	env, err := a.list(ctx, path, params, p.Page, p.PageSize)
	if err != nil {
		return nil, err
	}

	var tasks []graphTask
	if err := json.Unmarshal(env.Value, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	result := &provider.FetchResult[model.Task]{}
	for _, task := range tasks {
		result.Items = append(result.Items, a.convertTask(task, q.ListID))
	}
	result.TotalCount = a.totalCount(ctx, path, env, p.Page, p.PageSize, len(tasks))
	result.HasMore = hasMore(env, result.TotalCount, p.Page, p.PageSize, len(tasks))
	return result, nil
}

// Create adds a task on the provider side
func (a *Tasks) Create(ctx context.Context, task model.Task) (*model.Task, error) {
	body, err := json.Marshal(a.toWire(task))
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	payload, err := a.send(ctx, http.MethodPost, taskListPath(task.ListID), body)
	if err != nil {
		return nil, err
	}
	var created graphTask
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
	path := fmt.Sprintf("%s/%s", taskListPath(task.ListID), url.PathEscape(task.Link.ProviderID))
	payload, err := a.send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	var updated graphTask
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decode updated task: %w", err)
	}
	converted := a.convertTask(updated, task.ListID)
	return &converted, nil
}

// Delete removes a task from the default list
func (a *Tasks) Delete(ctx context.Context, providerID string) error {
	path := fmt.Sprintf("%s/%s", taskListPath(""), url.PathEscape(providerID))
	_, err := a.send(ctx, http.MethodDelete, path, nil)
	return err
}

// ListTaskLists enumerates the account's task lists
func (a *Tasks) ListTaskLists(ctx context.Context) ([]provider.Collection, error) {
	body, err := a.get(ctx, "/v1.0/me/todo/lists", nil)
	if err != nil {
		return nil, err
	}
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode task lists: %w", err)
	}
	var lists []struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(env.Value, &lists); err != nil {
		return nil, fmt.Errorf("decode task lists: %w", err)
	}
	out := make([]provider.Collection, 0, len(lists))
	for _, list := range lists {
		out = append(out, provider.Collection{ID: list.ID, Name: list.DisplayName})
	}
	return out, nil
}

func (a *Tasks) convertTask(t graphTask, listID string) model.Task {
	task := model.Task{
		Title:             t.Title,
		Status:            graphTaskStatus(t.Status),
		ListID:            listID,
		Link:              model.Linkage{ProviderID: t.ID, AccountID: a.accountID()},
		ProviderUpdatedAt: parseGraphTime(t.LastModified),
	}
	if t.Body != nil {
		task.Notes = t.Body.Content
	}
	if t.DueDateTime != nil {
		if due := parseGraphTime(t.DueDateTime.DateTime); !due.IsZero() {
			task.DueAt = &due
		}
	}
	return task
}

func (a *Tasks) toWire(task model.Task) graphTask {
	wire := graphTask{Title: task.Title}
	if task.Notes != "" {
		wire.Body = &graphItemBody{Content: task.Notes, ContentType: "text"}
	}
	if task.Status == model.TaskStatusCompleted {
		wire.Status = "completed"
	} else {
		wire.Status = "notStarted"
	}
	if task.DueAt != nil {
		wire.DueDateTime = &graphDateTime{DateTime: task.DueAt.UTC().Format(time.RFC3339), TimeZone: "UTC"}
	}
	return wire
}

func graphTaskStatus(s string) model.TaskStatus {
	if s == "completed" {
		return model.TaskStatusCompleted
	}
	return model.TaskStatusOpen
}
