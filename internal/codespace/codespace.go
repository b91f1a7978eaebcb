// Package codespace manages GitHub Codespaces through the REST API.
package codespace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/darioush/coderev-codespaces/internal/logging"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github+json"
	apiVersion     = "2022-11-28"
)

// Codespace states the manager branches on.
const (
	StateAvailable    = "Available"
	StateShutdown     = "Shutdown"
	StateShuttingDown = "ShuttingDown"
)

// Codespace is the subset of the GitHub codespace object coderev uses.
type Codespace struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	Repository struct {
		ID       int64  `json:"id"`
		FullName string `json:"full_name"`
	} `json:"repository"`
	GitStatus struct {
		Ref string `json:"ref"`
	} `json:"git_status"`
	Machine struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
	} `json:"machine"`
}

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api: %d %s", e.StatusCode, e.Message)
}

// Options tunes codespace creation and polling.
type Options struct {
	MachineType        string
	IdleTimeoutMinutes int
	BootTimeout        time.Duration
	PollInterval       time.Duration
}

// Manager drives codespace lifecycle operations for one authenticated user.
type Manager struct {
	baseURL string
	token   string
	client  *http.Client
	opts    Options
}

// NewManager creates a Manager using the given GitHub token.
func NewManager(token string, opts Options) *Manager {
	return &Manager{
		baseURL: defaultBaseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		opts:    opts,
	}
}

// NewManagerWithBaseURL is used by tests to point at a fake API.
func NewManagerWithBaseURL(token, baseURL string, opts Options) *Manager {
	m := NewManager(token, opts)
	m.baseURL = baseURL
	return m
}

func (m *Manager) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := m.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("github api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode github response: %w", err)
	}
	return nil
}

// repoID resolves "owner/name" to the numeric repository id.
func (m *Manager) repoID(ctx context.Context, repo string) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := m.do(ctx, http.MethodGet, "/repos/"+repo, nil, nil, &out); err != nil {
		return 0, fmt.Errorf("failed to resolve repository %s: %w", repo, err)
	}
	return out.ID, nil
}

// Find returns the codespace for repo+branch, or nil when none exists.
func (m *Manager) Find(ctx context.Context, repo, branch string) (*Codespace, error) {
	codespaces, err := m.ListForRepo(ctx, repo)
	if err != nil {
		return nil, err
	}
	for i := range codespaces {
		cs := &codespaces[i]
		if cs.Repository.FullName == repo && cs.GitStatus.Ref == branch {
			return cs, nil
		}
	}
	return nil, nil
}

// Create creates a new codespace for repo+branch.
func (m *Manager) Create(ctx context.Context, repo, branch string) (*Codespace, error) {
	body := map[string]any{
		"ref":                  branch,
		"machine":              m.opts.MachineType,
		"idle_timeout_minutes": m.opts.IdleTimeoutMinutes,
	}
	var cs Codespace
	if err := m.do(ctx, http.MethodPost, "/repos/"+repo+"/codespaces", nil, body, &cs); err != nil {
		return nil, fmt.Errorf("failed to create codespace: %w", err)
	}
	return &cs, nil
}

// Start starts a stopped codespace.
func (m *Manager) Start(ctx context.Context, name string) error {
	if err := m.do(ctx, http.MethodPost, "/user/codespaces/"+name+"/start", nil, nil, nil); err != nil {
		return fmt.Errorf("failed to start codespace %s: %w", name, err)
	}
	return nil
}

// Stop stops a running codespace.
func (m *Manager) Stop(ctx context.Context, name string) error {
	if err := m.do(ctx, http.MethodPost, "/user/codespaces/"+name+"/stop", nil, nil, nil); err != nil {
		return fmt.Errorf("failed to stop codespace %s: %w", name, err)
	}
	return nil
}

// Delete deletes a codespace.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if err := m.do(ctx, http.MethodDelete, "/user/codespaces/"+name, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete codespace %s: %w", name, err)
	}
	return nil
}

// Get fetches a single codespace by name.
func (m *Manager) Get(ctx context.Context, name string) (*Codespace, error) {
	var cs Codespace
	if err := m.do(ctx, http.MethodGet, "/user/codespaces/"+name, nil, nil, &cs); err != nil {
		return nil, fmt.Errorf("failed to get codespace %s: %w", name, err)
	}
	return &cs, nil
}

// ListForRepo lists the user's codespaces for one repository.
func (m *Manager) ListForRepo(ctx context.Context, repo string) ([]Codespace, error) {
	id, err := m.repoID(ctx, repo)
	if err != nil {
		return nil, err
	}
	query := url.Values{"repository_id": {strconv.FormatInt(id, 10)}}
	var out struct {
		Codespaces []Codespace `json:"codespaces"`
	}
	if err := m.do(ctx, http.MethodGet, "/user/codespaces", query, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list codespaces for %s: %w", repo, err)
	}
	return out.Codespaces, nil
}

// ListAll lists every codespace the user owns.
func (m *Manager) ListAll(ctx context.Context) ([]Codespace, error) {
	var out struct {
		Codespaces []Codespace `json:"codespaces"`
	}
	if err := m.do(ctx, http.MethodGet, "/user/codespaces", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list codespaces: %w", err)
	}
	return out.Codespaces, nil
}

// WaitUntilAvailable polls until the codespace reports Available, invoking
// onPoll with each intermediate state.
func (m *Manager) WaitUntilAvailable(ctx context.Context, name string, onPoll func(state string)) (*Codespace, error) {
	deadline := time.Now().Add(m.opts.BootTimeout)
	for {
		cs, err := m.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if cs.State == StateAvailable {
			return cs, nil
		}
		if onPoll != nil {
			onPoll(cs.State)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("codespace %s did not become Available within %v", name, m.opts.BootTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.opts.PollInterval):
		}
	}
}

// FindOrCreate returns the name of a ready codespace for repo+branch,
// reusing, restarting, or creating one as needed. onStatus receives progress
// messages suitable for display.
func (m *Manager) FindOrCreate(ctx context.Context, repo, branch string, onStatus func(msg string)) (string, error) {
	emit := func(msg string) {
		logging.Debugf("codespace: %s", msg)
		if onStatus != nil {
			onStatus(msg)
		}
	}
	waitFor := func(name string) error {
		_, err := m.WaitUntilAvailable(ctx, name, func(state string) {
			emit(fmt.Sprintf("Codespace %s: %s", name, state))
		})
		return err
	}

	cs, err := m.Find(ctx, repo, branch)
	if err != nil {
		return "", err
	}

	if cs != nil {
		switch cs.State {
		case StateAvailable:
			emit(fmt.Sprintf("Reusing running codespace %s", cs.Name))
			return cs.Name, nil
		case StateShutdown, StateShuttingDown:
			emit(fmt.Sprintf("Starting stopped codespace %s...", cs.Name))
			if err := m.Start(ctx, cs.Name); err != nil {
				return "", err
			}
			if err := waitFor(cs.Name); err != nil {
				return "", err
			}
			return cs.Name, nil
		default:
			emit(fmt.Sprintf("Codespace %s is %s, waiting...", cs.Name, cs.State))
			if err := waitFor(cs.Name); err != nil {
				return "", err
			}
			return cs.Name, nil
		}
	}

	emit("Creating new codespace...")
	created, err := m.Create(ctx, repo, branch)
	if err != nil {
		return "", err
	}
	emit(fmt.Sprintf("Created %s, waiting for boot...", created.Name))
	if err := waitFor(created.Name); err != nil {
		return "", err
	}
	return created.Name, nil
}
