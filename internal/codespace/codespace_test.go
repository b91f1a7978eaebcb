package codespace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeGitHub is a minimal in-memory GitHub API for codespace lifecycle tests.
type fakeGitHub struct {
	mu         sync.Mutex
	repoIDs    map[string]int64
	codespaces map[string]*Codespace
	// statesAfterStart lets tests script the state transitions Get observes.
	pendingStates map[string][]string
	created       int
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		repoIDs:       map[string]int64{"octo/repo": 42},
		codespaces:    map[string]*Codespace{},
		pendingStates: map[string][]string{},
	}
}

func (f *fakeGitHub) addCodespace(name, repo, branch, state string) {
	cs := &Codespace{Name: name, State: state}
	cs.Repository.ID = f.repoIDs[repo]
	cs.Repository.FullName = repo
	cs.GitStatus.Ref = branch
	cs.Machine.DisplayName = "4 cores"
	f.codespaces[name] = cs
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /repos/{owner}/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		repo := r.PathValue("owner") + "/" + r.PathValue("name")
		id, ok := f.repoIDs[repo]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]int64{"id": id})
	})

	mux.HandleFunc("POST /repos/{owner}/{name}/codespaces", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		repo := r.PathValue("owner") + "/" + r.PathValue("name")
		var body struct {
			Ref string `json:"ref"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.created++
		name := fmt.Sprintf("cs-%d", f.created)
		f.addCodespace(name, repo, body.Ref, "Starting")
		f.pendingStates[name] = []string{"Starting", StateAvailable}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(f.codespaces[name])
	})

	mux.HandleFunc("GET /user/codespaces", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var list []Codespace
		repoID := r.URL.Query().Get("repository_id")
		for _, cs := range f.codespaces {
			if repoID != "" && fmt.Sprint(cs.Repository.ID) != repoID {
				continue
			}
			list = append(list, *cs)
		}
		json.NewEncoder(w).Encode(map[string]any{"codespaces": list})
	})

	mux.HandleFunc("GET /user/codespaces/{cs}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		cs, ok := f.codespaces[r.PathValue("cs")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
			return
		}
		if states := f.pendingStates[cs.Name]; len(states) > 0 {
			cs.State = states[0]
			f.pendingStates[cs.Name] = states[1:]
		}
		json.NewEncoder(w).Encode(cs)
	})

	mux.HandleFunc("POST /user/codespaces/{cs}/start", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		cs, ok := f.codespaces[r.PathValue("cs")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.pendingStates[cs.Name] = []string{"Starting", StateAvailable}
		json.NewEncoder(w).Encode(cs)
	})

	mux.HandleFunc("POST /user/codespaces/{cs}/stop", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		cs, ok := f.codespaces[r.PathValue("cs")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		cs.State = StateShutdown
		json.NewEncoder(w).Encode(cs)
	})

	mux.HandleFunc("DELETE /user/codespaces/{cs}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.codespaces, r.PathValue("cs"))
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}

func testManager(t *testing.T, f *fakeGitHub) *Manager {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)
	return NewManagerWithBaseURL("test-token", server.URL, Options{
		MachineType:        "basicLinux32gb",
		IdleTimeoutMinutes: 30,
		BootTimeout:        2 * time.Second,
		PollInterval:       10 * time.Millisecond,
	})
}

func TestFind_Match(t *testing.T) {
	f := newFakeGitHub()
	f.addCodespace("cs-a", "octo/repo", "main", StateAvailable)
	f.addCodespace("cs-b", "octo/repo", "feature", StateShutdown)
	m := testManager(t, f)

	cs, err := m.Find(context.Background(), "octo/repo", "feature")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if cs == nil || cs.Name != "cs-b" {
		t.Errorf("Find() = %+v, want cs-b", cs)
	}
}

func TestFind_NoMatch(t *testing.T) {
	f := newFakeGitHub()
	f.addCodespace("cs-a", "octo/repo", "main", StateAvailable)
	m := testManager(t, f)

	cs, err := m.Find(context.Background(), "octo/repo", "other-branch")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if cs != nil {
		t.Errorf("Find() = %+v, want nil", cs)
	}
}

func TestFind_UnknownRepo(t *testing.T) {
	m := testManager(t, newFakeGitHub())

	_, err := m.Find(context.Background(), "octo/missing", "main")
	if err == nil {
		t.Fatal("Find() expected error for unknown repo, got nil")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("Find() error = %v, want 404 APIError", err)
	}
}

func TestFindOrCreate_ReusesAvailable(t *testing.T) {
	f := newFakeGitHub()
	f.addCodespace("cs-live", "octo/repo", "main", StateAvailable)
	m := testManager(t, f)

	name, err := m.FindOrCreate(context.Background(), "octo/repo", "main", nil)
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}
	if name != "cs-live" {
		t.Errorf("FindOrCreate() = %q, want cs-live", name)
	}
	if f.created != 0 {
		t.Errorf("FindOrCreate() created %d codespaces, want 0", f.created)
	}
}

func TestFindOrCreate_StartsStopped(t *testing.T) {
	f := newFakeGitHub()
	f.addCodespace("cs-stopped", "octo/repo", "main", StateShutdown)
	m := testManager(t, f)

	var messages []string
	name, err := m.FindOrCreate(context.Background(), "octo/repo", "main", func(msg string) {
		messages = append(messages, msg)
	})
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}
	if name != "cs-stopped" {
		t.Errorf("FindOrCreate() = %q, want cs-stopped", name)
	}
	if len(messages) == 0 {
		t.Error("FindOrCreate() emitted no status messages")
	}
}

func TestFindOrCreate_CreatesNew(t *testing.T) {
	f := newFakeGitHub()
	m := testManager(t, f)

	name, err := m.FindOrCreate(context.Background(), "octo/repo", "main", nil)
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}
	if name != "cs-1" {
		t.Errorf("FindOrCreate() = %q, want cs-1", name)
	}
	if f.created != 1 {
		t.Errorf("FindOrCreate() created %d codespaces, want 1", f.created)
	}
}

func TestWaitUntilAvailable_Timeout(t *testing.T) {
	f := newFakeGitHub()
	f.addCodespace("cs-stuck", "octo/repo", "main", "Starting")
	m := testManager(t, f)
	m.opts.BootTimeout = 50 * time.Millisecond

	_, err := m.WaitUntilAvailable(context.Background(), "cs-stuck", nil)
	if err == nil {
		t.Error("WaitUntilAvailable() expected timeout error, got nil")
	}
}

func TestStopAndDelete(t *testing.T) {
	f := newFakeGitHub()
	f.addCodespace("cs-a", "octo/repo", "main", StateAvailable)
	m := testManager(t, f)
	ctx := context.Background()

	if err := m.Stop(ctx, "cs-a"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if f.codespaces["cs-a"].State != StateShutdown {
		t.Errorf("state after Stop() = %q, want Shutdown", f.codespaces["cs-a"].State)
	}

	if err := m.Delete(ctx, "cs-a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := f.codespaces["cs-a"]; ok {
		t.Error("codespace still present after Delete()")
	}
}

func TestListAll(t *testing.T) {
	f := newFakeGitHub()
	f.addCodespace("cs-a", "octo/repo", "main", StateAvailable)
	f.addCodespace("cs-b", "octo/repo", "dev", StateShutdown)
	m := testManager(t, f)

	list, err := m.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("ListAll() returned %d codespaces, want 2", len(list))
	}
}
