package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	gh "github.com/google/go-github/v84/github"
)

// fakeGitHub serves the issue comment endpoints of one pull request.
type fakeGitHub struct {
	mu       sync.Mutex
	comments []map[string]any
	created  int
	edited   int
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/issues/7/comments", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(f.comments)
	})
	mux.HandleFunc("POST /repos/o/r/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.created++
		id := len(f.comments) + 1
		c := map[string]any{"id": id, "body": in["body"], "html_url": "https://github.test/o/r/pull/7#issuecomment-" + strconv.Itoa(id)}
		f.comments = append(f.comments, c)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(c)
	})
	mux.HandleFunc("PATCH /repos/o/r/issues/comments/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.edited++
		for _, c := range f.comments {
			if fmt.Sprint(c["id"]) == r.PathValue("id") {
				c["body"] = in["body"]
				_ = json.NewEncoder(w).Encode(c)
				return
			}
		}
		http.NotFound(w, r)
	})
	return mux
}

func (f *fakeGitHub) counts() (created, edited int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.edited
}

func (f *fakeGitHub) body(i int) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments[i]["body"]
}

func newTestClient(t *testing.T, f *fakeGitHub) *Client {
	t.Helper()

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	api := gh.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	api.BaseURL = base

	c, err := NewClient("ghp_test", WithGitHubClient(api))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClient_Comment(t *testing.T) {
	t.Parallel()

	target := Target{Owner: "o", Repo: "r", PR: 7}

	t.Run("creates a comment", func(t *testing.T) {
		t.Parallel()

		f := &fakeGitHub{comments: []map[string]any{{"id": 1, "body": "LGTM"}}}
		c := newTestClient(t, f)

		link, err := c.Comment(t.Context(), target, "## Review")
		if err != nil {
			t.Fatalf("Comment() error = %v", err)
		}
		if created, edited := f.counts(); created != 1 || edited != 0 {
			t.Errorf("created = %d, edited = %d, want 1, 0", created, edited)
		}
		if !strings.HasPrefix(link, "https://github.test/o/r/pull/7") {
			t.Errorf("url = %q", link)
		}
		body, _ := f.body(1).(string)
		if !strings.HasPrefix(body, Marker+"\n## Review") {
			t.Errorf("body = %q, want marker prefix", body)
		}
	})

	t.Run("updates the previous review", func(t *testing.T) {
		t.Parallel()

		f := &fakeGitHub{comments: []map[string]any{
			{"id": 1, "body": "LGTM"},
			{"id": 2, "body": Marker + "\nold review"},
		}}
		c := newTestClient(t, f)

		if _, err := c.Comment(t.Context(), target, "new review"); err != nil {
			t.Fatalf("Comment() error = %v", err)
		}
		if created, edited := f.counts(); created != 0 || edited != 1 {
			t.Errorf("created = %d, edited = %d, want 0, 1", created, edited)
		}
		if body := f.body(1); body != Marker+"\nnew review" {
			t.Errorf("body = %q", body)
		}
	})
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(""); !errors.Is(err, ErrNoToken) {
		t.Errorf("NewClient(\"\") error = %v, want ErrNoToken", err)
	}
}

func TestTargetString(t *testing.T) {
	t.Parallel()

	if got := (Target{Owner: "FarDust", Repo: "criticat", PR: 12}).String(); got != "FarDust/criticat#12" {
		t.Errorf("String() = %q", got)
	}
}
