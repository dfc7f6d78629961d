// Package github posts review reports as pull request comments.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gh "github.com/google/go-github/v84/github"
)

// Marker identifies comments written by criticat. It is an HTML comment, so
// it is invisible in the rendered body.
const Marker = "<!-- criticat-review -->"

// ErrNoToken is returned when a Client is created without a token.
var ErrNoToken = errors.New("github token is required to comment on pull requests")

// Target is the pull request to comment on.
type Target struct {
	Owner string
	Repo  string
	PR    int
}

// String returns owner/repo#pr.
func (t Target) String() string {
	return fmt.Sprintf("%s/%s#%d", t.Owner, t.Repo, t.PR)
}

// Commenter posts a Markdown body to a pull request and returns the comment URL.
type Commenter interface {
	Comment(ctx context.Context, target Target, body string) (string, error)
}

// Client is a Commenter backed by the GitHub REST API. When the pull request
// already has a criticat comment, that comment is updated instead of adding
// a new one.
type Client struct {
	client *gh.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithGitHubClient replaces the underlying API client, e.g. to target GitHub
// Enterprise or a test server.
func WithGitHubClient(client *gh.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a Client authenticated with token.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	c := &Client{
		client: gh.NewClient(nil).WithAuthToken(token),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Comment creates or updates the criticat comment on target.
func (c *Client) Comment(ctx context.Context, target Target, body string) (string, error) {
	body = withMarker(body)

	existing, err := c.findComment(ctx, target)
	if err != nil {
		return "", err
	}

	if existing != nil {
		updated, _, err := c.client.Issues.EditComment(ctx, target.Owner, target.Repo, existing.GetID(), &gh.IssueComment{
			Body: gh.Ptr(body),
		})
		if err != nil {
			return "", fmt.Errorf("updating comment on %s: %w", target, err)
		}
		c.logger.Info("updated pull request comment", "target", target.String(), "url", updated.GetHTMLURL())
		return updated.GetHTMLURL(), nil
	}

	created, _, err := c.client.Issues.CreateComment(ctx, target.Owner, target.Repo, target.PR, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return "", fmt.Errorf("posting comment on %s: %w", target, err)
	}
	c.logger.Info("posted pull request comment", "target", target.String(), "url", created.GetHTMLURL())
	return created.GetHTMLURL(), nil
}

// findComment returns the first comment on target that carries Marker.
func (c *Client) findComment(ctx context.Context, target Target) (*gh.IssueComment, error) {
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, target.Owner, target.Repo, target.PR, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments on %s: %w", target, err)
		}
		for _, comment := range comments {
			if strings.Contains(comment.GetBody(), Marker) {
				return comment, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

func withMarker(body string) string {
	if strings.Contains(body, Marker) {
		return body
	}
	return Marker + "\n" + body
}
