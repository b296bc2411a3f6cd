package github

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/go-github/v81/github"
)

// WatchdogTitlePrefix marks issues opened for broken imagery.
const WatchdogTitlePrefix = "[Watchdog]"

// watchdogPath extracts the source file path from a watchdog issue title.
var watchdogPath = regexp.MustCompile(`sources(.*?)geojson`)

// WatchdogIssue is an existing watchdog issue, open or closed.
type WatchdogIssue struct {
	Number int
	Title  string
	Path   string
	Open   bool
}

// Repository binds a client to one GitHub repository.
type Repository struct {
	client *Client
	Owner  string
	Name   string
}

// ParseRepo splits "owner/name".
func ParseRepo(full string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", full)
	}
	return owner, name, nil
}

func NewRepository(c *Client, full string) (*Repository, error) {
	if c == nil || c.Client == nil {
		return nil, fmt.Errorf("github client is nil")
	}
	owner, name, err := ParseRepo(full)
	if err != nil {
		return nil, err
	}
	return &Repository{client: c, Owner: owner, Name: name}, nil
}

func (r *Repository) String() string { return r.Owner + "/" + r.Name }

// WatchdogIssues lists watchdog issues in any state, keyed by source path.
// When several issues exist for one path, the most recent one wins.
func (r *Repository) WatchdogIssues(ctx context.Context) (map[string]WatchdogIssue, error) {
	out := make(map[string]WatchdogIssue)
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		issues, resp, err := r.client.Client.Issues.ListByRepo(ctx, r.Owner, r.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues of %s: %w", r, err)
		}
		for _, is := range issues {
			if is.IsPullRequest() {
				continue
			}
			title := is.GetTitle()
			if !strings.Contains(title, WatchdogTitlePrefix) {
				continue
			}
			path := watchdogPath.FindString(title)
			if path == "" {
				continue
			}
			out[path] = WatchdogIssue{
				Number: is.GetNumber(),
				Title:  title,
				Path:   path,
				Open:   is.GetState() == "open",
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}
	return out, nil
}

// CreateIssue opens an issue and returns its number.
func (r *Repository) CreateIssue(ctx context.Context, title, body string, labels []string) (int, error) {
	req := &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}
	is, _, err := r.client.Client.Issues.Create(ctx, r.Owner, r.Name, req)
	if err != nil {
		return 0, fmt.Errorf("failed to create issue in %s: %w", r, err)
	}
	return is.GetNumber(), nil
}

// ReopenIssue comments on a closed issue and reopens it.
func (r *Repository) ReopenIssue(ctx context.Context, number int, comment string) error {
	return r.commentAndSetState(ctx, number, comment, "open")
}

// CloseIssue comments on an open issue and closes it.
func (r *Repository) CloseIssue(ctx context.Context, number int, comment string) error {
	return r.commentAndSetState(ctx, number, comment, "closed")
}

func (r *Repository) commentAndSetState(ctx context.Context, number int, comment, state string) error {
	if comment != "" {
		c := &github.IssueComment{Body: github.Ptr(comment)}
		if _, _, err := r.client.Client.Issues.CreateComment(ctx, r.Owner, r.Name, number, c); err != nil {
			return fmt.Errorf("failed to comment on %s#%d: %w", r, number, err)
		}
	}
	req := &github.IssueRequest{State: github.Ptr(state)}
	if _, _, err := r.client.Client.Issues.Edit(ctx, r.Owner, r.Name, number, req); err != nil {
		return fmt.Errorf("failed to set %s#%d %s: %w", r, number, state, err)
	}
	return nil
}

// Contributors returns the sorted logins of commit authors of path, bots of
// GitHub Actions excluded.
func (r *Repository) Contributors(ctx context.Context, path string) ([]string, error) {
	seen := make(map[string]bool)
	opts := &github.CommitsListOptions{
		Path:        path,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		commits, resp, err := r.client.Client.Repositories.ListCommits(ctx, r.Owner, r.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list commits of %s in %s: %w", path, r, err)
		}
		for _, c := range commits {
			login := c.GetAuthor().GetLogin()
			if login == "" || strings.Contains(login, "github-actions") {
				continue
			}
			seen[login] = true
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	out := make([]string, 0, len(seen))
	for login := range seen {
		out = append(out, login)
	}
	sort.Strings(out)
	return out, nil
}
