package github

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceExplicit AuthTokenSource = "explicit"
	AuthTokenSourcePAToken  AuthTokenSource = "env:PA_TOKEN"
	AuthTokenSourceEnv      AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGitHubCL AuthTokenSource = "gh"
)

// tokenEnv lists the environment variables consulted, in order. PA_TOKEN is
// the personal access token the scheduled workflow provides so issues are not
// opened by the Actions bot.
var tokenEnv = []struct {
	name   string
	source AuthTokenSource
}{
	{"PA_TOKEN", AuthTokenSourcePAToken},
	{"GITHUB_TOKEN", AuthTokenSourceEnv},
}

// ghTimeout bounds `gh auth token` when ctx carries no deadline.
const ghTimeout = 5 * time.Second

// ResolveAuthToken resolves a GitHub access token from, in order: provided,
// PA_TOKEN, GITHUB_TOKEN, then `gh auth token`. An empty token with a nil
// error means none was found. It never prints the token.
func ResolveAuthToken(ctx context.Context, provided string) (token string, source AuthTokenSource, err error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceExplicit, nil
	}
	for _, e := range tokenEnv {
		if tok := strings.TrimSpace(os.Getenv(e.name)); tok != "" {
			return tok, e.source, nil
		}
	}

	tok, err := ghAuthToken(ctx, "github.com")
	if err != nil || tok == "" {
		return "", "", err
	}
	return tok, AuthTokenSourceGitHubCL, nil
}

// ghAuthToken asks the GitHub CLI for its token. A missing or logged out gh
// yields an empty token; gh output is never surfaced.
func ghAuthToken(ctx context.Context, host string) (string, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ghTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "gh", "auth", "token", "-h", host)
	cmd.Env = append(envWithout(os.Environ(), "GH_PAGER"), "GH_PAGER=cat")
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", nil
	}

	tok := strings.TrimSpace(string(out))
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, nil
}

func envWithout(env []string, key string) []string {
	prefix := fmt.Sprintf("%s=", key)
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return out
}
