// Package auth resolves GitHub credentials and claims the per-codespace
// coderev auth token.
//
// The server hands out its token exactly once per launch. A successful claim
// is cached on disk keyed by codespace name so later invocations can reach an
// already-claimed server.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/darioush/coderev-codespaces/internal/constants"
)

const claimTimeout = 10 * time.Second

// ErrNoGitHubToken means no usable GitHub credential was found.
var ErrNoGitHubToken = fmt.Errorf("no GitHub token found. Set GITHUB_TOKEN or run `gh auth login`")

// ErrTokenClaimed means the server token was already claimed and no cached
// copy exists locally.
var ErrTokenClaimed = fmt.Errorf("auth token already claimed and not in local cache; restart the codespace server to generate a new token")

// GitHubToken resolves a GitHub token from the environment or the gh CLI.
func GitHubToken(ctx context.Context) (string, error) {
	for _, key := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if token := os.Getenv(key); token != "" {
			return token, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "gh", "auth", "token").Output()
	if err == nil {
		if token := strings.TrimSpace(string(output)); token != "" {
			return token, nil
		}
	}

	return "", ErrNoGitHubToken
}

// Claimer obtains the coderev server token for a codespace.
type Claimer struct {
	client   *http.Client
	cacheDir string
}

// NewClaimer creates a Claimer caching under the user cache directory.
func NewClaimer() (*Claimer, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return NewClaimerWithCacheDir(filepath.Join(cacheDir, constants.ClientCacheDirName)), nil
}

// NewClaimerWithCacheDir creates a Claimer with an explicit cache directory.
func NewClaimerWithCacheDir(dir string) *Claimer {
	return &Claimer{
		client:   &http.Client{Timeout: claimTimeout},
		cacheDir: dir,
	}
}

// Token claims the server token at baseURL, falling back to the cached copy
// when the server reports the token as already claimed.
func (c *Claimer) Token(ctx context.Context, baseURL, codespaceName string) (string, error) {
	token, err := c.claim(ctx, baseURL)
	if err == nil {
		if saveErr := c.saveCached(codespaceName, token); saveErr != nil {
			// Cache failures are not fatal; the token is still good.
			fmt.Fprintf(os.Stderr, "Warning: could not cache auth token: %v\n", saveErr)
		}
		return token, nil
	}
	if err != ErrTokenClaimed {
		return "", err
	}

	if cached, ok := c.loadCached(codespaceName); ok {
		return cached, nil
	}
	return "", ErrTokenClaimed
}

// claim performs the one-time POST /auth-token exchange. HTTP 410 means the
// token was already handed out.
func (c *Claimer) claim(ctx context.Context, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/auth-token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build claim request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token claim failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return "", ErrTokenClaimed
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token claim failed: status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode claim response: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("server returned an empty token")
	}
	return body.Token, nil
}

type cacheEntry struct {
	Token string `json:"token"`
}

func (c *Claimer) cachePath(codespaceName string) string {
	return filepath.Join(c.cacheDir, codespaceName+".json")
}

func (c *Claimer) loadCached(codespaceName string) (string, bool) {
	data, err := os.ReadFile(c.cachePath(codespaceName))
	if err != nil {
		return "", false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Token == "" {
		return "", false
	}
	return entry.Token, true
}

func (c *Claimer) saveCached(codespaceName, token string) error {
	if err := os.MkdirAll(c.cacheDir, constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.Marshal(cacheEntry{Token: token})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	path := c.cachePath(codespaceName)
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Chmod(path, constants.FilePermissions); err != nil {
		return fmt.Errorf("failed to restrict cache entry permissions: %w", err)
	}
	return nil
}
