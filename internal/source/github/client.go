package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/DonovanMods/protonctl/internal/domain"
)

const (
	defaultBaseURL = "https://api.github.com"
	userAgent      = "protonctl"

	// DefaultRepo is the Proton-GE release repository
	DefaultRepo = "GloriousEggroll/proton-ge-custom"
)

// Client reads releases from the GitHub REST API
type Client struct {
	httpClient *http.Client
	repo       string
	token      string
	baseURL    string
}

// NewClient creates a GitHub releases client for the given "owner/name" repository.
// If httpClient is nil, http.DefaultClient is used; an empty repo means DefaultRepo.
func NewClient(httpClient *http.Client, repo, token string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if repo == "" {
		repo = DefaultRepo
	}

	return &Client{
		httpClient: httpClient,
		repo:       repo,
		token:      token,
		baseURL:    defaultBaseURL,
	}
}

// SetToken sets the API token used to lift anonymous rate limits
func (c *Client) SetToken(token string) {
	c.token = token
}

// IsAuthenticated returns true if an API token is configured
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// Repo returns the "owner/name" repository the client reads from
func (c *Client) Repo() string {
	return c.repo
}

// LatestRelease fetches the latest published release of the repository
func (c *Client) LatestRelease(ctx context.Context) (*Release, error) {
	var release Release
	if err := c.doRequest(ctx, "/repos/"+c.repo+"/releases/latest", &release); err != nil {
		return nil, fmt.Errorf("getting latest release: %w", err)
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("%w: latest release has no tag", domain.ErrReleaseFeed)
	}
	return &release, nil
}

// FetchText downloads a small text asset (such as a checksum file), reading at
// most limit bytes.
func (c *Client) FetchText(ctx context.Context, url string, limit int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(data), nil
}

// doRequest performs an authenticated GET against the API and decodes JSON into result
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReleaseFeed, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 10*1024)) // Limit error body to 10KB
		return c.statusError(resp, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// statusError turns a non-200 response into an ErrReleaseFeed error, calling
// out rate limiting since anonymous callers hit it quickly.
func (c *Client) statusError(resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	rateLimited := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
	if rateLimited && !c.IsAuthenticated() {
		return fmt.Errorf("%w: GitHub API rate limit exceeded (status %d); set GITHUB_TOKEN or run 'protonctl auth github'", domain.ErrReleaseFeed, resp.StatusCode)
	}

	if msg == "" {
		return fmt.Errorf("%w: GitHub API returned %d", domain.ErrReleaseFeed, resp.StatusCode)
	}
	return fmt.Errorf("%w: GitHub API returned %d: %s", domain.ErrReleaseFeed, resp.StatusCode, msg)
}
