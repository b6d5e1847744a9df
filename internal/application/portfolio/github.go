package portfolio

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
)

const (
	githubAPI   = "https://api.github.com"
	repoPerPage = 100
)

// RepoMeta is the subset of the GitHub repository payload the importer reads.
type RepoMeta struct {
	Name          string   `json:"name"`
	FullName      string   `json:"full_name"`
	HTMLURL       string   `json:"html_url"`
	Description   string   `json:"description"`
	Language      string   `json:"language"`
	DefaultBranch string   `json:"default_branch"`
	Topics        []string `json:"topics"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// StatusError is returned for unexpected GitHub status codes.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Status, e.Body)
}

// GitHubClient talks to the GitHub REST API. Token is optional.
type GitHubClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func (g *GitHubClient) base() string {
	if g.BaseURL != "" {
		return g.BaseURL
	}
	return githubAPI
}

func (g *GitHubClient) client() *http.Client {
	if g.HTTP == nil {
		g.HTTP = &http.Client{Timeout: 20 * time.Second}
	}
	return g.HTTP
}

func (g *GitHubClient) get(ctx context.Context, path string, query url.Values, accept string) (int, []byte, error) {
	u := g.base() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	if accept == "" {
		accept = "application/vnd.github+json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "estate-backend-portfolio")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}
	resp, err := g.client().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// GetRepo fetches repository metadata.
func (g *GitHubClient) GetRepo(ctx context.Context, owner, repo string) (*RepoMeta, error) {
	status, body, err := g.get(ctx, "/repos/"+owner+"/"+repo, nil, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrRepoNotFound
	}
	if status != http.StatusOK {
		return nil, &StatusError{Op: "GitHub repo fetch", Status: status, Body: string(body)}
	}
	var meta RepoMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("Failed to decode repository: %v", err)
	}
	return &meta, nil
}

// Topics returns the repository topics, or nil when GitHub does not answer 200.
func (g *GitHubClient) Topics(ctx context.Context, owner, repo string) []string {
	status, body, err := g.get(ctx, "/repos/"+owner+"/"+repo+"/topics", nil, "")
	if err != nil || status != http.StatusOK {
		return nil
	}
	var out struct {
		Names []string `json:"names"`
	}
	if json.Unmarshal(body, &out) != nil {
		return nil
	}
	return out.Names
}

// Languages returns language names in the order GitHub lists them (largest first).
func (g *GitHubClient) Languages(ctx context.Context, owner, repo string) []string {
	status, body, err := g.get(ctx, "/repos/"+owner+"/"+repo+"/languages", nil, "")
	if err != nil || status != http.StatusOK {
		return nil
	}
	return objectKeys(body)
}

// ReadmeHTML returns the rendered README, or "" when there is none.
func (g *GitHubClient) ReadmeHTML(ctx context.Context, owner, repo string) string {
	status, body, err := g.get(ctx, "/repos/"+owner+"/"+repo+"/readme", nil, "application/vnd.github.html")
	if err != nil || status != http.StatusOK {
		return ""
	}
	return string(body)
}

// IsOrganization reports whether owner is an organization account.
func (g *GitHubClient) IsOrganization(ctx context.Context, owner string) (bool, error) {
	status, body, err := g.get(ctx, "/users/"+owner, nil, "")
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, fmt.Errorf("%w: %s", ErrOwnerNotFound, owner)
	}
	if status != http.StatusOK {
		return false, &StatusError{Op: "Owner lookup", Status: status, Body: string(body)}
	}
	var u struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return false, fmt.Errorf("Failed to decode owner: %v", err)
	}
	return u.Type == "Organization", nil
}

// EachOwnerRepo calls fn for every repository of owner, paging until a short page.
func (g *GitHubClient) EachOwnerRepo(ctx context.Context, owner string, includePrivate bool, fn func(RepoMeta) error) error {
	isOrg, err := g.IsOrganization(ctx, owner)
	if err != nil {
		return err
	}
	path := "/users/" + owner + "/repos"
	if isOrg {
		path = "/orgs/" + owner + "/repos"
	}
	visibility := "public"
	if includePrivate {
		visibility = "all"
	}
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(repoPerPage))
		q.Set("type", visibility)
		q.Set("sort", "full_name")
		q.Set("direction", "asc")
		q.Set("page", strconv.Itoa(page))
		status, body, err := g.get(ctx, path, q, "")
		if err != nil {
			return err
		}
		if (status == http.StatusUnauthorized || status == http.StatusForbidden) && includePrivate {
			return ErrPrivateNeedsToken
		}
		if status != http.StatusOK {
			return &StatusError{Op: "Repo listing", Status: status, Body: string(body)}
		}
		var items []RepoMeta
		if err := json.Unmarshal(body, &items); err != nil {
			return fmt.Errorf("Failed to decode repo listing: %v", err)
		}
		for _, meta := range items {
			if err := fn(meta); err != nil {
				return err
			}
		}
		if len(items) < repoPerPage {
			return nil
		}
	}
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(body []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(body))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}
