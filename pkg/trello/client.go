// Package trello is a minimal read-only client for the Trello REST API,
// covering exactly the surface the backup traversal needs: membership and
// organization listings, full board payloads, card action feeds, checklist
// detail, and authenticated attachment downloads.
package trello

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const apiBase = "https://api.trello.com/1"

// How long a single attachment download may take. Metadata calls are small
// and share a client without a deadline.
const downloadTimeout = 30 * time.Second

// Client represents an authenticated Trello API client. All calls are
// read-only HTTP GETs; the key/token pair rides along as query parameters,
// matching Trello's standard auth scheme.
type Client struct {
	key   string
	token string

	baseURL        string
	httpClient     *http.Client
	downloadClient *http.Client
}

// NewClient creates a Trello API client from a pre-obtained API key and
// token. The transport keeps a small idle pool since the traversal is
// strictly sequential.
func NewClient(key, token string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
	}

	return &Client{
		key:     key,
		token:   token,
		baseURL: apiBase,
		httpClient: &http.Client{
			Transport: transport,
		},
		downloadClient: &http.Client{
			Timeout:   downloadTimeout,
			Transport: transport,
		},
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(base string) { c.baseURL = base }

// get performs an authenticated GET against an API path and returns the
// raw response body. Non-2xx statuses are errors carrying the body text.
func (c *Client) get(path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.key)
	query.Set("token", c.token)

	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	resp, err := c.httpClient.Get(u)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return body, nil
}

// MyBoards lists the boards of the authenticated member.
func (c *Client) MyBoards() ([]Board, error) {
	body, err := c.get("/members/me/boards", nil)
	if err != nil {
		return nil, err
	}
	var boards []Board
	if err := json.Unmarshal(body, &boards); err != nil {
		return nil, fmt.Errorf("parse boards: %w", err)
	}
	return boards, nil
}

// Organizations lists the organizations the authenticated member belongs to.
func (c *Client) Organizations() ([]Organization, error) {
	body, err := c.get("/members/me/organizations", nil)
	if err != nil {
		return nil, err
	}
	var orgs []Organization
	if err := json.Unmarshal(body, &orgs); err != nil {
		return nil, fmt.Errorf("parse organizations: %w", err)
	}
	return orgs, nil
}

// OrganizationBoards lists the boards owned by one organization.
func (c *Client) OrganizationBoards(orgID string) ([]Board, error) {
	body, err := c.get("/organizations/"+orgID+"/boards", nil)
	if err != nil {
		return nil, err
	}
	var boards []Board
	if err := json.Unmarshal(body, &boards); err != nil {
		return nil, fmt.Errorf("parse organization boards: %w", err)
	}
	return boards, nil
}

// BoardQuery selects which archived entities the board payload embeds. The
// filtering happens server side; the traversal never sees excluded lists
// or cards.
type BoardQuery struct {
	ArchivedLists bool
	ArchivedCards bool
}

func openOrAll(includeArchived bool) string {
	if includeArchived {
		return "all"
	}
	return "open"
}

// BoardDetail fetches the complete payload for one board, embedding lists,
// cards (with attachments), labels, members, checklists, and up to 1000
// actions. It returns both the raw JSON snapshot and the decoded detail.
func (c *Client) BoardDetail(boardID string, q BoardQuery) ([]byte, *BoardDetail, error) {
	query := url.Values{
		"actions":          {"all"},
		"actions_limit":    {"1000"},
		"cards":            {openOrAll(q.ArchivedCards)},
		"card_attachments": {"true"},
		"labels":           {"all"},
		"lists":            {openOrAll(q.ArchivedLists)},
		"members":          {"all"},
		"member_fields":    {"all"},
		"checklists":       {"all"},
		"fields":           {"all"},
	}
	body, err := c.get("/boards/"+boardID, query)
	if err != nil {
		return nil, nil, err
	}
	var detail BoardDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, nil, fmt.Errorf("parse board %s: %w", boardID, err)
	}
	return body, &detail, nil
}

// CardActions fetches the full activity feed of one card, returning the raw
// payload together with the decoded actions.
func (c *Client) CardActions(cardID string) ([]byte, []Action, error) {
	body, err := c.get("/cards/"+cardID+"/actions", nil)
	if err != nil {
		return nil, nil, err
	}
	var actions []Action
	if err := json.Unmarshal(body, &actions); err != nil {
		return nil, nil, fmt.Errorf("parse actions for card %s: %w", cardID, err)
	}
	return body, actions, nil
}

// Checklist fetches one checklist with all items and fields, raw.
func (c *Client) Checklist(checklistID string) ([]byte, error) {
	query := url.Values{
		"checkItems":       {"all"},
		"checkItem_fields": {"all"},
	}
	return c.get("/checklists/"+checklistID, query)
}

// Download opens a streaming download of an attachment. Attachment URLs
// point at Trello's file host, which wants the credentials as an OAuth
// Authorization header rather than query parameters. The request is
// bounded by a 30-second timeout covering the full body read; the caller
// owns closing the returned body.
//
// Nothing is buffered: the caller decides where the bytes go, and no local
// state is touched when the request itself fails.
func (c *Client) Download(rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization",
		fmt.Sprintf("OAuth oauth_consumer_key=%q, oauth_token=%q", c.key, c.token))

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
