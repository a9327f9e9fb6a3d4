// Package client is a small HTTP client for the deskflow API. The bearer
// token is held per client instance: callers authenticate explicitly and
// pass the credential in, nothing is read from ambient process state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deskflow.io/internal/auth"
	"deskflow.io/internal/ticket"
)

// Client talks to a deskflow API server.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token used on authenticated calls.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCredential returns a copy of the client bound to the given token.
// The receiver is not modified, so one base client can serve many actors.
func (c *Client) WithCredential(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api error %d: %s (request_id=%s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var errBody struct {
			Error     string `json:"error"`
			RequestID string `json:"request_id"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
			apiErr.RequestID = errBody.RequestID
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Register creates a user account and returns its id.
func (c *Client) Register(ctx context.Context, username, password, email, fullName, role string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username":  username,
		"password":  password,
		"email":     email,
		"full_name": fullName,
		"role":      role,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.UserID, nil
}

// Login exchanges credentials for a token and the user profile.
func (c *Client) Login(ctx context.Context, username, password string) (string, *auth.User, error) {
	var out struct {
		Token string     `json:"token"`
		User  *auth.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return "", nil, err
	}
	return out.Token, out.User, nil
}

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*auth.User, error) {
	var out auth.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ITStaff lists IT staff members. Requires a team lead credential.
func (c *Client) ITStaff(ctx context.Context) ([]*auth.User, error) {
	var out []*auth.User
	if err := c.do(ctx, http.MethodGet, "/users/it-staff", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTicket reports a new issue and returns the ticket id.
func (c *Client) CreateTicket(ctx context.Context, title, description, category, priority string) (string, error) {
	var out struct {
		TicketID string `json:"ticketId"`
	}
	err := c.do(ctx, http.MethodPost, "/tickets", map[string]string{
		"title":       title,
		"description": description,
		"category":    category,
		"priority":    priority,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.TicketID, nil
}

// ListTickets returns the tickets visible to the authenticated user.
func (c *Client) ListTickets(ctx context.Context) ([]ticket.Ticket, error) {
	var out []ticket.Ticket
	if err := c.do(ctx, http.MethodGet, "/tickets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TicketDetail is a ticket with its comment thread.
type TicketDetail struct {
	Ticket   ticket.Ticket    `json:"ticket"`
	Comments []ticket.Comment `json:"comments"`
}

// GetTicket fetches one ticket with its comments.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*TicketDetail, error) {
	var out TicketDetail
	if err := c.do(ctx, http.MethodGet, "/tickets/"+ticketID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignTicket assigns the ticket to an IT staff member.
func (c *Client) AssignTicket(ctx context.Context, ticketID, assigneeID string) error {
	return c.do(ctx, http.MethodPut, "/tickets/"+ticketID+"/assign", map[string]string{
		"assigned_to": assigneeID,
	}, nil)
}

// UpdateStatus moves the ticket to a new status. Notes are required when
// resolving.
func (c *Client) UpdateStatus(ctx context.Context, ticketID, status, notes string) error {
	return c.do(ctx, http.MethodPut, "/tickets/"+ticketID+"/status", map[string]string{
		"status":           status,
		"resolution_notes": notes,
	}, nil)
}

// AddComment appends a comment and returns its id.
func (c *Client) AddComment(ctx context.Context, ticketID, body string) (string, error) {
	var out struct {
		CommentID string `json:"commentId"`
	}
	err := c.do(ctx, http.MethodPost, "/tickets/"+ticketID+"/comments", map[string]string{
		"comment": body,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.CommentID, nil
}

// Comments lists the ticket's comments, oldest first.
func (c *Client) Comments(ctx context.Context, ticketID string) ([]ticket.Comment, error) {
	var out []ticket.Comment
	if err := c.do(ctx, http.MethodGet, "/tickets/"+ticketID+"/comments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
