package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"deskflow.io/internal/auth"
	"deskflow.io/internal/stream"
	"deskflow.io/internal/ticket"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("DESKFLOW_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	users := auth.NewService(auth.NewInMemoryUsers())
	tickets := ticket.NewInMemory(ticket.DirectoryFunc(func(ctx context.Context, userID string) (string, error) {
		u, err := users.Find(ctx, userID)
		if err != nil {
			return "", err
		}
		return u.FullName, nil
	}))

	api := New(ReadyProbe{}, "test", users, tickets, stream.New())
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) get(path string, headers map[string]string) *http.Response {
	return c.do(http.MethodGet, path, nil, headers)
}

// signup registers a user with the given role and returns (auth header, user id).
func (c *apiClient) signup(username, role string) (map[string]string, string) {
	c.t.Helper()
	resp := c.post("/auth/register", map[string]any{
		"username":  username,
		"password":  "secret-" + username,
		"email":     username + "@corp.example",
		"full_name": "Test " + username,
		"role":      role,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}
	created := decode[map[string]any](c.t, resp)
	userID, _ := created["userId"].(string)
	if userID == "" {
		c.t.Fatalf("register %s: missing userId", username)
	}

	resp = c.post("/auth/login", map[string]any{
		"username": username,
		"password": "secret-" + username,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login %s: unexpected status %d", username, resp.StatusCode)
	}
	login := decode[map[string]any](c.t, resp)
	token, _ := login["token"].(string)
	if token == "" {
		c.t.Fatalf("login %s: empty token", username)
	}
	return map[string]string{"Authorization": "Bearer " + token}, userID
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestTicketLifecycleFlow(t *testing.T) {
	api := newTestAPI(t)

	employee, _ := api.signup("alice", "employee")
	lead, _ := api.signup("bob", "team_lead")
	staff, staffID := api.signup("carol", "it_staff")

	// Employee reports an issue. Priority defaults to medium.
	resp := api.post("/tickets", map[string]any{
		"title":       "VPN will not connect",
		"description": "Fails with timeout since this morning",
		"category":    "network",
	}, employee)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create ticket: unexpected status %d", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)
	ticketID, _ := created["ticketId"].(string)
	if ticketID == "" {
		t.Fatalf("create ticket: missing ticketId")
	}

	resp = api.get("/tickets/"+ticketID, employee)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get ticket: unexpected status %d", resp.StatusCode)
	}
	detail := decode[map[string]any](t, resp)
	tk := detail["ticket"].(map[string]any)
	if tk["priority"] != "medium" {
		t.Fatalf("expected default priority medium, got %v", tk["priority"])
	}
	if tk["status"] != "open" {
		t.Fatalf("expected status open, got %v", tk["status"])
	}
	if tk["creator_name"] != "Test alice" {
		t.Fatalf("missing creator name enrichment: %v", tk["creator_name"])
	}

	// IT staff see the open pool before assignment.
	resp = api.get("/tickets", staff)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list tickets: unexpected status %d", resp.StatusCode)
	}
	pool := decode[[]map[string]any](t, resp)
	if len(pool) != 1 || pool[0]["id"] != ticketID {
		t.Fatalf("it_staff should see the open ticket, got %v", pool)
	}

	// Employees cannot assign.
	resp = api.put("/tickets/"+ticketID+"/assign", map[string]any{"assigned_to": staffID}, employee)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("employee assign: expected 403, got %d", resp.StatusCode)
	}

	// Team lead assigns to IT staff.
	resp = api.put("/tickets/"+ticketID+"/assign", map[string]any{"assigned_to": staffID}, lead)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign: unexpected status %d", resp.StatusCode)
	}

	resp = api.get("/tickets/"+ticketID, lead)
	detail = decode[map[string]any](t, resp)
	tk = detail["ticket"].(map[string]any)
	if tk["status"] != "assigned" {
		t.Fatalf("expected status assigned, got %v", tk["status"])
	}
	if tk["assigned_to"] != staffID {
		t.Fatalf("expected assigned_to %s, got %v", staffID, tk["assigned_to"])
	}
	if tk["assignee_name"] != "Test carol" || tk["assigner_name"] != "Test bob" {
		t.Fatalf("missing assignment name enrichment: %v / %v", tk["assignee_name"], tk["assigner_name"])
	}

	// Assignee works the ticket.
	resp = api.put("/tickets/"+ticketID+"/status", map[string]any{"status": "in_progress"}, staff)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status update: unexpected status %d", resp.StatusCode)
	}

	// Resolving without notes is rejected.
	resp = api.put("/tickets/"+ticketID+"/status", map[string]any{"status": "resolved"}, staff)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("resolve without notes: expected 400, got %d", resp.StatusCode)
	}

	resp = api.put("/tickets/"+ticketID+"/status", map[string]any{
		"status":           "resolved",
		"resolution_notes": "Restarted the VPN concentrator",
	}, staff)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve: unexpected status %d", resp.StatusCode)
	}

	resp = api.get("/tickets/"+ticketID, employee)
	detail = decode[map[string]any](t, resp)
	tk = detail["ticket"].(map[string]any)
	if tk["status"] != "resolved" {
		t.Fatalf("expected status resolved, got %v", tk["status"])
	}
	if tk["resolution_notes"] != "Restarted the VPN concentrator" {
		t.Fatalf("resolution notes not stored verbatim: %v", tk["resolution_notes"])
	}
	if tk["resolved_at"] == nil {
		t.Fatalf("expected resolved_at to be set")
	}
}

func TestCommentThread(t *testing.T) {
	api := newTestAPI(t)

	employee, _ := api.signup("dave", "employee")
	staff, _ := api.signup("erin", "it_staff")

	resp := api.post("/tickets", map[string]any{
		"title":       "Laptop battery swollen",
		"description": "Battery is bulging, keyboard lifting",
		"category":    "hardware",
	}, employee)
	created := decode[map[string]any](t, resp)
	ticketID := created["ticketId"].(string)

	resp = api.post("/tickets/"+ticketID+"/comments", map[string]any{
		"comment": "Please stop using the laptop immediately",
	}, staff)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add comment: unexpected status %d", resp.StatusCode)
	}
	added := decode[map[string]any](t, resp)
	if added["commentId"] == "" {
		t.Fatalf("missing commentId")
	}

	resp = api.post("/tickets/"+ticketID+"/comments", map[string]any{
		"comment": "Dropped it off at the service desk",
	}, employee)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("second comment: unexpected status %d", resp.StatusCode)
	}

	resp = api.get("/tickets/"+ticketID+"/comments", employee)
	comments := decode[[]map[string]any](t, resp)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0]["comment"] != "Please stop using the laptop immediately" {
		t.Fatalf("comments not oldest first: %v", comments[0]["comment"])
	}
	if comments[0]["full_name"] != "Test erin" {
		t.Fatalf("missing author name: %v", comments[0]["full_name"])
	}

	// Comments on unknown tickets are rejected.
	resp = api.post("/tickets/no-such-ticket/comments", map[string]any{
		"comment": "hello?",
	}, employee)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("comment on missing ticket: expected 404, got %d", resp.StatusCode)
	}
}

func TestListVisibilityByRole(t *testing.T) {
	api := newTestAPI(t)

	alice, _ := api.signup("alice", "employee")
	frank, _ := api.signup("frank", "employee")
	lead, _ := api.signup("grace", "team_lead")

	for _, c := range []struct {
		who   map[string]string
		title string
	}{
		{alice, "Printer jam on floor 2"},
		{frank, "Email quota exceeded"},
	} {
		resp := api.post("/tickets", map[string]any{
			"title":       c.title,
			"description": "details",
			"category":    "general",
		}, c.who)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create: unexpected status %d", resp.StatusCode)
		}
	}

	resp := api.get("/tickets", alice)
	mine := decode[[]map[string]any](t, resp)
	if len(mine) != 1 || mine[0]["title"] != "Printer jam on floor 2" {
		t.Fatalf("employee should only see own tickets, got %v", mine)
	}

	resp = api.get("/tickets", lead)
	all := decode[[]map[string]any](t, resp)
	if len(all) != 2 {
		t.Fatalf("team lead should see all tickets, got %d", len(all))
	}
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/tickets", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var errBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["error"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/auth/register", map[string]any{"username": "noemail"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	api := newTestAPI(t)

	api.signup("henry", "employee")

	resp := api.post("/auth/register", map[string]any{
		"username":  "henry",
		"password":  "another",
		"email":     "other@corp.example",
		"full_name": "Other Henry",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate username: expected 400, got %d", resp.StatusCode)
	}
}

func TestITStaffListingRequiresTeamLead(t *testing.T) {
	api := newTestAPI(t)

	employee, _ := api.signup("ivan", "employee")
	lead, _ := api.signup("judy", "team_lead")
	_, staffID := api.signup("kate", "it_staff")

	resp := api.get("/users/it-staff", employee)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("employee listing it-staff: expected 403, got %d", resp.StatusCode)
	}

	resp = api.get("/users/it-staff", lead)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lead listing it-staff: unexpected status %d", resp.StatusCode)
	}
	staff := decode[[]map[string]any](t, resp)
	if len(staff) != 1 || staff[0]["id"] != staffID {
		t.Fatalf("expected only kate in it-staff listing, got %v", staff)
	}
	if _, ok := staff[0]["password_hash"]; ok {
		t.Fatalf("password hash leaked in listing")
	}
}

func TestMeReturnsProfile(t *testing.T) {
	api := newTestAPI(t)

	me, userID := api.signup("laura", "employee")

	resp := api.get("/users/me", me)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	profile := decode[map[string]any](t, resp)
	if profile["id"] != userID || profile["username"] != "laura" {
		t.Fatalf("unexpected profile: %v", profile)
	}
}

func TestStatusUpdateAuthorization(t *testing.T) {
	api := newTestAPI(t)

	reporter, _ := api.signup("pam", "employee")
	other, _ := api.signup("quinn", "employee")
	lead, _ := api.signup("rita", "team_lead")
	assignee, assigneeID := api.signup("sven", "it_staff")
	bystander, _ := api.signup("tara", "it_staff")

	resp := api.post("/tickets", map[string]any{
		"title":       "Wifi drops in meeting rooms",
		"description": "Disconnects every few minutes",
		"category":    "network",
	}, reporter)
	created := decode[map[string]any](t, resp)
	ticketID := created["ticketId"].(string)

	resp = api.put("/tickets/"+ticketID+"/assign", map[string]any{"assigned_to": assigneeID}, lead)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign: unexpected status %d", resp.StatusCode)
	}

	// IT staff not assigned to the ticket may not update it.
	resp = api.put("/tickets/"+ticketID+"/status", map[string]any{"status": "in_progress"}, bystander)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-assignee update: expected 403, got %d", resp.StatusCode)
	}

	// Another employee may not update it either.
	resp = api.put("/tickets/"+ticketID+"/status", map[string]any{"status": "in_progress"}, other)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign employee update: expected 403, got %d", resp.StatusCode)
	}

	// Status is unchanged after the rejected attempts.
	resp = api.get("/tickets/"+ticketID, lead)
	detail := decode[map[string]any](t, resp)
	if got := detail["ticket"].(map[string]any)["status"]; got != "assigned" {
		t.Fatalf("expected status still assigned, got %v", got)
	}

	// The assignee and the reporter may update it.
	resp = api.put("/tickets/"+ticketID+"/status", map[string]any{"status": "in_progress"}, assignee)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assignee update: unexpected status %d", resp.StatusCode)
	}
	resp = api.put("/tickets/"+ticketID+"/status", map[string]any{"status": "open"}, reporter)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reporter update: unexpected status %d", resp.StatusCode)
	}
}

func TestAssignValidation(t *testing.T) {
	api := newTestAPI(t)

	employee, employeeID := api.signup("mike", "employee")
	lead, _ := api.signup("nina", "team_lead")

	resp := api.post("/tickets", map[string]any{
		"title":       "Screen flickers",
		"description": "External monitor flickers at 60Hz",
		"category":    "hardware",
	}, employee)
	created := decode[map[string]any](t, resp)
	ticketID := created["ticketId"].(string)

	// Missing assignee.
	resp = api.put("/tickets/"+ticketID+"/assign", map[string]any{}, lead)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing assigned_to: expected 400, got %d", resp.StatusCode)
	}

	// Assignee must be IT staff.
	resp = api.put("/tickets/"+ticketID+"/assign", map[string]any{"assigned_to": employeeID}, lead)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-it_staff assignee: expected 400, got %d", resp.StatusCode)
	}

	// Unknown ticket.
	_, staffID := api.signup("oscar", "it_staff")
	resp = api.put("/tickets/missing/assign", map[string]any{"assigned_to": staffID}, lead)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown ticket: expected 404, got %d", resp.StatusCode)
	}
}
