package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                           "/",
		"/metrics":                   "/metrics",
		"/tickets":                   "/tickets",
		"/tickets/abc":               "/tickets/:id",
		"/tickets/abc/assign":        "/tickets/:id/assign",
		"/tickets/abc/status":        "/tickets/:id/status",
		"/tickets/abc/comments":      "/tickets/:id/comments",
		"/tickets/abc/extra":         "/tickets/abc/extra",
		"/users/it-staff":            "/users/it-staff",
		"/tickets?status=open":       "/tickets",
		"/tickets/abc?include=notes": "/tickets/:id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
