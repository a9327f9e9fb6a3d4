package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"deskflow.io/internal/client"
)

// Exercises the full ticket lifecycle against a running API: register three
// users, open a ticket, assign it, work it, resolve it and comment on it.
func main() {
	baseURL := os.Getenv("DESKFLOW_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	base := client.New(baseURL)
	suffix := fmt.Sprintf("%06d", rand.Intn(1_000_000))

	employee := mustActor(ctx, base, "smoke-emp-"+suffix, "employee")
	lead := mustActor(ctx, base, "smoke-lead-"+suffix, "team_lead")
	staff := mustActor(ctx, base, "smoke-staff-"+suffix, "it_staff")

	ticketID, err := employee.c.CreateTicket(ctx, "Smoke test ticket", "Created by the smoke tool", "general", "low")
	if err != nil {
		log.Fatalf("create ticket: %v", err)
	}

	if err := lead.c.AssignTicket(ctx, ticketID, staff.id); err != nil {
		log.Fatalf("assign ticket: %v", err)
	}

	if err := staff.c.UpdateStatus(ctx, ticketID, "in_progress", ""); err != nil {
		log.Fatalf("start work: %v", err)
	}
	if _, err := staff.c.AddComment(ctx, ticketID, "Looking into it"); err != nil {
		log.Fatalf("comment: %v", err)
	}
	if err := staff.c.UpdateStatus(ctx, ticketID, "resolved", "Fixed during smoke run"); err != nil {
		log.Fatalf("resolve: %v", err)
	}

	detail, err := employee.c.GetTicket(ctx, ticketID)
	if err != nil {
		log.Fatalf("fetch ticket: %v", err)
	}
	if detail.Ticket.Status != "resolved" {
		log.Fatalf("expected resolved ticket, got %s", detail.Ticket.Status)
	}
	if detail.Ticket.ResolutionNotes != "Fixed during smoke run" {
		log.Fatalf("resolution notes not stored: %q", detail.Ticket.ResolutionNotes)
	}
	if len(detail.Comments) != 1 {
		log.Fatalf("expected 1 comment, got %d", len(detail.Comments))
	}

	fmt.Printf("smoke test passed: ticket=%s\n", ticketID)
}

type actor struct {
	c  *client.Client
	id string
}

func mustActor(ctx context.Context, base *client.Client, username, role string) actor {
	password := "smoke-" + username
	id, err := base.Register(ctx, username, password, username+"@smoke.example", "Smoke "+role, role)
	if err != nil {
		log.Fatalf("register %s: %v", username, err)
	}
	token, _, err := base.Login(ctx, username, password)
	if err != nil {
		log.Fatalf("login %s: %v", username, err)
	}
	return actor{c: base.WithCredential(token), id: id}
}
