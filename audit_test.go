package shipauth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func buildAuditedEngine(t *testing.T, sink AuditSink) (*Engine, *stubStore) {
	t.Helper()

	store := newStubStore()
	engine, err := New().
		WithConfig(testConfig()).
		WithStore(store).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store
}

func drainEvents(t *testing.T, sink *ChannelSink, want int) []AuditEvent {
	t.Helper()

	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case event := <-sink.Events():
			events = append(events, event)
		case <-timeout:
			t.Fatalf("received %d events, want %d", len(events), want)
		}
	}
	return events
}

func findEvent(events []AuditEvent, eventType string) (AuditEvent, bool) {
	for _, e := range events {
		if e.EventType == eventType {
			return e, true
		}
	}
	return AuditEvent{}, false
}

func TestAuditEventsFlowThroughSink(t *testing.T) {
	sink := NewChannelSink(64)
	engine, _ := buildAuditedEngine(t, sink)

	reg := registerTestUser(t, engine, "alice@example.com")
	if _, err := engine.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ng!Pass",
	}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	events := drainEvents(t, sink, 2)

	registered, ok := findEvent(events, "register_success")
	if !ok {
		t.Fatalf("no registration event in %+v", events)
	}
	if !registered.Success || registered.UserID != reg.User.ID {
		t.Fatalf("unexpected registration event: %+v", registered)
	}

	login, ok := findEvent(events, "login_success")
	if !ok {
		t.Fatalf("no login event in %+v", events)
	}
	if login.Timestamp.IsZero() || login.Metadata["email"] != "alice@example.com" {
		t.Fatalf("unexpected login event: %+v", login)
	}
}

func TestAuditFailureEventsCarryErrorCodes(t *testing.T) {
	sink := NewChannelSink(64)
	engine, _ := buildAuditedEngine(t, sink)
	registerTestUser(t, engine, "alice@example.com")

	if _, err := engine.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	}); err == nil {
		t.Fatal("expected login failure")
	}

	events := drainEvents(t, sink, 2)
	failure, ok := findEvent(events, "login_failure")
	if !ok {
		t.Fatalf("no failure event in %+v", events)
	}
	if failure.Success || failure.Error == "" {
		t.Fatalf("failure event not marked: %+v", failure)
	}
	if failure.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("unexpected reason: %+v", failure.Metadata)
	}
}

func TestAuditEventsCarryClientIP(t *testing.T) {
	sink := NewChannelSink(64)
	engine, _ := buildAuditedEngine(t, sink)
	registerTestUser(t, engine, "alice@example.com")

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	if _, err := engine.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ng!Pass",
	}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	events := drainEvents(t, sink, 2)
	login, ok := findEvent(events, "login_success")
	if !ok {
		t.Fatalf("no login event in %+v", events)
	}
	if login.IP != "203.0.113.9" {
		t.Fatalf("IP = %q, want 203.0.113.9", login.IP)
	}
}

func TestJSONWriterSinkWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: "login_success", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: "login_failure"})

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		lines++
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines, err)
		}
	}
	if lines != 2 {
		t.Fatalf("got %d lines, want 2", lines)
	}
}

// blockingSink never returns until released, forcing dispatcher backpressure.
func TestAuditDisabled(t *testing.T) {
	store := newStubStore()
	cfg := testConfig()
	cfg.Audit.Enabled = false

	sink := NewChannelSink(16)
	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	registerTestUser(t, engine, "alice@example.com")

	select {
	case event := <-sink.Events():
		t.Fatalf("unexpected event with audit disabled: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAuditMetadataNeverContainsSecrets(t *testing.T) {
	sink := NewChannelSink(64)
	engine, _ := buildAuditedEngine(t, sink)
	reg := registerTestUser(t, engine, "alice@example.com")
	enableTestTwoFactor(t, engine, reg.User.ID)

	if _, err := engine.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ng!Pass",
	}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	events := drainEvents(t, sink, 4)
	for _, event := range events {
		for key, value := range event.Metadata {
			if strings.Contains(value, "Str0ng!Pass") {
				t.Fatalf("metadata %q leaks the password: %+v", key, event)
			}
		}
		if event.Error != "" && strings.Contains(event.Error, "Str0ng!Pass") {
			t.Fatalf("error text leaks the password: %+v", event)
		}
	}
}
