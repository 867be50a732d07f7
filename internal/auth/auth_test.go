package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestGate(t *testing.T) (*Gate, string) {
	t.Helper()
	dir := t.TempDir()
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	gate := NewGate(
		filepath.Join(dir, "chatid.txt"),
		filepath.Join(dir, "admin.txt"),
		filepath.Join(dir, "allowlist.txt"),
		"secret",
		logger,
	)
	return gate, dir
}

func TestAuthenticateWrongPassword(t *testing.T) {
	gate, dir := newTestGate(t)

	outcome, err := gate.Authenticate("nope", 42, "Alice")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if outcome != Rejected {
		t.Errorf("Expected Rejected, got %v", outcome)
	}
	if gate.IsKnownChat(42) {
		t.Error("Chat must not be authorized after a wrong password")
	}
	if _, err := os.Stat(filepath.Join(dir, "chatid.txt")); !os.IsNotExist(err) {
		t.Error("Chat-id file must not be created on a failed attempt")
	}
}

func TestAuthenticateAddsChatOnce(t *testing.T) {
	gate, dir := newTestGate(t)

	outcome, err := gate.Authenticate("secret", 42, "Alice")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if outcome != Added {
		t.Fatalf("Expected Added, got %v", outcome)
	}
	if !gate.IsKnownChat(42) {
		t.Fatal("Chat should be authorized after the correct password")
	}

	// A second exchange must not append a duplicate line.
	outcome, err = gate.Authenticate("secret", 42, "Alice")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if outcome != AlreadyKnown {
		t.Errorf("Expected AlreadyKnown, got %v", outcome)
	}

	data, err := os.ReadFile(filepath.Join(dir, "chatid.txt"))
	if err != nil {
		t.Fatalf("Failed to read chat-id file: %v", err)
	}
	if string(data) != "42 - Alice\n" {
		t.Errorf("Unexpected file content: %q", string(data))
	}
}

func TestIsKnownChatIgnoresNamePart(t *testing.T) {
	gate, dir := newTestGate(t)
	content := "42 - Alice\n123\n"
	if err := os.WriteFile(filepath.Join(dir, "chatid.txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if !gate.IsKnownChat(42) {
		t.Error("Entry with display name should match")
	}
	if !gate.IsKnownChat(123) {
		t.Error("Bare id entry should match")
	}
	if gate.IsKnownChat(4) {
		t.Error("Prefix of an id must not match")
	}
}

func TestIsPrivileged(t *testing.T) {
	gate, dir := newTestGate(t)
	if err := os.WriteFile(filepath.Join(dir, "admin.txt"), []byte("9001 - Boss\nalice\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if !gate.IsPrivileged(9001, "", AdminList) {
		t.Error("Admin by id should match")
	}
	if !gate.IsPrivileged(1, "alice", AdminList) {
		t.Error("Admin by username should match")
	}
	if gate.IsPrivileged(1, "bob", AdminList) {
		t.Error("Unknown user must not be admin")
	}
	if gate.IsPrivileged(9001, "", AllowList) {
		t.Error("Missing allowlist file must deny everyone")
	}
}

func TestAuthorizedChats(t *testing.T) {
	gate, dir := newTestGate(t)
	if err := os.WriteFile(filepath.Join(dir, "chatid.txt"), []byte("42 - Alice\n77\n"), 0644); err != nil {
		t.Fatal(err)
	}

	chats := gate.AuthorizedChats()
	if len(chats) != 2 || chats[0] != 42 || chats[1] != 77 {
		t.Errorf("Unexpected chats: %v", chats)
	}
}
