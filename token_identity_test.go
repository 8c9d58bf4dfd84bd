package authsync

import (
	"testing"
	"time"

	"github.com/mfackner/authsync/token"
)

func TestClaimsIdentityParser(t *testing.T) {
	manager, err := token.NewManager(token.Config{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		TTL:    time.Hour,
		Issuer: "test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	raw, _, err := manager.Mint("user-1", "alice@example.com", "Alice", "Acme", "sess-1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	parse := ClaimsIdentityParser()
	user, err := parse(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if user.ID != "user-1" || user.Email != "alice@example.com" || user.Company != "Acme" {
		t.Fatalf("unexpected identity %+v", user)
	}

	if _, err := parse("garbage"); err == nil {
		t.Fatal("garbage token parsed")
	}
}
