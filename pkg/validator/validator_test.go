package validator

import (
	"strings"
	"testing"
)

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		username  string
		userName  string
		password  string
		wantField string
	}{
		{name: "valid", email: "alice@example.com", username: "alice", userName: "Alice", password: "Password1"},
		{name: "missing email", email: "", username: "alice", userName: "Alice", password: "Password1", wantField: "email"},
		{name: "bad email", email: "not-an-email", username: "alice", userName: "Alice", password: "Password1", wantField: "email"},
		{name: "short username", email: "alice@example.com", username: "al", userName: "Alice", password: "Password1", wantField: "username"},
		{name: "bad username chars", email: "alice@example.com", username: "al ice!", userName: "Alice", password: "Password1", wantField: "username"},
		{name: "missing name", email: "alice@example.com", username: "alice", userName: "", password: "Password1", wantField: "name"},
		{name: "short password", email: "alice@example.com", username: "alice", userName: "Alice", password: "Pw1", wantField: "password"},
		{name: "no uppercase", email: "alice@example.com", username: "alice", userName: "Alice", password: "password1", wantField: "password"},
		{name: "no digit", email: "alice@example.com", username: "alice", userName: "Alice", password: "Passwordx", wantField: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRegister(tt.email, tt.username, tt.userName, tt.password)
			if tt.wantField == "" {
				if errs.HasErrors() {
					t.Fatalf("unexpected errors: %v", errs)
				}
				return
			}
			if _, ok := errs[tt.wantField]; !ok {
				t.Fatalf("no error for field %q, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidateLogin(t *testing.T) {
	if errs := ValidateLogin("alice@example.com", "whatever"); errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if errs := ValidateLogin("", "whatever"); !errs.HasErrors() {
		t.Fatal("missing email accepted")
	}
	if errs := ValidateLogin("alice@example.com", ""); !errs.HasErrors() {
		t.Fatal("missing password accepted")
	}
}

func TestValidateMessage(t *testing.T) {
	image := "https://cdn.example.com/pic.png"
	blank := "   "

	if errs := ValidateMessage("hello", nil); errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if errs := ValidateMessage("", &image); errs.HasErrors() {
		t.Fatalf("image-only message rejected: %v", errs)
	}
	if errs := ValidateMessage("", nil); !errs.HasErrors() {
		t.Fatal("empty message accepted")
	}
	if errs := ValidateMessage("   ", &blank); !errs.HasErrors() {
		t.Fatal("blank message with blank image accepted")
	}
	if errs := ValidateMessage(strings.Repeat("x", 4001), nil); !errs.HasErrors() {
		t.Fatal("oversized message accepted")
	}
}
