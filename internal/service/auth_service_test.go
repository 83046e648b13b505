package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stipe44/murmur/internal/repository/memory"
)

func newAuthService() (*AuthService, *memory.Store) {
	store := memory.NewStore()
	return NewAuthService(store.Users(), "test-secret"), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Username: "Alice",
		Password: "Password1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.Email != "alice@example.com" || resp.User.Username != "alice" {
		t.Fatalf("email/username not lowercased: %s / %s", resp.User.Email, resp.User.Username)
	}
	if resp.User.About == "" {
		t.Fatal("about not defaulted")
	}
	if resp.AccessToken == "" {
		t.Fatal("no access token")
	}

	token, err := jwt.Parse(resp.AccessToken, func(t *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	sub, _ := token.Claims.GetSubject()
	if sub != resp.User.ID.String() {
		t.Fatalf("token subject = %s, want %s", sub, resp.User.ID)
	}

	login, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "Password1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Fatal("login returned a different user")
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCreds) {
		t.Fatalf("wrong password: err = %v, want ErrInvalidCreds", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Password1"}); !errors.Is(err, ErrInvalidCreds) {
		t.Fatalf("unknown email: err = %v, want ErrInvalidCreds", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	input := RegisterInput{Name: "Alice", Email: "alice@example.com", Username: "alice", Password: "Password1"}
	if _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("Register: %v", err)
	}

	dup := input
	dup.Username = "alice2"
	if _, err := svc.Register(ctx, dup); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: err = %v, want ErrEmailTaken", err)
	}

	dup = input
	dup.Email = "alice2@example.com"
	if _, err := svc.Register(ctx, dup); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate username: err = %v, want ErrUsernameTaken", err)
	}
}

func TestAvatarLifecycle(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Username: "alice", Password: "Password1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	id := resp.User.ID

	if err := svc.ClearAvatar(ctx, id); !errors.Is(err, ErrNoAvatar) {
		t.Fatalf("clear without avatar: err = %v, want ErrNoAvatar", err)
	}

	if err := svc.SetAvatar(ctx, id, "https://cdn.example.com/a.png"); err != nil {
		t.Fatalf("SetAvatar: %v", err)
	}
	user, err := svc.Profile(ctx, id)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if user.AvatarURL == nil || *user.AvatarURL != "https://cdn.example.com/a.png" {
		t.Fatalf("avatar = %v, want set", user.AvatarURL)
	}

	if err := svc.ClearAvatar(ctx, id); err != nil {
		t.Fatalf("ClearAvatar: %v", err)
	}
	user, _ = svc.Profile(ctx, id)
	if user.AvatarURL != nil {
		t.Fatal("avatar not cleared")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("Password1")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if hash == "Password1" {
		t.Fatal("password stored in the clear")
	}
	if !verifyPassword("Password1", hash) {
		t.Fatal("correct password rejected")
	}
	if verifyPassword("Password2", hash) {
		t.Fatal("wrong password accepted")
	}
	if verifyPassword("Password1", "garbage") {
		t.Fatal("malformed hash accepted")
	}

	other, err := hashPassword("Password1")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if other == hash {
		t.Fatal("two hashes of the same password share a salt")
	}
}
