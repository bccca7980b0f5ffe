package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// memStore is an in-memory CredentialStore.
type memStore map[string]string

func (m memStore) Lookup(_ context.Context, u string) (string, bool, error) {
	h, ok := m[u]
	return h, ok, nil
}

func (m memStore) Store(_ context.Context, u, h string) error {
	m[u] = h
	return nil
}

func TestHashPassword(t *testing.T) {
	// sha256("password")
	want := "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	if got := HashPassword("password"); got != want {
		t.Fatalf("HashPassword = %s, want %s", got, want)
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		user    string
		pass    string
		confirm string
		want    error
	}{
		{"ok", "alice", "secret1", "secret1", nil},
		{"duplicate", "alice", "secret2", "secret2", ErrUserExists},
		{"blank user", "  ", "secret1", "secret1", ErrMissingFields},
		{"blank pass", "bob", "", "", ErrMissingFields},
		{"mismatch", "bob", "secret1", "secret2", ErrPasswordMismatch},
		{"too short", "bob", "abc", "abc", ErrPasswordTooShort},
		{"too short and mismatched", "bob", "abc", "abd", ErrPasswordTooShort},
	}
	svc := NewService(memStore{}, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Register(ctx, tt.user, tt.pass, tt.confirm)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Register err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memStore{}, 6)
	if err := svc.Register(ctx, "alice", "secret1", "secret1"); err != nil {
		t.Fatal(err)
	}

	ok, err := svc.Verify(ctx, "alice", "secret1")
	if err != nil || !ok {
		t.Fatalf("Verify good = %v, %v", ok, err)
	}
	ok, err = svc.Verify(ctx, "alice", "wrong")
	if err != nil || ok {
		t.Fatalf("Verify bad = %v, %v", ok, err)
	}
	ok, err = svc.Verify(ctx, "nobody", "secret1")
	if err != nil || ok {
		t.Fatalf("Verify unknown = %v, %v", ok, err)
	}

	sess, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Username != "alice" || sess.ID == uuid.Nil || sess.LoginTime.IsZero() {
		t.Errorf("session = %+v", sess)
	}
	if _, err := svc.Login(ctx, "alice", "nope"); !errors.Is(err, ErrInvalidLogin) {
		t.Errorf("Login bad password err = %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memStore{}, 6)
	if err := svc.Register(ctx, "alice", "secret1", "secret1"); err != nil {
		t.Fatal(err)
	}

	if err := svc.UpdatePassword(ctx, "alice", "wrong1", "newpass", "newpass"); !errors.Is(err, ErrInvalidLogin) {
		t.Errorf("wrong current err = %v", err)
	}
	if err := svc.UpdatePassword(ctx, "alice", "secret1", "newpass", "other"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("mismatch err = %v", err)
	}
	if err := svc.UpdatePassword(ctx, "alice", "secret1", "new", "old"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short err = %v", err)
	}
	if err := svc.UpdatePassword(ctx, "alice", "secret1", "newpass", "newpass"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if ok, _ := svc.Verify(ctx, "alice", "newpass"); !ok {
		t.Error("new password rejected")
	}
	if ok, _ := svc.Verify(ctx, "alice", "secret1"); ok {
		t.Error("old password still accepted")
	}
}

func TestJSONFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "users.json")
	svc := NewService(NewJSONFile(path), 6)

	if err := svc.Register(ctx, "alice", "password", "password"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"alice\": \"5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8\"\n}"
	if string(data) != want {
		t.Errorf("file = %s, want %s", data, want)
	}

	// A second store instance over the same file sees the user.
	ok, err := NewService(NewJSONFile(path), 6).Verify(ctx, "alice", "password")
	if err != nil || !ok {
		t.Fatalf("Verify via reopened file = %v, %v", ok, err)
	}
}

func TestJSONFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewJSONFile(path).Lookup(context.Background(), "x"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestJSONFile_Usernames(t *testing.T) {
	ctx := context.Background()
	f := NewJSONFile(filepath.Join(t.TempDir(), "users.json"))

	got, err := f.Usernames(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("Usernames on missing file = %v, %v", got, err)
	}
	for _, u := range []string{"carol", "alice", "bob"} {
		if err := f.Store(ctx, u, HashPassword("secret1")); err != nil {
			t.Fatal(err)
		}
	}
	got, err = f.Usernames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != "alice" || got[2] != "carol" {
		t.Errorf("Usernames = %v, want sorted [alice bob carol]", got)
	}
}
