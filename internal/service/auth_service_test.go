package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"controlling_shade/internal/models"
)

const testKey = "test-signing-key"

// mockAuthRepo is an in-test repository.Authorization.
type mockAuthRepo struct {
	CreateFn        func(username, hash string) (int, error)
	GetByUsernameFn func(username string) (*models.User, error)

	created []string
}

func (m *mockAuthRepo) Create(_ context.Context, username, hash string) (int, error) {
	m.created = append(m.created, hash)
	return m.CreateFn(username, hash)
}

func (m *mockAuthRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return m.GetByUsernameFn(username)
}

func TestAuthService_SignUp(t *testing.T) {
	tests := []struct {
		name     string
		password string
		repoErr  error
		wantErr  bool
		creates  int
	}{
		{name: "hashes and stores", password: "s3cr3t", creates: 1},
		{name: "empty password", password: "   ", wantErr: true},
		{name: "repo error", password: "pass123", repoErr: errors.New("db down"), wantErr: true, creates: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockAuthRepo{CreateFn: func(string, string) (int, error) { return 42, tt.repoErr }}
			svc := NewAuthService(repo, testKey, time.Hour)

			id, err := svc.SignUp(context.Background(), "operator", tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if len(repo.created) != tt.creates {
				t.Fatalf("Create calls=%d, want %d", len(repo.created), tt.creates)
			}
			if tt.wantErr {
				return
			}
			if id != 42 {
				t.Fatalf("id=%d", id)
			}
			if repo.created[0] == tt.password || verifyPassword(repo.created[0], tt.password) != nil {
				t.Fatalf("stored value is not a bcrypt hash of the password")
			}
		})
	}
}

func TestAuthService_GenerateToken(t *testing.T) {
	hash, err := hashPassword("letmein")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	tests := []struct {
		name     string
		user     *models.User
		repoErr  error
		password string
		wantErr  error
	}{
		{name: "success", user: &models.User{ID: 7, Username: "operator", PasswordHash: hash}, password: "letmein"},
		{name: "unknown user", password: "letmein", wantErr: ErrUserNotFound},
		{name: "wrong password", user: &models.User{ID: 7, PasswordHash: hash}, password: "nope", wantErr: ErrInvalidPassword},
		{name: "repo error", repoErr: errors.New("query failed"), password: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockAuthRepo{GetByUsernameFn: func(string) (*models.User, error) { return tt.user, tt.repoErr }}
			svc := NewAuthService(repo, testKey, time.Hour)

			token, err := svc.GenerateToken(context.Background(), "operator", tt.password)
			switch {
			case tt.repoErr != nil:
				if err == nil {
					t.Fatalf("expected repo error")
				}
				return
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err=%v, want %v", err, tt.wantErr)
				}
				return
			case err != nil:
				t.Fatalf("GenerateToken: %v", err)
			}
			uid, err := svc.ParseToken(token)
			if err != nil || uid != 7 {
				t.Fatalf("ParseToken: uid=%d err=%v", uid, err)
			}
		})
	}
}

func signed(t *testing.T, key string, issued time.Time, ttl time.Duration) string {
	t.Helper()
	tk := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issued),
		},
		UserID: 5,
	})
	s, err := tk.SignedString([]byte(key))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func TestAuthService_ParseToken(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, testKey, time.Hour)
	now := time.Now()

	if uid, err := svc.ParseToken(signed(t, testKey, now, time.Hour)); err != nil || uid != 5 {
		t.Fatalf("valid token: uid=%d err=%v", uid, err)
	}
	for name, tok := range map[string]string{
		"malformed":     "not-a-jwt",
		"other key":     signed(t, "different-key", now, time.Hour),
		"expired":       signed(t, testKey, now.Add(-2*time.Hour), time.Hour),
		"unsigned none": unsignedToken(t),
	} {
		if _, err := svc.ParseToken(tok); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func unsignedToken(t *testing.T) string {
	t.Helper()
	tk := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1})
	s, err := tk.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func TestAuthService_TokenTTLFromConfig(t *testing.T) {
	hash, _ := hashPassword("pw")
	repo := &mockAuthRepo{GetByUsernameFn: func(string) (*models.User, error) {
		return &models.User{ID: 3, PasswordHash: hash}, nil
	}}
	svc := NewAuthService(repo, testKey, time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, err := svc.GenerateToken(context.Background(), "operator", "pw")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ParseToken(token); err == nil {
		t.Fatalf("token outlived its configured ttl")
	}
}
