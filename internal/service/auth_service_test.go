package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cettopper/exam-portal/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthService(testConfig())
	userID := uuid.New()

	token, err := auth.GenerateToken(userID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID || !claims.IsAdmin() {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenRejectsForeignAndExpired(t *testing.T) {
	auth := NewAuthService(testConfig())

	otherCfg := testConfig()
	otherCfg.JWTSecret = "someone-else"
	foreign, err := NewAuthService(otherCfg).GenerateToken(uuid.New(), model.RoleStudent)
	if err != nil {
		t.Fatalf("generate foreign: %v", err)
	}
	if _, err := auth.ValidateToken(foreign); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := auth.GenerateToken(uuid.New(), model.RoleStudent)
	if err != nil {
		t.Fatalf("generate expired: %v", err)
	}
	if _, err := auth.ValidateToken(expired); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	auth := NewAuthService(testConfig())

	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := auth.CheckPassword(hash, "correct horse"); err != nil {
		t.Fatalf("matching password rejected: %v", err)
	}
	if err := auth.CheckPassword(hash, "battery staple"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
