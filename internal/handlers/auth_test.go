package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/models"
)

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

func TestLogin(t *testing.T) {
	r, _, _ := setupServer(t)

	email := fmt.Sprintf("login%d@test.dev", seq.Add(1))
	registered := registerParticipant(t, r, email)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    email,
		"password": "correct-horse-battery",
	}, "")

	if w.Code != http.StatusOK {
		t.Fatalf("Login returned %d: %s", w.Code, w.Body.String())
	}

	var resp loginResponse
	decodeJSON(t, w, &resp)

	if resp.AccessToken == "" {
		t.Error("Login response is missing the access token")
	}

	if resp.TokenType != "bearer" {
		t.Errorf("Token type = %q, want bearer", resp.TokenType)
	}

	if resp.User.ID != registered.UserID || resp.User.Email != email {
		t.Errorf("Login user = %d/%s, want %d/%s", resp.User.ID, resp.User.Email, registered.UserID, email)
	}

	if resp.User.Role != string(models.RoleParticipant) {
		t.Errorf("Role = %s, want participant", resp.User.Role)
	}

	// The issued token must pass the auth middleware.
	me := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil, resp.AccessToken)

	if me.Code != http.StatusOK {
		t.Fatalf("Me returned %d: %s", me.Code, me.Body.String())
	}

	var meResp struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeJSON(t, me, &meResp)

	if meResp.User.Email != email {
		t.Errorf("Me email = %s, want %s", meResp.User.Email, email)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, _, _ := setupServer(t)

	email := fmt.Sprintf("login%d@test.dev", seq.Add(1))
	registerParticipant(t, r, email)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    email,
		"password": "wrong-password-here",
	}, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Wrong password returned %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    "nobody@test.dev",
		"password": "correct-horse-battery",
	}, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Unknown email returned %d, want 400", w.Code)
	}
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	r, _, _ := setupServer(t)

	email := fmt.Sprintf("login%d@test.dev", seq.Add(1))
	registered := registerParticipant(t, r, email)

	if err := db.DB.Model(&models.User{}).Where("id = ?", registered.UserID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    email,
		"password": "correct-horse-battery",
	}, "")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Deactivated login returned %d, want 401", w.Code)
	}

	// A previously issued token stops working too.
	token := participantToken(t, registered.UserID, email)

	me := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil, token)

	if me.Code != http.StatusUnauthorized {
		t.Errorf("Me with deactivated account returned %d, want 401", me.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	r, _, _ := setupServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil, "")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Missing token returned %d, want 401", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil, "not-a-real-token")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Garbage token returned %d, want 401", w.Code)
	}
}
