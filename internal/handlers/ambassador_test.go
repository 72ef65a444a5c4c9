package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/devcon-dev/devcon/internal/models"
)

// registerCashParticipant registers via the public API and selects cash.
func registerCashParticipant(t *testing.T, r *gin.Engine) (registerResponse, string) {
	t.Helper()

	email := fmt.Sprintf("cashpay%d@test.dev", seq.Add(1))
	registered := registerParticipant(t, r, email)

	w := doJSON(t, r, http.MethodPost, "/api/v1/public/payment-method", gin.H{
		"email":          email,
		"payment_method": "cash",
	}, "")

	if w.Code != http.StatusOK {
		t.Fatalf("Select cash returned %d: %s", w.Code, w.Body.String())
	}

	return registered, email
}

func TestVerifyCashEndpoint(t *testing.T) {
	r, sender, _ := setupServer(t)

	registered, email := registerCashParticipant(t, r)
	ambassadorID, ambassadorTok := staffToken(t, models.RoleAmbassador)

	w := doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/ambassador/verify-cash/%d", registered.ParticipantID), nil, ambassadorTok)

	if w.Code != http.StatusOK {
		t.Fatalf("Verify cash returned %d: %s", w.Code, w.Body.String())
	}

	payment := loadPayment(t, registered.ParticipantID)

	if payment.Status != models.StatusVerified {
		t.Errorf("Status = %s, want verified", payment.Status)
	}

	if payment.VerifiedByID == nil || *payment.VerifiedByID != ambassadorID {
		t.Error("VerifiedByID was not set to the ambassador")
	}

	waitFor(t, "verified email", notificationFinalized(models.NotifyVerified))

	lastEmail, ok := sender.last()

	if !ok || lastEmail.To != email {
		t.Errorf("Verified email to %v, want %s", lastEmail.To, email)
	}

	// Verifying again hits a terminal state.
	w = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/ambassador/verify-cash/%d", registered.ParticipantID), nil, ambassadorTok)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Second verify returned %d, want 400", w.Code)
	}
}

func TestVerifyCashRejectsOnlineMethod(t *testing.T) {
	r, _, _ := setupServer(t)

	email := fmt.Sprintf("onl%d@test.dev", seq.Add(1))
	registered := registerParticipant(t, r, email)

	doJSON(t, r, http.MethodPost, "/api/v1/public/payment-method", gin.H{
		"email":          email,
		"payment_method": "online",
	}, "")

	_, ambassadorTok := staffToken(t, models.RoleAmbassador)

	w := doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/ambassador/verify-cash/%d", registered.ParticipantID), nil, ambassadorTok)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Verify cash on online payment returned %d, want 400", w.Code)
	}

	// No payment at all.
	other := registerParticipant(t, r, fmt.Sprintf("onl%d@test.dev", seq.Add(1)))

	w = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/ambassador/verify-cash/%d", other.ParticipantID), nil, ambassadorTok)

	if w.Code != http.StatusNotFound {
		t.Errorf("Verify cash with no payment returned %d, want 404", w.Code)
	}
}

func TestAmbassadorRoutesRequireRole(t *testing.T) {
	r, _, _ := setupServer(t)

	email := fmt.Sprintf("amb%d@test.dev", seq.Add(1))
	registered := registerParticipant(t, r, email)
	participantTok := participantToken(t, registered.UserID, email)

	w := doJSON(t, r, http.MethodGet, "/api/v1/ambassador/pending-cash", nil, participantTok)

	if w.Code != http.StatusForbidden {
		t.Errorf("Participant on ambassador route returned %d, want 403", w.Code)
	}

	_, regTok := staffToken(t, models.RoleRegistrationTeam)

	w = doJSON(t, r, http.MethodGet, "/api/v1/ambassador/pending-cash", nil, regTok)

	if w.Code != http.StatusForbidden {
		t.Errorf("Registration team on ambassador route returned %d, want 403", w.Code)
	}

	_, adminTok := staffToken(t, models.RoleAdmin)

	w = doJSON(t, r, http.MethodGet, "/api/v1/ambassador/pending-cash", nil, adminTok)

	if w.Code != http.StatusOK {
		t.Errorf("Admin on ambassador route returned %d, want 200", w.Code)
	}
}

func TestSearchParticipantsEndpoint(t *testing.T) {
	r, _, _ := setupServer(t)

	email := fmt.Sprintf("findme%d@test.dev", seq.Add(1))
	registerParticipant(t, r, email)

	_, ambassadorTok := staffToken(t, models.RoleAmbassador)

	w := doJSON(t, r, http.MethodPost, "/api/v1/ambassador/search", gin.H{"email": "findme"}, ambassadorTok)

	if w.Code != http.StatusOK {
		t.Fatalf("Search returned %d: %s", w.Code, w.Body.String())
	}

	var results []struct {
		Email         string `json:"email"`
		PaymentStatus string `json:"payment_status"`
	}
	decodeJSON(t, w, &results)

	if len(results) != 1 {
		t.Fatalf("Search results = %d, want 1", len(results))
	}

	if results[0].Email != email {
		t.Errorf("Found %s, want %s", results[0].Email, email)
	}

	if results[0].PaymentStatus != "unpaid" {
		t.Errorf("PaymentStatus = %s, want unpaid", results[0].PaymentStatus)
	}

	// Neither filter provided.
	w = doJSON(t, r, http.MethodPost, "/api/v1/ambassador/search", gin.H{}, ambassadorTok)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Empty search returned %d, want 400", w.Code)
	}
}

func TestGetParticipantEndpoint(t *testing.T) {
	r, _, _ := setupServer(t)

	registered, email := registerCashParticipant(t, r)
	_, ambassadorTok := staffToken(t, models.RoleAmbassador)

	w := doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/api/v1/ambassador/participants/%d", registered.ParticipantID), nil, ambassadorTok)

	if w.Code != http.StatusOK {
		t.Fatalf("Get participant returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID            uint    `json:"id"`
		Email         string  `json:"email"`
		Track         string  `json:"track"`
		PaymentStatus string  `json:"payment_status"`
		PaymentMethod *string `json:"payment_method"`
	}
	decodeJSON(t, w, &resp)

	if resp.ID != registered.ParticipantID || resp.Email != email {
		t.Errorf("Participant = %d/%s, want %d/%s", resp.ID, resp.Email, registered.ParticipantID, email)
	}

	if resp.Track != "programming" {
		t.Errorf("Track = %s, want programming", resp.Track)
	}

	if resp.PaymentStatus != string(models.StatusPendingCash) {
		t.Errorf("PaymentStatus = %s, want pending_cash", resp.PaymentStatus)
	}

	if resp.PaymentMethod == nil || *resp.PaymentMethod != "cash" {
		t.Errorf("PaymentMethod = %v, want cash", resp.PaymentMethod)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/ambassador/participants/99999", nil, ambassadorTok)

	if w.Code != http.StatusNotFound {
		t.Errorf("Unknown participant returned %d, want 404", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/ambassador/participants/zero", nil, ambassadorTok)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Non-numeric id returned %d, want 400", w.Code)
	}
}

func TestPendingCashQueue(t *testing.T) {
	r, _, _ := setupServer(t)

	registered, _ := registerCashParticipant(t, r)
	_, ambassadorTok := staffToken(t, models.RoleAmbassador)

	w := doJSON(t, r, http.MethodGet, "/api/v1/ambassador/pending-cash", nil, ambassadorTok)

	if w.Code != http.StatusOK {
		t.Fatalf("Pending cash returned %d: %s", w.Code, w.Body.String())
	}

	var queue []struct {
		ID uint `json:"id"`
	}
	decodeJSON(t, w, &queue)

	if len(queue) != 1 || queue[0].ID != registered.ParticipantID {
		t.Fatalf("Queue = %+v, want the cash participant", queue)
	}

	doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/ambassador/verify-cash/%d", registered.ParticipantID), nil, ambassadorTok)

	w = doJSON(t, r, http.MethodGet, "/api/v1/ambassador/pending-cash", nil, ambassadorTok)

	queue = nil
	decodeJSON(t, w, &queue)

	if len(queue) != 0 {
		t.Errorf("Queue after verification = %d entries, want 0", len(queue))
	}
}

func TestMyVerificationsAndStats(t *testing.T) {
	r, _, _ := setupServer(t)

	first, _ := registerCashParticipant(t, r)
	second, _ := registerCashParticipant(t, r)

	_, ambassadorTok := staffToken(t, models.RoleAmbassador)

	for _, registered := range []registerResponse{first, second} {
		w := doJSON(t, r, http.MethodPost,
			fmt.Sprintf("/api/v1/ambassador/verify-cash/%d", registered.ParticipantID), nil, ambassadorTok)

		if w.Code != http.StatusOK {
			t.Fatalf("Verify returned %d: %s", w.Code, w.Body.String())
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/ambassador/my-verifications", nil, ambassadorTok)

	if w.Code != http.StatusOK {
		t.Fatalf("My verifications returned %d: %s", w.Code, w.Body.String())
	}

	var verifications struct {
		TotalVerified int     `json:"total_verified"`
		TotalAmount   float64 `json:"total_amount"`
	}
	decodeJSON(t, w, &verifications)

	if verifications.TotalVerified != 2 {
		t.Errorf("TotalVerified = %d, want 2", verifications.TotalVerified)
	}

	if verifications.TotalAmount != 2000 {
		t.Errorf("TotalAmount = %.2f, want 2000", verifications.TotalAmount)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/ambassador/stats", nil, ambassadorTok)

	if w.Code != http.StatusOK {
		t.Fatalf("Stats returned %d: %s", w.Code, w.Body.String())
	}

	var stats struct {
		TotalVerifications  int64 `json:"total_verifications"`
		VerificationsToday  int64 `json:"verifications_today"`
		PendingCashPayments int64 `json:"pending_cash_payments"`
	}
	decodeJSON(t, w, &stats)

	if stats.TotalVerifications != 2 {
		t.Errorf("TotalVerifications = %d, want 2", stats.TotalVerifications)
	}

	if stats.VerificationsToday != 2 {
		t.Errorf("VerificationsToday = %d, want 2", stats.VerificationsToday)
	}

	if stats.PendingCashPayments != 0 {
		t.Errorf("PendingCashPayments = %d, want 0", stats.PendingCashPayments)
	}
}
