package services

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/apperr"
	"github.com/devcon-dev/devcon/internal/config"
	"github.com/devcon-dev/devcon/internal/models"
)

func newRegistrationStack(t *testing.T) (*RegistrationService, *recordingSender, config.Config) {
	t.Helper()

	cfg := testConfig(t)
	sender := &recordingSender{}
	notifier := newTestNotifier(t, sender, cfg.NotifyMaxAttempts)
	tickets := NewTicketService(cfg)
	payments := NewPaymentService(cfg, tickets, notifier)
	teams := NewTeamService(cfg)

	return NewRegistrationService(cfg, teams, payments, notifier), sender, cfg
}

func validRegistrationInput() RegistrationInput {
	n := seq.Add(1)

	return RegistrationInput{
		Email:            fmt.Sprintf("reg%d@test.dev", n),
		Password:         "correct-horse-battery",
		FullName:         "Grace Hopper",
		University:       "Devcon University",
		PhoneNumber:      "03001234567",
		StudentID:        fmt.Sprintf("SP24-%05d", n),
		CNIC:             fmt.Sprintf("61101-%07d-3", n),
		Track:            "programming",
		TShirtSize:       "M",
		EmergencyContact: "03007654321",
	}
}

func countNotifications(t *testing.T, userID uint, kind models.NotificationKind) int64 {
	t.Helper()

	var count int64

	if err := db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Count(&count).Error; err != nil {
		t.Fatalf("Failed to count notifications: %v", err)
	}

	return count
}

func TestRegister(t *testing.T) {
	setupTestDB(t)

	svc, sender, _ := newRegistrationStack(t)

	input := validRegistrationInput()
	input.Email = strings.ToUpper(input.Email)

	result, err := svc.Register(input)

	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if result.User.Email != strings.ToLower(input.Email) {
		t.Errorf("Email = %s, want lowercased %s", result.User.Email, strings.ToLower(input.Email))
	}

	if result.User.Role != models.RoleParticipant {
		t.Errorf("Role = %s, want participant", result.User.Role)
	}

	if result.Participant.UserID != result.User.ID {
		t.Error("Participant is not linked to the user")
	}

	if result.Team != nil {
		t.Error("Solo registration must not create a team")
	}

	var stored models.User

	if err := db.DB.Where("email = ?", result.User.Email).First(&stored).Error; err != nil {
		t.Fatalf("User row missing: %v", err)
	}

	if stored.PasswordHash == input.Password {
		t.Error("Password was stored in plain text")
	}

	waitFor(t, "pending email", func() bool { return sender.count() == 1 })

	email, _ := sender.last()

	if email.To != result.User.Email {
		t.Errorf("Pending email to %s, want %s", email.To, result.User.Email)
	}

	if countNotifications(t, result.User.ID, models.NotifyPending) != 1 {
		t.Error("Pending notification was not ledgered")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	setupTestDB(t)

	svc, _, _ := newRegistrationStack(t)

	input := validRegistrationInput()

	if _, err := svc.Register(input); err != nil {
		t.Fatalf("First register failed: %v", err)
	}

	dup := validRegistrationInput()
	dup.Email = input.Email

	_, err := svc.Register(dup)

	if apperr.CodeOf(err) != apperr.CodeConflict {
		t.Errorf("Duplicate email error = %v, want conflict", err)
	}
}

func TestRegisterDuplicateStudentID(t *testing.T) {
	setupTestDB(t)

	svc, _, _ := newRegistrationStack(t)

	input := validRegistrationInput()

	if _, err := svc.Register(input); err != nil {
		t.Fatalf("First register failed: %v", err)
	}

	dup := validRegistrationInput()
	dup.StudentID = input.StudentID

	_, err := svc.Register(dup)

	if apperr.CodeOf(err) != apperr.CodeConflict {
		t.Errorf("Duplicate student ID error = %v, want conflict", err)
	}
}

// A failed team join must roll the whole registration back: no orphan user or
// participant rows survive.
func TestRegisterRollsBackOnBadTeamCode(t *testing.T) {
	setupTestDB(t)

	svc, _, _ := newRegistrationStack(t)

	input := validRegistrationInput()
	input.TeamCode = "NOPECODE"

	_, err := svc.Register(input)

	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("Bad team code error = %v, want not found", err)
	}

	var users int64

	if err := db.DB.Model(&models.User{}).Where("email = ?", input.Email).Count(&users).Error; err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}

	if users != 0 {
		t.Error("User row survived the rollback")
	}

	var participants int64

	if err := db.DB.Model(&models.Participant{}).Where("student_id = ?", input.StudentID).Count(&participants).Error; err != nil {
		t.Fatalf("Failed to count participants: %v", err)
	}

	if participants != 0 {
		t.Error("Participant row survived the rollback")
	}
}

func TestRegisterCreatesTeam(t *testing.T) {
	setupTestDB(t)

	svc, _, _ := newRegistrationStack(t)

	input := validRegistrationInput()
	input.CreateNewTeam = true
	input.TeamName = "Null Pointers"

	result, err := svc.Register(input)

	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if result.Team == nil {
		t.Fatal("Team was not created")
	}

	if len(result.Team.Code) != 8 {
		t.Errorf("Team code = %q, want 8 characters", result.Team.Code)
	}

	if !result.Participant.IsTeamLead {
		t.Error("Registering creator must become team lead")
	}

	waitFor(t, "team invite ledger", notificationFinalized(models.NotifyTeamInvite))

	if countNotifications(t, result.User.ID, models.NotifyTeamInvite) != 1 {
		t.Error("Team invite notification was not ledgered")
	}

	if countNotifications(t, result.User.ID, models.NotifyPending) != 1 {
		t.Error("Pending notification was not ledgered")
	}
}

func TestRegisterJoinsTeamByCode(t *testing.T) {
	setupTestDB(t)

	svc, _, _ := newRegistrationStack(t)

	leaderInput := validRegistrationInput()
	leaderInput.CreateNewTeam = true
	leaderInput.TeamName = "Joiners"

	leader, err := svc.Register(leaderInput)

	if err != nil {
		t.Fatalf("Leader register failed: %v", err)
	}

	memberInput := validRegistrationInput()
	// Codes are normalized, so a lowercase entry still matches.
	memberInput.TeamCode = strings.ToLower(leader.Team.Code)

	member, err := svc.Register(memberInput)

	if err != nil {
		t.Fatalf("Member register failed: %v", err)
	}

	if member.Team == nil || member.Team.ID != leader.Team.ID {
		t.Fatal("Member did not join the leader's team")
	}

	if member.Participant.IsTeamLead {
		t.Error("Joining member must not become team lead")
	}

	var reloaded models.Team

	if err := db.DB.First(&reloaded, leader.Team.ID).Error; err != nil {
		t.Fatalf("Failed to reload team: %v", err)
	}

	if reloaded.MemberCount != 2 {
		t.Errorf("MemberCount = %d, want 2", reloaded.MemberCount)
	}
}

func TestRegisterValidation(t *testing.T) {
	setupTestDB(t)

	svc, _, _ := newRegistrationStack(t)

	badTrack := validRegistrationInput()
	badTrack.Track = "cooking"

	if _, err := svc.Register(badTrack); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Errorf("Unknown track error = %v, want validation", err)
	}

	badSize := validRegistrationInput()
	badSize.TShirtSize = "XS"

	if _, err := svc.Register(badSize); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Errorf("Unknown t-shirt size error = %v, want validation", err)
	}
}

func TestRegisterManualCash(t *testing.T) {
	setupTestDB(t)

	svc, _, cfg := newRegistrationStack(t)
	staff := createUser(t, models.RoleRegistrationTeam)

	input := ManualRegistrationInput{
		RegistrationInput: validRegistrationInput(),
		PaymentMethod:     "cash",
		Amount:            1500,
	}

	result, err := svc.RegisterManual(input, staff.ID)

	if err != nil {
		t.Fatalf("RegisterManual failed: %v", err)
	}

	if result.Payment == nil {
		t.Fatal("Payment was not created")
	}

	if result.Payment.Status != models.StatusVerified {
		t.Errorf("Status = %s, want verified for desk cash", result.Payment.Status)
	}

	if result.Payment.VerifiedByID == nil || *result.Payment.VerifiedByID != staff.ID {
		t.Error("VerifiedByID was not set to the desk staff")
	}

	if result.Payment.Amount != 1500 {
		t.Errorf("Amount = %.2f, want 1500", result.Payment.Amount)
	}

	waitFor(t, "verified notification", notificationFinalized(models.NotifyVerified))

	if countNotifications(t, result.User.ID, models.NotifyVerified) != 1 {
		t.Error("Verified notification was not ledgered")
	}

	// Desk cash skips the pending-payment email.
	if countNotifications(t, result.User.ID, models.NotifyPending) != 0 {
		t.Error("Pending notification must be skipped for verified desk registration")
	}

	entries, err := os.ReadDir(cfg.QRCodeDir)

	if err != nil {
		t.Fatalf("Failed to read QR directory: %v", err)
	}

	if len(entries) != 1 {
		t.Errorf("QR files = %d, want 1", len(entries))
	}
}

func TestRegisterManualOnline(t *testing.T) {
	setupTestDB(t)

	svc, _, _ := newRegistrationStack(t)
	staff := createUser(t, models.RoleRegistrationTeam)

	input := ManualRegistrationInput{
		RegistrationInput: validRegistrationInput(),
		PaymentMethod:     "online",
		Amount:            1000,
	}

	result, err := svc.RegisterManual(input, staff.ID)

	if err != nil {
		t.Fatalf("RegisterManual failed: %v", err)
	}

	if result.Payment.Status != models.StatusPending {
		t.Errorf("Status = %s, want pending for desk online", result.Payment.Status)
	}

	waitFor(t, "pending notification", notificationFinalized(models.NotifyPending))

	if countNotifications(t, result.User.ID, models.NotifyPending) != 1 {
		t.Error("Pending notification was not ledgered")
	}
}

func TestRegisterManualInvalidMethod(t *testing.T) {
	setupTestDB(t)

	svc, _, _ := newRegistrationStack(t)
	staff := createUser(t, models.RoleRegistrationTeam)

	input := ManualRegistrationInput{
		RegistrationInput: validRegistrationInput(),
		PaymentMethod:     "barter",
		Amount:            1000,
	}

	_, err := svc.RegisterManual(input, staff.ID)

	if apperr.CodeOf(err) != apperr.CodeValidation {
		t.Errorf("Invalid method error = %v, want validation", err)
	}
}
