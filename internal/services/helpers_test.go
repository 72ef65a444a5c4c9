package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/config"
	"github.com/devcon-dev/devcon/internal/models"
)

var seq atomic.Uint64

// setupTestDB points the global handle at a fresh in-memory database. A
// single connection keeps every goroutine on the same SQLite instance and
// serializes writes under the concurrency tests.
func setupTestDB(t *testing.T) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})

	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := gdb.DB()

	if err != nil {
		t.Fatalf("Failed to access sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	db.DB = gdb

	if err := db.MigrateDatabase(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		Port:              "0",
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		UploadDir:         t.TempDir(),
		QRCodeDir:         t.TempDir(),
		MaxFileSize:       5 << 20,
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".pdf"},
		EventName:         "Devcon '26",
		TeamMaxSize:       5,
		RegistrationFee:   1000,
		NotifyMaxAttempts: 2,
		NotifyBuffer:      32,
		NotifyRetryDelay:  time.Millisecond,
	}
}

func createUser(t *testing.T, role models.UserRole) *models.User {
	t.Helper()

	n := seq.Add(1)

	user := models.User{
		Email:        fmt.Sprintf("user%d@test.dev", n),
		PasswordHash: "not-a-real-hash",
		FullName:     fmt.Sprintf("Test User %d", n),
		University:   "Devcon University",
		PhoneNumber:  "03001234567",
		Role:         role,
		IsActive:     true,
	}

	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	return &user
}

func createTestParticipant(t *testing.T, track models.Track) *models.Participant {
	t.Helper()

	user := createUser(t, models.RoleParticipant)
	n := seq.Add(1)

	participant := models.Participant{
		UserID:           user.ID,
		StudentID:        fmt.Sprintf("FA22-%05d", n),
		CNIC:             fmt.Sprintf("35202-%07d-1", n),
		Track:            track,
		TShirtSize:       models.SizeM,
		EmergencyContact: "03007654321",
	}

	if err := db.DB.Create(&participant).Error; err != nil {
		t.Fatalf("Failed to create participant: %v", err)
	}

	participant.User = *user

	return &participant
}

func writeTempReceipt(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, fmt.Sprintf("receipt_%d.png", seq.Add(1)))

	if err := os.WriteFile(path, []byte("fake image bytes"), 0o644); err != nil {
		t.Fatalf("Failed to write receipt file: %v", err)
	}

	return path
}

// recordingSender is a Sender that captures every delivered email.
// Setting failures makes the first N sends error out.
type recordingSender struct {
	mu       sync.Mutex
	sent     []Email
	failures int
}

func (s *recordingSender) Send(email Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}

	s.sent = append(s.sent, email)

	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sent)
}

func (s *recordingSender) last() (Email, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sent) == 0 {
		return Email{}, false
	}

	return s.sent[len(s.sent)-1], true
}

// failingSender always errors, counting the attempts it saw.
type failingSender struct {
	mu       sync.Mutex
	attempts int
}

func (s *failingSender) Send(Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++

	return errors.New("relay down")
}

func newTestNotifier(t *testing.T, sender Sender, maxAttempts int) *Notifier {
	t.Helper()

	n := NewNotifier(sender, 32, maxAttempts, time.Millisecond)
	n.Start()
	t.Cleanup(n.Stop)

	return n
}

// newPaymentStack wires a payment service against an in-memory notifier and
// a temp-dir ticket service.
func newPaymentStack(t *testing.T) (*PaymentService, *recordingSender, config.Config) {
	t.Helper()

	cfg := testConfig(t)
	sender := &recordingSender{}
	notifier := newTestNotifier(t, sender, cfg.NotifyMaxAttempts)
	tickets := NewTicketService(cfg)

	return NewPaymentService(cfg, tickets, notifier), sender, cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(2 * time.Millisecond)
	}

	t.Fatalf("Timed out waiting for %s", what)
}

// notificationFinalized reports whether a ledger row of the given kind has
// left the pending state.
func notificationFinalized(kind models.NotificationKind) func() bool {
	return func() bool {
		var row models.Notification

		if err := db.DB.Where("kind = ?", kind).Order("id DESC").First(&row).Error; err != nil {
			return false
		}

		return row.Status != models.NotifyStatusPending
	}
}
