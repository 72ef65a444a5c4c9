package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/devcon-dev/devcon/internal/apperr"
	"github.com/devcon-dev/devcon/internal/config"
)

// TicketClaims is the payload encoded into an entry QR code.
type TicketClaims struct {
	ParticipantID uint    `json:"participant_id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Track         string  `json:"track"`
	Team          *string `json:"team"`
	Event         string  `json:"event"`
	GeneratedAt   string  `json:"generated_at"`
	Valid         bool    `json:"valid"`
}

// TicketService issues and redeems QR entry tickets.
type TicketService struct {
	dir       string
	eventName string
}

func NewTicketService(cfg config.Config) *TicketService {
	return &TicketService{dir: cfg.QRCodeDir, eventName: cfg.EventName}
}

// Issue encodes the participant's claims into a PNG QR code on disk.
// It returns the JSON payload and the file path.
func (t *TicketService) Issue(participantID uint, name, email, track string, teamName *string) (string, string, error) {
	claims := TicketClaims{
		ParticipantID: participantID,
		Name:          name,
		Email:         email,
		Track:         track,
		Team:          teamName,
		Event:         t.eventName,
		GeneratedAt:   time.Now().Format(time.RFC3339),
		Valid:         true,
	}

	content, err := json.Marshal(claims)

	if err != nil {
		return "", "", fmt.Errorf("encode ticket claims: %w", err)
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create qr directory: %w", err)
	}

	filename := fmt.Sprintf("qr_%d_%s.png", participantID, uuid.NewString())
	path := filepath.Join(t.dir, filename)

	if err := qrcode.WriteFile(string(content), qrcode.Low, 256, path); err != nil {
		return "", "", fmt.Errorf("write qr code: %w", err)
	}

	return string(content), path, nil
}

// Redeem validates scanned QR content and returns its claims.
func (t *TicketService) Redeem(data string) (TicketClaims, error) {
	var claims TicketClaims

	if err := json.Unmarshal([]byte(data), &claims); err != nil {
		return TicketClaims{}, apperr.Validation("invalid QR code data")
	}

	if claims.ParticipantID == 0 || claims.Name == "" || claims.Email == "" || claims.Track == "" || claims.Event == "" {
		return TicketClaims{}, apperr.Validation("invalid QR code format")
	}

	if claims.Event != t.eventName {
		return TicketClaims{}, apperr.Validation("invalid event")
	}

	if !claims.Valid {
		return TicketClaims{}, apperr.Validation("QR code has been invalidated")
	}

	return claims, nil
}
