package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/apperr"
	"github.com/devcon-dev/devcon/internal/metrics"
	"github.com/devcon-dev/devcon/internal/models"
)

// CheckInService records event entry against verified payments only.
type CheckInService struct{}

func NewCheckInService() *CheckInService {
	return &CheckInService{}
}

// CheckIn records entry for a participant at one event. A participant can
// check in at most once per event; the composite unique index backstops the
// existence check under concurrency.
func (s *CheckInService) CheckIn(participantID uint, eventType string, staffID uint) (*models.CheckIn, *models.Participant, error) {
	if eventType == "" {
		return nil, nil, apperr.Validation("event_type is required")
	}

	var participant models.Participant
	var checkIn models.CheckIn

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("User").Preload("Payment").First(&participant, participantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("participant not found")
			}
			return err
		}

		if participant.Payment == nil || participant.Payment.Status != models.StatusVerified {
			return apperr.InvalidState("participant payment not verified")
		}

		var count int64

		if err := tx.Model(&models.CheckIn{}).
			Where("participant_id = ? AND event_type = ?", participantID, eventType).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return apperr.Conflict("participant already checked in for this event")
		}

		checkIn = models.CheckIn{
			ParticipantID: participantID,
			EventType:     eventType,
			CheckedByID:   staffID,
			CheckedAt:     time.Now(),
		}

		if err := tx.Create(&checkIn).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("participant already checked in for this event")
			}
			return err
		}

		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	metrics.CheckInsTotal.Inc()

	return &checkIn, &participant, nil
}
