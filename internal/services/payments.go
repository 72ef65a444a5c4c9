package services

import (
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/apperr"
	"github.com/devcon-dev/devcon/internal/config"
	"github.com/devcon-dev/devcon/internal/metrics"
	"github.com/devcon-dev/devcon/internal/models"
)

// PaymentService owns the payment state machine:
//
//	create(online)        -> pending
//	create(cash)          -> pending_cash
//	pending               -> verified | rejected   (VerifyOnline)
//	pending_cash          -> verified              (VerifyCash)
//	rejected              -> pending               (AttachReceipt retry)
//
// Any other transition fails with InvalidState, except the admin-only
// OverrideStatus escape hatch. Ticket and email side effects run after the
// state change commits and never fail the transition.
type PaymentService struct {
	cfg      config.Config
	tickets  *TicketService
	notifier *Notifier
}

func NewPaymentService(cfg config.Config, tickets *TicketService, notifier *Notifier) *PaymentService {
	return &PaymentService{cfg: cfg, tickets: tickets, notifier: notifier}
}

// Create records a new payment for a participant. The unique index on
// participant_id backstops the existence check against concurrent creates.
func (s *PaymentService) Create(tx *gorm.DB, participantID uint, teamID *uint, amount float64, method models.PaymentMethod, transactionID, receiptPath string) (*models.Payment, error) {
	if !method.Valid() {
		return nil, apperr.Validation("payment method must be online or cash")
	}

	var count int64

	if err := tx.Model(&models.Payment{}).Where("participant_id = ?", participantID).Count(&count).Error; err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, apperr.Conflict("payment already exists for this participant")
	}

	status := models.StatusPending

	if method == models.MethodCash {
		status = models.StatusPendingCash
	}

	payment := models.Payment{
		ParticipantID: participantID,
		TeamID:        teamID,
		Amount:        amount,
		Method:        method,
		Status:        status,
		TransactionID: transactionID,
		ReceiptPath:   receiptPath,
	}

	if receiptPath != "" {
		now := time.Now()
		payment.UploadedAt = &now
	}

	if err := tx.Create(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("payment already exists for this participant")
		}
		return nil, err
	}

	return &payment, nil
}

// VerifyCash confirms an in-person cash collection for a participant.
func (s *PaymentService) VerifyCash(participantID, ambassadorID uint) (*models.Payment, error) {
	var payment models.Payment

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Participant.User").Preload("Participant.Team").
			Where("participant_id = ?", participantID).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("no payment record found for this participant")
			}
			return err
		}

		if payment.Method != models.MethodCash {
			return apperr.InvalidState("this participant did not select cash payment method")
		}

		if payment.Status != models.StatusPendingCash {
			return apperr.InvalidState("payment status is %s, cannot verify", payment.Status)
		}

		now := time.Now()
		payment.Status = models.StatusVerified
		payment.VerifiedByID = &ambassadorID
		payment.VerifiedAt = &now

		return tx.Save(&payment).Error
	})

	if err != nil {
		return nil, err
	}

	metrics.PaymentsVerifiedTotal.WithLabelValues(string(models.MethodCash)).Inc()
	s.issueTicketAndNotify(&payment)

	return &payment, nil
}

// VerifyOnline approves or rejects an uploaded online payment.
func (s *PaymentService) VerifyOnline(paymentID uint, approve bool, adminID uint, remarks string) (*models.Payment, error) {
	var payment models.Payment

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Participant.User").Preload("Participant.Team").
			First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment not found")
			}
			return err
		}

		if payment.Method != models.MethodOnline {
			return apperr.InvalidState("this is not an online payment")
		}

		if payment.Status != models.StatusPending {
			return apperr.InvalidState("payment status is %s, cannot verify", payment.Status)
		}

		if approve {
			now := time.Now()
			payment.Status = models.StatusVerified
			payment.VerifiedByID = &adminID
			payment.VerifiedAt = &now
		} else {
			payment.Status = models.StatusRejected
		}

		return tx.Save(&payment).Error
	})

	if err != nil {
		return nil, err
	}

	user := payment.Participant.User

	if approve {
		metrics.PaymentsVerifiedTotal.WithLabelValues(string(models.MethodOnline)).Inc()
		s.issueTicketAndNotify(&payment)
	} else {
		metrics.PaymentsRejectedTotal.Inc()

		if remarks == "" {
			remarks = "Payment receipt could not be verified"
		}

		s.notifier.Enqueue(NotifyJob{
			UserID: user.ID,
			Kind:   models.NotifyRejected,
			Email:  PaymentRejectedEmail(user.FullName, user.Email, remarks, s.cfg.EventName),
		})
	}

	return &payment, nil
}

// AttachReceipt stores a new receipt against an online payment. A rejected
// payment returns to pending so it can be reviewed again.
func (s *PaymentService) AttachReceipt(paymentID uint, transactionID, receiptPath string) (*models.Payment, error) {
	var payment models.Payment

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment not found")
			}
			return err
		}

		if payment.Method != models.MethodOnline {
			return apperr.InvalidState("this payment is not set for online method")
		}

		if payment.Status != models.StatusPending && payment.Status != models.StatusRejected {
			return apperr.InvalidState("payment status is %s, cannot replace receipt", payment.Status)
		}

		removeFile(payment.ReceiptPath)

		now := time.Now()
		payment.Status = models.StatusPending
		payment.TransactionID = transactionID
		payment.ReceiptPath = receiptPath
		payment.UploadedAt = &now

		return tx.Save(&payment).Error
	})

	if err != nil {
		return nil, err
	}

	return &payment, nil
}

// AttachProof stores collection proof against any payment without touching
// its status. Used by the registration desk for cash payments.
func (s *PaymentService) AttachProof(paymentID uint, receiptPath string) (*models.Payment, error) {
	var payment models.Payment

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment not found")
			}
			return err
		}

		removeFile(payment.ReceiptPath)

		now := time.Now()
		payment.ReceiptPath = receiptPath
		payment.UploadedAt = &now

		return tx.Save(&payment).Error
	})

	if err != nil {
		return nil, err
	}

	return &payment, nil
}

// OverrideStatus force-sets a payment status with no precondition. It returns
// the prior status so the caller can report the full transition.
func (s *PaymentService) OverrideStatus(paymentID uint, status models.PaymentStatus, adminID uint) (models.PaymentStatus, *models.Payment, error) {
	if !status.Valid() {
		return "", nil, apperr.Validation("unknown payment status %q", status)
	}

	var payment models.Payment
	var prior models.PaymentStatus

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment not found")
			}
			return err
		}

		prior = payment.Status
		payment.Status = status

		if status == models.StatusVerified {
			now := time.Now()
			payment.VerifiedByID = &adminID
			payment.VerifiedAt = &now
		}

		return tx.Save(&payment).Error
	})

	if err != nil {
		return "", nil, err
	}

	log.Printf("Payment %d status overridden: %s -> %s by user %d", payment.ID, prior, status, adminID)

	return prior, &payment, nil
}

// Delete removes a payment and its receipt artifact.
func (s *PaymentService) Delete(paymentID uint) error {
	var payment models.Payment

	if err := db.DB.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("payment not found")
		}
		return err
	}

	removeFile(payment.ReceiptPath)

	return db.DB.Unscoped().Delete(&payment).Error
}

// issueTicketAndNotify generates the entry QR and queues the confirmation
// email. The payment is already committed; failures here are logged only.
func (s *PaymentService) issueTicketAndNotify(payment *models.Payment) {
	participant := payment.Participant
	user := participant.User

	var teamName *string

	if participant.Team != nil {
		teamName = &participant.Team.Name
	}

	qrPath := ""

	_, path, err := s.tickets.Issue(participant.ID, user.FullName, user.Email, string(participant.Track), teamName)

	if err != nil {
		log.Printf("Failed to issue ticket for participant %d: %v", participant.ID, err)
	} else {
		qrPath = path
	}

	s.notifier.Enqueue(NotifyJob{
		UserID: user.ID,
		Kind:   models.NotifyVerified,
		Email:  PaymentVerifiedEmail(user.FullName, user.Email, string(participant.Track), s.cfg.EventName, qrPath),
	})
}

func removeFile(path string) {
	if path == "" {
		return
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove %s: %v", path, err)
	}
}
