package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/apperr"
	"github.com/devcon-dev/devcon/internal/config"
	"github.com/devcon-dev/devcon/internal/metrics"
	"github.com/devcon-dev/devcon/internal/models"
)

type RegistrationInput struct {
	Email       string
	Password    string
	FullName    string
	University  string
	PhoneNumber string

	StudentID           string
	CNIC                string
	Track               string
	TechnicalSkills     string
	GithubLink          string
	PortfolioLink       string
	TShirtSize          string
	DietaryRequirements string
	EmergencyContact    string

	CreateNewTeam bool
	TeamName      string
	TeamCode      string
}

type ManualRegistrationInput struct {
	RegistrationInput

	PaymentMethod string
	Amount        float64
}

type RegistrationResult struct {
	User        *models.User
	Participant *models.Participant
	Team        *models.Team
	Payment     *models.Payment
}

// RegistrationService creates the user, participant, optional team attach,
// and (for manual desk registration) the payment as one transaction.
type RegistrationService struct {
	cfg      config.Config
	teams    *TeamService
	payments *PaymentService
	notifier *Notifier
}

func NewRegistrationService(cfg config.Config, teams *TeamService, payments *PaymentService, notifier *Notifier) *RegistrationService {
	return &RegistrationService{cfg: cfg, teams: teams, payments: payments, notifier: notifier}
}

// Register handles the public self-service flow. Payment is created later,
// when the participant selects a method.
func (s *RegistrationService) Register(input RegistrationInput) (*RegistrationResult, error) {
	result, err := s.register(input, nil, 0)

	if err != nil {
		return nil, err
	}

	s.sendRegistrationEmails(result, true)

	return result, nil
}

// RegisterManual handles desk registration by staff. The payment is created
// in the same transaction; cash is marked verified immediately since it was
// collected in person.
func (s *RegistrationService) RegisterManual(input ManualRegistrationInput, staffID uint) (*RegistrationResult, error) {
	method := models.PaymentMethod(input.PaymentMethod)

	if !method.Valid() {
		return nil, apperr.Validation("payment method must be online or cash")
	}

	result, err := s.register(input.RegistrationInput, &input, staffID)

	if err != nil {
		return nil, err
	}

	if result.Payment.Status == models.StatusVerified {
		payment := *result.Payment
		payment.Participant = *result.Participant
		payment.Participant.User = *result.User
		payment.Participant.Team = result.Team

		metrics.PaymentsVerifiedTotal.WithLabelValues(string(payment.Method)).Inc()
		s.payments.issueTicketAndNotify(&payment)
		s.sendRegistrationEmails(result, false)
	} else {
		s.sendRegistrationEmails(result, true)
	}

	return result, nil
}

func (s *RegistrationService) register(input RegistrationInput, manual *ManualRegistrationInput, staffID uint) (*RegistrationResult, error) {
	track := models.Track(input.Track)

	if !track.Valid() {
		return nil, apperr.Validation("unknown track %q", input.Track)
	}

	size := models.TShirtSize(strings.ToUpper(input.TShirtSize))

	if !size.Valid() {
		return nil, apperr.Validation("unknown t-shirt size %q", input.TShirtSize)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)

	if err != nil {
		return nil, apperr.Internal("failed to hash password")
	}

	result := &RegistrationResult{}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := checkAvailable(tx, &models.User{}, "email = ?", email, "email already registered"); err != nil {
			return err
		}

		if err := checkAvailable(tx, &models.Participant{}, "student_id = ?", input.StudentID, "student ID already registered"); err != nil {
			return err
		}

		if err := checkAvailable(tx, &models.Participant{}, "cnic = ?", input.CNIC, "CNIC already registered"); err != nil {
			return err
		}

		user := models.User{
			Email:        email,
			PasswordHash: string(hash),
			FullName:     input.FullName,
			University:   input.University,
			PhoneNumber:  input.PhoneNumber,
			Role:         models.RoleParticipant,
			IsActive:     true,
		}

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("email already registered")
			}
			return err
		}

		participant := models.Participant{
			UserID:              user.ID,
			StudentID:           input.StudentID,
			CNIC:                input.CNIC,
			Track:               track,
			TechnicalSkills:     input.TechnicalSkills,
			GithubLink:          input.GithubLink,
			PortfolioLink:       input.PortfolioLink,
			TShirtSize:          size,
			DietaryRequirements: input.DietaryRequirements,
			EmergencyContact:    input.EmergencyContact,
		}

		if err := tx.Create(&participant).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("student ID or CNIC already registered")
			}
			return err
		}

		var team *models.Team

		if input.CreateNewTeam && input.TeamName != "" {
			created, err := s.teams.Create(tx, input.TeamName, track, participant.ID)
			if err != nil {
				return err
			}
			team = created
			participant.TeamID = &team.ID
			participant.IsTeamLead = true
		} else if input.TeamCode != "" {
			joined, err := s.teams.Join(tx, strings.ToUpper(strings.TrimSpace(input.TeamCode)), participant.ID)
			if err != nil {
				return err
			}
			team = joined
			participant.TeamID = &team.ID
		}

		if manual != nil {
			payment, err := s.payments.Create(tx, participant.ID, participant.TeamID, manual.Amount, models.PaymentMethod(manual.PaymentMethod), "", "")

			if err != nil {
				return err
			}

			if payment.Method == models.MethodCash {
				now := time.Now()
				payment.Status = models.StatusVerified
				payment.VerifiedByID = &staffID
				payment.VerifiedAt = &now

				if err := tx.Save(payment).Error; err != nil {
					return err
				}
			}

			result.Payment = payment
		}

		result.User = &user
		result.Participant = &participant
		result.Team = team

		return nil
	})

	if err != nil {
		return nil, err
	}

	metrics.RegistrationsTotal.Inc()

	if result.Team != nil && result.Participant.IsTeamLead {
		metrics.TeamsCreatedTotal.Inc()
	}

	return result, nil
}

// sendRegistrationEmails queues the post-registration notifications. The
// pending email is skipped when the payment was verified on the spot.
func (s *RegistrationService) sendRegistrationEmails(result *RegistrationResult, pending bool) {
	user := result.User

	if pending {
		s.notifier.Enqueue(NotifyJob{
			UserID: user.ID,
			Kind:   models.NotifyPending,
			Email:  RegistrationPendingEmail(user.FullName, user.Email, string(result.Participant.Track), s.cfg.EventName),
		})
	}

	if result.Team != nil && result.Participant.IsTeamLead {
		s.notifier.Enqueue(NotifyJob{
			UserID: user.ID,
			Kind:   models.NotifyTeamInvite,
			Email:  TeamInviteEmail(user.FullName, user.Email, result.Team.Name, result.Team.Code, s.cfg.EventName),
		})
	}
}

func checkAvailable(tx *gorm.DB, model interface{}, query, value, conflict string) error {
	var count int64

	if err := tx.Model(model).Where(query, value).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return apperr.Conflict(conflict)
	}

	return nil
}
