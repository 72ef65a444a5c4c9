package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/apperr"
	"github.com/devcon-dev/devcon/internal/config"
	"github.com/devcon-dev/devcon/internal/models"
	"github.com/devcon-dev/devcon/internal/services"
)

var (
	cfg           config.Config
	registrations *services.RegistrationService
	payments      *services.PaymentService
	checkins      *services.CheckInService
	tickets       *services.TicketService
	notifier      *services.Notifier
)

// Init wires the handler package to its dependencies. Called once from main
// before the router is mounted.
func Init(c config.Config, reg *services.RegistrationService, pay *services.PaymentService, chk *services.CheckInService, tick *services.TicketService, n *services.Notifier) {
	cfg = c
	registrations = reg
	payments = pay
	checkins = chk
	tickets = tick
	notifier = n
}

// respondError translates a domain error into the HTTP answer. Internal
// errors are logged and masked.
func respondError(ctx *gin.Context, err error) {
	code := apperr.CodeOf(err)

	if code == apperr.CodeInternal {
		log.Printf("Internal error: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(apperr.HTTPStatus(code), gin.H{"error": err.Error()})
}

// participantForUser loads the participant profile behind an authenticated
// user, with the relations most handlers need.
func participantForUser(userID uint) (*models.Participant, error) {
	var participant models.Participant

	err := db.DB.Preload("User").Preload("Team").Preload("Payment").
		Where("user_id = ?", userID).First(&participant).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("participant profile not found")
		}
		return nil, err
	}

	return &participant, nil
}
