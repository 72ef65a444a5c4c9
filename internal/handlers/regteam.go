package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/models"
	"github.com/devcon-dev/devcon/internal/services"
	"github.com/devcon-dev/devcon/internal/utils"
)

type ManualRegisterRequest struct {
	RegisterRequest

	PaymentMethod string  `json:"payment_method" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
}

type FlagPaymentRequest struct {
	PaymentID uint   `json:"payment_id" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

func RegistrationDashboard(ctx *gin.Context) {
	var totalRegistrations int64

	if err := db.DB.Model(&models.Participant{}).Count(&totalRegistrations).Error; err != nil {
		log.Printf("Failed to count registrations: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var pendingPayments int64

	db.DB.Model(&models.Payment{}).
		Where("status IN ?", []models.PaymentStatus{models.StatusPending, models.StatusPendingCash}).
		Count(&pendingPayments)

	var cashCount int64

	db.DB.Model(&models.Payment{}).Where("method = ?", models.MethodCash).Count(&cashCount)

	var onlineCount int64

	db.DB.Model(&models.Payment{}).Where("method = ?", models.MethodOnline).Count(&onlineCount)

	ctx.JSON(http.StatusOK, gin.H{
		"total_registrations": totalRegistrations,
		"pending_payments":    pendingPayments,
		"cash_payments":       cashCount,
		"online_payments":     onlineCount,
	})
}

// RegisterManual registers a participant at the desk, payment included. Cash
// collected in person is verified on the spot.
func RegisterManual(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body ManualRegisterRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	input := services.ManualRegistrationInput{
		RegistrationInput: registrationInput(body.RegisterRequest),
		PaymentMethod:     body.PaymentMethod,
		Amount:            body.Amount,
	}

	result, err := registrations.RegisterManual(input, currentUser.ID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	var teamID *uint

	if result.Team != nil {
		teamID = &result.Team.ID
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":        "Participant registered manually",
		"user_id":        result.User.ID,
		"participant_id": result.Participant.ID,
		"payment_id":     result.Payment.ID,
		"team_id":        teamID,
	})
}

// ListRegistrations is the desk's read-only view over all registrations.
func ListRegistrations(ctx *gin.Context) {
	skip, _ := strconv.Atoi(ctx.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "100"))

	if skip < 0 {
		skip = 0
	}

	if limit < 1 || limit > 1000 {
		limit = 100
	}

	var participants []models.Participant

	err := db.DB.Preload("User").Preload("Team").Preload("Payment").
		Order("id").Offset(skip).Limit(limit).
		Find(&participants).Error

	if err != nil {
		log.Printf("Failed to list registrations: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	rows := make([]gin.H, 0, len(participants))

	for _, participant := range participants {
		var paymentInfo gin.H

		if participant.Payment != nil {
			paymentInfo = gin.H{
				"id":           participant.Payment.ID,
				"status":       string(participant.Payment.Status),
				"method":       string(participant.Payment.Method),
				"amount":       participant.Payment.Amount,
				"receipt_path": participant.Payment.ReceiptPath,
			}
		}

		var teamName *string

		if participant.Team != nil {
			teamName = &participant.Team.Name
		}

		rows = append(rows, gin.H{
			"id":         participant.ID,
			"name":       participant.User.FullName,
			"email":      participant.User.Email,
			"university": participant.User.University,
			"student_id": participant.StudentID,
			"track":      string(participant.Track),
			"team":       teamName,
			"payment":    paymentInfo,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"registrations": rows})
}

// ListPayments lists every payment with its proof path for desk review.
func ListPayments(ctx *gin.Context) {
	var records []models.Payment

	err := db.DB.Preload("Participant.User").Order("id").Find(&records).Error

	if err != nil {
		log.Printf("Failed to list payments: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	rows := make([]gin.H, 0, len(records))

	for _, payment := range records {
		rows = append(rows, gin.H{
			"payment_id":       payment.ID,
			"participant_name": payment.Participant.User.FullName,
			"email":            payment.Participant.User.Email,
			"student_id":       payment.Participant.StudentID,
			"amount":           payment.Amount,
			"method":           string(payment.Method),
			"status":           string(payment.Status),
			"receipt_path":     payment.ReceiptPath,
			"transaction_id":   payment.TransactionID,
			"created_at":       payment.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"payments": rows})
}

// UploadPaymentProof attaches collection proof to a cash payment.
func UploadPaymentProof(ctx *gin.Context) {
	paymentID, err := utils.GetPaymentID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := ctx.FormFile("receipt")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Receipt file is required"})
		return
	}

	if err := utils.ValidateUpload(file, cfg.MaxFileSize, cfg.AllowedExtensions); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path, err := utils.SaveUpload(ctx, file, cfg.UploadDir)

	if err != nil {
		log.Printf("Failed to save proof: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store receipt"})
		return
	}

	if _, err := payments.AttachProof(paymentID, path); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Payment proof uploaded successfully"})
}

// FlagPayment marks a payment as suspicious. The flag is logged for followup
// rather than persisted.
func FlagPayment(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body FlagPaymentRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var payment models.Payment

	if err := db.DB.First(&payment, body.PaymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		log.Printf("Failed to fetch payment: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	log.Printf("Payment %d flagged by %s: %s", payment.ID, currentUser.Email, body.Reason)

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Payment flagged successfully",
		"payment_id": payment.ID,
		"reason":     body.Reason,
		"flagged_by": currentUser.FullName,
		"flagged_at": time.Now(),
	})
}
