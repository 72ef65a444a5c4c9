package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/models"
	"github.com/devcon-dev/devcon/internal/utils"
)

type SearchRequest struct {
	Email     string `json:"email"`
	StudentID string `json:"student_id"`
}

type ParticipantInfo struct {
	ID            uint     `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	University    string   `json:"university"`
	StudentID     string   `json:"student_id"`
	Track         string   `json:"track"`
	Team          *string  `json:"team"`
	PaymentStatus string   `json:"payment_status"`
	PaymentMethod *string  `json:"payment_method"`
	Amount        *float64 `json:"amount"`
}

func participantInfo(participant models.Participant) ParticipantInfo {
	info := ParticipantInfo{
		ID:            participant.ID,
		Name:          participant.User.FullName,
		Email:         participant.User.Email,
		University:    participant.User.University,
		StudentID:     participant.StudentID,
		Track:         string(participant.Track),
		PaymentStatus: "unpaid",
	}

	if info.University == "" {
		info.University = "Not specified"
	}

	if participant.Team != nil {
		info.Team = &participant.Team.Name
	}

	if participant.Payment != nil {
		info.PaymentStatus = string(participant.Payment.Status)
		method := string(participant.Payment.Method)
		info.PaymentMethod = &method
		info.Amount = &participant.Payment.Amount
	}

	return info
}

// SearchParticipants finds participants by email or student ID fragment.
func SearchParticipants(ctx *gin.Context) {
	var body SearchRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.Email == "" && body.StudentID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Either email or student_id must be provided"})
		return
	}

	query := db.DB.Model(&models.Participant{}).
		Joins("JOIN users ON users.id = participants.user_id")

	if body.Email != "" {
		query = query.Where("LOWER(users.email) LIKE ?", "%"+strings.ToLower(body.Email)+"%")
	}

	if body.StudentID != "" {
		query = query.Where("LOWER(participants.student_id) LIKE ?", "%"+strings.ToLower(body.StudentID)+"%")
	}

	var participants []models.Participant

	if err := query.Preload("User").Preload("Team").Preload("Payment").Limit(10).Find(&participants).Error; err != nil {
		log.Printf("Failed to search participants: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	result := make([]ParticipantInfo, 0, len(participants))

	for _, participant := range participants {
		result = append(result, participantInfo(participant))
	}

	ctx.JSON(http.StatusOK, result)
}

func GetParticipant(ctx *gin.Context) {
	participantID, err := utils.GetParticipantID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var participant models.Participant

	err = db.DB.Preload("User").Preload("Team").Preload("Payment").First(&participant, participantID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
			return
		}
		log.Printf("Failed to fetch participant: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, participantInfo(participant))
}

// VerifyCash confirms an in-person cash collection.
func VerifyCash(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	participantID, err := utils.GetParticipantID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := payments.VerifyCash(participantID, currentUser.ID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":           "Cash payment verified successfully",
		"payment_id":        payment.ID,
		"participant_name":  payment.Participant.User.FullName,
		"amount":            payment.Amount,
		"verified_at":       payment.VerifiedAt,
		"qr_code_generated": true,
	})
}

func PendingCashPayments(ctx *gin.Context) {
	var participants []models.Participant

	err := db.DB.
		Joins("JOIN payments ON payments.participant_id = participants.id").
		Where("payments.method = ? AND payments.status = ?", models.MethodCash, models.StatusPendingCash).
		Preload("User").Preload("Team").Preload("Payment").
		Find(&participants).Error

	if err != nil {
		log.Printf("Failed to fetch pending cash payments: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	result := make([]ParticipantInfo, 0, len(participants))

	for _, participant := range participants {
		result = append(result, participantInfo(participant))
	}

	ctx.JSON(http.StatusOK, result)
}

func MyVerifications(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var verified []models.Payment

	err = db.DB.Preload("Participant.User").
		Where("verified_by_id = ? AND status = ?", currentUser.ID, models.StatusVerified).
		Find(&verified).Error

	if err != nil {
		log.Printf("Failed to fetch verifications: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	totalAmount := 0.0
	rows := make([]gin.H, 0, len(verified))

	for _, payment := range verified {
		totalAmount += payment.Amount
		rows = append(rows, gin.H{
			"payment_id":        payment.ID,
			"participant_name":  payment.Participant.User.FullName,
			"participant_email": payment.Participant.User.Email,
			"student_id":        payment.Participant.StudentID,
			"track":             string(payment.Participant.Track),
			"amount":            payment.Amount,
			"verified_at":       payment.VerifiedAt,
			"payment_method":    string(payment.Method),
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"verifications":  rows,
		"total_verified": len(rows),
		"total_amount":   totalAmount,
	})
}

func AmbassadorStats(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var totalVerifications int64

	err = db.DB.Model(&models.Payment{}).
		Where("verified_by_id = ? AND status = ?", currentUser.ID, models.StatusVerified).
		Count(&totalVerifications).Error

	if err != nil {
		log.Printf("Failed to count verifications: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var totalAmount float64

	db.DB.Model(&models.Payment{}).
		Where("verified_by_id = ? AND status = ?", currentUser.ID, models.StatusVerified).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalAmount)

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var verificationsToday int64

	db.DB.Model(&models.Payment{}).
		Where("verified_by_id = ? AND status = ? AND verified_at >= ?", currentUser.ID, models.StatusVerified, startOfDay).
		Count(&verificationsToday)

	var pendingCash int64

	db.DB.Model(&models.Payment{}).
		Where("method = ? AND status = ?", models.MethodCash, models.StatusPendingCash).
		Count(&pendingCash)

	ctx.JSON(http.StatusOK, gin.H{
		"ambassador_name":        currentUser.FullName,
		"total_verifications":    totalVerifications,
		"total_amount_collected": totalAmount,
		"verifications_today":    verificationsToday,
		"pending_cash_payments":  pendingCash,
	})
}
