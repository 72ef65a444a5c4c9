package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/models"
	"github.com/devcon-dev/devcon/internal/services"
	"github.com/devcon-dev/devcon/internal/utils"
)

type PaymentResponse struct {
	ID            uint       `json:"id"`
	ParticipantID uint       `json:"participant_id"`
	TeamID        *uint      `json:"team_id"`
	Amount        float64    `json:"amount"`
	Method        string     `json:"payment_method"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	ReceiptPath   string     `json:"receipt_path,omitempty"`
	UploadedAt    *time.Time `json:"uploaded_at,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func paymentResponse(payment *models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            payment.ID,
		ParticipantID: payment.ParticipantID,
		TeamID:        payment.TeamID,
		Amount:        payment.Amount,
		Method:        string(payment.Method),
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		ReceiptPath:   payment.ReceiptPath,
		UploadedAt:    payment.UploadedAt,
		VerifiedAt:    payment.VerifiedAt,
		CreatedAt:     payment.CreatedAt,
	}
}

// UploadReceipt creates an online payment with its receipt in one step.
func UploadReceipt(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	transactionID := ctx.PostForm("transaction_id")

	if transactionID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "transaction_id is required"})
		return
	}

	amount := cfg.RegistrationFee

	if raw := ctx.PostForm("amount"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		amount = parsed
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

	participant, err := participantForUser(currentUser.ID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	path, err := utils.SaveUpload(ctx, file, cfg.UploadDir)

	if err != nil {
		log.Printf("Failed to save receipt: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store receipt"})
		return
	}

	payment, err := payments.Create(db.DB, participant.ID, participant.TeamID, amount, models.MethodOnline, transactionID, path)

	if err != nil {
		respondError(ctx, err)
		return
	}

	notifier.Enqueue(services.NotifyJob{
		UserID: currentUser.ID,
		Kind:   models.NotifyPending,
		Email:  services.RegistrationPendingEmail(currentUser.FullName, currentUser.Email, string(participant.Track), cfg.EventName),
	})

	ctx.JSON(http.StatusCreated, paymentResponse(payment))
}

// SelectCash records the participant's intent to pay cash on campus.
func SelectCash(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	participant, err := participantForUser(currentUser.ID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	payment, err := payments.Create(db.DB, participant.ID, participant.TeamID, cfg.RegistrationFee, models.MethodCash, "", "")

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Cash payment selected. Please visit a Devcon Ambassador on campus to complete payment.",
		"payment_id": payment.ID,
		"status":     string(payment.Status),
	})
}

func MyPayment(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	participant, err := participantForUser(currentUser.ID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	if participant.Payment == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "No payment record found"})
		return
	}

	ctx.JSON(http.StatusOK, paymentResponse(participant.Payment))
}

// TeamPaymentStatus reports the payment rollup for the caller's own team.
func TeamPaymentStatus(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	teamID, err := utils.GetTeamID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participant, err := participantForUser(currentUser.ID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	if participant.TeamID == nil || *participant.TeamID != teamID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this team"})
		return
	}

	var team models.Team

	if err := db.DB.Preload("Members.User").Preload("Members.Payment").First(&team, teamID).Error; err != nil {
		log.Printf("Failed to fetch team: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	paidMembers := 0
	pendingMembers := 0
	totalCollected := 0.0
	members := make([]gin.H, 0, len(team.Members))

	for _, member := range team.Members {
		entry := gin.H{
			"id":             member.ID,
			"name":           member.User.FullName,
			"payment_status": "unpaid",
		}

		if member.Payment != nil {
			entry["payment_status"] = string(member.Payment.Status)
			entry["payment_id"] = member.Payment.ID
			entry["amount"] = member.Payment.Amount
			entry["method"] = string(member.Payment.Method)

			if member.Payment.Status == models.StatusVerified {
				paidMembers++
				totalCollected += member.Payment.Amount
			} else {
				pendingMembers++
			}
		} else {
			pendingMembers++
		}

		members = append(members, entry)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"team_id":         team.ID,
		"total_members":   len(team.Members),
		"paid_members":    paidMembers,
		"pending_members": pendingMembers,
		"total_collected": totalCollected,
		"members":         members,
	})
}
