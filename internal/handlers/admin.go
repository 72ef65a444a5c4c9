package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/models"
	"github.com/devcon-dev/devcon/internal/services"
	"github.com/devcon-dev/devcon/internal/utils"
)

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type UpdateRoleRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type CheckInRequest struct {
	QRData    string `json:"qr_data" binding:"required"`
	EventType string `json:"event_type" binding:"required"`
}

type VerifyQRRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

type OverrideStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func AdminDashboard(ctx *gin.Context) {
	var totalRegistrations int64

	if err := db.DB.Model(&models.Participant{}).Count(&totalRegistrations).Error; err != nil {
		log.Printf("Failed to count participants: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var totalTeams int64

	db.DB.Model(&models.Team{}).Count(&totalTeams)

	var onlineCollected float64

	db.DB.Model(&models.Payment{}).
		Where("method = ? AND status = ?", models.MethodOnline, models.StatusVerified).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&onlineCollected)

	var cashCollected float64

	db.DB.Model(&models.Payment{}).
		Where("method = ? AND status = ?", models.MethodCash, models.StatusVerified).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&cashCollected)

	var statusRows []struct {
		Status string
		Count  int64
	}

	db.DB.Model(&models.Payment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows)

	byStatus := make(gin.H, len(statusRows))

	for _, row := range statusRows {
		byStatus[row.Status] = row.Count
	}

	var trackRows []struct {
		Track string
		Count int64
	}

	db.DB.Model(&models.Participant{}).
		Select("track, COUNT(*) AS count").
		Group("track").
		Scan(&trackRows)

	trackBreakdown := make(gin.H, len(trackRows))

	for _, row := range trackRows {
		trackBreakdown[row.Track] = row.Count
	}

	var totalCheckIns int64

	db.DB.Model(&models.CheckIn{}).Count(&totalCheckIns)

	ctx.JSON(http.StatusOK, gin.H{
		"total_registrations": totalRegistrations,
		"total_teams":         totalTeams,
		"payment_summary": gin.H{
			"total_online":    onlineCollected,
			"total_cash":      cashCollected,
			"total_collected": onlineCollected + cashCollected,
			"by_status":       byStatus,
		},
		"track_breakdown": trackBreakdown,
		"total_check_ins": totalCheckIns,
	})
}

// ListParticipants pages through all registrations with optional track,
// university, and payment-status filters.
func ListParticipants(ctx *gin.Context) {
	skip, _ := strconv.Atoi(ctx.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "100"))

	if skip < 0 {
		skip = 0
	}

	if limit < 1 || limit > 1000 {
		limit = 100
	}

	track := ctx.Query("track")

	if track != "" && !models.Track(track).Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown track"})
		return
	}

	paymentStatus := ctx.Query("payment_status")

	if paymentStatus != "" && !models.PaymentStatus(paymentStatus).Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment status"})
		return
	}

	university := ctx.Query("university")

	filtered := func() *gorm.DB {
		query := db.DB.Model(&models.Participant{}).
			Joins("JOIN users ON users.id = participants.user_id")

		if track != "" {
			query = query.Where("participants.track = ?", track)
		}

		if university != "" {
			query = query.Where("LOWER(users.university) LIKE ?", "%"+strings.ToLower(university)+"%")
		}

		if paymentStatus != "" {
			query = query.
				Joins("JOIN payments ON payments.participant_id = participants.id").
				Where("payments.status = ?", paymentStatus)
		}

		return query
	}

	var total int64

	if err := filtered().Count(&total).Error; err != nil {
		log.Printf("Failed to count participants: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var participants []models.Participant

	err := filtered().Preload("User").Preload("Team").Preload("Payment").
		Order("participants.id").Offset(skip).Limit(limit).
		Find(&participants).Error

	if err != nil {
		log.Printf("Failed to list participants: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	rows := make([]gin.H, 0, len(participants))

	for _, participant := range participants {
		var paymentInfo gin.H

		if participant.Payment != nil {
			paymentInfo = gin.H{
				"status":      string(participant.Payment.Status),
				"amount":      participant.Payment.Amount,
				"method":      string(participant.Payment.Method),
				"verified_at": participant.Payment.VerifiedAt,
			}
		}

		var teamName *string

		if participant.Team != nil {
			teamName = &participant.Team.Name
		}

		rows = append(rows, gin.H{
			"id":           participant.ID,
			"name":         participant.User.FullName,
			"email":        participant.User.Email,
			"university":   participant.User.University,
			"student_id":   participant.StudentID,
			"track":        string(participant.Track),
			"team":         teamName,
			"is_team_lead": participant.IsTeamLead,
			"payment":      paymentInfo,
			"created_at":   participant.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"participants": rows,
		"total":        total,
	})
}

// ListUsers lists accounts, optionally filtered by role, for managing staff.
func ListUsers(ctx *gin.Context) {
	role := ctx.Query("role")

	if role != "" && !models.UserRole(role).Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	query := db.DB.Model(&models.User{})

	if role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User

	if err := query.Order("id").Find(&users).Error; err != nil {
		log.Printf("Failed to list users: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	rows := make([]gin.H, 0, len(users))

	for _, user := range users {
		rows = append(rows, gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"full_name":  user.FullName,
			"role":       string(user.Role),
			"is_active":  user.IsActive,
			"created_at": user.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, rows)
}

// CreateStaffUser creates an admin, ambassador, or registration-team account.
func CreateStaffUser(ctx *gin.Context) {
	var body CreateUserRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	role := models.UserRole(body.Role)

	if !role.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))

	var count int64

	if err := db.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		log.Printf("Failed to check email: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if count > 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)

	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     body.FullName,
		Role:         role,
		IsActive:     true,
	}

	if err := db.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		log.Printf("Failed to create user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": string(role) + " user created successfully",
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
	})
}

// UpdateUserRole changes an account's role and reports the prior one, so the
// mutation is visible in the response and the log.
func UpdateUserRole(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body UpdateRoleRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	role := models.UserRole(body.Role)

	if !role.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	var user models.User

	if err := db.DB.First(&user, body.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Failed to fetch user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	previousRole := user.Role

	if err := db.DB.Model(&user).Update("role", role).Error; err != nil {
		log.Printf("Failed to update role: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	log.Printf("User %d role changed %s -> %s by admin %d", user.ID, previousRole, role, currentUser.ID)

	ctx.JSON(http.StatusOK, gin.H{
		"message":       "User role updated successfully",
		"user_id":       user.ID,
		"previous_role": string(previousRole),
		"new_role":      string(role),
	})
}

// ExportParticipants streams the full attendee list as CSV or XLSX for the
// check-in desk.
func ExportParticipants(ctx *gin.Context) {
	format := ctx.DefaultQuery("format", "csv")

	if format != "csv" && format != "xlsx" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	rows, err := services.AttendeeRows()

	if err != nil {
		log.Printf("Failed to load attendee rows: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if format == "xlsx" {
		workbook, err := services.BuildWorkbook(rows)

		if err != nil {
			log.Printf("Failed to build workbook: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
			return
		}

		ctx.Header("Content-Disposition", `attachment; filename="devcon26_participants.xlsx"`)
		ctx.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

		if err := workbook.Write(ctx.Writer); err != nil {
			log.Printf("Failed to stream workbook: %v", err)
		}

		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="devcon26_participants.csv"`)
	ctx.Header("Content-Type", "text/csv")

	if err := services.WriteCSV(ctx.Writer, rows); err != nil {
		log.Printf("Failed to stream CSV: %v", err)
	}
}

// AdminCheckIn records entry by scanned QR code.
func AdminCheckIn(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body CheckInRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	claims, err := tickets.Redeem(body.QRData)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid QR code: " + err.Error()})
		return
	}

	checkIn, participant, err := checkins.CheckIn(claims.ParticipantID, body.EventType, currentUser.ID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":          "Check-in successful",
		"participant_name": participant.User.FullName,
		"event_type":       checkIn.EventType,
		"checked_in_at":    checkIn.CheckedAt,
	})
}

// VerifyQR validates a scanned ticket and reports the holder. Scanner
// failures answer 200 with valid=false so the gate app can show the reason.
func VerifyQR(ctx *gin.Context) {
	var body VerifyQRRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	claims, err := tickets.Redeem(body.QRData)

	if err != nil {
		ctx.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	var participant models.Participant

	err = db.DB.Preload("User").Preload("Team").Preload("Payment").
		First(&participant, claims.ParticipantID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusOK, gin.H{"valid": false, "error": "Participant not found"})
			return
		}
		log.Printf("Failed to fetch participant: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if participant.Payment == nil || participant.Payment.Status != models.StatusVerified {
		ctx.JSON(http.StatusOK, gin.H{"valid": false, "error": "Payment not verified"})
		return
	}

	var teamName *string

	if participant.Team != nil {
		teamName = &participant.Team.Name
	}

	ctx.JSON(http.StatusOK, gin.H{
		"valid":            true,
		"participant_id":   participant.ID,
		"participant_name": participant.User.FullName,
		"track":            string(participant.Track),
		"team":             teamName,
		"payment_verified": true,
	})
}

// VerifyOnlinePayment approves or rejects an uploaded receipt.
func VerifyOnlinePayment(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	paymentID, err := utils.GetPaymentID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	approve := true

	if raw := ctx.Query("approve"); raw != "" {
		parsed, err := strconv.ParseBool(raw)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "approve must be true or false"})
			return
		}

		approve = parsed
	}

	remarks := ctx.Query("remarks")

	payment, err := payments.VerifyOnline(paymentID, approve, currentUser.ID, remarks)

	if err != nil {
		respondError(ctx, err)
		return
	}

	message := "Payment approved successfully"

	if !approve {
		message = "Payment rejected successfully"
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":           message,
		"payment_id":        payment.ID,
		"participant_name":  payment.Participant.User.FullName,
		"participant_email": payment.Participant.User.Email,
		"status":            string(payment.Status),
		"verified_at":       payment.VerifiedAt,
		"remarks":           remarks,
	})
}

// OverridePaymentStatus force-sets a payment status. Unlike the verify
// operations it has no precondition, so it is admin-gated and answers with
// the full transition.
func OverridePaymentStatus(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	paymentID, err := utils.GetPaymentID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body OverrideStatusRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	prior, payment, err := payments.OverrideStatus(paymentID, models.PaymentStatus(body.Status), currentUser.ID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":         "Payment status updated",
		"payment_id":      payment.ID,
		"previous_status": string(prior),
		"new_status":      string(payment.Status),
	})
}

// DeletePayment removes a payment record along with its receipt artifact.
func DeletePayment(ctx *gin.Context) {
	paymentID, err := utils.GetPaymentID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := payments.Delete(paymentID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Payment deleted successfully",
		"payment_id": paymentID,
	})
}

// SearchPayments filters payments by participant email, student ID,
// transaction ID, or status.
func SearchPayments(ctx *gin.Context) {
	status := ctx.Query("status")

	if status != "" && !models.PaymentStatus(status).Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment status"})
		return
	}

	query := db.DB.Model(&models.Payment{}).
		Joins("JOIN participants ON participants.id = payments.participant_id").
		Joins("JOIN users ON users.id = participants.user_id")

	if email := ctx.Query("email"); email != "" {
		query = query.Where("LOWER(users.email) LIKE ?", "%"+strings.ToLower(email)+"%")
	}

	if studentID := ctx.Query("student_id"); studentID != "" {
		query = query.Where("LOWER(participants.student_id) LIKE ?", "%"+strings.ToLower(studentID)+"%")
	}

	if transactionID := ctx.Query("transaction_id"); transactionID != "" {
		query = query.Where("payments.transaction_id = ?", transactionID)
	}

	if status != "" {
		query = query.Where("payments.status = ?", status)
	}

	var records []models.Payment

	err := query.Preload("Participant.User").Preload("Participant.Team").
		Order("payments.id").Limit(100).
		Find(&records).Error

	if err != nil {
		log.Printf("Failed to search payments: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	rows := make([]gin.H, 0, len(records))

	for _, payment := range records {
		var teamName *string

		if payment.Participant.Team != nil {
			teamName = &payment.Participant.Team.Name
		}

		rows = append(rows, gin.H{
			"payment_id":       payment.ID,
			"participant_name": payment.Participant.User.FullName,
			"email":            payment.Participant.User.Email,
			"student_id":       payment.Participant.StudentID,
			"track":            string(payment.Participant.Track),
			"team":             teamName,
			"amount":           payment.Amount,
			"method":           string(payment.Method),
			"status":           string(payment.Status),
			"transaction_id":   payment.TransactionID,
			"verified_at":      payment.VerifiedAt,
			"created_at":       payment.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"payments": rows,
		"total":    len(rows),
	})
}
