package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/apperr"
	"github.com/devcon-dev/devcon/internal/models"
	"github.com/devcon-dev/devcon/internal/services"
	"github.com/devcon-dev/devcon/internal/utils"
)

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	FullName    string `json:"full_name" binding:"required"`
	University  string `json:"university" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`

	StudentID           string `json:"student_id" binding:"required"`
	CNIC                string `json:"cnic" binding:"required"`
	Track               string `json:"track" binding:"required"`
	TechnicalSkills     string `json:"technical_skills"`
	GithubLink          string `json:"github_link"`
	PortfolioLink       string `json:"portfolio_link"`
	TShirtSize          string `json:"tshirt_size" binding:"required"`
	DietaryRequirements string `json:"dietary_requirements"`
	EmergencyContact    string `json:"emergency_contact" binding:"required"`

	CreateNewTeam bool   `json:"create_new_team"`
	TeamName      string `json:"team_name"`
	TeamCode      string `json:"team_code"`
}

type PaymentMethodRequest struct {
	Email         string `json:"email" binding:"required,email"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

type StatusRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func registrationInput(body RegisterRequest) services.RegistrationInput {
	return services.RegistrationInput{
		Email:       body.Email,
		Password:    body.Password,
		FullName:    body.FullName,
		University:  body.University,
		PhoneNumber: body.PhoneNumber,

		StudentID:           body.StudentID,
		CNIC:                body.CNIC,
		Track:               body.Track,
		TechnicalSkills:     body.TechnicalSkills,
		GithubLink:          body.GithubLink,
		PortfolioLink:       body.PortfolioLink,
		TShirtSize:          body.TShirtSize,
		DietaryRequirements: body.DietaryRequirements,
		EmergencyContact:    body.EmergencyContact,

		CreateNewTeam: body.CreateNewTeam,
		TeamName:      body.TeamName,
		TeamCode:      body.TeamCode,
	}
}

func Register(ctx *gin.Context) {
	var body RegisterRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := registrations.Register(registrationInput(body))

	if err != nil {
		respondError(ctx, err)
		return
	}

	var teamCode *string

	if result.Team != nil {
		teamCode = &result.Team.Code
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":        "Registration successful. Please complete payment to finalize.",
		"user_id":        result.User.ID,
		"participant_id": result.Participant.ID,
		"team_code":      teamCode,
		"next_step":      "Select payment method and complete payment",
	})
}

func SelectPaymentMethod(ctx *gin.Context) {
	var body PaymentMethodRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	participant, err := participantForEmail(body.Email)

	if err != nil {
		respondError(ctx, err)
		return
	}

	method := models.PaymentMethod(body.PaymentMethod)

	payment, err := payments.Create(db.DB, participant.ID, participant.TeamID, cfg.RegistrationFee, method, "", "")

	if err != nil {
		respondError(ctx, err)
		return
	}

	message := "Online payment selected. Please upload your payment receipt."

	if method == models.MethodCash {
		message = "Cash payment selected. Please visit a Devcon Ambassador on campus to complete payment."
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":        message,
		"payment_id":     payment.ID,
		"payment_method": string(method),
		"amount":         payment.Amount,
	})
}

func UploadPublicReceipt(ctx *gin.Context) {
	email := ctx.PostForm("email")
	transactionID := ctx.PostForm("transaction_id")

	if email == "" || transactionID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "email and transaction_id are required"})
		return
	}

	file, err := ctx.FormFile("receipt")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Receipt file is required"})
		return
	}

	participant, err := participantForEmail(email)

	if err != nil {
		respondError(ctx, err)
		return
	}

	if participant.Payment == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Payment record not found. Please select payment method first."})
		return
	}

	if err := utils.ValidateUpload(file, cfg.MaxFileSize, cfg.AllowedExtensions); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path, err := utils.SaveUpload(ctx, file, cfg.UploadDir)

	if err != nil {
		log.Printf("Failed to save receipt: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store receipt"})
		return
	}

	if _, err := payments.AttachReceipt(participant.Payment.ID, transactionID, path); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Payment receipt uploaded successfully. Awaiting verification.",
		"status":  "pending_verification",
	})
}

func CheckStatus(ctx *gin.Context) {
	var body StatusRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))

	var user models.User

	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "No registration found for this email"})
			return
		}
		log.Printf("Database error when fetching user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var participant models.Participant

	err := db.DB.Preload("Team").Preload("Payment").Where("user_id = ?", user.ID).First(&participant).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusOK, gin.H{
				"status":  "user_created",
				"message": "User account created but participant profile incomplete",
			})
			return
		}
		log.Printf("Database error when fetching participant: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	paymentStatus := "no_payment"

	var paymentMethod *string

	if participant.Payment != nil {
		paymentStatus = string(participant.Payment.Status)
		method := string(participant.Payment.Method)
		paymentMethod = &method
	}

	var teamInfo gin.H

	if participant.Team != nil {
		teamInfo = gin.H{
			"name":    participant.Team.Name,
			"code":    participant.Team.Code,
			"is_lead": participant.IsTeamLead,
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"registration_status": "complete",
		"payment_status":      paymentStatus,
		"payment_method":      paymentMethod,
		"track":               string(participant.Track),
		"team":                teamInfo,
		"can_enter_event":     paymentStatus == string(models.StatusVerified),
	})
}

func ListTracks(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"tracks": []gin.H{
			{
				"id":          "programming",
				"name":        "Programming",
				"description": "Build real solutions under pressure. Code, debug, and ship functional software within strict time limits.",
			},
			{
				"id":          "ideathon",
				"name":        "Ideathon",
				"description": "Where business meets technology. Pitch your innovative startup ideas to a panel of industry experts.",
			},
			{
				"id":          "competitive_programming",
				"name":        "Competitive Programming",
				"description": "Think fast, code faster. Solve algorithmic challenges where efficiency and accuracy decide the leaderboard.",
			},
			{
				"id":          "gaming",
				"name":        "Gaming",
				"description": "Skill. Strategy. Victory. Compete in high-stakes matches and fight your way to the finals.",
			},
			{
				"id":          "socialite",
				"name":        "Socialite",
				"description": "Connect beyond code. Network, collaborate, and experience Devcon's social side.",
			},
		},
	})
}

func PublicStats(ctx *gin.Context) {
	var totalRegistrations int64

	if err := db.DB.Model(&models.Participant{}).Count(&totalRegistrations).Error; err != nil {
		log.Printf("Failed to count participants: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var verifiedPayments int64

	db.DB.Model(&models.Payment{}).Where("status = ?", models.StatusVerified).Count(&verifiedPayments)

	var totalTeams int64

	db.DB.Model(&models.Team{}).Count(&totalTeams)

	var trackRows []struct {
		Track string
		Count int64
	}

	db.DB.Model(&models.Participant{}).
		Select("track, COUNT(*) AS count").
		Group("track").
		Scan(&trackRows)

	trackStats := make(gin.H, len(trackRows))

	for _, row := range trackRows {
		trackStats[row.Track] = row.Count
	}

	var uniRows []struct {
		Name  string
		Count int64
	}

	db.DB.Model(&models.User{}).
		Select("users.university AS name, COUNT(users.id) AS count").
		Joins("JOIN participants ON participants.user_id = users.id").
		Group("users.university").
		Order("count DESC").
		Limit(5).
		Scan(&uniRows)

	topUniversities := make([]gin.H, 0, len(uniRows))

	for _, row := range uniRows {
		topUniversities = append(topUniversities, gin.H{"name": row.Name, "count": row.Count})
	}

	completionRate := 0.0

	if totalRegistrations > 0 {
		completionRate = math.Round(float64(verifiedPayments)/float64(totalRegistrations)*10000) / 100
	}

	ctx.JSON(http.StatusOK, gin.H{
		"total_registrations":          totalRegistrations,
		"verified_payments":            verifiedPayments,
		"total_teams":                  totalTeams,
		"tracks":                       trackStats,
		"top_universities":             topUniversities,
		"registration_completion_rate": completionRate,
	})
}

// participantForEmail resolves the participant profile behind a public
// email-keyed request.
func participantForEmail(email string) (*models.Participant, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User

	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}

	return participantForUser(user.ID)
}
