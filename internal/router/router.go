package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devcon-dev/devcon/internal/config"
	"github.com/devcon-dev/devcon/internal/handlers"
	"github.com/devcon-dev/devcon/internal/middleware"
	"github.com/devcon-dev/devcon/internal/roles"
)

func NewRouter(cfg config.Config) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		v1 := api.Group("/v1")
		{
			public := v1.Group("/public")
			{
				public.POST("/register", handlers.Register)
				public.POST("/payment-method", handlers.SelectPaymentMethod)
				public.POST("/receipt", handlers.UploadPublicReceipt)
				public.POST("/status", handlers.CheckStatus)
				public.GET("/tracks", handlers.ListTracks)
				public.GET("/stats", handlers.PublicStats)
			}

			auth := v1.Group("/auth")
			{
				auth.POST("/login", handlers.Login)
				auth.GET("/me", middleware.RequireAuth(), handlers.Me)
			}

			payments := v1.Group("/payments", middleware.RequireAuth(), middleware.RequireCapability(roles.ActAsParticipant))
			{
				payments.POST("/receipt", handlers.UploadReceipt)
				payments.POST("/cash", handlers.SelectCash)
				payments.GET("/my", handlers.MyPayment)
				payments.GET("/team/:team_id", handlers.TeamPaymentStatus)
			}

			ambassador := v1.Group("/ambassador", middleware.RequireAuth(), middleware.RequireCapability(roles.ActAsAmbassador))
			{
				ambassador.POST("/search", handlers.SearchParticipants)
				ambassador.GET("/participants/:participant_id", handlers.GetParticipant)
				ambassador.POST("/verify-cash/:participant_id", handlers.VerifyCash)
				ambassador.GET("/pending-cash", handlers.PendingCashPayments)
				ambassador.GET("/my-verifications", handlers.MyVerifications)
				ambassador.GET("/stats", handlers.AmbassadorStats)
			}

			registration := v1.Group("/registration", middleware.RequireAuth(), middleware.RequireCapability(roles.ActAsRegistrationTeam))
			{
				registration.GET("/dashboard", handlers.RegistrationDashboard)
				registration.POST("/register", handlers.RegisterManual)
				registration.GET("/registrations", handlers.ListRegistrations)
				registration.GET("/payments", handlers.ListPayments)
				registration.POST("/payments/:payment_id/proof", handlers.UploadPaymentProof)
				registration.POST("/payments/flag", handlers.FlagPayment)
			}

			admin := v1.Group("/admin", middleware.RequireAuth(), middleware.RequireCapability(roles.ActAsAdmin))
			{
				admin.GET("/dashboard", handlers.AdminDashboard)
				admin.GET("/participants", handlers.ListParticipants)
				admin.GET("/users", handlers.ListUsers)
				admin.POST("/users", handlers.CreateStaffUser)
				admin.PUT("/users/role", handlers.UpdateUserRole)
				admin.GET("/export/participants", handlers.ExportParticipants)
				admin.POST("/check-in", handlers.AdminCheckIn)
				admin.POST("/verify-qr", handlers.VerifyQR)
				admin.GET("/payments/search", handlers.SearchPayments)
				admin.POST("/payments/:payment_id/verify-online", handlers.VerifyOnlinePayment)
				admin.PATCH("/payments/:payment_id/status", handlers.OverridePaymentStatus)
				admin.DELETE("/payments/:payment_id", handlers.DeletePayment)
			}
		}
	}

	return r
}
