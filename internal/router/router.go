package router

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/handler"
	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/middleware"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth            *handler.AuthHandler
	CandidatePortal *handler.CandidatePortalHandler
	Candidate       *handler.CandidateHandler
	Question        *handler.QuestionHandler
	Media           *handler.MediaHandler
	GuideAudio      *handler.GuideAudioHandler
	Grading         *handler.GradingHandler
	Score           *handler.ScoreHandler
	WS              *handler.WSHandler
	AdminUser       *handler.AdminUserHandler
	AdminRole       *handler.AdminRoleHandler
	Dashboard       *handler.DashboardHandler
	Monitor         *handler.MonitorHandler
	System          *handler.SystemHandler
}

var perm = middleware.RequirePermission

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	if cfg.MetricsEnabled {
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	router.Use(middleware.Brotli())

	// Recordings and question media on local disk. Also covers a MinIO
	// deployment that fell back to disk at startup.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	uploadsGroup.Static("/", cfg.UploadDir)

	// Default guide audio tracks, unless they live on a CDN.
	if strings.HasPrefix(cfg.GuideAudioBase, "/") {
		audioGroup := router.Group(cfg.GuideAudioBase)
		audioGroup.Use(middleware.CacheControl(86400))
		audioGroup.Static("/", cfg.GuideAudioDir)
	}

	router.GET("/health", handlers.System.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMin, time.Minute)

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/candidate/login", authLimiter.Middleware(), handlers.Auth.CandidateLogin)
		auth.POST("/admin/login", authLimiter.Middleware(), handlers.Auth.AdminLogin)

		auth.POST("/candidate/logout",
			middleware.RequireCandidateJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.CandidateLogout,
		)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Candidate Group (JWT + Single Device) ──────────────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
	)
	{
		candidateAPI.GET("/me", handlers.CandidatePortal.GetProfile)
		candidateAPI.GET("/remaining-attempts", handlers.CandidatePortal.GetRemainingAttempts)
		candidateAPI.GET("/guide-audio", handlers.CandidatePortal.GetGuideAudio)
		candidateAPI.POST("/attempts", handlers.CandidatePortal.StartAttempt)
		candidateAPI.GET("/attempts/:attempt_id/questions", handlers.CandidatePortal.GetAttemptQuestions)
		candidateAPI.POST("/attempts/:attempt_id/recordings", handlers.CandidatePortal.SubmitRecording)
		candidateAPI.POST("/attempts/:attempt_id/complete", handlers.CandidatePortal.CompleteAttempt)
	}

	// ─── 3. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireCandidateWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/candidate/attempts/:attempt_id/stream", handlers.WS.ExamStream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.POST("/media/upload", perm(model.PermissionMediaUpload), handlers.Media.UploadMedia)

		// Question bank
		questions := adminAPI.Group("/questions")
		{
			questions.GET("", perm(model.PermissionQuestionsRead), handlers.Question.ListQuestions)
			questions.GET("/coverage", perm(model.PermissionQuestionsRead), handlers.Question.GetCoverage)
			questions.GET("/:id", perm(model.PermissionQuestionsRead), handlers.Question.GetQuestion)
			questions.POST("", perm(model.PermissionQuestionsWrite), handlers.Question.CreateQuestion)
			questions.POST("/sets", perm(model.PermissionQuestionsWrite), handlers.Question.CreateQuestionSet)
			questions.PUT("/:id", perm(model.PermissionQuestionsWrite), handlers.Question.UpdateQuestion)
			questions.DELETE("/:id", perm(model.PermissionQuestionsWrite), handlers.Question.DeleteQuestion)
		}

		// Guide audio
		guides := adminAPI.Group("/guide-audio")
		{
			guides.GET("", perm(model.PermissionAudioRead), handlers.GuideAudio.ListGuideAudio)
			guides.PUT("/:key", perm(model.PermissionAudioWrite), handlers.GuideAudio.SetGuideAudio)
			guides.POST("/:key/upload", perm(model.PermissionAudioWrite), handlers.GuideAudio.UploadGuideAudio)
			guides.DELETE("/:key", perm(model.PermissionAudioWrite), handlers.GuideAudio.ResetGuideAudio)
		}

		// Candidates
		candidates := adminAPI.Group("/candidates")
		{
			candidates.GET("", perm(model.PermissionCandidatesRead), handlers.Candidate.ListCandidates)
			candidates.GET("/export", perm(model.PermissionCandidatesRead), handlers.Candidate.ExportCandidates)
			candidates.POST("", perm(model.PermissionCandidatesWrite), handlers.Candidate.CreateCandidate)
			candidates.POST("/bulk", perm(model.PermissionCandidatesWrite), handlers.Candidate.BulkCreateCandidates)
			candidates.POST("/import", perm(model.PermissionCandidatesWrite), handlers.Candidate.ImportCandidates)
			candidates.POST("/reset", perm(model.PermissionCandidatesWrite), handlers.Candidate.ResetAttempts)
			candidates.DELETE("/:id", perm(model.PermissionCandidatesWrite), handlers.Candidate.DeleteCandidate)
			candidates.POST("/:id/reset-session", perm(model.PermissionCandidatesResetSession), handlers.Candidate.ResetSession)
		}

		// Grading
		grading := adminAPI.Group("/grading")
		{
			grading.GET("/attempts", perm(model.PermissionGradingRead), handlers.Grading.ListAttempts)
			grading.GET("/attempts/:attempt_id", perm(model.PermissionGradingRead), handlers.Grading.GetAttempt)
			grading.GET("/attempts/:attempt_id/timeline", perm(model.PermissionGradingRead), handlers.Grading.GetTimeline)
		}

		// Scores
		scores := adminAPI.Group("/scores")
		{
			scores.GET("", perm(model.PermissionScoresRead), handlers.Score.ListScores)
			scores.GET("/:id/report", perm(model.PermissionScoresRead), handlers.Score.GetReport)
			scores.GET("/:id/pdf", perm(model.PermissionScoresRead), handlers.Score.DownloadReport)
			scores.POST("", perm(model.PermissionScoresWrite), handlers.Score.UploadScores)
			scores.POST("/import", perm(model.PermissionScoresWrite), handlers.Score.ImportScores)
		}

		// Admin user management
		admins := adminAPI.Group("/admins")
		{
			admins.GET("", perm(model.PermissionAdminsRead), handlers.AdminUser.ListAdmins)
			admins.POST("", perm(model.PermissionAdminsWrite), handlers.AdminUser.CreateAdmin)
			admins.PUT("/:id", perm(model.PermissionAdminsWrite), handlers.AdminUser.UpdateAdmin)
			admins.DELETE("/:id", perm(model.PermissionAdminsWrite), handlers.AdminUser.DeleteAdmin)
		}

		// Roles
		roles := adminAPI.Group("/roles")
		{
			roles.GET("", middleware.RequireAnyPermission(model.PermissionRolesRead, model.PermissionAdminsRead), handlers.AdminRole.ListRoles)
			roles.GET("/permissions", perm(model.PermissionRolesRead), handlers.AdminRole.ListPermissions)
			roles.GET("/:id", perm(model.PermissionRolesRead), handlers.AdminRole.GetRole)
			roles.POST("", perm(model.PermissionRolesWrite), handlers.AdminRole.CreateRole)
			roles.PUT("/:id", perm(model.PermissionRolesWrite), handlers.AdminRole.UpdateRole)
			roles.DELETE("/:id", perm(model.PermissionRolesWrite), handlers.AdminRole.DeleteRole)
		}

		// Live monitor
		adminAPI.GET("/monitor/live", perm(model.PermissionMonitorRead), handlers.Monitor.ListLive)
		adminAPI.GET("/monitor/stream", perm(model.PermissionMonitorRead), handlers.Monitor.MonitorSSE)

		// Open to all admins
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
