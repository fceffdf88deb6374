package router

import (
	"time"

	"academic-scheduler/internal/api/handlers"
	"academic-scheduler/internal/api/middleware"
	"academic-scheduler/internal/auth"
	"academic-scheduler/internal/config"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"
	"academic-scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

// Services gathers everything the HTTP layer calls into.
type Services struct {
	Makeup       serviceInterfaces.MakeupService
	Attendance   serviceInterfaces.AttendanceService
	Schedule     serviceInterfaces.ScheduleService
	Debt         serviceInterfaces.DebtService
	Compensation serviceInterfaces.CompensationService
	Progress     serviceInterfaces.ProgressService
	Auth         serviceInterfaces.AuthService
	Idempotency  *service.IdempotencyService
	HealthChecks map[string]handlers.HealthCheckFunc
}

func NewRouter(cfg *config.Config, services Services) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.Use(gin.Recovery())
	r.Use(middleware.RequestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	r.Use(middleware.IdempotencyMiddleware())

	healthHandler := handlers.NewHealthHandler(cfg.App.Version, services.HealthChecks)
	authHandler := handlers.NewAuthHandler(services.Auth)
	makeupHandler := handlers.NewMakeupHandler(services.Makeup, services.Idempotency)
	studentHandler := handlers.NewStudentHandler(services.Attendance, services.Schedule)
	debtHandler := handlers.NewDebtHandler(services.Debt)
	compensationHandler := handlers.NewCompensationHandler(services.Compensation)
	titleHandler := handlers.NewTitleHandler(services.Progress)

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/ready", healthHandler.ReadinessCheck)
	r.GET("/live", healthHandler.LivenessCheck)

	v1 := r.Group("/api/v1")
	{
		login := v1.Group("/auth")
		{
			login.POST("/login", authHandler.LoginStudent)
			login.POST("/professors/login", authHandler.LoginProfessor)
		}

		api := v1.Group("")
		if cfg.Auth.Enabled {
			api.Use(middleware.JWTAuth(cfg.Auth))
		}

		students := api.Group("/students/:student_id", middleware.RequireRole(auth.RoleStudent))
		{
			students.GET("/absences", studentHandler.ListAbsences)
			students.GET("/absences/:attendance_id/eligible-sessions", makeupHandler.EligibleSessions)
			students.GET("/absence-rate", studentHandler.AbsenceRate)
			students.GET("/schedule", studentHandler.WeeklySchedule)
			students.GET("/debt-modules", debtHandler.ListModules)
			students.GET("/debt-sessions/available/:module_id/:type", debtHandler.AvailableSessions)
			students.POST("/debt-sessions", debtHandler.Register)
		}

		makeup := api.Group("/makeup", middleware.RequireRole(auth.RoleStudent))
		{
			makeup.POST("/enroll", makeupHandler.Enroll)
		}

		professors := api.Group("/professors/:professor_id", middleware.RequireRole(auth.RoleProfessor))
		{
			professors.GET("/sessions", titleHandler.ProfessorSessions)
			professors.POST("/title-progress", titleHandler.SetProgress)
			professors.POST("/title-progress/bulk", titleHandler.BulkSetProgress)
		}

		compensations := api.Group("/compensations", middleware.RequireRole(auth.RoleProfessor))
		{
			compensations.POST("/:request_id/decision", compensationHandler.Decide)
		}

		api.GET("/modules/:module_id/titles/:type", titleHandler.ListTitles)
		api.GET("/sessions/:session_id/titles", titleHandler.SessionTitles)

		titles := api.Group("/titles", middleware.RequireRole(auth.RoleProfessor))
		{
			titles.POST("", titleHandler.CreateTitle)
			titles.PUT("/:id", titleHandler.UpdateTitle)
			titles.DELETE("/:id", titleHandler.DeleteTitle)
		}
	}
	return r
}
