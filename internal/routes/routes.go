package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	"github.com/BruksfildServices01/club-calendar/internal/auth"
	"github.com/BruksfildServices01/club-calendar/internal/config"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/handlers"
	"github.com/BruksfildServices01/club-calendar/internal/middleware"
	"github.com/BruksfildServices01/club-calendar/internal/ratelimit"
	"github.com/BruksfildServices01/club-calendar/internal/usecase/account"
	ucCalendar "github.com/BruksfildServices01/club-calendar/internal/usecase/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/usecase/calsync"
	"github.com/BruksfildServices01/club-calendar/internal/validators"
)

// Deps are the process singletons the HTTP surface is built on.
type Deps struct {
	Config *config.Config
	Log    *slog.Logger

	Repo     domain.Repository
	Conns    domain.SyncRepository
	Provider domain.CalendarProvider
	Meetings domain.MeetingLinkProvisioner
	Notifier domain.BookingNotifier

	Audit       *audit.Dispatcher
	AuditReader audit.Reader
	Cleanup     *ucCalendar.RemoteCleanup
	Reconciler  *calsync.Reconciler
	Limiter     ratelimit.Limiter
	Tokens      *auth.Tokens
}

func RegisterRoutes(r *gin.Engine, d Deps) {

	// ======================================================
	// MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(
		middleware.Recovery(d.Log),
		middleware.RequestLogger(d.Log),
		middleware.CORSMiddleware(d.Config.FrontendURL),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	// ======================================================
	// USE CASES - ACCOUNT
	// ======================================================
	registerUC := account.NewRegister(d.Repo, d.Audit)
	if d.Config.EmailDomainCheck {
		registerUC.WithDomainCheck(validators.IsEmailDomainValid)
	}
	loginUC := account.NewLogin(d.Repo)
	settingsUC := account.NewUpdateSettings(d.Repo, d.Audit)

	// ======================================================
	// USE CASES - CALENDAR
	// ======================================================
	createEventUC := ucCalendar.NewCreateEvent(d.Repo, d.Audit)
	updateEventUC := ucCalendar.NewUpdateEvent(d.Repo, d.Audit)
	deleteEventUC := ucCalendar.NewDeleteEvent(d.Repo, d.Cleanup, d.Audit)
	listEventsUC := ucCalendar.NewListEvents(d.Repo)

	getAvailabilityUC := ucCalendar.NewGetAvailability(d.Repo)
	saveAvailabilityUC := ucCalendar.NewSaveAvailability(d.Repo, d.Audit)

	computeSlotsUC := ucCalendar.NewComputeSlots(d.Repo)
	createBookingUC := ucCalendar.NewCreateBooking(
		d.Repo,
		d.Conns,
		d.Meetings,
		d.Cleanup,
		d.Notifier,
		d.Audit,
		d.Log,
		ucCalendar.BookingOptions{CreateEvent: d.Config.BookingCreateEvent},
	)
	transitionBookingUC := ucCalendar.NewTransitionBooking(d.Repo, d.Cleanup, d.Audit, d.Log)
	listBookingsUC := ucCalendar.NewListBookings(d.Repo)

	// ======================================================
	// USE CASES - GOOGLE
	// ======================================================
	statusUC := calsync.NewStatus(d.Conns, d.Provider)
	connectUC := calsync.NewConnect(d.Provider)
	completeConnectUC := calsync.NewCompleteConnect(d.Provider, d.Audit)
	disconnectUC := calsync.NewDisconnect(d.Provider, d.Audit)

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(registerUC, loginUC, d.Tokens, d.Log)
	meHandler := handlers.NewMeHandler(d.Repo, settingsUC, d.Log)

	calendarHandler := handlers.NewCalendarHandler(
		d.Repo,
		createEventUC,
		updateEventUC,
		deleteEventUC,
		listEventsUC,
		getAvailabilityUC,
		saveAvailabilityUC,
		listBookingsUC,
		transitionBookingUC,
		d.Log,
	)

	googleHandler := handlers.NewGoogleHandler(
		statusUC,
		connectUC,
		completeConnectUC,
		disconnectUC,
		d.Reconciler,
		d.Tokens,
		d.Config.FrontendURL,
		d.Log,
	)

	publicHandler := handlers.NewPublicHandler(d.Repo, computeSlotsUC, createBookingUC, d.Log)
	auditLogsHandler := handlers.NewAuditLogsHandler(d.AuditReader, d.Log)

	// ======================================================
	// PUBLIC
	// ======================================================
	public := r.Group("/public")
	public.Use(middleware.RateLimit(d.Limiter, d.Log))
	{
		public.GET("/:slug/slots", publicHandler.Slots)
		public.POST("/:slug/bookings", publicHandler.CreateBooking)
	}

	// ------------------------------
	// AUTH
	// ------------------------------
	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimit(d.Limiter, d.Log))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Google redirects the browser here without a bearer token.
	r.GET("/calendar/google/callback", googleHandler.Callback)

	// ======================================================
	// PRIVATE
	// ======================================================
	secured := r.Group("/")
	secured.Use(middleware.AuthMiddleware(d.Tokens))
	{
		secured.GET("/me", meHandler.GetMe)
		secured.PATCH("/me", meHandler.UpdateSettings)
		secured.GET("/me/audit-logs", auditLogsHandler.List)

		cal := secured.Group("/calendar")

		cal.GET("/events", calendarHandler.ListEvents)
		cal.GET("/events.ics", calendarHandler.Feed)
		cal.POST("/events", calendarHandler.CreateEvent)
		cal.PUT("/events/:id", calendarHandler.UpdateEvent)
		cal.DELETE("/events/:id", calendarHandler.DeleteEvent)

		cal.GET("/availability", calendarHandler.GetAvailability)
		cal.POST("/availability", calendarHandler.SaveAvailability)

		cal.GET("/bookings", calendarHandler.ListBookings)
		cal.PUT("/bookings/:id/stato", calendarHandler.TransitionBooking)

		cal.GET("/google/status", googleHandler.Status)
		cal.POST("/google/connect", googleHandler.Connect)
		cal.POST("/google/sync", googleHandler.Sync)
		cal.POST("/google/disconnect", googleHandler.Disconnect)
	}
}
