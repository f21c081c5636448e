package handlers

import (
	"errors"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/config"
	"eventfest-backend/internal/middleware"
	"eventfest-backend/internal/services"
	"eventfest-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	eventSvc   *services.EventService
	regSvc     *services.RegistrationService
	ticketSvc  *services.TicketService
	cascadeSvc *services.CascadeService
	cfg        *config.Config
}

func NewHandler(
	eventSvc *services.EventService,
	regSvc *services.RegistrationService,
	ticketSvc *services.TicketService,
	cascadeSvc *services.CascadeService,
	cfg *config.Config,
) *Handler {
	return &Handler{
		eventSvc:   eventSvc,
		regSvc:     regSvc,
		ticketSvc:  ticketSvc,
		cascadeSvc: cascadeSvc,
		cfg:        cfg,
	}
}

func (h *Handler) RegisterRoutes(router fiber.Router, cfg *config.Config) {
	// Public event browsing. OptionalJWT picks up the caller's identity when
	// a token is sent so draft owners can fetch their own drafts.
	events := router.Group("/events", middleware.OptionalJWT(cfg))
	{
		events.Get("/", h.ListEvents)
		events.Get("/:id", h.GetEvent)
	}

	// Everything below requires a verified identity.
	protected := router.Group("", middleware.JWTMiddleware(cfg))
	{
		// Event management. The role guard sits on each route, not the group:
		// the registration route below shares the /events prefix but is
		// participant-only.
		manage := protected.Group("/events")
		{
			manage.Post("/", middleware.OrganizerOrAdmin, h.CreateEvent)
			manage.Put("/:id", middleware.OrganizerOrAdmin, h.UpdateEvent)
			manage.Delete("/:id", middleware.OrganizerOrAdmin, h.DeleteEvent)
			manage.Post("/:id/publish", middleware.OrganizerOrAdmin, h.PublishEvent)
			manage.Get("/:id/registrations", middleware.OrganizerOrAdmin, h.ListEventRegistrations)
			manage.Delete("/:id/registrations", middleware.OrganizerOrAdmin, h.DeleteEventRegistrations)
			manage.Post("/:id/scan", middleware.OrganizerOrAdmin, h.ScanTicket)

			manage.Post("/:id/registrations", middleware.ParticipantOnly, h.Register)
		}
		protected.Get("/my-events", middleware.OrganizerOrAdmin, h.ListMyEvents)
		registrations := protected.Group("/registrations")
		{
			registrations.Get("/", middleware.ParticipantOnly, h.ListMyRegistrations)
			registrations.Get("/:id", h.GetRegistration)
			registrations.Delete("/:id", middleware.ParticipantOnly, h.CancelRegistration)
			registrations.Post("/:id/payment-proof", middleware.ParticipantOnly, h.UploadPaymentProof)
			registrations.Post("/:id/resubmit-payment", middleware.ParticipantOnly, h.ResubmitPayment)
		registrations.Post("/:id/ticket", h.EnsureTicket)
			registrations.Post("/:id/verify-payment", middleware.OrganizerOrAdmin, h.VerifyPayment)
			registrations.Post("/:id/attendance", middleware.OrganizerOrAdmin, h.MarkAttendance)
			registrations.Post("/:id/complete", middleware.OrganizerOrAdmin, h.CompleteRegistration)
			registrations.Delete("/:id/purge", middleware.OrganizerOrAdmin, h.DeleteRegistration)
		}

		// Tickets
		tickets := protected.Group("/tickets")
		{
			tickets.Get("/", middleware.ParticipantOnly, h.ListMyTickets)
			tickets.Get("/:ticket_id", h.GetTicket)
		}

		// Admin-only override
		admin := protected.Group("/admin", middleware.AdminOnly)
		{
			admin.Delete("/organizers/:id", h.PurgeOrganizer)
		}
	}
}

// ErrorHandler translates typed service errors into the response envelope.
// Untyped errors are treated as internal and logged.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		status := apperrors.HTTPStatus(appErr.Code)
		if status >= 500 {
			logrus.WithError(err).Error("internal error")
		}
		return utils.ErrorWithCode(c, appErr.Message, string(appErr.Code), status)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return utils.Error(c, fiberErr.Message, fiberErr.Code)
	}

	logrus.WithError(err).Error("unhandled error")
	return utils.Error(c, "Internal Server Error", fiber.StatusInternalServerError)
}
