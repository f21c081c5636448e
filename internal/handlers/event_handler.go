package handlers

import (
	"strconv"
	"time"

	"eventfest-backend/internal/middleware"
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/repositories"
	"eventfest-backend/internal/services"
	"eventfest-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FormFieldRequest struct {
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=text number email select"`
	Required bool   `json:"required"`
}

type CreateEventRequest struct {
	Name                 string             `json:"name" validate:"required"`
	Description          string             `json:"description"`
	Tags                 []string           `json:"tags"`
	EventType            string             `json:"event_type" validate:"omitempty,oneof=normal merchandise"`
	Eligibility          string             `json:"eligibility" validate:"omitempty,oneof=iiit non-iiit all"`
	Fee                  float64            `json:"fee" validate:"gte=0"`
	RegistrationDeadline string             `json:"registration_deadline"`
	StartDate            string             `json:"start_date" validate:"required"`
	EndDate              string             `json:"end_date" validate:"required"`
	RegistrationLimit    *int               `json:"registration_limit" validate:"omitempty,gt=0"`
	StockQuantity        int                `json:"stock_quantity" validate:"gte=0"`
	PurchaseLimit        int                `json:"purchase_limit" validate:"gte=0"`
	Variants             []string           `json:"variants"`
	CustomFormFields     []FormFieldRequest `json:"custom_form_fields" validate:"dive"`
}

type UpdateEventRequest struct {
	Name                 *string             `json:"name"`
	Description          *string             `json:"description"`
	Tags                 *[]string           `json:"tags"`
	Eligibility          *string             `json:"eligibility" validate:"omitempty,oneof=iiit non-iiit all"`
	Fee                  *float64            `json:"fee" validate:"omitempty,gte=0"`
	RegistrationDeadline *string             `json:"registration_deadline"`
	StartDate            *string             `json:"start_date"`
	EndDate              *string             `json:"end_date"`
	RegistrationLimit    *int                `json:"registration_limit" validate:"omitempty,gt=0"`
	ClearLimit           bool                `json:"clear_limit"`
	StockQuantity        *int                `json:"stock_quantity" validate:"omitempty,gte=0"`
	PurchaseLimit        *int                `json:"purchase_limit" validate:"omitempty,gt=0"`
	Variants             *[]string           `json:"variants"`
	CustomFormFields     *[]FormFieldRequest `json:"custom_form_fields" validate:"omitempty,dive"`
	Status               *string             `json:"status" validate:"omitempty,oneof=draft published ongoing completed cancelled"`
}

func (h *Handler) CreateEvent(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var req CreateEventRequest
	if err := middleware.ParseAndValidate(c, &req); err != nil {
		return err
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return utils.Error(c, "Invalid start_date format", fiber.StatusBadRequest)
	}
	endDate, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return utils.Error(c, "Invalid end_date format", fiber.StatusBadRequest)
	}

	var deadline *time.Time
	if req.RegistrationDeadline != "" {
		d, err := time.Parse(time.RFC3339, req.RegistrationDeadline)
		if err != nil {
			return utils.Error(c, "Invalid registration_deadline format", fiber.StatusBadRequest)
		}
		deadline = &d
	}

	fields := make(models.FormFields, 0, len(req.CustomFormFields))
	for _, f := range req.CustomFormFields {
		fields = append(fields, models.FormField{Name: f.Name, Type: f.Type, Required: f.Required})
	}

	event, err := h.eventSvc.Create(actor, services.CreateEventRequest{
		Name:                 req.Name,
		Description:          req.Description,
		Tags:                 req.Tags,
		EventType:            models.EventType(req.EventType),
		Eligibility:          models.Eligibility(req.Eligibility),
		Fee:                  req.Fee,
		RegistrationDeadline: deadline,
		StartDate:            startDate,
		EndDate:              endDate,
		RegistrationLimit:    req.RegistrationLimit,
		StockQuantity:        req.StockQuantity,
		PurchaseLimit:        req.PurchaseLimit,
		Variants:             req.Variants,
		CustomFormFields:     fields,
	})
	if err != nil {
		return err
	}

	return utils.Success(c, event, "Event created successfully", fiber.StatusCreated)
}

func (h *Handler) ListEvents(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	filters := &repositories.EventFilters{Search: c.Query("search")}
	if s := c.Query("status"); s != "" {
		status := models.EventStatus(s)
		filters.Status = &status
	}
	if t := c.Query("type"); t != "" {
		eventType := models.EventType(t)
		filters.EventType = &eventType
	}

	events, total, totalPages, err := h.eventSvc.List(page, pageSize, filters)
	if err != nil {
		return err
	}

	meta := &utils.Meta{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPages,
	}
	return utils.SuccessWithMeta(c, events, meta, "Events retrieved successfully")
}

func (h *Handler) GetEvent(c *fiber.Ctx) error {
	eventID := c.Params("id")
	if _, err := uuid.Parse(eventID); err != nil {
		return utils.Error(c, "Invalid event ID", fiber.StatusBadRequest)
	}

	// Drafts are only visible to their owner, so pick up the identity when
	// a token is present.
	actor, _ := middleware.CurrentUser(c)

	event, err := h.eventSvc.Get(eventID, actor)
	if err != nil {
		return err
	}
	return utils.Success(c, event, "Event retrieved successfully")
}

func (h *Handler) ListMyEvents(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	events, err := h.eventSvc.ListMine(actor)
	if err != nil {
		return err
	}
	return utils.Success(c, events, "Events retrieved successfully")
}

func (h *Handler) UpdateEvent(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	eventID := c.Params("id")
	if _, err := uuid.Parse(eventID); err != nil {
		return utils.Error(c, "Invalid event ID", fiber.StatusBadRequest)
	}

	var req UpdateEventRequest
	if err := middleware.ParseAndValidate(c, &req); err != nil {
		return err
	}

	patch := services.UpdateEventRequest{
		Name:              req.Name,
		Description:       req.Description,
		Tags:              req.Tags,
		Fee:               req.Fee,
		RegistrationLimit: req.RegistrationLimit,
		ClearLimit:        req.ClearLimit,
		StockQuantity:     req.StockQuantity,
		PurchaseLimit:     req.PurchaseLimit,
		Variants:          req.Variants,
	}
	if req.Eligibility != nil {
		e := models.Eligibility(*req.Eligibility)
		patch.Eligibility = &e
	}
	if req.Status != nil {
		s := models.EventStatus(*req.Status)
		patch.Status = &s
	}
	if req.RegistrationDeadline != nil {
		d, err := time.Parse(time.RFC3339, *req.RegistrationDeadline)
		if err != nil {
			return utils.Error(c, "Invalid registration_deadline format", fiber.StatusBadRequest)
		}
		patch.RegistrationDeadline = &d
	}
	if req.StartDate != nil {
		d, err := time.Parse(time.RFC3339, *req.StartDate)
		if err != nil {
			return utils.Error(c, "Invalid start_date format", fiber.StatusBadRequest)
		}
		patch.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			return utils.Error(c, "Invalid end_date format", fiber.StatusBadRequest)
		}
		patch.EndDate = &d
	}
	if req.CustomFormFields != nil {
		fields := make(models.FormFields, 0, len(*req.CustomFormFields))
		for _, f := range *req.CustomFormFields {
			fields = append(fields, models.FormField{Name: f.Name, Type: f.Type, Required: f.Required})
		}
		patch.CustomFormFields = &fields
	}

	event, err := h.eventSvc.Update(eventID, patch, actor)
	if err != nil {
		return err
	}
	return utils.Success(c, event, "Event updated successfully")
}

func (h *Handler) PublishEvent(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	eventID := c.Params("id")
	if _, err := uuid.Parse(eventID); err != nil {
		return utils.Error(c, "Invalid event ID", fiber.StatusBadRequest)
	}

	event, err := h.eventSvc.Publish(eventID, actor)
	if err != nil {
		return err
	}
	return utils.Success(c, event, "Event published successfully")
}

func (h *Handler) DeleteEvent(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	eventID := c.Params("id")
	if _, err := uuid.Parse(eventID); err != nil {
		return utils.Error(c, "Invalid event ID", fiber.StatusBadRequest)
	}

	if err := h.eventSvc.Delete(eventID, actor); err != nil {
		return err
	}
	return utils.Success(c, nil, "Event deleted successfully")
}

func (h *Handler) PurgeOrganizer(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	organizerID := c.Params("id")
	if _, err := uuid.Parse(organizerID); err != nil {
		return utils.Error(c, "Invalid organizer ID", fiber.StatusBadRequest)
	}

	if err := h.cascadeSvc.DeleteOrganizer(actor, organizerID); err != nil {
		return err
	}
	return utils.Success(c, nil, "Organizer and owned events removed")
}
