package handlers

import (
	"path/filepath"
	"strconv"

	"eventfest-backend/internal/middleware"
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/services"
	"eventfest-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RegisterEventRequest struct {
	FormAnswers models.FormAnswers `json:"form_answers"`
	Merchandise *struct {
		Variants map[string]string `json:"variants"`
		Quantity int               `json:"quantity" validate:"omitempty,gte=1"`
	} `json:"merchandise"`
}

type VerifyPaymentRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	eventID := c.Params("id")
	if _, err := uuid.Parse(eventID); err != nil {
		return utils.Error(c, "Invalid event ID", fiber.StatusBadRequest)
	}

	var req RegisterEventRequest
	if err := middleware.ParseAndValidate(c, &req); err != nil {
		return err
	}

	svcReq := services.RegisterRequest{FormAnswers: req.FormAnswers}
	if req.Merchandise != nil {
		svcReq.Merchandise = &models.MerchandiseSelection{
			Variants: req.Merchandise.Variants,
			Quantity: req.Merchandise.Quantity,
		}
	}

	result, err := h.regSvc.Register(actor, eventID, svcReq)
	if err != nil {
		return err
	}
	return utils.Success(c, result, "Registration submitted successfully", fiber.StatusCreated)
}

func (h *Handler) ListMyRegistrations(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	regs, total, totalPages, err := h.regSvc.ListMine(actor, page, pageSize)
	if err != nil {
		return err
	}
	meta := &utils.Meta{Page: page, PageSize: pageSize, Total: total, TotalPage: totalPages}
	return utils.SuccessWithMeta(c, regs, meta, "Registrations retrieved successfully")
}

func (h *Handler) GetRegistration(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	regID := c.Params("id")
	if _, err := uuid.Parse(regID); err != nil {
		return utils.Error(c, "Invalid registration ID", fiber.StatusBadRequest)
	}

	reg, err := h.regSvc.Get(actor, regID)
	if err != nil {
		return err
	}
	return utils.Success(c, reg, "Registration retrieved successfully")
}

func (h *Handler) ListEventRegistrations(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	eventID := c.Params("id")
	if _, err := uuid.Parse(eventID); err != nil {
		return utils.Error(c, "Invalid event ID", fiber.StatusBadRequest)
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	regs, total, totalPages, err := h.regSvc.ListByEvent(actor, eventID, page, pageSize)
	if err != nil {
		return err
	}
	meta := &utils.Meta{Page: page, PageSize: pageSize, Total: total, TotalPage: totalPages}
	return utils.SuccessWithMeta(c, regs, meta, "Registrations retrieved successfully")
}

func (h *Handler) CancelRegistration(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	regID := c.Params("id")
	if _, err := uuid.Parse(regID); err != nil {
		return utils.Error(c, "Invalid registration ID", fiber.StatusBadRequest)
	}

	reg, err := h.regSvc.Cancel(actor, regID)
	if err != nil {
		return err
	}
	return utils.Success(c, reg, "Registration cancelled successfully")
}

func (h *Handler) UploadPaymentProof(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	regID := c.Params("id")
	if _, err := uuid.Parse(regID); err != nil {
		return utils.Error(c, "Invalid registration ID", fiber.StatusBadRequest)
	}

	file, err := c.FormFile("proof")
	if err != nil {
		return utils.Error(c, "Payment proof file is required", fiber.StatusBadRequest)
	}
	if err := utils.ValidateProofFile(file, h.cfg.MaxUploadSize); err != nil {
		return utils.Error(c, err.Error(), fiber.StatusBadRequest)
	}

	filename := utils.GenerateUniqueFilename(file.Filename)
	if err := utils.SaveUploadedFile(file, h.cfg.ProofDir, filename); err != nil {
		return utils.Error(c, "Failed to store payment proof", fiber.StatusInternalServerError)
	}

	reg, err := h.regSvc.UploadPaymentProof(actor, regID, filepath.Join(h.cfg.ProofDir, filename))
	if err != nil {
		return err
	}
	return utils.Success(c, reg, "Payment proof uploaded successfully")
}

func (h *Handler) ResubmitPayment(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	regID := c.Params("id")
	if _, err := uuid.Parse(regID); err != nil {
		return utils.Error(c, "Invalid registration ID", fiber.StatusBadRequest)
	}

	reg, err := h.regSvc.ResubmitPayment(actor, regID)
	if err != nil {
		return err
	}
	return utils.Success(c, reg, "Payment resubmitted for review")
}

// EnsureTicket re-runs ticket issuance for a confirmed registration. Issuance
// is idempotent, so this doubles as the recovery path when the ticket write
// failed after confirmation.
func (h *Handler) EnsureTicket(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	regID := c.Params("id")
	if _, err := uuid.Parse(regID); err != nil {
		return utils.Error(c, "Invalid registration ID", fiber.StatusBadRequest)
	}

	ticket, err := h.regSvc.EnsureTicket(actor, regID)
	if err != nil {
		return err
	}
	return utils.Success(c, ticket, "Ticket issued")
}

func (h *Handler) VerifyPayment(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	regID := c.Params("id")
	if _, err := uuid.Parse(regID); err != nil {
		return utils.Error(c, "Invalid registration ID", fiber.StatusBadRequest)
	}

	var req VerifyPaymentRequest
	if err := middleware.ParseAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.regSvc.VerifyPayment(actor, regID, *req.Approved)
	if err != nil {
		return err
	}

	message := "Payment rejected"
	if *req.Approved {
		message = "Payment verified and registration confirmed"
	}
	return utils.Success(c, result, message)
}

func (h *Handler) CompleteRegistration(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	regID := c.Params("id")
	if _, err := uuid.Parse(regID); err != nil {
		return utils.Error(c, "Invalid registration ID", fiber.StatusBadRequest)
	}

	reg, err := h.regSvc.Complete(actor, regID)
	if err != nil {
		return err
	}
	return utils.Success(c, reg, "Registration completed")
}

func (h *Handler) DeleteRegistration(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	regID := c.Params("id")
	if _, err := uuid.Parse(regID); err != nil {
		return utils.Error(c, "Invalid registration ID", fiber.StatusBadRequest)
	}

	if err := h.cascadeSvc.DeleteRegistration(actor, regID); err != nil {
		return err
	}
	return utils.Success(c, nil, "Registration deleted successfully")
}

func (h *Handler) DeleteEventRegistrations(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	eventID := c.Params("id")
	if _, err := uuid.Parse(eventID); err != nil {
		return utils.Error(c, "Invalid event ID", fiber.StatusBadRequest)
	}

	if err := h.cascadeSvc.DeleteRegistrationsByEvent(actor, eventID); err != nil {
		return err
	}
	return utils.Success(c, nil, "Event registrations deleted successfully")
}
