package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/config"
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/repositories"
	"eventfest-backend/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEventRepo serves reads for route-level tests. Everything the public
// event routes don't touch is a no-op.
type stubEventRepo struct {
	events map[string]*models.Event
}

func (s *stubEventRepo) GetByID(id string) (*models.Event, error) {
	if e, ok := s.events[id]; ok {
		c := *e
		return &c, nil
	}
	return nil, apperrors.NotFound("event not found with ID: " + id)
}

func (s *stubEventRepo) Create(*models.Event) error { return nil }
func (s *stubEventRepo) List(int, int, *repositories.EventFilters) ([]models.Event, int64, error) {
	return nil, 0, nil
}
func (s *stubEventRepo) ListByOrganizer(string) ([]models.Event, error) { return nil, nil }
func (s *stubEventRepo) Update(*models.Event) error                     { return nil }
func (s *stubEventRepo) Delete(string) error                            { return nil }
func (s *stubEventRepo) IncrementRegistrations(string) error            { return nil }
func (s *stubEventRepo) DecrementRegistrations(string, int) error       { return nil }
func (s *stubEventRepo) DecrementStock(string, int) error               { return nil }
func (s *stubEventRepo) RestoreStock(string, int) error                 { return nil }
func (s *stubEventRepo) IncrementAttendance(string) error               { return nil }

func newEventTestApp(t *testing.T, cfg *config.Config, events map[string]*models.Event) *fiber.App {
	t.Helper()
	eventSvc := services.NewEventService(&stubEventRepo{events: events}, nil, nil)
	h := NewHandler(eventSvc, nil, nil, nil, cfg)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	api := app.Group("/api/v1")
	h.RegisterRoutes(api, cfg)
	return app
}

func signTestToken(t *testing.T, secret string, userID uuid.UUID, role models.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":          userID.String(),
		"role":             string(role),
		"email":            "user@example.com",
		"participant_type": "",
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestGetEventDraftVisibilityOverHTTP(t *testing.T) {
	cfg := &config.Config{JWTSecret: "route-test-secret"}
	organizer := uuid.New()
	draft := &models.Event{
		ID:          uuid.New(),
		OrganizerID: organizer,
		Name:        "Unannounced Showcase",
		Status:      models.EventDraft,
		EventType:   models.EventNormal,
	}
	app := newEventTestApp(t, cfg, map[string]*models.Event{draft.ID.String(): draft})
	url := "/api/v1/events/" + draft.ID.String()

	t.Run("anonymous callers get not found", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, url, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("the owner fetches the draft with a bearer token", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, url, nil)
		req.Header.Set(fiber.HeaderAuthorization,
			"Bearer "+signTestToken(t, cfg.JWTSecret, organizer, models.RoleOrganizer))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body struct {
			Data struct {
				Name string `json:"name"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, draft.Name, body.Data.Name)
	})

	t.Run("another organizer's token does not widen access", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, url, nil)
		req.Header.Set(fiber.HeaderAuthorization,
			"Bearer "+signTestToken(t, cfg.JWTSecret, uuid.New(), models.RoleOrganizer))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("an admin token sees the draft", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, url, nil)
		req.Header.Set(fiber.HeaderAuthorization,
			"Bearer "+signTestToken(t, cfg.JWTSecret, uuid.New(), models.RoleAdmin))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("a malformed token behaves like anonymous", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, url, nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-token")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("a token signed with the wrong key behaves like anonymous", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, url, nil)
		req.Header.Set(fiber.HeaderAuthorization,
			"Bearer "+signTestToken(t, "some-other-secret", organizer, models.RoleOrganizer))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestGetEventPublishedIsPublic(t *testing.T) {
	cfg := &config.Config{JWTSecret: "route-test-secret"}
	event := &models.Event{
		ID:          uuid.New(),
		OrganizerID: uuid.New(),
		Name:        "Open Mic Night",
		Status:      models.EventPublished,
		EventType:   models.EventNormal,
	}
	app := newEventTestApp(t, cfg, map[string]*models.Event{event.ID.String(): event})

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/events/"+event.ID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
