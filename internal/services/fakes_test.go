package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/repositories"

	"github.com/google/uuid"
)

// memStore backs the in-memory repository fakes. A single mutex guards all
// tables so the conditional counter operations behave atomically, the same
// guarantee the real repositories get from guarded UPDATEs.
type memStore struct {
	mu      sync.Mutex
	events  map[string]*models.Event
	regs    map[string]*models.Registration
	tickets map[string]*models.Ticket
	users   map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		events:  make(map[string]*models.Event),
		regs:    make(map[string]*models.Registration),
		tickets: make(map[string]*models.Ticket),
		users:   make(map[string]*models.User),
	}
}

func copyEvent(e *models.Event) *models.Event {
	c := *e
	return &c
}

func copyReg(r *models.Registration) *models.Registration {
	c := *r
	return &c
}

func copyTicket(t *models.Ticket) *models.Ticket {
	c := *t
	return &c
}

// --- event repository ---

type fakeEventRepo struct {
	s *memStore
}

func (f *fakeEventRepo) Create(event *models.Event) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.events[event.ID.String()] = copyEvent(event)
	return nil
}

func (f *fakeEventRepo) GetByID(id string) (*models.Event, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok {
		return nil, apperrors.NotFound("event not found with ID: " + id)
	}
	return copyEvent(e), nil
}

func (f *fakeEventRepo) List(offset, limit int, filters *repositories.EventFilters) ([]models.Event, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var all []models.Event
	for _, e := range f.s.events {
		if filters == nil || !filters.IncludeDrafts {
			if e.Status == models.EventDraft {
				continue
			}
		}
		if filters != nil {
			if filters.Status != nil && e.Status != *filters.Status {
				continue
			}
			if filters.EventType != nil && e.EventType != *filters.EventType {
				continue
			}
			if filters.StartsAfter != nil && e.StartDate.Before(*filters.StartsAfter) {
				continue
			}
			if filters.EndsBefore != nil && e.EndDate.After(*filters.EndsBefore) {
				continue
			}
			if filters.Search != "" {
				needle := strings.ToLower(filters.Search)
				if !strings.Contains(strings.ToLower(e.Name), needle) &&
					!strings.Contains(strings.ToLower(e.Description), needle) {
					continue
				}
			}
		}
		all = append(all, *copyEvent(e))
	}

	sort.Slice(all, func(i, j int) bool { return all[i].StartDate.Before(all[j].StartDate) })
	total := int64(len(all))

	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeEventRepo) ListByOrganizer(organizerID string) ([]models.Event, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Event
	for _, e := range f.s.events {
		if e.OrganizerID.String() == organizerID {
			out = append(out, *copyEvent(e))
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Update(event *models.Event) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.events[event.ID.String()] = copyEvent(event)
	return nil
}

func (f *fakeEventRepo) Delete(id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.events[id]; !ok {
		return apperrors.NotFound("event not found with ID: " + id)
	}
	delete(f.s.events, id)
	return nil
}

func (f *fakeEventRepo) IncrementRegistrations(id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok {
		return apperrors.Conflict("event registration limit reached")
	}
	if e.RegistrationLimit != nil && e.CurrentRegistrations >= *e.RegistrationLimit {
		return apperrors.Conflict("event registration limit reached")
	}
	e.CurrentRegistrations++
	return nil
}

func (f *fakeEventRepo) DecrementRegistrations(id string, by int) error {
	if by <= 0 {
		return nil
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok || e.CurrentRegistrations < by {
		return apperrors.Conflict("registration counter would go negative")
	}
	e.CurrentRegistrations -= by
	return nil
}

func (f *fakeEventRepo) DecrementStock(id string, quantity int) error {
	if quantity <= 0 {
		return apperrors.ValidationFailed("quantity must be positive")
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok || e.StockQuantity < quantity {
		return apperrors.OutOfStock("insufficient stock remaining")
	}
	e.StockQuantity -= quantity
	return nil
}

func (f *fakeEventRepo) RestoreStock(id string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if e, ok := f.s.events[id]; ok {
		e.StockQuantity += quantity
	}
	return nil
}

func (f *fakeEventRepo) IncrementAttendance(id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if e, ok := f.s.events[id]; ok {
		e.AttendanceCount++
	}
	return nil
}

// --- registration repository ---

type fakeRegRepo struct {
	s *memStore
}

func (f *fakeRegRepo) Create(reg *models.Registration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.regs {
		if existing.EventID == reg.EventID && existing.ParticipantID == reg.ParticipantID {
			return apperrors.DuplicateRegistration("participant is already registered for this event")
		}
	}
	f.s.regs[reg.ID.String()] = copyReg(reg)
	return nil
}

func (f *fakeRegRepo) GetByID(id string) (*models.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.regs[id]
	if !ok {
		return nil, apperrors.NotFound("registration not found with ID: " + id)
	}
	return copyReg(r), nil
}

func (f *fakeRegRepo) GetByEventAndParticipant(eventID, participantID string) (*models.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.regs {
		if r.EventID.String() == eventID && r.ParticipantID.String() == participantID {
			return copyReg(r), nil
		}
	}
	return nil, apperrors.NotFound("registration not found")
}

func (f *fakeRegRepo) ListByParticipant(participantID string, offset, limit int) ([]models.Registration, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var all []models.Registration
	for _, r := range f.s.regs {
		if r.ParticipantID.String() == participantID {
			all = append(all, *copyReg(r))
		}
	}
	return pageRegs(all, offset, limit)
}

func (f *fakeRegRepo) ListByEvent(eventID string, offset, limit int) ([]models.Registration, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var all []models.Registration
	for _, r := range f.s.regs {
		if r.EventID.String() == eventID {
			all = append(all, *copyReg(r))
		}
	}
	return pageRegs(all, offset, limit)
}

func pageRegs(all []models.Registration, offset, limit int) ([]models.Registration, int64, error) {
	total := int64(len(all))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeRegRepo) ListIDsByEvent(eventID string) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var ids []string
	for id, r := range f.s.regs {
		if r.EventID.String() == eventID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeRegRepo) CountActiveByEvent(eventID string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var count int64
	for _, r := range f.s.regs {
		if r.EventID.String() == eventID && r.Status != models.RegistrationCancelled {
			count++
		}
	}
	return count, nil
}

func (f *fakeRegRepo) Update(reg *models.Registration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.regs[reg.ID.String()] = copyReg(reg)
	return nil
}

// MarkManualAttendance mirrors the real repository's single-transaction
// semantics: flag flip, audit append and conditional counter increment happen
// under one lock.
func (f *fakeRegRepo) MarkManualAttendance(regID, markedBy, note string) (*models.Registration, error) {
	marker, err := uuid.Parse(markedBy)
	if err != nil {
		return nil, apperrors.ValidationFailed("invalid marker ID")
	}

	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	reg, ok := f.s.regs[regID]
	if !ok {
		return nil, apperrors.NotFound("registration not found with ID: " + regID)
	}

	firstMark := !reg.Attended
	reg.Attended = true
	reg.AttendanceLog = append(reg.AttendanceLog, models.AttendanceEntry{
		Method:   models.AttendanceMethodManual,
		MarkedBy: marker,
		MarkedAt: time.Now().UTC(),
		Note:     note,
	})
	if firstMark {
		if e, ok := f.s.events[reg.EventID.String()]; ok {
			e.AttendanceCount++
		}
	}
	return copyReg(reg), nil
}

func (f *fakeRegRepo) Delete(id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.regs[id]; !ok {
		return apperrors.NotFound("registration not found with ID: " + id)
	}
	delete(f.s.regs, id)
	return nil
}

// --- ticket repository ---

type fakeTicketRepo struct {
	s *memStore
}

func (f *fakeTicketRepo) Create(ticket *models.Ticket) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.tickets[ticket.TicketID] = copyTicket(ticket)
	return nil
}

func (f *fakeTicketRepo) GetByTicketID(ticketID string) (*models.Ticket, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.tickets[ticketID]
	if !ok {
		return nil, apperrors.NotFound("ticket not found: " + ticketID)
	}
	return copyTicket(t), nil
}

func (f *fakeTicketRepo) GetByRegistrationID(registrationID string) (*models.Ticket, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, t := range f.s.tickets {
		if t.RegistrationID.String() == registrationID {
			return copyTicket(t), nil
		}
	}
	return nil, apperrors.NotFound("no ticket for this registration")
}

func (f *fakeTicketRepo) ListByParticipant(participantID string) ([]models.Ticket, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Ticket
	for _, t := range f.s.tickets {
		if t.ParticipantID.String() == participantID {
			out = append(out, *copyTicket(t))
		}
	}
	return out, nil
}

func (f *fakeTicketRepo) TicketIDExists(ticketID string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	_, ok := f.s.tickets[ticketID]
	return ok, nil
}

func (f *fakeTicketRepo) MarkExpired(ticketID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if t, ok := f.s.tickets[ticketID]; ok && t.Status == models.TicketValid {
		t.Status = models.TicketExpired
	}
	return nil
}

func (f *fakeTicketRepo) CompleteScan(ticketID, scannedBy, scanNote string) error {
	scanner, err := uuid.Parse(scannedBy)
	if err != nil {
		return apperrors.ValidationFailed("invalid scanner ID")
	}

	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	t, ok := f.s.tickets[ticketID]
	if !ok || t.Status != models.TicketValid {
		return apperrors.AlreadyUsed("ticket is no longer valid")
	}

	now := time.Now().UTC()
	t.Status = models.TicketUsed
	t.ScannedAt = &now
	t.ScannedBy = &scanner

	if reg, ok := f.s.regs[t.RegistrationID.String()]; ok {
		reg.Attended = true
		reg.AttendanceLog = append(reg.AttendanceLog, models.AttendanceEntry{
			Method:   models.AttendanceMethodScan,
			MarkedBy: scanner,
			MarkedAt: now,
			Note:     scanNote,
		})
	}
	if e, ok := f.s.events[t.EventID.String()]; ok {
		e.AttendanceCount++
	}
	return nil
}

// --- user repository ---

type fakeUserRepo struct {
	s *memStore
}

func (f *fakeUserRepo) GetByID(id string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found with ID: " + id)
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *fakeUserRepo) Create(user *models.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c := *user
	f.s.users[user.ID.String()] = &c
	return nil
}

// --- cascade repository ---

type fakeCascadeRepo struct {
	s *memStore
}

func (f *fakeCascadeRepo) CancelRegistration(reg *models.Registration, restoreQty int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.regs[reg.ID.String()] = copyReg(reg)
	f.removeArtifactsLocked(reg, restoreQty, true)
	return nil
}

func (f *fakeCascadeRepo) DeleteRegistration(reg *models.Registration, restoreQty int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.removeArtifactsLocked(reg, restoreQty, reg.Status != models.RegistrationCancelled)
	delete(f.s.regs, reg.ID.String())
	return nil
}

func (f *fakeCascadeRepo) removeArtifactsLocked(reg *models.Registration, restoreQty int, decrement bool) {
	for id, t := range f.s.tickets {
		if t.RegistrationID == reg.ID {
			delete(f.s.tickets, id)
		}
	}
	e, ok := f.s.events[reg.EventID.String()]
	if !ok {
		return
	}
	if decrement && e.CurrentRegistrations > 0 {
		e.CurrentRegistrations--
	}
	if restoreQty > 0 {
		e.StockQuantity += restoreQty
	}
}

func (f *fakeCascadeRepo) DeleteRegistrationsBulk(regIDs []string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	totals := make(map[string]int)
	for _, id := range regIDs {
		reg, ok := f.s.regs[id]
		if !ok {
			continue
		}
		if reg.Status != models.RegistrationCancelled {
			totals[reg.EventID.String()]++
		}
		for tid, t := range f.s.tickets {
			if t.RegistrationID == reg.ID {
				delete(f.s.tickets, tid)
			}
		}
		delete(f.s.regs, id)
	}

	for eventID, total := range totals {
		e, ok := f.s.events[eventID]
		if !ok || e.CurrentRegistrations < total {
			return apperrors.Internal("bulk cascade: counter underflow for event "+eventID, nil)
		}
		e.CurrentRegistrations -= total
	}
	return nil
}

func (f *fakeCascadeRepo) DeleteEvent(eventID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.deleteEventTreeLocked(eventID)
	return nil
}

func (f *fakeCascadeRepo) DeleteOrganizer(organizerID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, e := range f.s.events {
		if e.OrganizerID.String() == organizerID {
			f.deleteEventTreeLocked(id)
		}
	}
	return nil
}

func (f *fakeCascadeRepo) deleteEventTreeLocked(eventID string) {
	for tid, t := range f.s.tickets {
		if t.EventID.String() == eventID {
			delete(f.s.tickets, tid)
		}
	}
	for rid, r := range f.s.regs {
		if r.EventID.String() == eventID {
			delete(f.s.regs, rid)
		}
	}
	delete(f.s.events, eventID)
}

func (f *fakeCascadeRepo) CancelEventTickets(eventID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, t := range f.s.tickets {
		if t.EventID.String() == eventID && t.Status == models.TicketValid {
			t.Status = models.TicketCancelled
		}
	}
	return nil
}

// --- notifier ---

type recordingNotifier struct {
	mu              sync.Mutex
	ticketsSent     int
	paymentPendings int
	fail            bool
}

func (n *recordingNotifier) SendTicket(recipient *models.User, event *models.Event, ticket *models.Ticket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return apperrors.Internal("notifier unavailable", nil)
	}
	n.ticketsSent++
	return nil
}

func (n *recordingNotifier) SendPaymentPending(recipient *models.User, event *models.Event, amount float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return apperrors.Internal("notifier unavailable", nil)
	}
	n.paymentPendings++
	return nil
}

// --- wiring ---

type testEnv struct {
	store    *memStore
	notifier *recordingNotifier

	eventSvc   *EventService
	regSvc     *RegistrationService
	ticketSvc  *TicketService
	cascadeSvc *CascadeService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	events := &fakeEventRepo{s: store}
	regs := &fakeRegRepo{s: store}
	tickets := &fakeTicketRepo{s: store}
	users := &fakeUserRepo{s: store}
	cascades := &fakeCascadeRepo{s: store}
	notifier := &recordingNotifier{}

	cascadeSvc := NewCascadeService(cascades, events, regs)
	eventSvc := NewEventService(events, regs, cascadeSvc)
	ticketSvc := NewTicketService(tickets, regs, events)
	regSvc := NewRegistrationService(events, regs, users, eventSvc, ticketSvc, cascadeSvc, notifier)

	return &testEnv{
		store:      store,
		notifier:   notifier,
		eventSvc:   eventSvc,
		regSvc:     regSvc,
		ticketSvc:  ticketSvc,
		cascadeSvc: cascadeSvc,
	}
}

func (env *testEnv) seedUser(role models.Role, pt models.ParticipantType) *models.User {
	u := &models.User{
		ID:              uuid.New(),
		Email:           uuid.New().String() + "@example.com",
		Role:            role,
		ParticipantType: pt,
	}
	env.store.mu.Lock()
	env.store.users[u.ID.String()] = u
	env.store.mu.Unlock()
	c := *u
	return &c
}

// seedEvent stores a published free event a week away; mutate adjusts it
// before insertion.
func (env *testEnv) seedEvent(organizer *models.User, mutate func(*models.Event)) *models.Event {
	deadline := time.Now().Add(72 * time.Hour)
	e := &models.Event{
		ID:                   uuid.New(),
		OrganizerID:          organizer.ID,
		Name:                 "Test Event",
		Description:          "A seeded event",
		Status:               models.EventPublished,
		EventType:            models.EventNormal,
		Eligibility:          models.EligibilityAll,
		RegistrationDeadline: &deadline,
		StartDate:            time.Now().Add(7 * 24 * time.Hour),
		EndDate:              time.Now().Add(8 * 24 * time.Hour),
		PurchaseLimit:        1,
	}
	if mutate != nil {
		mutate(e)
	}
	env.store.mu.Lock()
	env.store.events[e.ID.String()] = e
	env.store.mu.Unlock()
	return copyEvent(e)
}

func (env *testEnv) eventByID(id uuid.UUID) *models.Event {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	if e, ok := env.store.events[id.String()]; ok {
		return copyEvent(e)
	}
	return nil
}

func (env *testEnv) regByID(id uuid.UUID) *models.Registration {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	if r, ok := env.store.regs[id.String()]; ok {
		return copyReg(r)
	}
	return nil
}

func (env *testEnv) ticketByID(ticketID string) *models.Ticket {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	if t, ok := env.store.tickets[ticketID]; ok {
		return copyTicket(t)
	}
	return nil
}
