package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stayops/internal/adapters/observability"
	"stayops/internal/app"
	"stayops/internal/domain"
)

type Handlers struct {
	Reservations *app.ReservationService
	Billing      *app.BillingService
	Rooms        *app.RoomService
	Closes       *app.DailyCloseService
	Q            *app.QueryService
}

type problem struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Status int            `json:"status"`
	Detail string         `json:"detail,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers, jwtSecret []byte) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(Auth(jwtSecret))

		r.Post("/room-types", h.createRoomType)
		r.Post("/rooms", h.createRoom)
		r.Get("/rooms", h.listRooms)
		r.Get("/rooms/{id}/availability", h.checkAvailability)
		r.Patch("/rooms/{id}/status", h.setRoomStatus)
		r.Delete("/rooms/{id}", h.deleteRoom)

		r.Post("/guests", h.createGuest)

		r.Post("/reservations", h.createReservation)
		r.Get("/reservations", h.listReservations)
		r.Get("/reservations/{id}", h.getFolio)
		r.Get("/reservations/{id}/due", h.getDue)
		r.Put("/reservations/{id}", h.updateReservation)
		r.Post("/reservations/{id}/transition", h.transitionReservation)

		r.Post("/payments", h.createPayment)
		r.Put("/payments/{id}", h.updatePayment)
		r.Delete("/payments/{id}", h.deletePayment)

		r.Post("/charges", h.createCharge)
		r.Put("/charges/{id}", h.updateCharge)
		r.Delete("/charges/{id}", h.deleteCharge)

		r.Get("/daily-close/preview", h.previewDailyClose)
		r.Post("/daily-close", h.createDailyClose)
		r.Get("/daily-close", h.listDailyCloses)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string, meta map[string]any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Meta: meta}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainError maps the domain error taxonomy onto problem+json with
// enough structured detail for the caller to render a message without
// re-querying.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		ve  *domain.ValidationError
		rna *domain.RoomNotAvailableError
		it  *domain.InvalidTransitionError
		bl  *domain.BookingLockedError
		op  *domain.OverpaymentError
		ob  *domain.OutstandingBalanceError
		or  *domain.OccupiedRoomError
		dce *domain.DailyCloseExistsError
	)
	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusBadRequest, "Validation Failed", ve.Error(),
			map[string]any{"field": ve.Field, "reason": ve.Reason})
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "resource not found", nil)
	case errors.As(err, &rna):
		observability.ObserveConflict("room_not_available")
		writeProblem(w, http.StatusConflict, "Room Not Available", rna.Error(), map[string]any{
			"roomId": rna.RoomID, "checkIn": rna.CheckIn, "checkOut": rna.CheckOut, "reason": rna.Reason,
		})
	case errors.As(err, &it):
		observability.ObserveConflict("invalid_transition")
		writeProblem(w, http.StatusConflict, "Invalid Transition", it.Error(),
			map[string]any{"from": it.From, "to": it.To})
	case errors.As(err, &bl):
		observability.ObserveConflict("booking_locked")
		writeProblem(w, http.StatusConflict, "Booking Locked", bl.Error(),
			map[string]any{"status": bl.Status})
	case errors.As(err, &op):
		observability.ObserveConflict("overpayment")
		writeProblem(w, http.StatusConflict, "Overpayment", op.Error(), map[string]any{
			"grandTotal": op.GrandTotal, "completed": op.Completed, "attempted": op.Attempted,
		})
	case errors.As(err, &ob):
		observability.ObserveConflict("outstanding_balance")
		writeProblem(w, http.StatusConflict, "Outstanding Balance", ob.Error(),
			map[string]any{"due": ob.Due})
	case errors.As(err, &or):
		observability.ObserveConflict("occupied_room")
		writeProblem(w, http.StatusConflict, "Room Occupied", or.Error(),
			map[string]any{"roomId": or.RoomID})
	case errors.As(err, &dce):
		observability.ObserveConflict("daily_close_exists")
		writeProblem(w, http.StatusConflict, "Daily Close Exists", dce.Error(),
			map[string]any{"date": dce.DateKey})
	case errors.Is(err, domain.ErrDuplicateKey):
		observability.ObserveConflict("duplicate")
		writeProblem(w, http.StatusConflict, "Duplicate", "a record with the same key already exists", nil)
	default:
		log.Error().Err(err).Msg("internal error")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "unexpected failure", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON", nil)
		return false
	}
	return true
}

func identity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	ident, ok := IdentityFrom(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "no identity in context", nil)
	}
	return ident, ok
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", name+" must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// parseStamp accepts RFC3339 or a bare date.
func parseStamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	return t.UTC(), err
}

// ---- rooms & guests ----

func (h *Handlers) createRoomType(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Name      string `json:"name"`
		BasePrice string `json:"basePrice"`
		Capacity  int    `json:"capacity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	price, err := parseMoney(req.BasePrice)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", "basePrice must be a decimal number", nil)
		return
	}
	rt, err := h.Rooms.CreateRoomType(r.Context(), ident.TenantID, ident.ActorID, app.CreateRoomTypeInput{
		Name: req.Name, BasePrice: price, Capacity: req.Capacity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomTypeDTO(rt))
}

func (h *Handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		RoomTypeID uuid.UUID `json:"roomTypeId"`
		Number     string    `json:"number"`
		Floor      *string   `json:"floor"`
		Notes      *string   `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	rm, err := h.Rooms.CreateRoom(r.Context(), ident.TenantID, ident.ActorID, app.CreateRoomInput{
		RoomTypeID: req.RoomTypeID, Number: req.Number, Floor: req.Floor, Notes: req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomDTO(rm))
}

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	rooms, err := h.Rooms.ListRooms(r.Context(), ident.TenantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]any, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, roomDTO(rm))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": out})
}

func (h *Handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	checkIn, err1 := parseStamp(r.URL.Query().Get("check_in"))
	checkOut, err2 := parseStamp(r.URL.Query().Get("check_out"))
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", "check_in and check_out must be dates", nil)
		return
	}
	var exclude *uuid.UUID
	if ex := r.URL.Query().Get("exclude"); ex != "" {
		id, err := uuid.Parse(ex)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid ID", "exclude must be a UUID", nil)
			return
		}
		exclude = &id
	}
	free, err := h.Reservations.CheckAvailability(r.Context(), ident.TenantID, roomID, checkIn, checkOut, exclude)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": free})
}

func (h *Handlers) setRoomStatus(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	status, err := domain.ParseRoomStatus(req.Status)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
		return
	}
	rm, err := h.Rooms.SetRoomStatus(r.Context(), ident.TenantID, ident.ActorID, roomID, status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomDTO(rm))
}

func (h *Handlers) deleteRoom(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Rooms.DeleteRoom(r.Context(), ident.TenantID, ident.ActorID, roomID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) createGuest(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		FullName string  `json:"fullName"`
		Email    *string `json:"email"`
		Phone    *string `json:"phone"`
		Document *string `json:"document"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := h.Rooms.CreateGuest(r.Context(), ident.TenantID, ident.ActorID, app.CreateGuestInput{
		FullName: req.FullName, Email: req.Email, Phone: req.Phone, Document: req.Document,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": g.ID, "fullName": g.FullName})
}

// ---- reservations ----

type reservationBody struct {
	RoomID   uuid.UUID  `json:"roomId"`
	GuestID  *uuid.UUID `json:"guestId"`
	CheckIn  string     `json:"checkIn"`
	CheckOut string     `json:"checkOut"`
	Notes    *string    `json:"notes"`
}

func (h *Handlers) createReservation(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req reservationBody
	if !decodeBody(w, r, &req) {
		return
	}
	checkIn, err1 := parseStamp(req.CheckIn)
	checkOut, err2 := parseStamp(req.CheckOut)
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", "checkIn and checkOut must be dates", nil)
		return
	}
	res, err := h.Reservations.CreateReservation(r.Context(), ident.TenantID, ident.ActorID, app.CreateReservationInput{
		RoomID: req.RoomID, GuestID: req.GuestID, CheckIn: checkIn, CheckOut: checkOut, Notes: req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservationDTO(res))
}

func (h *Handlers) updateReservation(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req reservationBody
	if !decodeBody(w, r, &req) {
		return
	}
	checkIn, err1 := parseStamp(req.CheckIn)
	checkOut, err2 := parseStamp(req.CheckOut)
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", "checkIn and checkOut must be dates", nil)
		return
	}
	res, err := h.Reservations.UpdateReservation(r.Context(), ident.TenantID, ident.ActorID, id, app.UpdateReservationInput{
		RoomID: req.RoomID, GuestID: req.GuestID, CheckIn: checkIn, CheckOut: checkOut, Notes: req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationDTO(res))
}

func (h *Handlers) transitionReservation(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		To string `json:"to"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	to, err := domain.ParseReservationStatus(req.To)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
		return
	}
	res, err := h.Reservations.Transition(r.Context(), ident.TenantID, ident.ActorID, id, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationDTO(res))
}

func (h *Handlers) listReservations(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	q := domain.ReservationsQuery{Limit: 50}
	if v := r.URL.Query().Get("room_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid ID", "room_id must be a UUID", nil)
			return
		}
		q.RoomID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := domain.ParseReservationStatus(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
			return
		}
		q.Status = &st
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if to := r.URL.Query().Get("to"); to != "" {
			f, err1 := parseStamp(from)
			t, err2 := parseStamp(to)
			if err1 != nil || err2 != nil {
				writeProblem(w, http.StatusBadRequest, "Validation Failed", "from and to must be dates", nil)
				return
			}
			q.From, q.To = &f, &t
		}
	}
	list, err := h.Q.ListReservations(r.Context(), ident.TenantID, q)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]any, 0, len(list))
	for _, res := range list {
		out = append(out, reservationDTO(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

func (h *Handlers) getFolio(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	f, err := h.Q.GetFolio(r.Context(), ident.TenantID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folioDTO(f))
}
