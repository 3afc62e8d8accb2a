package httpserver

import (
	"net/http"
	"strconv"

	"stayops/internal/app"
	"stayops/internal/domain"
)

func (h *Handlers) getDue(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	sum, err := h.Billing.Due(r.Context(), ident.TenantID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryDTO(sum))
}

func (h *Handlers) createPayment(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		ReservationID string  `json:"reservationId"`
		Amount        string  `json:"amount"`
		Method        string  `json:"method"`
		Status        string  `json:"status"`
		Reference     *string `json:"reference"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	resID, err := parseBodyUUID(w, req.ReservationID, "reservationId")
	if err != nil {
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal number", nil)
		return
	}
	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
		return
	}
	status := domain.PaymentPending
	if req.Status != "" {
		if status, err = domain.ParsePaymentStatus(req.Status); err != nil {
			writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
			return
		}
	}
	p, err := h.Billing.CreatePayment(r.Context(), ident.TenantID, ident.ActorID, app.CreatePaymentInput{
		ReservationID: resID, Amount: amount, Method: method, Status: status, Reference: req.Reference,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentDTO(p))
}

func (h *Handlers) updatePayment(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Amount    *string `json:"amount"`
		Method    *string `json:"method"`
		Status    *string `json:"status"`
		Reference *string `json:"reference"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	in := app.UpdatePaymentInput{Reference: req.Reference}
	if req.Amount != nil {
		amount, err := parseMoney(*req.Amount)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal number", nil)
			return
		}
		in.Amount = &amount
	}
	if req.Method != nil {
		method, err := domain.ParsePaymentMethod(*req.Method)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
			return
		}
		in.Method = &method
	}
	if req.Status != nil {
		status, err := domain.ParsePaymentStatus(*req.Status)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
			return
		}
		in.Status = &status
	}
	p, err := h.Billing.UpdatePayment(r.Context(), ident.TenantID, ident.ActorID, id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentDTO(p))
}

func (h *Handlers) deletePayment(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Billing.DeletePayment(r.Context(), ident.TenantID, ident.ActorID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) createCharge(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		ReservationID string `json:"reservationId"`
		Kind          string `json:"kind"`
		Description   string `json:"description"`
		Quantity      int    `json:"quantity"`
		UnitPrice     string `json:"unitPrice"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	resID, err := parseBodyUUID(w, req.ReservationID, "reservationId")
	if err != nil {
		return
	}
	kind, err := domain.ParseChargeKind(req.Kind)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
		return
	}
	unit, err := parseMoney(req.UnitPrice)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", "unitPrice must be a decimal number", nil)
		return
	}
	c, err := h.Billing.CreateCharge(r.Context(), ident.TenantID, ident.ActorID, app.CreateChargeInput{
		ReservationID: resID, Kind: kind, Description: req.Description, Quantity: req.Quantity, UnitPrice: unit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chargeDTO(c))
}

func (h *Handlers) updateCharge(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Kind        *string `json:"kind"`
		Description *string `json:"description"`
		Quantity    *int    `json:"quantity"`
		UnitPrice   *string `json:"unitPrice"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	in := app.UpdateChargeInput{Description: req.Description, Quantity: req.Quantity}
	if req.Kind != nil {
		kind, err := domain.ParseChargeKind(*req.Kind)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
			return
		}
		in.Kind = &kind
	}
	if req.UnitPrice != nil {
		unit, err := parseMoney(*req.UnitPrice)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Validation Failed", "unitPrice must be a decimal number", nil)
			return
		}
		in.UnitPrice = &unit
	}
	c, err := h.Billing.UpdateCharge(r.Context(), ident.TenantID, ident.ActorID, id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chargeDTO(c))
}

func (h *Handlers) deleteCharge(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Billing.DeleteCharge(r.Context(), ident.TenantID, ident.ActorID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- daily close ----

func (h *Handlers) previewDailyClose(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	dc, err := h.Closes.Preview(r.Context(), ident.TenantID, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closeDTO(dc))
}

func (h *Handlers) createDailyClose(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Date  string  `json:"date"`
		Notes *string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	dc, err := h.Closes.Create(r.Context(), ident.TenantID, ident.ActorID, req.Date, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, closeDTO(dc))
}

func (h *Handlers) listDailyCloses(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	if date := r.URL.Query().Get("date"); date != "" {
		dc, err := h.Closes.Get(r.Context(), ident.TenantID, date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, closeDTO(dc))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Validation Failed", "limit must be an integer", nil)
			return
		}
		limit = n
	}
	list, err := h.Closes.List(r.Context(), ident.TenantID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]any, 0, len(list))
	for _, dc := range list {
		out = append(out, closeDTO(dc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"closes": out})
}
