package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stayops/internal/domain"
)

// Money travels as strings on the wire so clients never see float noise.
func parseMoney(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func parseBodyUUID(w http.ResponseWriter, s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", field+" must be a UUID", nil)
	}
	return id, err
}

func roomTypeDTO(rt domain.RoomType) map[string]any {
	return map[string]any{
		"id":        rt.ID,
		"name":      rt.Name,
		"basePrice": rt.BasePrice.StringFixed(2),
		"capacity":  rt.Capacity,
		"createdAt": rt.CreatedAt,
	}
}

func roomDTO(rm domain.Room) map[string]any {
	return map[string]any{
		"id":         rm.ID,
		"roomTypeId": rm.RoomTypeID,
		"number":     rm.Number,
		"floor":      rm.Floor,
		"status":     rm.Status,
		"notes":      rm.Notes,
		"updatedAt":  rm.UpdatedAt,
	}
}

func reservationDTO(res domain.Reservation) map[string]any {
	return map[string]any{
		"id":           res.ID,
		"roomId":       res.RoomID,
		"guestId":      res.GuestID,
		"checkIn":      res.CheckIn,
		"checkOut":     res.CheckOut,
		"status":       res.Status,
		"totalPrice":   res.TotalPrice.StringFixed(2),
		"nights":       res.Nights(),
		"notes":        res.Notes,
		"checkedInAt":  res.CheckedInAt,
		"checkedOutAt": res.CheckedOutAt,
		"createdAt":    res.CreatedAt,
		"updatedAt":    res.UpdatedAt,
	}
}

func paymentDTO(p domain.Payment) map[string]any {
	return map[string]any{
		"id":            p.ID,
		"reservationId": p.ReservationID,
		"amount":        p.Amount.StringFixed(2),
		"method":        p.Method,
		"status":        p.Status,
		"reference":     p.Reference,
		"createdAt":     p.CreatedAt,
		"updatedAt":     p.UpdatedAt,
	}
}

func chargeDTO(c domain.Charge) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"reservationId": c.ReservationID,
		"roomId":        c.RoomID,
		"kind":          c.Kind,
		"description":   c.Description,
		"quantity":      c.Quantity,
		"unitPrice":     c.UnitPrice.StringFixed(2),
		"total":         c.Total.StringFixed(2),
		"createdAt":     c.CreatedAt,
	}
}

func folioDTO(f domain.Folio) map[string]any {
	charges := make([]any, 0, len(f.Charges))
	for _, c := range f.Charges {
		charges = append(charges, chargeDTO(c))
	}
	payments := make([]any, 0, len(f.Payments))
	for _, p := range f.Payments {
		payments = append(payments, paymentDTO(p))
	}
	return map[string]any{
		"reservation": reservationDTO(f.Reservation),
		"charges":     charges,
		"payments":    payments,
		"roomTotal":   f.RoomTotal.StringFixed(2),
		"chargeTotal": f.ChargeTotal.StringFixed(2),
		"paid":        f.Paid.StringFixed(2),
		"grandTotal":  f.GrandTotal.StringFixed(2),
		"due":         f.Due.StringFixed(2),
	}
}

func summaryDTO(s domain.BillingSummary) map[string]any {
	return map[string]any{
		"roomTotal":   s.RoomTotal.StringFixed(2),
		"chargeTotal": s.ChargeTotal.StringFixed(2),
		"grandTotal":  s.GrandTotal.StringFixed(2),
		"paid":        s.Paid.StringFixed(2),
		"due":         s.Due.StringFixed(2),
	}
}

func closeDTO(dc domain.DailyClose) map[string]any {
	byMethod := make(map[string]string, len(dc.ByMethod))
	for m, v := range dc.ByMethod {
		byMethod[string(m)] = v.StringFixed(2)
	}
	return map[string]any{
		"id":             dc.ID,
		"date":           dc.DateKey,
		"totalCompleted": dc.TotalCompleted.StringFixed(2),
		"paymentCount":   dc.PaymentCount,
		"byMethod":       byMethod,
		"notes":          dc.Notes,
		"closedBy":       dc.ClosedBy,
		"createdAt":      dc.CreatedAt,
	}
}
