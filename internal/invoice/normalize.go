package invoice

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/dermaclinic-admin/internal/db"
)

const dateLayout = "2006-01-02"

var one = decimal.NewFromInt(1)

// Normalize turns a stored invoice of any vintage into a consistent Invoice.
// Older invoices carry a single tax-inclusive "amount"; newer ones carry items
// and totals, some of which may be missing.
func Normalize(doc db.Document, taxRate decimal.Decimal, now time.Time) Invoice {
	f := doc.Data
	inv := Invoice{
		ID:            doc.ID,
		InvoiceNumber: f.String("invoiceNumber"),
		PatientID:     f.String("patientId"),
		PatientName:   f.String("patientName"),
		PatientEmail:  f.String("patientEmail"),
		IssueDate:     f.String("issueDate"),
		DueDate:       f.String("dueDate"),
		PaidDate:      f.String("paidDate"),
		Notes:         f.String("notes"),
		Items:         decodeItems(f.Slice("items")),
	}
	for _, v := range f.Slice("appointmentIds") {
		if s, ok := v.(string); ok {
			inv.AppointmentIDs = append(inv.AppointmentIDs, s)
		}
	}

	calculated := decimal.Zero
	for _, it := range inv.Items {
		calculated = calculated.Add(it.Quantity.Mul(it.UnitPrice))
	}

	if amount := number(f, "amount"); amount.IsPositive() {
		inv.Total = amount
		inv.Subtotal = amount.Div(one.Add(taxRate)).Round(2)
		inv.Tax = inv.Total.Sub(inv.Subtotal)
	} else {
		inv.Subtotal = orElse(number(f, "subtotal"), calculated)
		inv.Tax = orElse(number(f, "tax"), inv.Subtotal.Mul(taxRate).Round(2))
		inv.Total = orElse(number(f, "total"), inv.Subtotal.Add(inv.Tax))
	}

	inv.Status = normalizeStatus(f, now)
	return inv
}

func normalizeStatus(f db.Fields, now time.Time) Status {
	if raw := strings.TrimSpace(f.String("status")); raw != "" {
		if s, err := ParseStatus(raw); err == nil {
			return s
		}
		return Status(raw)
	}

	if f["paidAt"] != nil {
		return StatusPaid
	}
	if due := strings.TrimSpace(f.String("dueDate")); due != "" {
		if d, ok := parseDate(due); ok && d.Before(startOfDay(now)) {
			return StatusOverdue
		}
		return StatusSent
	}
	return StatusDraft
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func decodeItems(raw []any) []Item {
	items := make([]Item, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		f := db.Fields(m)
		it := Item{
			ID:          f.String("id"),
			Description: f.String("description"),
			Quantity:    number(f, "quantity"),
			UnitPrice:   number(f, "unitPrice"),
		}
		it.Total = orElse(number(f, "total"), it.Quantity.Mul(it.UnitPrice))
		items = append(items, it)
	}
	return items
}

func encodeItems(items []Item) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"id":          it.ID,
			"description": it.Description,
			"quantity":    jsonNumber(it.Quantity),
			"unitPrice":   jsonNumber(it.UnitPrice),
			"total":       jsonNumber(it.Total),
		})
	}
	return out
}

func number(f db.Fields, key string) decimal.Decimal {
	d, _ := f.Decimal(key)
	return d
}

func orElse(v, fallback decimal.Decimal) decimal.Decimal {
	if v.IsZero() {
		return fallback
	}
	return v
}

func jsonNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
