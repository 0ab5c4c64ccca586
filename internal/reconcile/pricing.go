package reconcile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/db"
)

// PriceEntry is what a service costs and how it is categorised.
type PriceEntry struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
}

// PricingTable maps service names to prices. Defaults apply to services that
// are not listed.
type PricingTable struct {
	Services        map[string]PriceEntry `json:"services"`
	DefaultAmount   decimal.Decimal       `json:"defaultAmount"`
	DefaultCategory string                `json:"defaultCategory"`
}

// DefaultPricing is the clinic's current price list in rand.
func DefaultPricing() PricingTable {
	entry := func(amount int64, category string) PriceEntry {
		return PriceEntry{Amount: decimal.NewFromInt(amount), Category: category}
	}
	return PricingTable{
		Services: map[string]PriceEntry{
			"PRP Therapy":            entry(3200, "Cosmetic"),
			"Standard Consultation":  entry(1300, "Medical"),
			"Medical Dermatology":    entry(1500, "Medical"),
			"Cosmetic Dermatology":   entry(1600, "Cosmetic"),
			"Laser Treatment":        entry(3500, "Cosmetic"),
			"Chemical Peel":          entry(1800, "Cosmetic"),
			"Microneedling":          entry(1900, "Cosmetic"),
			"Botox Injections":       entry(4500, "Cosmetic"),
			"Skin Tightening":        entry(2200, "Cosmetic"),
			"Mole Removal":           entry(1800, "Medical"),
			"Skin Cancer Screening":  entry(1750, "Medical"),
			"Acne Treatment":         entry(1650, "Medical"),
			"Paediatric Dermatology": entry(1450, "Medical"),
			"General Consultation":   entry(1300, "Medical"),
		},
		DefaultAmount:   decimal.NewFromInt(500),
		DefaultCategory: "Medical",
	}
}

// LoadPricing reads a JSON pricing table. Missing defaults are taken from
// DefaultPricing.
func LoadPricing(path string) (PricingTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PricingTable{}, fmt.Errorf("read pricing file: %w", err)
	}

	var t PricingTable
	if err := json.Unmarshal(raw, &t); err != nil {
		return PricingTable{}, fmt.Errorf("parse pricing file %s: %w", path, err)
	}

	def := DefaultPricing()
	if t.Services == nil {
		t.Services = map[string]PriceEntry{}
	}
	if t.DefaultAmount.IsZero() {
		t.DefaultAmount = def.DefaultAmount
	}
	if t.DefaultCategory == "" {
		t.DefaultCategory = def.DefaultCategory
	}
	return t, nil
}

// Lookup finds the entry for an exact service name.
func (t PricingTable) Lookup(service string) (PriceEntry, bool) {
	e, ok := t.Services[strings.TrimSpace(service)]
	return e, ok
}

// PlanPricing fills amount and serviceCategory independently from the table.
func PlanPricing(rec appointment.AppointmentRecord, table PricingTable) Plan {
	patch := db.Fields{}
	entry, listed := table.Lookup(rec.Service())

	amount := rec.StoredString(appointment.FieldAmount)
	if !rec.Priced() {
		price := table.DefaultAmount
		if listed {
			price = entry.Amount
		}
		amount = price.String()
		patch[appointment.FieldAmount] = json.Number(amount)
	}

	category := rec.ServiceCategory
	if category == "" {
		category = table.DefaultCategory
		if listed {
			category = entry.Category
		}
		patch[appointment.FieldServiceCategory] = category
	}

	if len(patch) == 0 {
		return Plan{Status: StatusSkipped, Message: "Already has amount and category"}
	}
	return Plan{
		Patch:   patch,
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Added amount: R%s | category: %s", amount, category),
	}
}
