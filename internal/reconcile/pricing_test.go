package reconcile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/dermaclinic-admin/internal/db"
)

func TestPlanPricing_KnownService(t *testing.T) {
	plan := PlanPricing(appt("a4", db.Fields{"serviceName": "PRP Therapy", "amount": 0}), DefaultPricing())

	assert.Equal(t, StatusSuccess, plan.Status)
	assert.Equal(t, db.Fields{"amount": json.Number("3200"), "serviceCategory": "Cosmetic"}, plan.Patch)
	assert.Equal(t, "Added amount: R3200 | category: Cosmetic", plan.Message)
}

func TestPlanPricing_UnknownServiceGetsDefaults(t *testing.T) {
	plan := PlanPricing(appt("a5", db.Fields{"type": "Tattoo Removal"}), DefaultPricing())
	assert.Equal(t, db.Fields{"amount": json.Number("500"), "serviceCategory": "Medical"}, plan.Patch)
}

func TestPlanPricing_FieldsAreIndependent(t *testing.T) {
	table := DefaultPricing()

	plan := PlanPricing(appt("a6", db.Fields{"serviceName": "Microneedling", "amount": 2000}), table)
	assert.Equal(t, db.Fields{"serviceCategory": "Cosmetic"}, plan.Patch)
	assert.Equal(t, "Added amount: R2000 | category: Cosmetic", plan.Message)

	plan = PlanPricing(appt("a7", db.Fields{"serviceName": "Microneedling", "serviceCategory": "Medical"}), table)
	assert.Equal(t, db.Fields{"amount": json.Number("1900")}, plan.Patch)

	plan = PlanPricing(appt("a8", db.Fields{"amount": 100, "serviceCategory": "Medical"}), table)
	assert.Equal(t, StatusSkipped, plan.Status)
	assert.Empty(t, plan.Patch)
}

func TestPlanPricing_KeepsNonNumericAmount(t *testing.T) {
	table := DefaultPricing()

	plan := PlanPricing(appt("a9", db.Fields{"serviceName": "PRP Therapy", "amount": "R 3,200", "serviceCategory": "Cosmetic"}), table)
	assert.Equal(t, StatusSkipped, plan.Status)
	assert.Empty(t, plan.Patch)

	plan = PlanPricing(appt("a10", db.Fields{"serviceName": "PRP Therapy", "amount": "R 3,200"}), table)
	assert.Equal(t, db.Fields{"serviceCategory": "Cosmetic"}, plan.Patch)

	for _, empty := range []any{nil, "", "  ", "0", 0} {
		plan = PlanPricing(appt("a11", db.Fields{"serviceName": "PRP Therapy", "amount": empty, "serviceCategory": "Cosmetic"}), table)
		assert.Equal(t, db.Fields{"amount": json.Number("3200")}, plan.Patch, "amount %#v", empty)
	}
}

func TestLoadPricing_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"services":{"Facial":{"amount":"950.50","category":"Cosmetic"}}}`), 0o600))

	table, err := LoadPricing(path)
	require.NoError(t, err)

	e, ok := table.Lookup("Facial")
	require.True(t, ok)
	assert.Equal(t, "950.5", e.Amount.String())
	assert.Equal(t, "500", table.DefaultAmount.String())
	assert.Equal(t, "Medical", table.DefaultCategory)

	_, ok = table.Lookup("PRP Therapy")
	assert.False(t, ok)
}

func TestLoadPricing_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := LoadPricing(path)
	assert.Error(t, err)

	_, err = LoadPricing(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
