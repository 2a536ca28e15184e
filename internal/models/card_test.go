package models

import (
	"encoding/json"
	"errors"
	"image/color"
	"testing"
	"time"
)

func TestDefaults_EveryCategoryHasActiveOffering(t *testing.T) {
	for _, c := range Categories {
		card, err := Defaults(c)
		if err != nil {
			t.Fatalf("defaults for %s: %v", c, err)
		}
		if card.Category != c {
			t.Fatalf("expected category %s, got %s", c, card.Category)
		}
		off := card.Offering()
		if off == nil {
			t.Fatalf("expected offering for %s", c)
		}
		if off.OfferingCategory() != c {
			t.Fatalf("expected %s offering, got %s", c, off.OfferingCategory())
		}
	}
}

func TestDefaults_BloodSample(t *testing.T) {
	card := MustDefaults(CategoryBlood)
	if card.Blood == nil || card.Blood.BloodType != "B+" {
		t.Fatalf("expected B+ blood type, got %+v", card.Blood)
	}
	if card.Availability != AvailableNow {
		t.Fatalf("expected Available Now, got %q", card.Availability)
	}
	if card.Kind != KindDonor {
		t.Fatalf("expected donor kind, got %q", card.Kind)
	}
}

func TestDefaults_ReturnsIsolatedCopies(t *testing.T) {
	a := MustDefaults(CategoryMedicines)
	b := MustDefaults(CategoryMedicines)

	a.Medicines.MedicineTypes[0] = "Changed"
	a.Medicines.Quantity = "1"
	a.Name = "Someone Else"

	if b.Medicines.MedicineTypes[0] != "Paracetamol" {
		t.Fatalf("mutation leaked into second copy: %v", b.Medicines.MedicineTypes)
	}
	if b.Medicines.Quantity != "50 units" {
		t.Fatalf("mutation leaked into second copy: %q", b.Medicines.Quantity)
	}

	c := MustDefaults(CategoryMedicines)
	if c.Medicines.MedicineTypes[0] != "Paracetamol" || c.Name != sampleName {
		t.Fatal("template was mutated through a returned copy")
	}

	x := MustDefaults(CategoryBlood)
	x.Blood.BloodType = "O-"
	if MustDefaults(CategoryBlood).Blood.BloodType != "B+" {
		t.Fatal("blood template was mutated through a returned copy")
	}
}

func TestDefaults_UnknownCategory(t *testing.T) {
	if _, err := Defaults("plasma"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestNormalize_DropsSiblings(t *testing.T) {
	card := MustDefaults(CategoryBlood)
	card.Fundraiser = &FundraiserOffering{MaxAmount: "10"}
	card.Category = CategoryFundraiser
	card.Normalize()

	if card.Blood != nil {
		t.Fatal("expected blood offering to be dropped")
	}
	if card.Fundraiser == nil || card.Fundraiser.MaxAmount != "10" {
		t.Fatalf("expected fundraiser kept, got %+v", card.Fundraiser)
	}
}

func TestNormalize_AllocatesMissingActive(t *testing.T) {
	card := CardData{Category: CategorySupplies}
	card.Normalize()
	if card.Supplies == nil {
		t.Fatal("expected supplies offering to be allocated")
	}
	if card.Kind != KindDonor {
		t.Fatalf("expected kind to default to donor, got %q", card.Kind)
	}
}

func TestOffering_NeverReadsStaleSibling(t *testing.T) {
	card := CardData{
		Category: CategoryFundraiser,
		Blood:    &BloodOffering{BloodType: "AB-"},
	}
	off, ok := card.Offering().(FundraiserOffering)
	if !ok {
		t.Fatalf("expected fundraiser offering, got %T", card.Offering())
	}
	if off.MaxAmount != "" {
		t.Fatalf("expected empty fundraiser, got %+v", off)
	}
}

func TestMedicineOffering_NonBlankMedicines(t *testing.T) {
	m := MedicineOffering{MedicineTypes: []string{" ", "Insulin", "", " Aspirin "}}
	got := m.NonBlankMedicines()
	if len(got) != 2 || got[0] != "Insulin" || got[1] != "Aspirin" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestCheckEnums(t *testing.T) {
	card := MustDefaults(CategoryOrgans)
	if err := card.CheckEnums(); err != nil {
		t.Fatalf("expected defaults to pass, got %v", err)
	}

	card.Urgency = "critical"
	if err := card.CheckEnums(); !errors.Is(err, ErrInvalidUrgency) {
		t.Fatalf("expected ErrInvalidUrgency, got %v", err)
	}

	card = MustDefaults(CategoryOrgans)
	card.Availability = "Sometime"
	if err := card.CheckEnums(); !errors.Is(err, ErrInvalidAvailability) {
		t.Fatalf("expected ErrInvalidAvailability, got %v", err)
	}

	card = MustDefaults(CategoryOrgans)
	card.Kind = "sponsor"
	if err := card.CheckEnums(); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestCardData_JSONUsesSnakeCaseOfferingKeys(t *testing.T) {
	card := MustDefaults(CategoryFundraiser)
	data, err := json.Marshal(card)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	off, ok := raw["fundraiser_offering"].(map[string]any)
	if !ok {
		t.Fatalf("expected fundraiser_offering object, got %v", raw["fundraiser_offering"])
	}
	if off["max_amount"] != "500000" {
		t.Fatalf("expected max_amount 500000, got %v", off["max_amount"])
	}
	if _, ok := raw["blood_offering"]; ok {
		t.Fatal("did not expect inactive blood_offering key")
	}
}

func TestCategoryConfig(t *testing.T) {
	cfg, err := CategoryConfigFor(CategoryBlood)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrimaryHex != "#DC2626" {
		t.Fatalf("expected #DC2626, got %s", cfg.PrimaryHex)
	}
	if _, err := CategoryConfigFor("x"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if got := len(AllCategoryConfigs()); got != len(Categories) {
		t.Fatalf("expected %d configs, got %d", len(Categories), got)
	}
}

func TestHexColor(t *testing.T) {
	if got := HexColor(color.RGBA{R: 0xDC, G: 0x26, B: 0x0A, A: 0xFF}); got != "#DC260A" {
		t.Fatalf("expected #DC260A, got %s", got)
	}
	for _, cfg := range AllCategoryConfigs() {
		if got := HexColor(cfg.Primary); got != cfg.PrimaryHex {
			t.Fatalf("%s: expected %s, got %s", cfg.Category, cfg.PrimaryHex, got)
		}
	}
}

func TestUrgencyLabel(t *testing.T) {
	if UrgencyHigh.Label() != "High" {
		t.Fatalf("expected High, got %q", UrgencyHigh.Label())
	}
	if Urgency("").Label() != "" {
		t.Fatal("expected empty label")
	}
}

func TestPublishedCard_IsExpired(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if (&PublishedCard{}).IsExpired(now) {
		t.Fatal("expected no expiry to never expire")
	}
	if !(&PublishedCard{ExpiresAt: &past}).IsExpired(now) {
		t.Fatal("expected past expiry to be expired")
	}
	if (&PublishedCard{ExpiresAt: &future}).IsExpired(now) {
		t.Fatal("expected future expiry to be valid")
	}
}
