package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"dario.cat/mergo"

	"github.com/HammerMeetNail/vytalcards/internal/models"
)

// FieldError describes one reason a card cannot be exported.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned when a card is incomplete.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid card: " + strings.Join(parts, "; ")
}

// CardState holds the card being edited in one generator session.
type CardState struct {
	card models.CardData
}

// NewCardState starts a state from the defaults of category. An empty
// category selects models.DefaultCategory.
func NewCardState(category models.Category) (*CardState, error) {
	s := &CardState{}
	if err := s.Reset(category); err != nil {
		return nil, err
	}
	return s, nil
}

// CardStateFrom wraps an existing card, dropping inactive sub-records.
func CardStateFrom(card models.CardData) (*CardState, error) {
	if err := card.CheckEnums(); err != nil {
		return nil, err
	}
	card = card.Clone()
	card.Normalize()
	return &CardState{card: card}, nil
}

// Card returns a copy of the current card.
func (s *CardState) Card() models.CardData {
	return s.card.Clone()
}

// Reset replaces the state with fresh defaults.
func (s *CardState) Reset(category models.Category) error {
	if category == "" {
		category = models.DefaultCategory
	}
	card, err := models.Defaults(category)
	if err != nil {
		return err
	}
	s.card = card
	return nil
}

// Update merges patch into the state. Switching category rebuilds the card
// from the new category's defaults, carrying over non-empty identity fields
// and the kind; the rest of the patch is applied afterwards. On error the
// state is left untouched.
func (s *CardState) Update(patch models.CardPatch) error {
	next := s.card.Clone()

	if patch.Category != nil && *patch.Category != next.Category {
		switched, err := switchCategory(next, *patch.Category)
		if err != nil {
			return err
		}
		next = switched
	}

	applyCommonFields(&next, patch)
	applyOfferingPatch(&next, patch)
	next.Normalize()

	if err := next.CheckEnums(); err != nil {
		return err
	}
	s.card = next
	return nil
}

func switchCategory(prev models.CardData, target models.Category) (models.CardData, error) {
	next, err := models.Defaults(target)
	if err != nil {
		return models.CardData{}, err
	}

	identity := next.Identity()
	if err := mergo.Merge(&identity, trimIdentity(prev.Identity()), mergo.WithOverride); err != nil {
		return models.CardData{}, fmt.Errorf("carry over identity: %w", err)
	}
	next.SetIdentity(identity)
	if prev.Kind != "" {
		next.Kind = prev.Kind
	}
	return next, nil
}

// trimIdentity blanks whitespace-only values so the merge treats them as
// missing.
func trimIdentity(id models.Identity) models.Identity {
	for _, f := range []*string{&id.Name, &id.Location, &id.ContactPerson, &id.PrimaryPhone, &id.SecondaryPhone, &id.Relationship} {
		*f = strings.TrimSpace(*f)
	}
	return id
}

func applyCommonFields(card *models.CardData, p models.CardPatch) {
	setString(&card.Name, p.Name)
	setString(&card.Location, p.Location)
	setString(&card.ContactPerson, p.ContactPerson)
	setString(&card.PrimaryPhone, p.PrimaryPhone)
	setString(&card.SecondaryPhone, p.SecondaryPhone)
	setString(&card.Relationship, p.Relationship)
	setString(&card.Message, p.Message)
	if p.Kind != nil {
		card.Kind = *p.Kind
	}
	if p.Availability != nil {
		card.Availability = *p.Availability
	}
	if p.Urgency != nil {
		card.Urgency = *p.Urgency
	}
}

// applyOfferingPatch only touches the active category's sub-record; patches
// aimed at other categories are ignored so nothing stale gets attached.
func applyOfferingPatch(card *models.CardData, p models.CardPatch) {
	card.Normalize()

	switch card.Category {
	case models.CategoryBlood:
		if p.Blood != nil {
			setString(&card.Blood.BloodType, p.Blood.BloodType)
			setString(&card.Blood.LastDonation, p.Blood.LastDonation)
			if p.Blood.DonationCount != nil {
				card.Blood.DonationCount = *p.Blood.DonationCount
			}
		}
	case models.CategoryOrgans:
		if p.Organs != nil {
			setString(&card.Organs.OrganType, p.Organs.OrganType)
			setString(&card.Organs.HealthStatus, p.Organs.HealthStatus)
		}
	case models.CategoryFundraiser:
		if p.Fundraiser != nil {
			setString(&card.Fundraiser.MaxAmount, p.Fundraiser.MaxAmount)
			setString(&card.Fundraiser.PreferredUse, p.Fundraiser.PreferredUse)
			setString(&card.Fundraiser.Requirements, p.Fundraiser.Requirements)
		}
	case models.CategoryMedicines:
		if p.Medicines != nil {
			if p.Medicines.MedicineTypes != nil {
				card.Medicines.MedicineTypes = append([]string{}, (*p.Medicines.MedicineTypes)...)
			}
			setString(&card.Medicines.Quantity, p.Medicines.Quantity)
			setString(&card.Medicines.Expiry, p.Medicines.Expiry)
		}
	case models.CategorySupplies:
		if p.Supplies != nil {
			setString(&card.Supplies.SuppliesType, p.Supplies.SuppliesType)
			setString(&card.Supplies.Quantity, p.Supplies.Quantity)
		}
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// IsValid reports whether the card is complete enough to export.
func (s *CardState) IsValid() bool {
	return len(ValidateCard(s.card)) == 0
}

func (s *CardState) Validate() ValidationErrors {
	return ValidateCard(s.card)
}

// ValidateCard checks the required common fields and the active category's
// required sub-fields.
func ValidateCard(card models.CardData) ValidationErrors {
	var errs ValidationErrors
	required := []struct {
		field string
		value string
	}{
		{"name", card.Name},
		{"location", card.Location},
		{"contact_person", card.ContactPerson},
		{"primary_phone", card.PrimaryPhone},
		{"message", card.Message},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.field, Message: "is required"})
		}
	}

	switch off := card.Offering().(type) {
	case models.BloodOffering:
		if strings.TrimSpace(off.BloodType) == "" {
			errs = append(errs, FieldError{Field: "blood_offering.blood_type", Message: "is required"})
		}
	case models.OrganOffering:
		if strings.TrimSpace(off.OrganType) == "" {
			errs = append(errs, FieldError{Field: "organ_offering.organ_type", Message: "is required"})
		}
	case models.FundraiserOffering:
		if _, ok := parseAmount(off.MaxAmount); !ok {
			errs = append(errs, FieldError{Field: "fundraiser_offering.max_amount", Message: "must be a positive number"})
		}
	case models.MedicineOffering:
		if len(off.NonBlankMedicines()) == 0 {
			errs = append(errs, FieldError{Field: "medicine_offering.medicine_types", Message: "needs at least one medicine"})
		}
	case models.SuppliesOffering:
		if strings.TrimSpace(off.SuppliesType) == "" {
			errs = append(errs, FieldError{Field: "supplies_offering.supplies_type", Message: "is required"})
		}
	default:
		errs = append(errs, FieldError{Field: "category", Message: "is not a known category"})
	}
	return errs
}

// parseAmount accepts a finite, strictly positive number.
func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}
