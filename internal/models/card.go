package models

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindDonor     Kind = "donor"
	KindRecipient Kind = "recipient"
)

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

type Availability string

const (
	AvailableNow         Availability = "Available Now"
	AvailableWithin24h   Availability = "Within 24 Hours"
	AvailableWithinWeek  Availability = "Within a Week"
	AvailableWithinMonth Availability = "Within a Month"
	AvailableUponRequest Availability = "Upon Request"
)

var (
	ErrInvalidKind         = errors.New("invalid card kind")
	ErrInvalidUrgency      = errors.New("invalid urgency")
	ErrInvalidAvailability = errors.New("invalid availability")
)

// Availabilities lists the accepted availability values.
var Availabilities = []Availability{
	AvailableNow,
	AvailableWithin24h,
	AvailableWithinWeek,
	AvailableWithinMonth,
	AvailableUponRequest,
}

func (k Kind) IsValid() bool {
	return k == KindDonor || k == KindRecipient
}

func (u Urgency) IsValid() bool {
	return u == UrgencyHigh || u == UrgencyMedium || u == UrgencyLow
}

// Label returns the capitalized urgency ("High").
func (u Urgency) Label() string {
	if u == "" {
		return ""
	}
	s := string(u)
	return strings.ToUpper(s[:1]) + s[1:]
}

func (a Availability) IsValid() bool {
	for _, v := range Availabilities {
		if v == a {
			return true
		}
	}
	return false
}

// Offering is the category-specific part of a card. Exactly one is active,
// selected by CardData.Category.
type Offering interface {
	OfferingCategory() Category
}

type BloodOffering struct {
	BloodType     string `json:"blood_type"`
	LastDonation  string `json:"last_donation"`
	DonationCount int    `json:"donation_count"`
}

type OrganOffering struct {
	OrganType    string `json:"organ_type"`
	HealthStatus string `json:"health_status"`
}

type FundraiserOffering struct {
	MaxAmount    string `json:"max_amount"`
	PreferredUse string `json:"preferred_use"`
	Requirements string `json:"requirements"`
}

type MedicineOffering struct {
	MedicineTypes []string `json:"medicine_types"`
	Quantity      string   `json:"quantity"`
	Expiry        string   `json:"expiry"`
}

type SuppliesOffering struct {
	SuppliesType string `json:"supplies_type"`
	Quantity     string `json:"quantity"`
}

func (BloodOffering) OfferingCategory() Category      { return CategoryBlood }
func (OrganOffering) OfferingCategory() Category      { return CategoryOrgans }
func (FundraiserOffering) OfferingCategory() Category { return CategoryFundraiser }
func (MedicineOffering) OfferingCategory() Category   { return CategoryMedicines }
func (SuppliesOffering) OfferingCategory() Category   { return CategorySupplies }

// NonBlankMedicines returns the medicine types that contain something other than whitespace.
func (m MedicineOffering) NonBlankMedicines() []string {
	out := make([]string, 0, len(m.MedicineTypes))
	for _, t := range m.MedicineTypes {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// CardData describes one shareable offer or request.
type CardData struct {
	Name           string       `json:"name"`
	Category       Category     `json:"category"`
	Kind           Kind         `json:"kind"`
	Location       string       `json:"location"`
	ContactPerson  string       `json:"contact_person"`
	PrimaryPhone   string       `json:"primary_phone"`
	SecondaryPhone string       `json:"secondary_phone,omitempty"`
	Relationship   string       `json:"relationship"`
	Message        string       `json:"message"`
	Availability   Availability `json:"availability"`
	Urgency        Urgency      `json:"urgency"`

	Blood      *BloodOffering      `json:"blood_offering,omitempty"`
	Organs     *OrganOffering      `json:"organ_offering,omitempty"`
	Fundraiser *FundraiserOffering `json:"fundraiser_offering,omitempty"`
	Medicines  *MedicineOffering   `json:"medicine_offering,omitempty"`
	Supplies   *SuppliesOffering   `json:"supplies_offering,omitempty"`
}

// Identity is the set of fields carried across a category switch.
type Identity struct {
	Name           string
	Location       string
	ContactPerson  string
	PrimaryPhone   string
	SecondaryPhone string
	Relationship   string
}

func (c CardData) Identity() Identity {
	return Identity{
		Name:           c.Name,
		Location:       c.Location,
		ContactPerson:  c.ContactPerson,
		PrimaryPhone:   c.PrimaryPhone,
		SecondaryPhone: c.SecondaryPhone,
		Relationship:   c.Relationship,
	}
}

func (c *CardData) SetIdentity(id Identity) {
	c.Name = id.Name
	c.Location = id.Location
	c.ContactPerson = id.ContactPerson
	c.PrimaryPhone = id.PrimaryPhone
	c.SecondaryPhone = id.SecondaryPhone
	c.Relationship = id.Relationship
}

// Offering returns the active sub-record. It never reads a sibling that does
// not belong to the current category; a missing active record reads as empty.
func (c CardData) Offering() Offering {
	switch c.Category {
	case CategoryBlood:
		if c.Blood != nil {
			return *c.Blood
		}
		return BloodOffering{}
	case CategoryOrgans:
		if c.Organs != nil {
			return *c.Organs
		}
		return OrganOffering{}
	case CategoryFundraiser:
		if c.Fundraiser != nil {
			return *c.Fundraiser
		}
		return FundraiserOffering{}
	case CategoryMedicines:
		if c.Medicines != nil {
			return *c.Medicines
		}
		return MedicineOffering{}
	case CategorySupplies:
		if c.Supplies != nil {
			return *c.Supplies
		}
		return SuppliesOffering{}
	}
	return nil
}

// Normalize drops every sub-record that does not belong to the active
// category and allocates the active one if it is missing.
func (c *CardData) Normalize() {
	blood, organs, fund, meds, supplies := c.Blood, c.Organs, c.Fundraiser, c.Medicines, c.Supplies
	c.Blood, c.Organs, c.Fundraiser, c.Medicines, c.Supplies = nil, nil, nil, nil, nil

	switch c.Category {
	case CategoryBlood:
		if blood == nil {
			blood = &BloodOffering{}
		}
		c.Blood = blood
	case CategoryOrgans:
		if organs == nil {
			organs = &OrganOffering{}
		}
		c.Organs = organs
	case CategoryFundraiser:
		if fund == nil {
			fund = &FundraiserOffering{}
		}
		c.Fundraiser = fund
	case CategoryMedicines:
		if meds == nil {
			meds = &MedicineOffering{}
		}
		c.Medicines = meds
	case CategorySupplies:
		if supplies == nil {
			supplies = &SuppliesOffering{}
		}
		c.Supplies = supplies
	}
	if c.Kind == "" {
		c.Kind = KindDonor
	}
}

// Clone returns a deep copy of c.
func (c CardData) Clone() CardData {
	out := c
	if c.Blood != nil {
		v := *c.Blood
		out.Blood = &v
	}
	if c.Organs != nil {
		v := *c.Organs
		out.Organs = &v
	}
	if c.Fundraiser != nil {
		v := *c.Fundraiser
		out.Fundraiser = &v
	}
	if c.Medicines != nil {
		v := *c.Medicines
		v.MedicineTypes = append([]string(nil), c.Medicines.MedicineTypes...)
		out.Medicines = &v
	}
	if c.Supplies != nil {
		v := *c.Supplies
		out.Supplies = &v
	}
	return out
}

// CheckEnums reports the first enumerated field holding an unknown value.
// Empty availability and urgency are accepted.
func (c CardData) CheckEnums() error {
	if !c.Category.IsValid() {
		return ErrInvalidCategory
	}
	if c.Kind != "" && !c.Kind.IsValid() {
		return ErrInvalidKind
	}
	if c.Urgency != "" && !c.Urgency.IsValid() {
		return ErrInvalidUrgency
	}
	if c.Availability != "" && !c.Availability.IsValid() {
		return ErrInvalidAvailability
	}
	return nil
}

// CardPatch is a partial update. Nil fields are left unchanged.
type CardPatch struct {
	Name           *string       `json:"name,omitempty"`
	Category       *Category     `json:"category,omitempty"`
	Kind           *Kind         `json:"kind,omitempty"`
	Location       *string       `json:"location,omitempty"`
	ContactPerson  *string       `json:"contact_person,omitempty"`
	PrimaryPhone   *string       `json:"primary_phone,omitempty"`
	SecondaryPhone *string       `json:"secondary_phone,omitempty"`
	Relationship   *string       `json:"relationship,omitempty"`
	Message        *string       `json:"message,omitempty"`
	Availability   *Availability `json:"availability,omitempty"`
	Urgency        *Urgency      `json:"urgency,omitempty"`

	Blood      *BloodPatch      `json:"blood_offering,omitempty"`
	Organs     *OrganPatch      `json:"organ_offering,omitempty"`
	Fundraiser *FundraiserPatch `json:"fundraiser_offering,omitempty"`
	Medicines  *MedicinePatch   `json:"medicine_offering,omitempty"`
	Supplies   *SuppliesPatch   `json:"supplies_offering,omitempty"`
}

type BloodPatch struct {
	BloodType     *string `json:"blood_type,omitempty"`
	LastDonation  *string `json:"last_donation,omitempty"`
	DonationCount *int    `json:"donation_count,omitempty"`
}

type OrganPatch struct {
	OrganType    *string `json:"organ_type,omitempty"`
	HealthStatus *string `json:"health_status,omitempty"`
}

type FundraiserPatch struct {
	MaxAmount    *string `json:"max_amount,omitempty"`
	PreferredUse *string `json:"preferred_use,omitempty"`
	Requirements *string `json:"requirements,omitempty"`
}

type MedicinePatch struct {
	MedicineTypes *[]string `json:"medicine_types,omitempty"`
	Quantity      *string   `json:"quantity,omitempty"`
	Expiry        *string   `json:"expiry,omitempty"`
}

type SuppliesPatch struct {
	SuppliesType *string `json:"supplies_type,omitempty"`
	Quantity     *string `json:"quantity,omitempty"`
}

// ShareContent is the text projection of a card for messaging apps.
type ShareContent struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// ShareInstructions is shown after the combined download-and-copy action,
// since messengers accept the image and the text only as two manual steps.
type ShareInstructions struct {
	Title        string   `json:"title"`
	Steps        []string `json:"steps"`
	DismissLabel string   `json:"dismiss_label"`
}
