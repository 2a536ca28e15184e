package models

const (
	sampleName     = "Kasun Perera"
	sampleLocation = "Colombo 07, Sri Lanka"
	samplePhone    = "+94 77 123 4567"
)

var defaultCards = map[Category]CardData{
	CategoryBlood: {
		Name:          sampleName,
		Category:      CategoryBlood,
		Kind:          KindDonor,
		Location:      sampleLocation,
		ContactPerson: sampleName,
		PrimaryPhone:  samplePhone,
		Relationship:  "Self",
		Message:       "I am a regular blood donor and ready to help anyone in need. Please reach out for urgent requirements.",
		Availability:  AvailableNow,
		Urgency:       UrgencyHigh,
		Blood: &BloodOffering{
			BloodType:     "B+",
			LastDonation:  "2024-01-15",
			DonationCount: 5,
		},
	},
	CategoryOrgans: {
		Name:          sampleName,
		Category:      CategoryOrgans,
		Kind:          KindDonor,
		Location:      sampleLocation,
		ContactPerson: sampleName,
		PrimaryPhone:  samplePhone,
		Relationship:  "Self",
		Message:       "I have registered as a living organ donor and would like to help a patient who needs a match.",
		Availability:  AvailableUponRequest,
		Urgency:       UrgencyMedium,
		Organs: &OrganOffering{
			OrganType:    "Kidney",
			HealthStatus: "Excellent",
		},
	},
	CategoryFundraiser: {
		Name:          sampleName,
		Category:      CategoryFundraiser,
		Kind:          KindDonor,
		Location:      sampleLocation,
		ContactPerson: sampleName,
		PrimaryPhone:  samplePhone,
		Relationship:  "Self",
		Message:       "I can contribute towards medical treatment costs for patients facing financial hardship.",
		Availability:  AvailableWithinWeek,
		Urgency:       UrgencyMedium,
		Fundraiser: &FundraiserOffering{
			MaxAmount:    "500000",
			PreferredUse: "Medical Treatment",
			Requirements: "Verified medical documents",
		},
	},
	CategoryMedicines: {
		Name:          sampleName,
		Category:      CategoryMedicines,
		Kind:          KindDonor,
		Location:      sampleLocation,
		ContactPerson: sampleName,
		PrimaryPhone:  samplePhone,
		Relationship:  "Self",
		Message:       "I have unopened medicines that are well within their expiry date and can donate them.",
		Availability:  AvailableNow,
		Urgency:       UrgencyLow,
		Medicines: &MedicineOffering{
			MedicineTypes: []string{"Paracetamol", "Amoxicillin", "Insulin"},
			Quantity:      "50 units",
			Expiry:        "2026-12-31",
		},
	},
	CategorySupplies: {
		Name:          sampleName,
		Category:      CategorySupplies,
		Kind:          KindDonor,
		Location:      sampleLocation,
		ContactPerson: sampleName,
		PrimaryPhone:  samplePhone,
		Relationship:  "Self",
		Message:       "I can donate medical equipment in good condition to a patient or care home.",
		Availability:  AvailableNow,
		Urgency:       UrgencyLow,
		Supplies: &SuppliesOffering{
			SuppliesType: "Wheelchair",
			Quantity:     "2 units",
		},
	},
}

// Defaults returns a deep copy of the sample card for category c.
func Defaults(c Category) (CardData, error) {
	card, ok := defaultCards[c]
	if !ok {
		return CardData{}, ErrInvalidCategory
	}
	return card.Clone(), nil
}

// MustDefaults is Defaults for categories known at compile time.
func MustDefaults(c Category) CardData {
	card, err := Defaults(c)
	if err != nil {
		panic(err)
	}
	return card
}
