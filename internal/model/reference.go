package model

// BloodType is one of the eight ABO/Rh combinations.
type BloodType struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Location is one of the enumerated donation regions.
type Location struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// BloodTypeNames lists the seeded blood types in id order.
var BloodTypeNames = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// LocationNames lists the seeded regions in id order.
var LocationNames = []string{
	"Beirut",
	"Mount Lebanon",
	"North Lebanon",
	"Tripoli",
	"Akkar",
	"Beqaa",
	"Baalbek-Hermel",
	"South Lebanon",
	"Nabatieh",
}
