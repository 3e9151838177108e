package enums

import "fmt"

// ProductType categorizes the item behind a partner link. Some categories
// are excluded from commission accrual by policy.
type ProductType string

const (
	ProductTypeGeneral        ProductType = "general"
	ProductTypeFashion        ProductType = "fashion"
	ProductTypeElectronics    ProductType = "electronics"
	ProductTypeFood           ProductType = "food"
	ProductTypePharmaceutical ProductType = "pharmaceutical"
)

var validProductTypes = []ProductType{
	ProductTypeGeneral,
	ProductTypeFashion,
	ProductTypeElectronics,
	ProductTypeFood,
	ProductTypePharmaceutical,
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductType.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsCommissionable reports whether conversions for this category may accrue
// commission. Pharmaceuticals are excluded by policy.
func (p ProductType) IsCommissionable() bool {
	return p != ProductTypePharmaceutical
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
