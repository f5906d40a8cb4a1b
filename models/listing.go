package models

// PropertyType classifies a listing by usage
type PropertyType string

const (
	PropertyTypeResidential PropertyType = "Residential"
	PropertyTypeCommercial  PropertyType = "Commercial"
	PropertyTypeOffice      PropertyType = "Office"
)

// TransactionType classifies a listing as a rental or a sale
type TransactionType string

const (
	TransactionTypeRent TransactionType = "Rent"
	TransactionTypeSale TransactionType = "Sale"
)

// AddressNotSpecified is the display fallback when no location pattern matches
const AddressNotSpecified = "Address not specified"

// PriceOnRequest is the display fallback when no price pattern matches
const PriceOnRequest = "Price on request"

// RawMessage is a single chat entry produced by the segmenter (or by the
// webhook, which yields exactly one per inbound call).
type RawMessage struct {
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
}

// PropertyListing is the structured record derived from one broker message.
// Every field is derived purely from RawMessage; absence of a signal yields
// the documented default, never an error. Records are immutable once built.
type PropertyListing struct {
	ID              string          `json:"id" db:"id"`
	Timestamp       string          `json:"timestamp" db:"timestamp"`
	Sender          string          `json:"sender" db:"sender"`
	PropertyType    PropertyType    `json:"property_type" db:"property_type"`
	TransactionType TransactionType `json:"transaction_type" db:"transaction_type"`
	BHKConfig       string          `json:"bhk_config" db:"bhk_config"`
	Address         string          `json:"address" db:"address"`
	PinCode         string          `json:"pin_code" db:"pin_code"`
	CarpetArea      string          `json:"carpet_area" db:"carpet_area"`
	Price           string          `json:"price" db:"price"`
	PriceNumeric    float64         `json:"price_numeric" db:"price_numeric"`
	Condition       string          `json:"condition" db:"condition"`
	Floor           string          `json:"floor" db:"floor"`
	Possession      string          `json:"possession" db:"possession"`
	Deposit         string          `json:"deposit" db:"deposit"`
	Parking         bool            `json:"parking" db:"parking"`
	Contact         []string        `json:"contact" db:"contact"`
	Amenities       []string        `json:"amenities" db:"amenities"`
	RawMessage      string          `json:"raw_message" db:"raw_message"`
}

// ListingStats feeds the dashboard summary cards
type ListingStats struct {
	Total       int `json:"total"`
	ForRent     int `json:"for_rent"`
	ForSale     int `json:"for_sale"`
	Residential int `json:"residential"`
	PinCodes    int `json:"pin_codes"`
}
