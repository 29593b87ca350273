package models

type CustName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Address struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type Phone struct {
	Type        string `json:"type,omitempty"`
	PhoneNumber string `json:"phone_number"`
	Extension   string `json:"extension,omitempty"`
}

// Customer is the profile document stored under customer_<custId>.
// Address is keyed by a caller-chosen label such as "home" or "work".
type Customer struct {
	Doc              DocMeta            `json:"doc"`
	ID               string             `json:"_id"`
	CustID           int64              `json:"custId"`
	CustName         CustName           `json:"custName"`
	Username         string             `json:"username"`
	Email            string             `json:"email"`
	CreatedOn        string             `json:"createdOn"`
	Address          map[string]Address `json:"address"`
	MainPhone        *Phone             `json:"mainPhone,omitempty"`
	AdditionalPhones []Phone            `json:"additionalPhones,omitempty"`
}
