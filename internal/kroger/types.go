package kroger

// Response envelopes and entities for the Kroger Public API. Fields not
// needed by any tool are omitted; unknown JSON keys are ignored on decode.

// Meta carries pagination details on list responses.
type Meta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Start int `json:"start"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type Address struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
	County       string `json:"county,omitempty"`
}

type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	LatLng    string  `json:"latLng,omitempty"`
}

type Department struct {
	DepartmentID string `json:"departmentId"`
	Name         string `json:"name"`
}

type Location struct {
	LocationID  string       `json:"locationId"`
	Chain       string       `json:"chain"`
	Name        string       `json:"name"`
	Phone       string       `json:"phone,omitempty"`
	Address     Address      `json:"address"`
	Geolocation *Geolocation `json:"geolocation,omitempty"`
	Departments []Department `json:"departments,omitempty"`
}

type LocationsResponse struct {
	Data []Location `json:"data"`
	Meta *Meta      `json:"meta,omitempty"`
}

type LocationResponse struct {
	Data Location `json:"data"`
}

type Chain struct {
	Name      string   `json:"name"`
	Divisions []string `json:"divisions,omitempty"`
}

type ChainsResponse struct {
	Data []Chain `json:"data"`
}

type ChainResponse struct {
	Data Chain `json:"data"`
}

type DepartmentsResponse struct {
	Data []Department `json:"data"`
}

type DepartmentResponse struct {
	Data Department `json:"data"`
}

type Price struct {
	Regular float64 `json:"regular"`
	Promo   float64 `json:"promo,omitempty"`
}

type Fulfillment struct {
	Curbside   bool `json:"curbside"`
	Delivery   bool `json:"delivery"`
	InStore    bool `json:"inStore"`
	ShipToHome bool `json:"shipToHome"`
}

type ProductItem struct {
	ItemID      string       `json:"itemId"`
	Size        string       `json:"size,omitempty"`
	Price       *Price       `json:"price,omitempty"`
	Fulfillment *Fulfillment `json:"fulfillment,omitempty"`
}

type Product struct {
	ProductID   string        `json:"productId"`
	UPC         string        `json:"upc"`
	Brand       string        `json:"brand,omitempty"`
	Description string        `json:"description"`
	Categories  []string      `json:"categories,omitempty"`
	Items       []ProductItem `json:"items,omitempty"`
}

type ProductsResponse struct {
	Data []Product `json:"data"`
	Meta *Meta     `json:"meta,omitempty"`
}

type ProductResponse struct {
	Data Product `json:"data"`
}

// CartItem is one entry for the cart add endpoint. Modality, when set, is
// either DELIVERY or PICKUP.
type CartItem struct {
	UPC      string `json:"upc"`
	Quantity int    `json:"quantity"`
	Modality string `json:"modality,omitempty"`
}

// Profile is the authenticated customer's identity record.
type Profile struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}
