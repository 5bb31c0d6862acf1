package models

// Vendor is a supplier or customer the plant trades with.
type Vendor struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Code      string `json:"vendorCode,omitempty"`
	GSTNumber string `json:"gstNumber,omitempty"`
	Contact   string `json:"contactPerson,omitempty"`
	Phone     string `json:"contactPhone,omitempty"`
	IsActive  bool   `json:"isActive"`
}

// Vehicle is a truck registered at the weighbridge.
type Vehicle struct {
	ID            string  `json:"_id"`
	VehicleNumber string  `json:"vehicleNumber"`
	VehicleType   string  `json:"vehicleType,omitempty"`
	Capacity      float64 `json:"capacity,omitempty"`
	DriverName    string  `json:"driverName,omitempty"`
	DriverPhone   string  `json:"driverPhone,omitempty"`
	IsActive      bool    `json:"isActive"`
}

// Material is a purchasable biofuel feedstock.
type Material struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Code     string `json:"code,omitempty"`
	IsActive bool   `json:"isActive"`
}

// Plant is a site operating a weighbridge.
type Plant struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Code     string `json:"code,omitempty"`
	Location string `json:"location,omitempty"`
	IsActive bool   `json:"isActive"`
}

// Option is the common shape a selection field renders.
type Option struct {
	Value string
	Label string
}

// Option renders the vendor for a selection field.
func (v Vendor) Option() Option { return Option{Value: v.ID, Label: v.Name} }

// Option renders the vehicle for a selection field.
func (v Vehicle) Option() Option { return Option{Value: v.ID, Label: v.VehicleNumber} }

// Option renders the material for a selection field.
func (m Material) Option() Option { return Option{Value: m.ID, Label: m.Name} }

// Option renders the plant for a selection field.
func (p Plant) Option() Option { return Option{Value: p.ID, Label: p.Name} }
