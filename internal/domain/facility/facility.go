package facility

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeHospital              Type = "hospital"
	TypeClinic                Type = "clinic"
	TypeHealthCenter          Type = "health_center"
	TypeBarangayHealthStation Type = "barangay_health_station"
	TypeSpecialtyCenter       Type = "specialty_center"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeHospital, TypeClinic, TypeHealthCenter, TypeBarangayHealthStation, TypeSpecialtyCenter:
		return true
	}
	return false
}

// Facility is a directory record. It changes only through admin CRUD and is
// read far more often than written.
type Facility struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`

	Code string `gorm:"column:code;type:varchar(30);uniqueIndex;not null" json:"code"`
	Name string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Type Type   `gorm:"column:type;type:varchar(40);not null;index" json:"type"`

	Address   string  `gorm:"column:address;type:text" json:"address,omitempty"`
	City      string  `gorm:"column:city;type:varchar(100);index" json:"city"`
	Province  string  `gorm:"column:province;type:varchar(100);index" json:"province"`
	Region    string  `gorm:"column:region;type:varchar(50);not null;index" json:"region"`
	Latitude  float64 `gorm:"column:latitude" json:"latitude"`
	Longitude float64 `gorm:"column:longitude" json:"longitude"`

	Phone string `gorm:"column:phone;type:varchar(30)" json:"phone,omitempty"`
	Email string `gorm:"column:email;type:varchar(255)" json:"email,omitempty"`

	Services []string `gorm:"column:services;type:jsonb;serializer:json" json:"services"`

	BedCapacity      int `gorm:"column:bed_capacity;default:0" json:"bed_capacity"`
	AvailableBeds    int `gorm:"column:available_beds;default:0" json:"available_beds"`
	ICUCapacity      int `gorm:"column:icu_capacity;default:0" json:"icu_capacity"`
	AvailableICUBeds int `gorm:"column:available_icu_beds;default:0" json:"available_icu_beds"`

	IsPhilHealthAccredited bool `gorm:"column:is_philhealth_accredited;default:false" json:"is_philhealth_accredited"`
	IsDOHLicensed          bool `gorm:"column:is_doh_licensed;default:false" json:"is_doh_licensed"`
	HasCardiologyUnit      bool `gorm:"column:has_cardiology_unit;default:false;index" json:"has_cardiology_unit"`
	HasEmergencyRoom       bool `gorm:"column:has_emergency_room;default:false" json:"has_emergency_room"`

	IsActive bool `gorm:"column:is_active;default:true;index" json:"is_active"`
}

func (Facility) TableName() string {
	return "directory.facilities"
}

func (f *Facility) OffersService(service string) bool {
	for _, s := range f.Services {
		if s == service {
			return true
		}
	}
	return false
}

type Capacity struct {
	FacilityID       uuid.UUID `json:"facility_id"`
	BedCapacity      int       `json:"bed_capacity"`
	AvailableBeds    int       `json:"available_beds"`
	BedOccupancy     float64   `json:"bed_occupancy"`
	ICUCapacity      int       `json:"icu_capacity"`
	AvailableICUBeds int       `json:"available_icu_beds"`
	ICUOccupancy     float64   `json:"icu_occupancy"`
}

func occupancy(capacity, available int) float64 {
	if capacity <= 0 {
		return 0
	}
	used := capacity - available
	if used < 0 {
		used = 0
	}
	return float64(used) / float64(capacity)
}

func (f *Facility) Capacity() Capacity {
	return Capacity{
		FacilityID:       f.ID,
		BedCapacity:      f.BedCapacity,
		AvailableBeds:    f.AvailableBeds,
		BedOccupancy:     occupancy(f.BedCapacity, f.AvailableBeds),
		ICUCapacity:      f.ICUCapacity,
		AvailableICUBeds: f.AvailableICUBeds,
		ICUOccupancy:     occupancy(f.ICUCapacity, f.AvailableICUBeds),
	}
}

const earthRadiusKm = 6371.0

// DistanceKm is the haversine great-circle distance between two points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Nearby is a facility annotated with its great-circle distance from the
// origin facility.
type Nearby struct {
	Facility
	DistanceKm float64 `gorm:"column:distance_km" json:"distance_km"`
}

type CreateFacilityCommand struct {
	Code                   string
	Name                   string
	Type                   Type
	Address                string
	City                   string
	Province               string
	Region                 string
	Latitude               float64
	Longitude              float64
	Phone                  string
	Email                  string
	Services               []string
	BedCapacity            int
	AvailableBeds          int
	ICUCapacity            int
	AvailableICUBeds       int
	IsPhilHealthAccredited bool
	IsDOHLicensed          bool
	HasCardiologyUnit      bool
	HasEmergencyRoom       bool
}

type UpdateFacilityCommand struct {
	Name                   *string
	Type                   *Type
	Address                *string
	City                   *string
	Province               *string
	Region                 *string
	Latitude               *float64
	Longitude              *float64
	Phone                  *string
	Email                  *string
	Services               *[]string
	BedCapacity            *int
	AvailableBeds          *int
	ICUCapacity            *int
	AvailableICUBeds       *int
	IsPhilHealthAccredited *bool
	IsDOHLicensed          *bool
	HasCardiologyUnit      *bool
	HasEmergencyRoom       *bool
	IsActive               *bool
}

// Apply copies every non-nil field of cmd onto f.
func (f *Facility) Apply(cmd *UpdateFacilityCommand) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}

	setString(&f.Name, cmd.Name)
	if cmd.Type != nil {
		f.Type = *cmd.Type
	}
	setString(&f.Address, cmd.Address)
	setString(&f.City, cmd.City)
	setString(&f.Province, cmd.Province)
	setString(&f.Region, cmd.Region)
	if cmd.Latitude != nil {
		f.Latitude = *cmd.Latitude
	}
	if cmd.Longitude != nil {
		f.Longitude = *cmd.Longitude
	}
	setString(&f.Phone, cmd.Phone)
	setString(&f.Email, cmd.Email)
	if cmd.Services != nil {
		f.Services = *cmd.Services
	}
	setInt(&f.BedCapacity, cmd.BedCapacity)
	setInt(&f.AvailableBeds, cmd.AvailableBeds)
	setInt(&f.ICUCapacity, cmd.ICUCapacity)
	setInt(&f.AvailableICUBeds, cmd.AvailableICUBeds)
	setBool(&f.IsPhilHealthAccredited, cmd.IsPhilHealthAccredited)
	setBool(&f.IsDOHLicensed, cmd.IsDOHLicensed)
	setBool(&f.HasCardiologyUnit, cmd.HasCardiologyUnit)
	setBool(&f.HasEmergencyRoom, cmd.HasEmergencyRoom)
	setBool(&f.IsActive, cmd.IsActive)
}

// ValidCapacity checks that available counts never exceed totals.
func (f *Facility) ValidCapacity() bool {
	return f.BedCapacity >= 0 && f.ICUCapacity >= 0 &&
		f.AvailableBeds >= 0 && f.AvailableBeds <= f.BedCapacity &&
		f.AvailableICUBeds >= 0 && f.AvailableICUBeds <= f.ICUCapacity
}

// ListFacilitiesQuery filters the directory. IsActive defaults to true when nil
// at the service layer.
type ListFacilitiesQuery struct {
	Region            string
	Province          string
	City              string
	Type              *Type
	Service           string
	HasCardiologyUnit *bool
	HasEmergencyRoom  *bool
	Search            string
	IsActive          *bool
	Page              int
	PageSize          int
}

type PagedFacilities struct {
	Facilities []*Facility
	TotalCount int64
	Page       int
	PageSize   int
}

type SyncRecord struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Region    string    `json:"region"`
	City      string    `json:"city"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Phone     string    `json:"phone,omitempty"`
	Services  []string  `json:"services"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *Facility) ToSyncRecord() SyncRecord {
	return SyncRecord{
		ID:        f.ID,
		Code:      f.Code,
		Name:      f.Name,
		Type:      f.Type,
		Region:    f.Region,
		City:      f.City,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Phone:     f.Phone,
		Services:  f.Services,
		IsActive:  f.IsActive,
		UpdatedAt: f.UpdatedAt,
	}
}
