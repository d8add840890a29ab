// internal/domain/property/entity.go
package property

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Landlord owns one or more properties and is billed a monthly service charge.
type Landlord struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Phone     string         `json:"phone" db:"phone"`
	Email     sql.NullString `json:"email,omitempty" db:"email"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

type Property struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	LandlordID uuid.UUID      `json:"landlord_id" db:"landlord_id"`
	Name       string         `json:"name" db:"name"`
	Location   sql.NullString `json:"location,omitempty" db:"location"`
	UnitCount  int64          `json:"unit_count" db:"unit_count"`
	Amenities  pq.StringArray `json:"amenities,omitempty" db:"amenities"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// Lease ties a tenant to a unit on a property; rent invoices hang off it.
type Lease struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	PropertyID  uuid.UUID       `json:"property_id" db:"property_id"`
	TenantName  string          `json:"tenant_name" db:"tenant_name"`
	TenantPhone string          `json:"tenant_phone" db:"tenant_phone"`
	MonthlyRent decimal.Decimal `json:"monthly_rent" db:"monthly_rent"`
	StartDate   time.Time       `json:"start_date" db:"start_date"`
	EndDate     sql.NullTime    `json:"end_date,omitempty" db:"end_date"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
