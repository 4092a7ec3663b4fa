package types

import (
	"time"
)

// Property represents a rental unit under management.
type Property struct {
	ID         string       `json:"id" db:"id"`
	Address    string       `json:"address" db:"address"`
	City       string       `json:"city" db:"city"`
	PostalCode string       `json:"postal_code" db:"postal_code"`
	Kind       PropertyKind `json:"kind" db:"kind"`
	SurfaceM2  float64      `json:"surface_m2" db:"surface_m2"`
	Rooms      int          `json:"rooms" db:"rooms"`
	Notes      string       `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// Tenant represents a person renting under one or more contracts.
type Tenant struct {
	ID        string    `json:"id" db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the tenant's full name for summaries and logs.
func (t *Tenant) DisplayName() string {
	if t.FirstName == "" {
		return t.LastName
	}
	return t.FirstName + " " + t.LastName
}

// Contract is a lease agreement binding a property to one or more tenants
// with recurring monetary terms. PaymentDay is the day of month (1-31) on
// which the rent for the current period falls due.
type Contract struct {
	ID             string         `json:"id" db:"id"`
	PropertyID     string         `json:"property_id" db:"property_id"`
	BaseRent       float64        `json:"base_rent" db:"base_rent"`
	MonthlyCharges float64        `json:"monthly_charges" db:"monthly_charges"`
	Deposit        float64        `json:"deposit" db:"deposit"`
	StartDate      time.Time      `json:"start_date" db:"start_date"`
	EndDate        *time.Time     `json:"end_date,omitempty" db:"end_date"`
	PaymentDay     int            `json:"payment_day" db:"payment_day"`
	Status         ContractStatus `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`

	// Hydrated fields (not columns on the contracts table).
	Tenants  []Tenant  `json:"tenants,omitempty" db:"-"`
	Property *Property `json:"property,omitempty" db:"-"`
}

// MonthlyTotal returns the full amount due each billing period.
func (c *Contract) MonthlyTotal() float64 {
	return c.BaseRent + c.MonthlyCharges
}

// Rent is one billing-period record owed under a contract. Exactly zero or
// one Rent exists per (contract, period month, period year); the generation
// task must never create a duplicate.
type Rent struct {
	ID          string     `json:"id" db:"id"`
	ContractID  string     `json:"contract_id" db:"contract_id"`
	PeriodMonth int        `json:"period_month" db:"period_month"`
	PeriodYear  int        `json:"period_year" db:"period_year"`
	AmountDue   float64    `json:"amount_due" db:"amount_due"`
	AmountPaid  float64    `json:"amount_paid" db:"amount_paid"`
	DueDate     time.Time  `json:"due_date" db:"due_date"`
	Status      RentStatus `json:"status" db:"status"`
	Note        string     `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// Hydrated fields.
	Payments []Payment `json:"payments,omitempty" db:"-"`
}

// Payment is a recorded transfer against a specific rent, reducing its
// outstanding balance.
type Payment struct {
	ID        string        `json:"id" db:"id"`
	RentID    string        `json:"rent_id" db:"rent_id"`
	Amount    float64       `json:"amount" db:"amount"`
	PaidAt    time.Time     `json:"paid_at" db:"paid_at"`
	Method    PaymentMethod `json:"method" db:"method"`
	Payer     string        `json:"payer,omitempty" db:"payer"`
	Reference string        `json:"reference,omitempty" db:"reference"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// ContractBilling is the pre-joined view the rent-generation task works on:
// an active contract, the rent already recorded for the target period (nil
// if none), and the display fields used in run summaries.
type ContractBilling struct {
	Contract        Contract
	ExistingRent    *Rent
	PropertyAddress string
	TenantNames     []string
}

// RentStatusRow is the minimal projection the status-recalculation task
// needs for each rent.
type RentStatusRow struct {
	ID         string
	ContractID string
	AmountDue  float64
	AmountPaid float64
	DueDate    time.Time
	Status     RentStatus
}
