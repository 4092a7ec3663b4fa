package types

// ContractStatus represents the lifecycle state of a lease contract.
// Only active contracts are considered by the rent-generation task.
type ContractStatus string

const (
	ContractActive     ContractStatus = "active"
	ContractTerminated ContractStatus = "terminated"
	ContractExpired    ContractStatus = "expired"
	ContractSuspended  ContractStatus = "suspended"
)

// RentStatus represents the payment state of a single billing period.
type RentStatus string

const (
	RentPending RentStatus = "pending"
	RentPartial RentStatus = "partial"
	RentLate    RentStatus = "late"
	RentPaid    RentStatus = "paid"
)

// PropertyKind categorizes a rental property.
type PropertyKind string

const (
	PropertyApartment  PropertyKind = "apartment"
	PropertyHouse      PropertyKind = "house"
	PropertyGarage     PropertyKind = "garage"
	PropertyCommercial PropertyKind = "commercial"
)

// PaymentMethod identifies how a payment was made.
type PaymentMethod string

const (
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentCheque      PaymentMethod = "cheque"
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentDirectDebit PaymentMethod = "direct_debit"
)

// AllPaymentMethods lists the valid payment methods for validation.
var AllPaymentMethods = []PaymentMethod{
	PaymentTransfer,
	PaymentCheque,
	PaymentCash,
	PaymentCard,
	PaymentDirectDebit,
}
