package audithook

// Action constants for audit events.
const (
	// Property actions
	ActionPropertyRegistered = "property.registered"
	ActionRentRateUpdated    = "property.rent_rate_updated"

	// Trading actions
	ActionSharesPurchased = "shares.purchased"
	ActionSharesSold      = "shares.sold"

	// Rent actions
	ActionRentReceived         = "rent.received"
	ActionDividendsDistributed = "dividends.distributed"

	// Lifecycle actions
	ActionLedgerObsoleted = "ledger.obsoleted"
)

// Resource constants for audit events.
const (
	ResourceProperty     = "property"
	ResourceTrade        = "trade"
	ResourceRentReceipt  = "rent_receipt"
	ResourceDistribution = "distribution"
	ResourceLedger       = "ledger"
)

// Category constants for audit events.
const (
	CategoryRegistry  = "registry"
	CategoryTrading   = "trading"
	CategoryRent      = "rent"
	CategoryLifecycle = "lifecycle"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
