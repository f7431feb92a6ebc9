package models

// Shop roles.
const (
	RoleOwner   = "OWNER"
	RoleAdvisor = "ADVISOR"
	RoleForeman = "FOREMAN"
)

// AllRoles lists every role that reads the board.
var AllRoles = []string{RoleAdvisor, RoleForeman, RoleOwner}

// Work types. Each order and bay belongs to exactly one, and the two
// partitions render as independent boards.
const (
	WorkTypeMechanic = "MECHANIC"
	WorkTypeBody     = "BODY"
)

// Payment methods recorded at settlement.
const (
	PaymentCash      = "CASH"
	PaymentCheque    = "CHEQUE"
	PaymentAbandoned = "ABANDONED"
)
