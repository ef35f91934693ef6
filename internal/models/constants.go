package models

// PropertyStatus константы статусов объектов недвижимости
const (
	PropertyStatusAvailable   = "available"
	PropertyStatusRented      = "rented"
	PropertyStatusSold        = "sold"
	PropertyStatusUnavailable = "unavailable"
)

// DealType константы типов сделки по объявлению
const (
	DealTypeRent = "rent"
	DealTypeSale = "sale"
)

// VisitStatus константы статусов заявок на просмотр
const (
	VisitStatusPendingOwner  = "pending_owner"
	VisitStatusPendingClient = "pending_client"
	VisitStatusScheduled     = "scheduled"
	VisitStatusCompleted     = "completed"
	VisitStatusDeclined      = "declined"
	VisitStatusCancelled     = "cancelled"
)

// VisitActor стороны переговоров о просмотре
const (
	VisitActorClient = "client"
	VisitActorOwner  = "owner"
)

// VisitAction действия сторон в переговорах
const (
	VisitActionAccept  = "accept"
	VisitActionDecline = "decline"
	VisitActionReject  = "reject"
	VisitActionPropose = "propose"
)

// ContractKind константы видов договоров
const (
	ContractKindRental = "rental"
	ContractKindSale   = "sale"
)

// ContractStatus константы статусов договоров
const (
	ContractStatusPendingSignatures = "pending_signatures"
	ContractStatusActive            = "active"
	ContractStatusCancelled         = "cancelled"
)

// ValidPropertyStatuses список валидных статусов объектов
var ValidPropertyStatuses = map[string]struct{}{
	PropertyStatusAvailable:   {},
	PropertyStatusRented:      {},
	PropertyStatusSold:        {},
	PropertyStatusUnavailable: {},
}

// ActiveVisitStatuses статусы, при которых заявка считается активной:
// у клиента может быть не более одной активной заявки на объект.
var ActiveVisitStatuses = []string{
	VisitStatusPendingOwner,
	VisitStatusPendingClient,
	VisitStatusScheduled,
}

// ValidContractKinds список валидных видов договоров
var ValidContractKinds = map[string]struct{}{
	ContractKindRental: {},
	ContractKindSale:   {},
}
