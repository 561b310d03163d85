package lifecycle

// QuoteStatus enumerates quote states.
type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "DRAFT"
	QuoteSent     QuoteStatus = "SENT"
	QuoteApproved QuoteStatus = "APPROVED"
	QuoteRejected QuoteStatus = "REJECTED"
	QuoteExpired  QuoteStatus = "EXPIRED"
	QuoteCanceled QuoteStatus = "CANCELED"
)

// ContractStatus enumerates contract states.
type ContractStatus string

const (
	ContractDraft     ContractStatus = "DRAFT"
	ContractActive    ContractStatus = "ACTIVE"
	ContractConcluded ContractStatus = "CONCLUDED"
	ContractCanceled  ContractStatus = "CANCELED"
)

// Quotes governs quote status changes.
var Quotes = New("quote", QuoteDraft, map[QuoteStatus][]QuoteStatus{
	QuoteDraft:    {QuoteSent, QuoteExpired, QuoteCanceled},
	QuoteSent:     {QuoteApproved, QuoteRejected, QuoteExpired, QuoteCanceled},
	QuoteApproved: nil,
	QuoteRejected: nil,
	QuoteExpired:  nil,
	QuoteCanceled: nil,
})

// Contracts governs contract status changes.
var Contracts = New("contract", ContractDraft, map[ContractStatus][]ContractStatus{
	ContractDraft:     {ContractActive, ContractCanceled},
	ContractActive:    {ContractConcluded, ContractCanceled},
	ContractConcluded: nil,
	ContractCanceled:  nil,
})

// QuoteEditable reports whether items of a quote in status s may change.
func QuoteEditable(s QuoteStatus) bool {
	return s == QuoteDraft || s == QuoteSent
}

// ContractEditable reports whether items and clauses of a contract in status s may change.
func ContractEditable(s ContractStatus) bool {
	return s == ContractDraft || s == ContractActive
}

// ContractFrozen reports whether a contract no longer accepts edits or new receivables.
func ContractFrozen(s ContractStatus) bool {
	return Contracts.Terminal(s)
}
