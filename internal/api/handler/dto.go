package handler

// TransitionBody asks for a lifecycle status change on a transaction
type TransitionBody struct {
	Target string `json:"target" binding:"required"`
}

// SeedCoABody selects the chart-of-accounts template to load
type SeedCoABody struct {
	Template string `json:"template" binding:"required"`
}

// ListTxsQuery carries the optional transaction index filters
type ListTxsQuery struct {
	Status string `form:"status"`
	TxType string `form:"tx_type"`
	Limit  int    `form:"limit,default=0" binding:"min=0"`
}

// AuditLogQuery limits how many envelopes are returned; zero means all
type AuditLogQuery struct {
	Limit int `form:"limit,default=100" binding:"min=0"`
}

// TimeTravelQuery names the historical cutoff in epoch milliseconds
type TimeTravelQuery struct {
	AsOfMs int64 `form:"as_of_ms" binding:"required,gt=0"`
}

// ProposalsQuery controls whether dismissed proposals are included
type ProposalsQuery struct {
	IncludeDismissed bool `form:"include_dismissed"`
}

// ClockResponse returns a freshly allocated Lamport value
type ClockResponse struct {
	Lamport uint64 `json:"lamport"`
}

// TrustResponse reports the last known chain verification outcome
type TrustResponse struct {
	OrgID  string `json:"org_id"`
	Intact bool   `json:"intact"`
}
