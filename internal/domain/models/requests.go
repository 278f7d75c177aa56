package models

// Requests for HTTP endpoints. Defined in domain for consistency and reuse.

type HistoryRequest struct {
	N int `query:"n" json:"n" default:"20" validate:"gte=1,lte=500"`
}
