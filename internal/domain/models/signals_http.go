package models

// Requests for the signal HTTP endpoints. Defined in domain for consistency and reuse.

type ListSignalsRequest struct {
	Band   string `query:"band" json:"band" default:"all" validate:"oneof=all high medium low"`
	Action string `query:"action" json:"action" default:"all" validate:"oneof=all CALL PUT"`
	Limit  int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type SignalTextRequest struct {
	ID int64 `param:"id" validate:"required,gte=1"`
}

type HistoryRequest struct {
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}
