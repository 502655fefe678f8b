package models

// TrainRequest starts a model fit for one symbol.
type TrainRequest struct {
	Symbol string `json:"symbol" param:"symbol" validate:"required,min=2,max=20"`
	Days   int    `json:"days" default:"730" validate:"gte=250,lte=3650"`
	Force  bool   `json:"force"`
}

// BacktestRequest runs a walk-forward evaluation over a date range.
type BacktestRequest struct {
	Symbol      string  `json:"symbol" validate:"required,min=2,max=20"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	TrainDays   int     `json:"train_days" default:"730" validate:"gte=250,lte=3650"`
	Fee         float64 `json:"fee" validate:"gte=0,lte=0.05"`
	ShortWindow int     `json:"short_window" default:"12" validate:"gte=2,lte=100"`
	LongWindow  int     `json:"long_window" default:"26" validate:"gte=3,lte=400,gtfield=ShortWindow"`
	NStates     int     `json:"n_states" default:"3" validate:"gte=2,lte=5"`
	Mode        string  `json:"mode" default:"walkforward" validate:"oneof=walkforward naive"`
}

// SignalQuery evaluates the current signal for a symbol.
type SignalQuery struct {
	Symbol string `query:"symbol" validate:"required,min=2,max=20"`
}

// SessionStartRequest opens a live paper-trading session.
type SessionStartRequest struct {
	Symbol         string  `json:"symbol" validate:"required,min=2,max=20"`
	InitialBalance float64 `json:"initial_balance" default:"10000" validate:"gt=0"`
	IntervalSec    int     `json:"interval_sec" default:"10800" validate:"gte=10,lte=86400"`
	TrainDays      int     `json:"train_days" default:"730" validate:"gte=250,lte=3650"`
	DurationMin    int     `json:"duration_min" validate:"gte=0,lte=10080"` // 0 runs until stopped
}
