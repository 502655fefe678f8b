package models

import "time"

// Trade is one executed paper order.
type Trade struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"` // BUY or SELL
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Value     float64   `json:"value"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Portfolio is a paper account snapshot. Equity is cash plus the position
// marked at the last seen price.
type Portfolio struct {
	Cash      float64 `json:"cash"`
	Quantity  float64 `json:"quantity"`
	LastPrice float64 `json:"last_price"`
	Equity    float64 `json:"equity"`
}

// SessionStatus is the lifecycle state of a live paper-trading session.
type SessionStatus string

const (
	SessionTraining SessionStatus = "training"
	SessionRunning  SessionStatus = "running"
	SessionStopped  SessionStatus = "stopped"
	SessionExpired  SessionStatus = "expired"
	SessionFailed   SessionStatus = "failed"
)

// SessionInfo is the API view of a live session.
type SessionInfo struct {
	ID             string        `json:"id"`
	Symbol         string        `json:"symbol"`
	Status         SessionStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty"`
	LastCycleAt    time.Time     `json:"last_cycle_at,omitempty"`
	CyclesRun      int           `json:"cycles_run"`
	InitialBalance float64       `json:"initial_balance"`
	Portfolio      Portfolio     `json:"portfolio"`
	LastSignal     *SignalResult `json:"last_signal,omitempty"`
	TradeCount     int           `json:"trade_count"`
	Error          string        `json:"error,omitempty"`
}
