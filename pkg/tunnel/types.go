// Package tunnel exposes the RFB TCP port through an ngrok tunnel, a
// supplemental "remote access without port forwarding" feature. It uses a
// raw TCP endpoint since RFB is not HTTP.
package tunnel

import (
	"context"
	"sync"
	"time"

	"golang.ngrok.com/ngrok"
)

// Status is the tunnel's lifecycle state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Info describes the active (or most recently active) tunnel.
type Info struct {
	URL         string    `json:"url"`
	Status      Status    `json:"status"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
	Error       string    `json:"error,omitempty"`
	LocalAddr   string    `json:"local_addr"`
}

// Config holds tunnel configuration.
type Config struct {
	AuthToken string `json:"auth_token"`
	Enabled   bool   `json:"enabled"`
}

// Service manages an ngrok TCP tunnel's lifecycle.
type Service struct {
	mu        sync.RWMutex
	forwarder ngrok.Forwarder
	info      Info
	config    Config
	ctx       context.Context
	cancel    context.CancelFunc
}

// StatusResponse is the JSON-tagged status value returned by Service.GetStatus.
type StatusResponse struct {
	Info
	IsRunning bool `json:"is_running"`
}

// Error represents tunnel-specific errors.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e Error) Error() string { return e.Message }

var (
	ErrNotConnected   = Error{Code: "not_connected", Message: "tunnel is not connected"}
	ErrAlreadyRunning = Error{Code: "already_running", Message: "tunnel is already running"}
)
