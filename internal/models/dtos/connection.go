package dtos

import (
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionSyncing      ConnectionStatus = "syncing"
	ConnectionUnavailable  ConnectionStatus = "unavailable"
)

// ConnectionView is the API shape of a provider connection
type ConnectionView struct {
	Provider           string                    `json:"provider"`
	ConnectedAt        time.Time                 `json:"connected_at"`
	LastSyncAt         *time.Time                `json:"last_sync_at,omitempty"`
	PermissionsGranted []constants.PermissionTag `json:"permissions_granted"`
	IsActive           bool                      `json:"is_active"`
	DisconnectedAt     *time.Time                `json:"disconnected_at,omitempty"`
}

// ConnectionStatusResponse answers the connection-status query
type ConnectionStatusResponse struct {
	Status     ConnectionStatus `json:"status"`
	Connection *ConnectionView  `json:"connection,omitempty"`
	LastSync   *SyncLogView     `json:"last_sync,omitempty"`
}

// ConnectRequest optionally narrows the permissions requested on connect
type ConnectRequest struct {
	Permissions []constants.PermissionTag `json:"permissions,omitempty"`
}
