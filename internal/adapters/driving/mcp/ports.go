package mcp

import (
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server needs.
type Ports struct {
	// Sync runs passes and reports their status.
	Sync driving.SyncService

	// Version is the docsync build reported to clients.
	Version string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Sync == nil {
		return ErrMissingSyncService
	}
	return nil
}
