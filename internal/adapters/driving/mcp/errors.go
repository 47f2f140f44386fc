// Package mcp provides an MCP (Model Context Protocol) server adapter for
// docsync. It lets an assistant trigger a sync pass and inspect its status.
package mcp

import "errors"

// ErrMissingSyncService is returned when the sync service is not provided.
var ErrMissingSyncService = errors.New("mcp: sync service is required")
