package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

// SyncInput is the input schema for the sync tool. The pass takes no input.
type SyncInput struct{}

// SyncOutput is the output schema for the sync tool.
type SyncOutput struct {
	RunID               string        `json:"run_id"`
	Status              string        `json:"status"`
	StartedAt           string        `json:"started_at"`
	FinishedAt          string        `json:"finished_at,omitempty"`
	DocumentsDiscovered int           `json:"documents_discovered"`
	DocumentsProcessed  int           `json:"documents_processed"`
	DocumentsSkipped    int           `json:"documents_skipped"`
	ChunksGenerated     int           `json:"chunks_generated"`
	ChunksEmbedded      int           `json:"chunks_embedded"`
	RecordsUpserted     int           `json:"records_upserted"`
	RecordsDeleted      int           `json:"records_deleted"`
	Errors              []ErrorOutput `json:"errors,omitempty"`
}

// ErrorOutput is one failure recorded during a pass.
type ErrorOutput struct {
	Kind       string `json:"kind"`
	DocumentID string `json:"document_id,omitempty"`
	Message    string `json:"message"`
}

// StatusInput is the input schema for the sync_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the sync_status tool.
type StatusOutput struct {
	Running bool        `json:"running"`
	RunID   string      `json:"run_id,omitempty"`
	State   string      `json:"state,omitempty"`
	Last    *SyncOutput `json:"last,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync",
		Description: "Run one full synchronisation pass of the corpus into the vector index and return its summary",
	}, s.handleSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Report the pass in progress, if any, and the last finished pass",
	}, s.handleStatus)
}

// handleSync handles the sync tool invocation. A failed pass is reported as
// a tool error carrying its summary.
func (s *Server) handleSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	summary, err := s.ports.Sync.Run(ctx)
	if summary == nil {
		if err == nil {
			err = errors.New("sync returned no summary")
		}
		return nil, SyncOutput{}, err
	}

	output := summaryOutput(summary)
	if summary.Failed() {
		return &mcp.CallToolResult{IsError: true}, output, nil
	}
	return nil, output, nil
}

// handleStatus handles the sync_status tool invocation.
func (s *Server) handleStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status := s.ports.Sync.Status()
	output := StatusOutput{
		Running: status.Running,
		RunID:   status.RunID,
		State:   string(status.State),
	}
	if status.Last != nil {
		last := summaryOutput(status.Last)
		output.Last = &last
	}
	return nil, output, nil
}

func summaryOutput(s *domain.RunSummary) SyncOutput {
	out := SyncOutput{
		RunID:               s.RunID,
		Status:              string(s.Status),
		StartedAt:           s.StartedAt.UTC().Format(time.RFC3339),
		DocumentsDiscovered: s.DocumentsDiscovered,
		DocumentsProcessed:  s.DocumentsProcessed,
		DocumentsSkipped:    len(s.DocumentsSkipped),
		ChunksGenerated:     s.ChunksGenerated,
		ChunksEmbedded:      s.ChunksEmbedded,
		RecordsUpserted:     s.RecordsUpserted,
		RecordsDeleted:      s.RecordsDeleted,
	}
	if !s.FinishedAt.IsZero() {
		out.FinishedAt = s.FinishedAt.UTC().Format(time.RFC3339)
	}
	for _, e := range s.Errors {
		out.Errors = append(out.Errors, ErrorOutput{
			Kind:       string(e.Kind),
			DocumentID: e.DocumentID,
			Message:    e.Message,
		})
	}
	return out
}
