package mcp

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seconds-0/slack-support-bot/internal/logger"
)

func TestNewServer(t *testing.T) {
	t.Run("nil sync service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSyncService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Sync: &mockSyncService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingSyncService)
	assert.NoError(t, (&Ports{Sync: &mockSyncService{}}).Validate())
}

func serverInfo(t *testing.T, ports *Ports) *mcp.Implementation {
	t.Helper()
	ctx := context.Background()

	server, err := NewServer(ports)
	require.NoError(t, err)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	require.NotNil(t, cs.InitializeResult())
	return cs.InitializeResult().ServerInfo
}

func TestNewServer_ReportsBuildVersion(t *testing.T) {
	info := serverInfo(t, &Ports{Sync: &mockSyncService{}, Version: "1.4.2"})
	require.NotNil(t, info)
	assert.Equal(t, "docsync", info.Name)
	assert.Equal(t, "1.4.2", info.Version)

	info = serverInfo(t, &Ports{Sync: &mockSyncService{}})
	assert.Equal(t, Version, info.Version)
}

func TestServer_RunHTTP_LogsAddressAndStops(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	server, err := NewServer(&Ports{Sync: &mockSyncService{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, server.RunHTTP(ctx, "127.0.0.1:0"))
	assert.Contains(t, buf.String(), "mcp server listening")
	assert.Contains(t, buf.String(), "127.0.0.1:0")
}
