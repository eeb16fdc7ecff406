package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil retrieval service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.Handler())
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil retrieval service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("retrieval only is valid", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
			Selection: &mockSelectionPolicy{},
			Indexing:  &mockIndexingService{},
			Settings:  &mockSettingsService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}

func TestServer_ListToolsOverTransport(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  []string
	}{
		{
			name:  "retrieval only",
			ports: &Ports{Retrieval: &mockRetrievalService{}},
			want:  []string{"retrieve"},
		},
		{
			name: "all ports",
			ports: &Ports{
				Retrieval: &mockRetrievalService{},
				Selection: &mockSelectionPolicy{},
				Indexing:  &mockIndexingService{},
			},
			want: []string{"delete_session", "index_session", "retrieve", "select_context"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			server, err := NewServer(tt.ports)
			require.NoError(t, err)

			serverTransport, clientTransport := mcp.NewInMemoryTransports()
			serverSession, err := server.server.Connect(ctx, serverTransport, nil)
			require.NoError(t, err)
			defer serverSession.Close()

			client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
			clientSession, err := client.Connect(ctx, clientTransport, nil)
			require.NoError(t, err)
			defer clientSession.Close()

			res, err := clientSession.ListTools(ctx, nil)
			require.NoError(t, err)

			names := make([]string, 0, len(res.Tools))
			for _, tool := range res.Tools {
				names = append(names, tool.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}
