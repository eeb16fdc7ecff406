package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query           string `json:"query" jsonschema:"the user's current message"`
	OwnerID         int64  `json:"owner_id" jsonschema:"the user whose memories are searched"`
	SessionDateHint string `json:"session_date_hint,omitempty" jsonschema:"date of the active session as YYMMDD"`
	TopK            int    `json:"top_k,omitempty" jsonschema:"number of ranked documents to return (default 12)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput is one ranked memory fragment.
type DocumentOutput struct {
	DocID         string   `json:"doc_id"`
	SessionID     string   `json:"session_id"`
	SessionDate   string   `json:"session_date,omitempty"`
	Score         float64  `json:"score"`
	Bucket        string   `json:"bucket"`
	EvidenceCount int      `json:"evidence_count"`
	FragmentTypes []string `json:"fragment_types"`
	Sources       []string `json:"sources"`
}

// SelectInput is the input schema for the select_context tool.
type SelectInput struct {
	Query           string `json:"query" jsonschema:"the user's current message"`
	OwnerID         int64  `json:"owner_id" jsonschema:"the user whose memories are searched"`
	SessionDateHint string `json:"session_date_hint,omitempty" jsonschema:"date of the active session as YYMMDD"`
	TopK            int    `json:"top_k,omitempty" jsonschema:"number of ranked documents to choose from (default 12)"`
	Need            int    `json:"need,omitempty" jsonschema:"how many documents to pick (default from settings)"`
}

// SelectOutput is the output schema for the select_context tool.
type SelectOutput struct {
	Picked []DocumentOutput `json:"picked"`
	High   int              `json:"high"`
	Middle int              `json:"middle"`
	Low    int              `json:"low"`
}

// SessionInput identifies one session.
type SessionInput struct {
	OwnerID   int64  `json:"owner_id" jsonschema:"the user the session belongs to"`
	SessionID string `json:"session_id" jsonschema:"the session to index"`
}

// IndexOutput is the output schema for the index_session tool.
type IndexOutput struct {
	SessionID string   `json:"session_id"`
	Written   int      `json:"written"`
	DocIDs    []string `json:"doc_ids"`
	Failures  []string `json:"failures,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
}

// DeleteOutput is the output schema for the delete_session tool.
type DeleteOutput struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve a user's long-term memories relevant to a message",
	}, s.handleRetrieve)

	if s.ports.Selection != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "select_context",
			Description: "Retrieve memories and pick the ones to include in a prompt, balanced across confidence buckets",
		}, s.handleSelect)
	}

	if s.ports.Indexing != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_session",
			Description: "Index the stored summary of a finished session so it can be retrieved",
		}, s.handleIndexSession)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "delete_session",
			Description: "Remove a session's memories from both indexes",
		}, s.handleDeleteSession)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	docs, err := s.ports.Retrieval.Retrieve(ctx, input.request())
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	return nil, RetrieveOutput{
		Documents: toDocumentOutputs(docs),
		Count:     len(docs),
	}, nil
}

// handleSelect handles the select_context tool invocation.
func (s *Server) handleSelect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SelectInput,
) (*mcp.CallToolResult, SelectOutput, error) {
	docs, err := s.ports.Retrieval.Retrieve(ctx, RetrieveInput{
		Query:           input.Query,
		OwnerID:         input.OwnerID,
		SessionDateHint: input.SessionDateHint,
		TopK:            input.TopK,
	}.request())
	if err != nil {
		return nil, SelectOutput{}, err
	}

	sel := s.ports.Selection.Select(docs, input.Need)
	return nil, SelectOutput{
		Picked: toDocumentOutputs(sel.Picked),
		High:   len(sel.High),
		Middle: len(sel.Middle),
		Low:    len(sel.Low),
	}, nil
}

// handleIndexSession handles the index_session tool invocation.
func (s *Server) handleIndexSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	if input.SessionID == "" {
		return nil, IndexOutput{}, fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput)
	}

	result, err := s.ports.Indexing.IndexSession(ctx, input.OwnerID, input.SessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, IndexOutput{}, fmt.Errorf("no summary stored for session %s: %w", input.SessionID, err)
	}
	if err != nil && result.Written == 0 {
		return nil, IndexOutput{}, err
	}

	output := IndexOutput{
		SessionID: input.SessionID,
		Written:   result.Written,
		DocIDs:    result.DocIDs,
	}
	if output.DocIDs == nil {
		output.DocIDs = []string{}
	}
	for _, f := range result.Failures {
		output.Failures = append(output.Failures, f.Error())
	}
	for _, skipped := range result.Skipped {
		output.Skipped = append(output.Skipped, skipped.Error())
	}

	// Partial failures are reported in the output rather than failing the call.
	return nil, output, nil
}

// handleDeleteSession handles the delete_session tool invocation.
func (s *Server) handleDeleteSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.SessionID == "" {
		return nil, DeleteOutput{}, fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput)
	}
	if err := s.ports.Indexing.DeleteSession(ctx, input.OwnerID, input.SessionID); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{SessionID: input.SessionID, Deleted: true}, nil
}

func (in RetrieveInput) request() domain.RetrieveRequest {
	return domain.RetrieveRequest{
		Query:           in.Query,
		OwnerID:         in.OwnerID,
		SessionDateHint: domain.SessionDate(in.SessionDateHint),
		TopK:            in.TopK,
	}
}

func toDocumentOutputs(docs []domain.RankedDocument) []DocumentOutput {
	out := make([]DocumentOutput, len(docs))
	for i := range docs {
		d := docs[i]
		types := make([]string, len(d.FragmentTypes))
		for j, t := range d.FragmentTypes {
			types[j] = t.String()
		}
		sources := make([]string, len(d.Sources))
		for j, src := range d.Sources {
			sources[j] = src.String()
		}
		out[i] = DocumentOutput{
			DocID:         d.DocID,
			SessionID:     d.SessionID,
			SessionDate:   d.SessionDate.String(),
			Score:         d.Score,
			Bucket:        d.Bucket.String(),
			EvidenceCount: d.EvidenceCount,
			FragmentTypes: types,
			Sources:       sources,
		}
	}
	return out
}
