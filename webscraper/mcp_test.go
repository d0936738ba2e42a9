package webscraper

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcpSession(t *testing.T, svc *Service) *mcp.ClientSession {
	t.Helper()
	impl := &mcp.Implementation{Name: "webscraper-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, s *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := s.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		require.NotEmpty(t, res.Content)
		text := res.Content[0].(*mcp.TextContent).Text
		require.NoError(t, json.Unmarshal([]byte(text), out), text)
	}
	return res
}

func TestMCP_ExploreGenerateHistory(t *testing.T) {
	site := newSite(t)
	svc := newService(t, &fakeRenderer{})
	session := mcpSession(t, svc)

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"webscraper_explore", "webscraper_generate", "webscraper_history"}, names)

	var explored ExploreResult
	res := callTool(t, session, "webscraper_explore", map[string]any{"url": site.URL + "/cards"}, &explored)
	require.False(t, res.IsError)
	assert.Equal(t, "cards_only", string(explored.Pattern))
	assert.FileExists(t, explored.ReportPath)

	var generated GenerateResult
	res = callTool(t, session, "webscraper_generate", map[string]any{"latest": explored.Report.Domain()}, &generated)
	require.False(t, res.IsError)
	assert.FileExists(t, generated.Path)
	assert.Equal(t, explored.ReportPath, generated.ReportPath)

	var runs []Run
	res = callTool(t, session, "webscraper_history", map[string]any{"limit": 5}, &runs)
	require.False(t, res.IsError)
	require.Len(t, runs, 1)
	assert.Equal(t, explored.Report.RunID, runs[0].RunID)
}

// TestMCP_BlockedIsToolError verifies a robots.txt veto reaches the client
// as a tool error: there is no operator to confirm over MCP.
func TestMCP_BlockedIsToolError(t *testing.T) {
	site := newSite(t)
	svc := newService(t, &fakeRenderer{})
	session := mcpSession(t, svc)

	res := callTool(t, session, "webscraper_explore", map[string]any{"url": site.URL + "/private"}, nil)
	assert.True(t, res.IsError)

	res = callTool(t, session, "webscraper_explore",
		map[string]any{"url": site.URL + "/private", "skip_robots_prompt": true, "mode": "static"}, nil)
	assert.False(t, res.IsError)
}
