package webscraper

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/kit"
)

// RegisterMCP registers the webscraper tools on an MCP server. Explorations
// started over MCP have no operator to confirm a robots.txt disallow; they
// are refused unless skip_robots_prompt is set.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerExplore(srv)
	s.registerGenerate(srv)
	s.registerHistory(srv)
}

func (s *Service) wrap(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.WithRequestIDs(), kit.Logging(s.logger, name))(ep)
}

type exploreArgs struct {
	URL      string `json:"url"`
	Mode     string `json:"mode"`
	Override bool   `json:"skip_robots_prompt"`
}

func (s *Service) registerExplore(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "webscraper_explore",
		Description: "Analyze a web page's structure (static HTML, then feed, then rendered DOM) " +
			"and write a structure report. Returns the report, its path and the extraction pattern.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"url":                map[string]any{"type": "string", "description": "Page to explore (http or https)"},
			"mode":               map[string]any{"type": "string", "description": "auto (default), static, feed or rendered"},
			"skip_robots_prompt": map[string]any{"type": "boolean", "description": "Proceed even if robots.txt disallows the path"},
		}, "url"),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*exploreArgs)
		return s.Explore(ctx, ExploreRequest{URL: p.URL, Mode: p.Mode, Override: p.Override})
	}
	kit.RegisterMCPTool(srv, tool, s.wrap(tool.Name, endpoint), kit.DecodeJSON[exploreArgs]())
}

func (s *Service) registerGenerate(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "webscraper_generate",
		Description: "Generate a standalone Go scraper program from a structure report, " +
			"given its path or the domain of the newest catalogued run.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"report_path": map[string]any{"type": "string", "description": "Structure report JSON written by webscraper_explore"},
			"latest":      map[string]any{"type": "string", "description": "Domain slug (example_com) whose newest report is used"},
			"format":      map[string]any{"type": "string", "description": "json, csv, md or all"},
			"output_path": map[string]any{"type": "string", "description": "Where to write main.go"},
			"data_dir":    map[string]any{"type": "string", "description": "Where the program writes collected data"},
			"max_items":   map[string]any{"type": "integer", "description": "Item cap baked into the program"},
			"pattern":     map[string]any{"type": "string", "description": "Force basic, cards_only, tabs_and_cards, with_detail_pages or feed"},
		}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.Generate(ctx, *r.(*GenerateRequest))
	}
	kit.RegisterMCPTool(srv, tool, s.wrap(tool.Name, endpoint), kit.DecodeJSON[GenerateRequest]())
}

type historyArgs struct {
	Domain string `json:"domain"`
	Limit  int    `json:"limit"`
}

func (s *Service) registerHistory(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "webscraper_history",
		Description: "List catalogued exploration runs, newest first.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"domain": map[string]any{"type": "string", "description": "Domain slug filter (example_com)"},
			"limit":  map[string]any{"type": "integer", "description": "Maximum runs (default 20)"},
		}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*historyArgs)
		runs, err := s.History(ctx, p.Domain, p.Limit)
		if err != nil {
			return nil, err
		}
		if runs == nil {
			runs = []Run{}
		}
		return runs, nil
	}
	kit.RegisterMCPTool(srv, tool, s.wrap(tool.Name, endpoint), kit.DecodeJSON[historyArgs]())
}
