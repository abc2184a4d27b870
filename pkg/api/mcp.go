package api

import (
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/leadsheet/pkg/clean"
	"github.com/hazyhaar/leadsheet/pkg/kit"
	"github.com/hazyhaar/leadsheet/pkg/lead"
)

// RegisterMCPTools registers the lead pipeline MCP tools on the server.
// normalize_cell uses opts as its cleaning options.
func RegisterMCPTools(srv *server.MCPServer, eps *Endpoints, opts clean.Options) {
	registerNormalizeCell(srv, eps, opts)
	registerFindDuplicates(srv, eps)
	registerSearchLeads(srv, eps)
	registerListFiles(srv, eps)
}

func registerNormalizeCell(srv *server.MCPServer, eps *Endpoints, opts clean.Options) {
	tool := mcp.NewTool("normalize_cell",
		mcp.WithDescription("Repair mis-decoded accents and rewrite French relative or verbose dates in one spreadsheet cell. Also returns the ISO date when the result is DD/MM/YYYY [H:MM]."),
		mcp.WithString("value", mcp.Required(), mcp.Description("The raw cell text")),
	)

	kit.RegisterMCPTool(srv, tool, eps.NormalizeCell, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		v, ok := req.GetArguments()["value"].(string)
		if !ok {
			return nil, errors.New("value must be a string")
		}
		return &kit.MCPDecodeResult{Request: &NormalizeRequest{Value: v, Options: opts}}, nil
	})
}

func registerFindDuplicates(srv *server.MCPServer, eps *Endpoints) {
	tool := mcp.NewTool("find_duplicates",
		mcp.WithDescription("List groups of fresh intake leads sharing the same name (trimmed, case-insensitive), newest first."),
	)

	kit.RegisterMCPTool(srv, tool, eps.Duplicates, func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	})
}

func registerSearchLeads(srv *server.MCPServer, eps *Endpoints) {
	tool := mcp.NewTool("search_leads",
		mcp.WithDescription("Find leads in every bucket whose name contains a term, oldest first."),
		mcp.WithString("term", mcp.Required(), mcp.Description("Part of the lead name")),
		mcp.WithString("phone", mcp.Description("Exact phone number filter")),
	)

	kit.RegisterMCPTool(srv, tool, eps.Search, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &SearchRequest{
			Term:  kit.StringArg(req, "term"),
			Phone: kit.StringArg(req, "phone"),
		}}, nil
	})
}

func registerListFiles(srv *server.MCPServer, eps *Endpoints) {
	tool := mcp.NewTool("list_files",
		mcp.WithDescription("List the source files loaded into a bucket with their record counts."),
		mcp.WithString("bucket", mcp.Description("Bucket name, defaults to the intake bucket"),
			mcp.Enum(lead.Buckets...)),
	)

	kit.RegisterMCPTool(srv, tool, eps.ListFiles, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		bucket := kit.StringArg(req, "bucket")
		if bucket == "" {
			bucket = lead.BucketIntake
		}
		return &kit.MCPDecodeResult{Request: &ListFilesRequest{Bucket: bucket}}, nil
	})
}
