package mcp

import (
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/session"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
// Names follow the pattern "group_action": recorder_* drives the rolling
// buffer, record_* the manual recorder, clips_* the saved-clip archive.
var toolRegistry = map[string]toolEntry{
	"recorder_start": {
		def:     recorderStartToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecorderStart },
	},
	"recorder_stop": {
		def:     recorderStopToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecorderStop },
	},
	"recorder_status": {
		def:     recorderStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecorderStatus },
	},
	"recorder_capture_window": {
		def:     recorderCaptureWindowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecorderCaptureWindow },
	},
	"recorder_set_window": {
		def:     recorderSetWindowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecorderSetWindow },
	},
	"recorder_clear": {
		def:     recorderClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecorderClear },
	},
	"record_start": {
		def:     recordStartToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordStart },
	},
	"record_pause": {
		def:     recordPauseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordPause },
	},
	"record_resume": {
		def:     recordResumeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordResume },
	},
	"record_stop": {
		def:     recordStopToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordStop },
	},
	"clips_list": {
		def:     clipsListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClipsList },
	},
	"clips_get": {
		def:     clipsGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClipsGet },
	},
	"clips_note": {
		def:     clipsNoteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClipsNote },
	},
	"clips_delete": {
		def:     clipsDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClipsDelete },
	},
	"clips_purge": {
		def:     clipsPurgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClipsPurge },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetGroupForTool extracts the group name from a tool name.
// Tool names follow the pattern "group_action" (e.g., "clips_list" → "clips").
func GetGroupForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// NewServer creates a new MCP server with rewind tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(coord *session.Coordinator, db *sql.DB, cfg *config.Config, baseDir, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"rewind",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(coord, db, cfg, baseDir)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(coord *session.Coordinator, db *sql.DB, cfg *config.Config, baseDir, version string) error {
	s := NewServer(coord, db, cfg, baseDir, version)
	return server.ServeStdio(s)
}
