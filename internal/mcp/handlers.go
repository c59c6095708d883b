package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calebmoore/rewind/internal/archive"
	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/errors"
	"github.com/calebmoore/rewind/internal/replay"
	"github.com/calebmoore/rewind/internal/session"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	coord   *session.Coordinator
	db      *sql.DB
	cfg     *config.Config
	baseDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(coord *session.Coordinator, db *sql.DB, cfg *config.Config, baseDir string) *Handlers {
	return &Handlers{coord: coord, db: db, cfg: cfg, baseDir: baseDir}
}

// Request types for each tool

// CaptureWindowRequest represents the arguments for recorder_capture_window.
type CaptureWindowRequest struct {
	Minutes *int `json:"minutes,omitempty"`
}

// SetWindowRequest represents the arguments for recorder_set_window.
type SetWindowRequest struct {
	Minutes int `json:"minutes"`
}

// ClipsListRequest represents the arguments for clips_list.
type ClipsListRequest struct {
	Kind  string `json:"kind,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ClipIDRequest identifies a clip for clips_get and clips_delete.
type ClipIDRequest struct {
	ID string `json:"id"`
}

// ClipNoteRequest represents the arguments for clips_note.
type ClipNoteRequest struct {
	ID   string `json:"id"`
	Note string `json:"note,omitempty"`
}

// clipResult is the payload returned for a saved clip.
type clipResult struct {
	Clip *archive.Clip `json:"clip"`
	Path string        `json:"path"`
}

// Handler implementations

// HandleRecorderStart handles the recorder_start tool call.
func (h *Handlers) HandleRecorderStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.coord.StartBackground(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.coord.Status().Background)
}

// HandleRecorderStop handles the recorder_stop tool call.
func (h *Handlers) HandleRecorderStop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.coord.StopBackground(); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.coord.Status().Background)
}

// HandleRecorderStatus handles the recorder_status tool call.
func (h *Handlers) HandleRecorderStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.coord.Status())
}

// HandleRecorderCaptureWindow handles the recorder_capture_window tool call.
// The extracted artifact is saved to the clip archive so the client gets a
// durable path instead of raw bytes.
func (h *Handlers) HandleRecorderCaptureWindow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaptureWindowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	replayReq := replay.All()
	if input.Minutes != nil {
		if *input.Minutes <= 0 {
			return errorResult(errors.NewInvalidRequest("minutes must be positive")), nil
		}
		replayReq = replay.Last(time.Duration(*input.Minutes) * time.Minute)
	}

	art, err := h.coord.CaptureWindow(replayReq)
	if err != nil {
		return errorResult(err), nil
	}

	clip, err := archive.SaveArtifact(h.db, h.baseDir, art, archive.KindWindow)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(clipResult{Clip: clip, Path: clip.Path(h.baseDir)})
}

// HandleRecorderSetWindow handles the recorder_set_window tool call.
func (h *Handlers) HandleRecorderSetWindow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetWindowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.coord.SetWindowMinutes(input.Minutes); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.coord.Status().Background)
}

// HandleRecorderClear handles the recorder_clear tool call.
func (h *Handlers) HandleRecorderClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.coord.ClearBuffer(); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.coord.Status().Background)
}

// HandleRecordStart handles the record_start tool call.
func (h *Handlers) HandleRecordStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.coord.StartRecording(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.coord.Status().Manual)
}

// HandleRecordPause handles the record_pause tool call.
func (h *Handlers) HandleRecordPause(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.coord.PauseRecording(); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.coord.Status().Manual)
}

// HandleRecordResume handles the record_resume tool call.
func (h *Handlers) HandleRecordResume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.coord.ResumeRecording(); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.coord.Status().Manual)
}

// HandleRecordStop handles the record_stop tool call.
func (h *Handlers) HandleRecordStop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	art, err := h.coord.StopRecording()
	if err != nil {
		return errorResult(err), nil
	}

	clip, err := archive.SaveArtifact(h.db, h.baseDir, art, archive.KindRecording)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(clipResult{Clip: clip, Path: clip.Path(h.baseDir)})
}

// HandleClipsList handles the clips_list tool call.
func (h *Handlers) HandleClipsList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClipsListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Kind != "" && input.Kind != archive.KindWindow && input.Kind != archive.KindRecording {
		return errorResult(errors.NewInvalidRequest("kind must be window or recording")), nil
	}

	clips, err := archive.List(h.db, input.Kind, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	if clips == nil {
		clips = []*archive.Clip{}
	}
	return successResult(map[string]any{"clips": clips, "count": len(clips)})
}

// HandleClipsGet handles the clips_get tool call.
func (h *Handlers) HandleClipsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClipIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	clip, err := archive.GetByID(h.db, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(clipResult{Clip: clip, Path: clip.Path(h.baseDir)})
}

// HandleClipsNote handles the clips_note tool call.
func (h *Handlers) HandleClipsNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClipNoteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := archive.SetNote(h.db, input.ID, input.Note); err != nil {
		return errorResult(err), nil
	}
	clip, err := archive.GetByID(h.db, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(clipResult{Clip: clip, Path: clip.Path(h.baseDir)})
}

// HandleClipsDelete handles the clips_delete tool call.
func (h *Handlers) HandleClipsDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClipIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := archive.Delete(h.db, h.baseDir, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": input.ID})
}

// HandleClipsPurge handles the clips_purge tool call.
func (h *Handlers) HandleClipsPurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	removed, err := archive.Purge(h.db, h.baseDir)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"purged": removed})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if rErr, ok := err.(*errors.RewindError); ok {
		errorObj := map[string]any{
			"code":    rErr.Code,
			"message": rErr.Message,
			"status":  rErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if rErr.Code != errors.ErrInternal && rErr.Details != nil {
			errorObj["details"] = rErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
