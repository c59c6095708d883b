package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var recorderStartToolDef = mcp.NewTool("recorder_start",
	mcp.WithDescription("Start the background rolling-buffer recorder. Screen content is buffered continuously; only the configured trailing window is retained."),
)

var recorderStopToolDef = mcp.NewTool("recorder_stop",
	mcp.WithDescription("Stop the background recorder and discard the rolling buffer."),
)

var recorderStatusToolDef = mcp.NewTool("recorder_status",
	mcp.WithDescription("Report the state of the background recorder and the manual recorder: lifecycle state, buffered segments and bytes, retention window, and which replay durations are currently available."),
)

var recorderCaptureWindowToolDef = mcp.NewTool("recorder_capture_window",
	mcp.WithDescription("Extract the trailing window from the rolling buffer into a saved clip. Returns the clip metadata including its file path."),
	mcp.WithNumber("minutes",
		mcp.Description("Trailing duration to capture in minutes (1, 3, or 5). Omit to capture the entire buffer."),
	),
)

var recorderSetWindowToolDef = mcp.NewTool("recorder_set_window",
	mcp.WithDescription("Change the rolling buffer's retention window. Shrinking evicts immediately; growing never restores already-evicted data."),
	mcp.WithNumber("minutes",
		mcp.Required(),
		mcp.Description("Retention window in minutes (1, 3, or 5)."),
	),
)

var recorderClearToolDef = mcp.NewTool("recorder_clear",
	mcp.WithDescription("Discard everything in the rolling buffer without stopping the recorder."),
)

var recordStartToolDef = mcp.NewTool("record_start",
	mcp.WithDescription("Start a manual recording. Unlike the rolling buffer, everything is retained until record_stop."),
)

var recordPauseToolDef = mcp.NewTool("record_pause",
	mcp.WithDescription("Pause the manual recording. No content is captured while paused."),
)

var recordResumeToolDef = mcp.NewTool("record_resume",
	mcp.WithDescription("Resume a paused manual recording."),
)

var recordStopToolDef = mcp.NewTool("record_stop",
	mcp.WithDescription("Stop the manual recording and save it as a clip. Returns the clip metadata including its file path."),
)

var clipsListToolDef = mcp.NewTool("clips_list",
	mcp.WithDescription("List saved clips, newest first."),
	mcp.WithString("kind",
		mcp.Description("Filter by clip kind: window (captured from the rolling buffer) or recording (manual)."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of clips to return."),
	),
)

var clipsGetToolDef = mcp.NewTool("clips_get",
	mcp.WithDescription("Fetch one clip's metadata by id."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Clip id (ULID)."),
	),
)

var clipsNoteToolDef = mcp.NewTool("clips_note",
	mcp.WithDescription("Attach a markdown note to a clip, or clear it with an empty note."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Clip id (ULID)."),
	),
	mcp.WithString("note",
		mcp.Description("Markdown note text. Empty clears the note."),
	),
)

var clipsDeleteToolDef = mcp.NewTool("clips_delete",
	mcp.WithDescription("Delete a clip and its media file."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Clip id (ULID)."),
	),
)

var clipsPurgeToolDef = mcp.NewTool("clips_purge",
	mcp.WithDescription("Delete every saved clip and its media file."),
)
