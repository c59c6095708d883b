package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/calebmoore/rewind/internal/archive"
	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/errors"
	"github.com/calebmoore/rewind/internal/replay"
	"github.com/calebmoore/rewind/internal/session"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	coord    *session.Coordinator
	db       *sql.DB
	cfg      *config.Config
	baseDir  string
	renderer *Renderer
}

// HandleStatus handles GET /status — the recorder dashboard.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "status", StatusPageData{
		PageData: PageData{
			Title:   "Status",
			Version: h.renderer.version,
			Nav:     "status",
		},
		Status: h.coord.Status(),
		Tiers:  config.WindowTiers,
	})
}

// HandleStatusJSON handles GET /api/status — machine-readable state.
func (h *Handlers) HandleStatusJSON(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, h.coord.Status())
}

// HandleRecorderStart handles POST /recorder/start.
func (h *Handlers) HandleRecorderStart(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.StartBackground(r.Context()); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// HandleRecorderStop handles POST /recorder/stop.
func (h *Handlers) HandleRecorderStop(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.StopBackground(); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// HandleRecorderClear handles POST /recorder/clear.
func (h *Handlers) HandleRecorderClear(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.ClearBuffer(); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// HandleRecorderCapture handles POST /recorder/capture — extract the
// trailing window and save it as a clip.
func (h *Handlers) HandleRecorderCapture(w http.ResponseWriter, r *http.Request) {
	req := replay.All()
	if raw := r.FormValue("minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("minutes must be a positive number"))
			return
		}
		req = replay.Last(time.Duration(minutes) * time.Minute)
	}

	art, err := h.coord.CaptureWindow(req)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	clip, err := archive.SaveArtifact(h.db, h.baseDir, art, archive.KindWindow)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/clips/"+clip.ID, http.StatusSeeOther)
}

// HandleRecorderWindow handles POST /recorder/window — change retention.
func (h *Handlers) HandleRecorderWindow(w http.ResponseWriter, r *http.Request) {
	minutes, err := strconv.Atoi(r.FormValue("minutes"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("minutes must be a number"))
		return
	}
	if err := h.coord.SetWindowMinutes(minutes); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// HandleRecordStart handles POST /record/start.
func (h *Handlers) HandleRecordStart(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.StartRecording(r.Context()); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// HandleRecordPause handles POST /record/pause.
func (h *Handlers) HandleRecordPause(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.PauseRecording(); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// HandleRecordResume handles POST /record/resume.
func (h *Handlers) HandleRecordResume(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.ResumeRecording(); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// HandleRecordStop handles POST /record/stop — finalize and save the
// manual recording.
func (h *Handlers) HandleRecordStop(w http.ResponseWriter, r *http.Request) {
	art, err := h.coord.StopRecording()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	clip, err := archive.SaveArtifact(h.db, h.baseDir, art, archive.KindRecording)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/clips/"+clip.ID, http.StatusSeeOther)
}

// HandleClips handles GET /clips — list saved clips.
func (h *Handlers) HandleClips(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != archive.KindWindow && kind != archive.KindRecording {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("kind must be window or recording"))
		return
	}

	clips, err := archive.List(h.db, kind, 0)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "clips", ClipsPageData{
		PageData: PageData{
			Title:   "Clips",
			Version: h.renderer.version,
			Nav:     "clips",
		},
		Clips: clips,
		Kind:  kind,
	})
}

// HandleClipDetail handles GET /clips/{id}.
func (h *Handlers) HandleClipDetail(w http.ResponseWriter, r *http.Request) {
	clip, err := archive.GetByID(h.db, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := DetailPageData{
		PageData: PageData{
			Title:   clip.Filename,
			Version: h.renderer.version,
			Nav:     "clips",
		},
		Clip: clip,
	}
	if clip.Note != nil {
		data.RenderedNote = renderMarkdown(*clip.Note)
	}
	h.renderer.renderPage(w, r, "detail", data)
}

// HandleClipDownload handles GET /clips/{id}/download — serve the media file.
func (h *Handlers) HandleClipDownload(w http.ResponseWriter, r *http.Request) {
	clip, err := archive.GetByID(h.db, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", clip.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+clip.Filename+`"`)
	http.ServeFile(w, r, clip.Path(h.baseDir))
}

// HandleClipNote handles POST /clips/{id}/note.
func (h *Handlers) HandleClipNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := archive.SetNote(h.db, id, r.FormValue("note")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/clips/"+id, http.StatusSeeOther)
}

// HandleClipDelete handles POST /clips/{id}/delete.
func (h *Handlers) HandleClipDelete(w http.ResponseWriter, r *http.Request) {
	if err := archive.Delete(h.db, h.baseDir, r.PathValue("id")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/clips", http.StatusSeeOther)
}

// HandleClipsPurge handles POST /clips/purge.
func (h *Handlers) HandleClipsPurge(w http.ResponseWriter, r *http.Request) {
	if _, err := archive.Purge(h.db, h.baseDir); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/clips", http.StatusSeeOther)
}
