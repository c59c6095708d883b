package archive

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/calebmoore/rewind/internal/errors"
	"github.com/calebmoore/rewind/internal/replay"
)

// Clip kinds.
const (
	KindWindow    = "window"    // extracted from the rolling buffer
	KindRecording = "recording" // finalized manual recording
)

// Clip is one saved recording: the index row for a media file under the
// clips directory.
type Clip struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	MIMEType     string  `json:"mime_type"`
	Kind         string  `json:"kind"`
	ByteSize     int64   `json:"byte_size"`
	SegmentCount int     `json:"segment_count"`
	SpanMS       int64   `json:"span_ms"`
	Note         *string `json:"note,omitempty"`
	CreatedAt    int64   `json:"created_at"`
}

// Span returns the covered duration.
func (c *Clip) Span() time.Duration {
	return time.Duration(c.SpanMS) * time.Millisecond
}

// Path returns the clip file's location under baseDir.
func (c *Clip) Path(baseDir string) string {
	return filepath.Join(ClipsDir(baseDir), c.Filename)
}

// SaveArtifact writes the artifact's media data into the clips directory
// and indexes it. The artifact's own filename (timestamped, colon-free) is
// used on disk.
func SaveArtifact(db *sql.DB, baseDir string, art *replay.Artifact, kind string) (*Clip, error) {
	if art == nil || len(art.Data) == 0 {
		return nil, errors.NewInvalidRequest("artifact has no data to save")
	}
	if kind != KindWindow && kind != KindRecording {
		return nil, errors.NewInvalidRequest("kind must be window or recording")
	}

	clip := &Clip{
		ID:           art.ID,
		Filename:     art.Filename(),
		MIMEType:     art.MIMEType,
		Kind:         kind,
		ByteSize:     art.ByteSize,
		SegmentCount: art.SegmentCount,
		SpanMS:       art.Span.Milliseconds(),
		CreatedAt:    art.CreatedAt.Unix(),
	}

	path := clip.Path(baseDir)
	if err := os.WriteFile(path, art.Data, 0600); err != nil {
		return nil, errors.NewInternal(err)
	}

	query := `
		INSERT INTO clips (
			id, filename, mime_type, kind, byte_size,
			segment_count, span_ms, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)
	`
	_, err := db.Exec(query,
		clip.ID, clip.Filename, clip.MIMEType, clip.Kind, clip.ByteSize,
		clip.SegmentCount, clip.SpanMS, clip.CreatedAt,
	)
	if err != nil {
		// Keep the index consistent with the filesystem.
		_ = os.Remove(path)
		return nil, errors.NewInternal(err)
	}

	return clip, nil
}

// List returns clips newest first. kind filters to one clip kind when
// non-empty; limit caps the result when positive.
func List(db *sql.DB, kind string, limit int) ([]*Clip, error) {
	query := `
		SELECT id, filename, mime_type, kind, byte_size,
			segment_count, span_ms, note, created_at
		FROM clips
	`
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return clips, nil
}

// GetByID retrieves one clip by its ULID.
func GetByID(db *sql.DB, id string) (*Clip, error) {
	query := `
		SELECT id, filename, mime_type, kind, byte_size,
			segment_count, span_ms, note, created_at
		FROM clips
		WHERE id = ?
	`
	c, err := scanClip(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// SetNote attaches a markdown note to a clip. An empty note clears it.
func SetNote(db *sql.DB, id, note string) error {
	var val sql.NullString
	if note != "" {
		val = sql.NullString{String: note, Valid: true}
	}

	result, err := db.Exec(`UPDATE clips SET note = ? WHERE id = ?`, val, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// Delete removes a clip's index row and its media file.
func Delete(db *sql.DB, baseDir, id string) error {
	clip, err := GetByID(db, id)
	if err != nil {
		return err
	}

	if _, err := db.Exec(`DELETE FROM clips WHERE id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}

	// The row is gone; file removal is best-effort.
	_ = os.Remove(clip.Path(baseDir))
	return nil
}

// Purge removes every clip and its file, returning the number removed.
func Purge(db *sql.DB, baseDir string) (int, error) {
	clips, err := List(db, "", 0)
	if err != nil {
		return 0, err
	}

	if _, err := db.Exec(`DELETE FROM clips`); err != nil {
		return 0, errors.NewInternal(err)
	}

	for _, clip := range clips {
		_ = os.Remove(clip.Path(baseDir))
	}
	return len(clips), nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanClip(row scanner) (*Clip, error) {
	var (
		c    Clip
		note sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.Filename, &c.MIMEType, &c.Kind, &c.ByteSize,
		&c.SegmentCount, &c.SpanMS, &note, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if note.Valid {
		c.Note = &note.String
	}
	return &c, nil
}
