package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/calebmoore/rewind/internal/errors"
)

const readBufSize = 64 * 1024

// ffmpegSource shells out to ffmpeg, grabbing the display and emitting the
// encoded container stream from stdout as timestamped chunks.
type ffmpegSource struct {
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	stderr    *lockedBuffer
	chunks    chan Chunk
	done      chan error
	closeOnce sync.Once
	closed    chan struct{}
}

// Open acquires the default ffmpeg-backed capture source. It is the Opener
// used outside of tests.
func Open(ctx context.Context, options *Options) (Source, error) {
	opts, _ := Normalize(options)

	ffmpegPath := opts.FFmpegPath
	if ffmpegPath == "" {
		path, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, errors.NewAcquisitionFailed(errors.ReasonUnsupported, fmt.Errorf("ffmpeg not found: %w", err))
		}
		ffmpegPath = path
	}

	args, err := grabArgs(opts)
	if err != nil {
		return nil, errors.NewAcquisitionFailed(errors.ReasonUnsupported, err)
	}

	stderrBuf := &lockedBuffer{}
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Stderr = stderrBuf
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.NewAcquisitionFailed(errors.ReasonOther, err)
	}

	if err := cmd.Start(); err != nil {
		reason := errors.ReasonOther
		if strings.Contains(strings.ToLower(err.Error()), "permission") {
			reason = errors.ReasonPermissionDenied
		}
		return nil, errors.NewAcquisitionFailed(reason, err)
	}

	s := &ffmpegSource{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderrBuf,
		chunks: make(chan Chunk, 16),
		done:   make(chan error, 1),
		closed: make(chan struct{}),
	}

	go s.readLoop()
	go s.waitLoop()

	return s, nil
}

func (s *ffmpegSource) Chunks() <-chan Chunk { return s.chunks }
func (s *ffmpegSource) Done() <-chan error   { return s.done }

// Pause suspends the ffmpeg process so no further chunks are produced.
func (s *ffmpegSource) Pause() error {
	return suspendProcess(s.cmd)
}

// Resume continues a paused ffmpeg process.
func (s *ffmpegSource) Resume() error {
	return continueProcess(s.cmd)
}

// Close stops the source. Done does not fire for a user-initiated close.
func (s *ffmpegSource) Close() error {
	var out error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.cmd.Process != nil {
			out = s.cmd.Process.Kill()
		}
	})
	return out
}

func (s *ffmpegSource) readLoop() {
	defer close(s.chunks)

	buf := make([]byte, readBufSize)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case s.chunks <- Chunk{Data: data, Timestamp: time.Now()}:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *ffmpegSource) waitLoop() {
	err := s.cmd.Wait()

	select {
	case <-s.closed:
		// User-initiated close; the exit is expected.
		return
	default:
	}

	if err != nil {
		s.done <- fmt.Errorf("ffmpeg exited: %w: %s", err, s.stderr.Tail(300))
		return
	}
	// Clean exit without Close means the display/source went away.
	s.done <- nil
}

// grabArgs builds the ffmpeg invocation for the current platform.
func grabArgs(opts *Options) ([]string, error) {
	res := ResolveQuality(opts.Quality)
	fpsArg := strconv.Itoa(opts.FrameRate)

	var input []string
	switch runtime.GOOS {
	case "linux":
		input = []string{"-f", "x11grab", "-framerate", fpsArg, "-i", ":0.0"}
	case "darwin":
		input = []string{"-f", "avfoundation", "-framerate", fpsArg, "-capture_cursor", "1", "-i", "1:none"}
	case "windows":
		input = []string{"-f", "gdigrab", "-framerate", fpsArg, "-i", "desktop"}
	default:
		return nil, fmt.Errorf("screen capture not supported on %s", runtime.GOOS)
	}

	args := append([]string{"-hide_banner", "-loglevel", "error"}, input...)

	scale := fmt.Sprintf("scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease,scale=trunc(iw/2)*2:trunc(ih/2)*2", res.Width, res.Height)
	args = append(args, "-vf", scale)

	switch opts.MIMEType {
	case "video/mp4":
		args = append(args,
			"-c:v", "libx264",
			"-preset", "ultrafast",
			"-tune", "zerolatency",
			"-b:v", fmt.Sprintf("%dk", res.VideoKbps),
			"-pix_fmt", "yuv420p",
			"-f", "mp4",
			"-movflags", "frag_keyframe+empty_moov",
		)
	default: // video/webm
		args = append(args,
			"-c:v", "libvpx",
			"-deadline", "realtime",
			"-cpu-used", "8",
			"-b:v", fmt.Sprintf("%dk", res.VideoKbps),
			"-f", "webm",
		)
	}

	if opts.IncludeSystemAudio || opts.IncludeMicrophone {
		args = append(args, "-b:a", fmt.Sprintf("%dk", opts.AudioBitrateKbps))
	} else {
		args = append(args, "-an")
	}

	args = append(args, "pipe:1")
	return args, nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Tail(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := strings.TrimSpace(b.buf.String())
	if s == "" {
		return "no ffmpeg stderr output"
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
