package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/calebmoore/rewind/internal/archive"
	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/errors"
	"github.com/calebmoore/rewind/internal/session"
	"github.com/calebmoore/rewind/internal/web"
)

// appDeps holds everything the CLI commands need.
type appDeps struct {
	db      *sql.DB
	cfg     *config.Config
	baseDir string
	coord   *session.Coordinator
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(deps *appDeps) *cli.App {
	app := &cli.App{
		Name:    "rewind",
		Usage:   "Rolling screen recorder: capture the last few minutes on demand",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(deps),
			recordCmd(deps),
			clipsCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command: web UI plus the rolling recorder.
func serveCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 7817, Usage: "Listen port"},
			&cli.BoolFlag{Name: "start", Aliases: []string{"s"}, Usage: "Start the rolling recorder immediately"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("start") {
				if err := deps.coord.StartBackground(c.Context); err != nil {
					return outputError(err)
				}
				defer deps.coord.StopBackground()
			}

			srv := web.NewServer(deps.coord, deps.db, deps.cfg, deps.baseDir, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// recordCmd creates the record command: a foreground manual recording.
func recordCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record the screen until interrupted, then save the clip",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Stop automatically after this long (e.g. 90s, 5m)"},
		},
		Action: func(c *cli.Context) error {
			if err := deps.coord.StartRecording(c.Context); err != nil {
				return outputError(err)
			}
			fmt.Fprintln(os.Stderr, "recording... press Ctrl-C to stop")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			var timeout <-chan time.Time
			if d := c.Duration("duration"); d > 0 {
				timer := time.NewTimer(d)
				defer timer.Stop()
				timeout = timer.C
			}

			select {
			case <-sigCh:
			case <-timeout:
			case <-c.Context.Done():
			}

			art, err := deps.coord.StopRecording()
			if err != nil {
				return outputError(err)
			}
			clip, err := archive.SaveArtifact(deps.db, deps.baseDir, art, archive.KindRecording)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(clipWithPath(clip, deps.baseDir))
		},
	}
}

// clipsCmd creates the clips command group.
func clipsCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "clips",
		Usage: "Manage saved clips",
		Subcommands: []*cli.Command{
			clipsListCmd(deps),
			clipsShowCmd(deps),
			clipsExportCmd(deps),
			clipsNoteCmd(deps),
			clipsDeleteCmd(deps),
			clipsPurgeCmd(deps),
		},
	}
}

// clipsListCmd creates the clips list command.
func clipsListCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List saved clips, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Filter by kind: window|recording"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum clips to return"},
		},
		Action: func(c *cli.Context) error {
			kind := c.String("kind")
			if kind != "" && kind != archive.KindWindow && kind != archive.KindRecording {
				return outputError(errors.NewInvalidRequest("kind must be window or recording"))
			}

			clips, err := archive.List(deps.db, kind, c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			if clips == nil {
				clips = []*archive.Clip{}
			}
			return outputJSON(map[string]any{"clips": clips, "count": len(clips)})
		},
	}
}

// clipsShowCmd creates the clips show command.
func clipsShowCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one clip's metadata",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("clip id is required"))
			}
			clip, err := archive.GetByID(deps.db, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(clipWithPath(clip, deps.baseDir))
		},
	}
}

// clipsExportCmd creates the clips export command.
func clipsExportCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Copy a clip's media file to a destination path",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Destination (default: ./<clip filename>)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("clip id is required"))
			}
			clip, err := archive.GetByID(deps.db, c.Args().First())
			if err != nil {
				return outputError(err)
			}

			dst := c.String("path")
			if dst == "" {
				dst = clip.Filename
			}
			if err := copyFile(clip.Path(deps.baseDir), dst); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(map[string]any{"id": clip.ID, "exported_to": dst})
		},
	}
}

// clipsNoteCmd creates the clips note command.
func clipsNoteCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "note",
		Usage:     "Attach a markdown note to a clip (flag or stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "note", Aliases: []string{"n"}, Usage: "Note text (empty clears the note)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("clip id is required"))
			}
			id := c.Args().First()

			note := c.String("note")
			if !c.IsSet("note") && stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				note = text
			}

			if err := archive.SetNote(deps.db, id, note); err != nil {
				return outputError(err)
			}
			clip, err := archive.GetByID(deps.db, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(clipWithPath(clip, deps.baseDir))
		},
	}
}

// clipsDeleteCmd creates the clips delete command.
func clipsDeleteCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a clip and its media file",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("clip id is required"))
			}
			id := c.Args().First()
			if err := archive.Delete(deps.db, deps.baseDir, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"deleted": id})
		},
	}
}

// clipsPurgeCmd creates the clips purge command.
func clipsPurgeCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete every saved clip",
		Action: func(c *cli.Context) error {
			removed, err := archive.Purge(deps.db, deps.baseDir)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"purged": removed})
		},
	}
}

// Helper functions

// clipWithPath pairs a clip with its on-disk location for output.
func clipWithPath(clip *archive.Clip, baseDir string) map[string]any {
	return map[string]any{"clip": clip, "path": clip.Path(baseDir)}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if rErr, ok := err.(*errors.RewindError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", rErr.Code, rErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// copyFile copies src to dst, creating or truncating dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
