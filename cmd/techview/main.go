// Command techview loads a technique description, builds one technique from it and draws a spinning
// triangle with it in a window.
//
// Usage:
//
//	techview [-description file.yaml|file.toml] [-technique name] [-vsync] [-msaa] [-debug] [-v]
//
// Without -description the embedded triangle description is used. Press R to reload the description
// and rebuild the technique, V to toggle vsync and Escape to quit.
package main

import (
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/window"
)

//go:embed assets
var assets embed.FS

func main() {
	var cfg config
	flag.StringVar(&cfg.description, "description", "", "technique description file (.yaml, .yml or .toml), embedded triangle description if empty")
	flag.StringVar(&cfg.technique, "technique", "triangle", "name of the technique to draw")
	flag.BoolVar(&cfg.vsync, "vsync", true, "wait for vertical blank before presenting")
	flag.BoolVar(&cfg.msaa, "msaa", false, "render the surface with 4x multisampling")
	flag.BoolVar(&cfg.debug, "debug", false, "enable framebuffer and binding debug checks")
	verbose := flag.Bool("v", false, "log debug output")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "techview:", err)
		os.Exit(1)
	}
}

// descriptionSource returns the file system and path the description is loaded from.
func descriptionSource(cfg config) (fs.FS, string, error) {
	if cfg.description == "" {
		return assets, "assets/triangle.yaml", nil
	}
	abs, err := filepath.Abs(cfg.description)
	if err != nil {
		return nil, "", err
	}
	return os.DirFS(filepath.Dir(abs)), filepath.Base(abs), nil
}

func run(cfg config) error {
	fsys, name, err := descriptionSource(cfg)
	if err != nil {
		return err
	}

	// ── Window ──────────────────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle("oxy techview - "+cfg.technique),
		window.WithSize(1280, 720),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	// ── Viewer ──────────────────────────────────────────────────────────
	v, err := newViewer(cfg, win, fsys, name)
	if err != nil {
		return err
	}
	defer v.release()

	win.SetResizeCallback(v.resize)
	win.SetKeyDownCallback(v.key)
	win.SetUpdateCallback(v.frame)
	win.ProcessMessages()
	return nil
}
