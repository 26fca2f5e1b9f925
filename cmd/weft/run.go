package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/weftmux/weft/internal/config"
	"github.com/weftmux/weft/internal/input"
	"github.com/weftmux/weft/internal/layout"
	"github.com/weftmux/weft/internal/render"
	"golang.org/x/term"
)

func runLocal() error {
	logger := newLogger("weft")

	cfg, err := loadConfig()
	if err != nil {
		logger.Warn("failed to load config, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}

	size := layout.Size{Rows: 24, Cols: 80}
	if cols, rows, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		size = layout.Size{Rows: rows, Cols: cols}
	}
	state := layout.NewState(size)

	renderThread := render.NewThread(os.Stdout, nil, newLogger("render"))
	go renderThread.Run()

	var saver *layout.Saver
	if cfg.SaveLayout {
		savePath, err := layout.DefaultSavePath()
		if err != nil {
			logger.Warn("layout persistence disabled", "err", err)
		} else {
			saver = layout.NewSaver(state, savePath, newLogger("layout"))
			go saver.Run()
			defer saver.RequestExit()

			if err := restoreLayout(state, savePath, renderThread); err != nil {
				logger.Debug("no layout restored", "err", err)
			}
		}
	}

	reader := input.NewRawReader()
	if err := reader.Start(); err != nil {
		return fmt.Errorf("failed to take over the terminal: %w", err)
	}
	defer reader.Stop()

	var pipeline *input.Pipeline
	binds, bindErrs := cfg.Binds(func(p *input.Pipeline) { p.RequestExit() })
	for _, err := range bindErrs {
		logger.Warn("ignoring keybind", "err", err)
	}
	pipeline = input.NewPipeline(reader, state, renderThread, binds, newLogger("input"))
	pipeline.SetReplyTimeout(time.Duration(cfg.ReplyTimeoutMs) * time.Millisecond)

	seedLayout(state, pipeline, renderThread, saver)

	if cfgPath, err := config.Path(); err == nil && configPath == "" {
		watcher, err := config.Watch(cfgPath, logger, func(next *config.Config) {
			pipeline.SetReplyTimeout(time.Duration(next.ReplyTimeoutMs) * time.Millisecond)
		})
		if err != nil {
			logger.Warn("config live reload disabled", "err", err)
		} else {
			defer watcher.Close()
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		pipeline.RequestExit()
	}()

	logger.Info("weft started",
		"size", fmt.Sprintf("%dx%d", size.Cols, size.Rows),
		"reply_timeout_ms", cfg.ReplyTimeoutMs)
	fmt.Fprint(os.Stdout, lipgloss.NewStyle().Faint(true).Render("weft: ctrl+arrows navigate, esc for normal mode, ctrl+q in normal mode quits"))

	// The pipeline is the foreground loop; everything else hangs off it.
	pipeline.Run()
	return nil
}

// seedLayout ensures there is at least one tab with one pane so
// navigation has something to work on. Pane process attachment is the
// session layer's concern; the seed pane discards application output.
func seedLayout(state *layout.State, pipeline *input.Pipeline, renderThread *render.Thread, saver *layout.Saver) {
	state.With(func(st *layout.State) {
		if len(st.Tabs()) > 0 {
			return
		}
		tab := layout.NewTab(1, "main")
		if saver != nil {
			tab.OnLayoutUpdate(saver.Notify)
		}
		hooks := input.PaneHooks{Pipeline: pipeline, Render: renderThread, Tab: tab, Saver: saver}
		pane := layout.NewPane(1, io.Discard, hooks)
		size := st.Size()
		tab.SetLayout(size, layout.NewTree(size, []layout.Entry{
			{Pane: pane, Row: 0, Col: 0, Size: size},
		}))
		st.AddTab(tab)
	})
}

// restoreLayout rebuilds tabs from the last snapshot.
func restoreLayout(state *layout.State, path string, renderThread *render.Thread) error {
	err := layout.Restore(state, path, func(id uint64, cwd string) (*layout.Pane, error) {
		return layout.NewPane(id, io.Discard, nil), nil
	})
	if err != nil {
		return err
	}
	renderThread.RequestRender()
	return nil
}

func printKeybinds(cfg *config.Config) {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cell := lipgloss.NewStyle().PaddingRight(2)

	fmt.Println(header.Render("weft keybindings"))
	rows := [][2]string{
		{cfg.Keybinds.NavigateLeft, "Focus pane to the left"},
		{cfg.Keybinds.NavigateRight, "Focus pane to the right"},
		{cfg.Keybinds.NavigateUp, "Focus pane above"},
		{cfg.Keybinds.NavigateDown, "Focus pane below"},
		{cfg.Keybinds.NormalMode, "Enter normal mode"},
		{cfg.Keybinds.InsertMode, "Return to insert mode"},
		{cfg.Keybinds.Quit, "Quit (normal mode)"},
	}
	for _, row := range rows {
		fmt.Printf("  %s%s\n", cell.Render(row[0]), row[1])
	}
}
