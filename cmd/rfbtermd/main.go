// Command rfbtermd serves an interactive terminal over RFB/VNC 3.3. It owns
// exactly one shell per process; there is no session manager or
// multi-session lifecycle surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"rfbterm/internal/logging"
	"rfbterm/pkg/cellbuf"
	"rfbterm/pkg/config"
	"rfbterm/pkg/fbuf"
	"rfbterm/pkg/keymap"
	"rfbterm/pkg/pty"
	"rfbterm/pkg/rfb"
	"rfbterm/pkg/rfb/inspect"
	"rfbterm/pkg/snapshot"
	"rfbterm/pkg/statusapi"
	"rfbterm/pkg/term"
	"rfbterm/pkg/tunnel"
)

const version = "0.1.0"

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "rfbtermd",
		Short: "Interactive terminal exposed as an RFB/VNC desktop",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newKeymapCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("rfbtermd " + version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Spawn a shell and serve it over RFB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configFile)
			cfg.MergeFlags(cmd.Flags())
			inspectListen, _ := cmd.Flags().GetString("inspect-listen")
			statusTLS, _ := cmd.Flags().GetBool("status-tls")
			statusTLSDomain, _ := cmd.Flags().GetString("status-tls-domain")
			return runServe(cfg, inspectListen, statusTLS, statusTLSDomain)
		},
	}
	f := cmd.Flags()
	f.String("listen", "", "RFB listen address (default :5900)")
	f.String("title", "", "desktop name sent in ServerInit")
	f.String("status-listen", "", "optional status/metrics HTTP listen address")
	f.String("inspect-listen", "", "optional read-only inspect WebSocket listen address")
	f.String("password", "", "VNC authentication password")
	f.Int("width", 0, "terminal width in columns")
	f.Int("height", 0, "terminal height in rows")
	f.Int("depth", 0, "framebuffer pixel depth (8, 16, or 32)")
	f.String("shell", "", "shell to spawn (defaults to $SHELL)")
	f.String("codepage", "", "codepage name stored in the config (e.g. LAT1); the emulator always starts with LAT1 in G0")
	f.Bool("ngrok", false, "expose the RFB port through an ngrok TCP tunnel")
	f.String("ngrok-token", "", "ngrok authtoken")
	f.String("snapshot-path", "", "terminal-state snapshot file path")
	f.Bool("debug", false, "set advanced.debug_mode in the config ([DEBUG] logging is enabled only by RFBTERM_DEBUG)")
	f.Bool("status-tls", false, "serve the status endpoint over TLS")
	f.String("status-tls-domain", "", "domain to obtain an ACME certificate for (self-signed if empty)")
	return cmd
}

func runServe(cfg *config.Config, inspectListen string, statusTLS bool, statusTLSDomain string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cols, rows, depth := cfg.Terminal.Width, cfg.Terminal.Height, cfg.Terminal.Depth
	buf := cellbuf.New(cols, rows, rows*4, cellbuf.TextAttr{Fg: 7, Bg: 0})
	fb := fbuf.New(cols*fbuf.FontWidth, rows*fbuf.FontHeight, depth)
	t := term.New(buf, fb, term.Capabilities{})

	srv := rfb.NewServer(cfg.Server.Title, t, fb, cfg.Security.Password)
	if inspectListen != "" {
		srv.Mirror = inspect.NewHub()
	}

	t.Cap = term.Capabilities{
		Update:           srv.MarkDirtyAllClients,
		Bell:             srv.BellAllClients,
		CutTextSink:      srv.SetCutTextAllClients,
		Resize:           func(width, height int) { srv.ResizeAllClients() },
		CopyRect:         srv.CopyRectAllClients,
		ClientsConnected: srv.HasConnectedClients,
	}

	shellProc, err := pty.Spawn(pty.Options{
		Shell:  cfg.Terminal.Shell,
		Width:  cols,
		Height: rows,
		Term:   "xterm",
	})
	if err != nil {
		return fmt.Errorf("rfbtermd: spawning shell: %w", err)
	}
	defer shellProc.Close()

	t.Cap.HostWrite = func(b []byte) {
		if _, err := shellProc.Write(b); err != nil {
			logging.Warnf("rfbtermd: write to shell failed: %v", err)
		}
	}

	go func() {
		if err := shellProc.Run(srv.HandleHostOutput); err != nil {
			logging.Infof("rfbtermd: shell exited: %v", err)
		}
		cancel()
	}()

	if cfg.Snapshot.Path != "" {
		if err := snapshot.Load(t, cfg.Snapshot.Path); err != nil {
			logging.Warnf("rfbtermd: snapshot load: %v", err)
		}
		writer := snapshot.NewWriter(t, cfg.Snapshot.Path)
		defer writer.Close()
		origUpdate := t.Cap.Update
		t.Cap.Update = func(x, y, w, h int) {
			origUpdate(x, y, w, h)
			writer.ScheduleWrite()
		}
	}

	if cfg.Server.StatusListen != "" {
		statusSrv := statusapi.NewServer(srv, cfg.Security.Password)
		go func() {
			var err error
			if statusTLS {
				err = statusSrv.StartTLS(cfg.Server.StatusListen, statusapi.TLSConfig{
					Domain:     statusTLSDomain,
					SelfSigned: statusTLSDomain == "",
				})
			} else {
				err = statusSrv.Start(cfg.Server.StatusListen)
			}
			if err != nil {
				logging.Warnf("rfbtermd: status server: %v", err)
			}
		}()
	}

	if inspectListen != "" {
		inspectSrv := &http.Server{Addr: inspectListen, Handler: srv.Mirror}
		go func() {
			logging.Infof("rfbtermd: inspect websocket listening on %s", inspectListen)
			if err := inspectSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Warnf("rfbtermd: inspect listener: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			inspectSrv.Close()
		}()
	}

	go watchResizeSignal(ctx, configFile, shellProc, srv, &cols, &rows)

	if cfg.Ngrok.Enabled && cfg.Ngrok.AuthToken != "" {
		tun := tunnel.NewService()
		_, portStr, _ := strings.Cut(cfg.Server.Listen, ":")
		port, _ := strconv.Atoi(portStr)
		if err := tun.Start(cfg.Ngrok.AuthToken, port); err != nil {
			logging.Warnf("rfbtermd: tunnel start: %v", err)
		}
		defer tun.Cleanup()
	}

	logging.Infof("rfbtermd: serving %dx%d terminal on %s", cols, rows, cfg.Server.Listen)
	return srv.Serve(ctx, cfg.Server.Listen)
}

// watchResizeSignal reloads the config file's terminal geometry whenever
// the process receives SIGWINCH and, if it changed, propagates the new
// size to both the PTY (so the shell's own SIGWINCH fires) and the RFB
// server (so connected clients receive a DesktopSize update). RFB 3.3 has
// no client-initiated resize request, so this operator-triggered signal
// (kill -WINCH <pid>) is the only resize path.
func watchResizeSignal(ctx context.Context, configFile string, shellProc *pty.PTY, srv *rfb.Server, cols, rows *int) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			cfg := config.LoadConfig(configFile)
			newCols, newRows := cfg.Terminal.Width, cfg.Terminal.Height
			if newCols == *cols && newRows == *rows {
				continue
			}
			if err := shellProc.Resize(newCols, newRows); err != nil {
				logging.Warnf("rfbtermd: pty resize failed: %v", err)
				continue
			}
			srv.Resize(newCols, newRows)
			*cols, *rows = newCols, newRows
			logging.Infof("rfbtermd: resized to %dx%d", newCols, newRows)
		}
	}
}

func newSnapshotCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect terminal-state snapshot files",
	}

	var width, height, depth int
	dump := &cobra.Command{
		Use:   "dump <path>",
		Short: "Render a snapshot file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := newScratchTerminal(width, height, depth)
			if err := snapshot.Load(t, args[0]); err != nil {
				return err
			}
			printTerminal(t)
			return nil
		},
	}
	watch := &cobra.Command{
		Use:   "watch <path>",
		Short: "Reload and re-render a snapshot file whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			t := newScratchTerminal(width, height, depth)
			return snapshot.Watch(ctx, t, args[0], func() { printTerminal(t) })
		},
	}
	for _, c := range []*cobra.Command{dump, watch} {
		c.Flags().IntVar(&width, "width", 80, "terminal width in columns")
		c.Flags().IntVar(&height, "height", 24, "terminal height in rows")
		c.Flags().IntVar(&depth, "depth", 32, "framebuffer pixel depth")
	}
	root.AddCommand(dump, watch)
	return root
}

func newScratchTerminal(width, height, depth int) *term.Terminal {
	buf := cellbuf.New(width, height, height*4, cellbuf.TextAttr{Fg: 7, Bg: 0})
	fb := fbuf.New(width*fbuf.FontWidth, height*fbuf.FontHeight, depth)
	return term.New(buf, fb, term.Capabilities{})
}

func printTerminal(t *term.Terminal) {
	fmt.Print("\033[2J\033[H")
	for row := 0; row < t.Height; row++ {
		var sb strings.Builder
		for _, cell := range t.Buf.RowCells(row) {
			g := cell.Glyph
			if g < 0x20 || g == 0x7F {
				g = ' '
			}
			sb.WriteByte(g)
		}
		fmt.Println(strings.TrimRight(sb.String(), " "))
	}
}

func newKeymapCmd() *cobra.Command {
	root := &cobra.Command{Use: "keymap", Short: "Inspect keysym translation"}
	root.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the keysym -> byte-sequence table",
		Run: func(cmd *cobra.Command, args []string) {
			dumpKeymap()
		},
	})
	return root
}

func dumpKeymap() {
	type entry struct {
		name   string
		keysym uint32
	}
	entries := []entry{
		{"Up", keymap.KeyUp}, {"Down", keymap.KeyDown}, {"Left", keymap.KeyLeft}, {"Right", keymap.KeyRight},
		{"F1", keymap.KeyF1}, {"F2", keymap.KeyF2}, {"F3", keymap.KeyF3}, {"F4", keymap.KeyF4},
		{"F5", keymap.KeyF5}, {"F6", keymap.KeyF6}, {"F7", keymap.KeyF7}, {"F8", keymap.KeyF8},
		{"F9", keymap.KeyF9}, {"F10", keymap.KeyF10}, {"F11", keymap.KeyF11}, {"F12", keymap.KeyF12},
		{"Insert", keymap.KeyInsert}, {"KP_Insert", keymap.KeyKPInsert},
		{"Delete", keymap.KeyDelete}, {"KP_Delete", keymap.KeyKPDelete},
		{"Home", keymap.KeyHome}, {"KP_Home", keymap.KeyKPHome},
		{"BackSpace", keymap.KeyBackSpace},
	}
	fmt.Printf("%-10s %-10s %-14s %-14s\n", "key", "keysym", "cursor mode", "application mode")
	for _, e := range entries {
		cursor := keymap.Translate(e.keysym, false, false, false, 1)
		app := keymap.Translate(e.keysym, true, false, false, 1)
		fmt.Printf("%-10s 0x%04X     %-14q %-14q\n", e.name, e.keysym, string(cursor), string(app))
	}
}
