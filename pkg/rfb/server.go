package rfb

import (
	"context"
	"fmt"
	"net"
	"time"

	"rfbterm/internal/logging"
	"rfbterm/pkg/dirty"
	"rfbterm/pkg/fbuf"
	"rfbterm/pkg/rfb/inspect"
	"rfbterm/pkg/term"
)

// Server is the RFB listener and multi-client core. Shared mutable state
// (the cell grid, framebuffer, emulator, client slot array) is single-
// owner: every mutation runs as a closure on the single core goroutine,
// which plays the role of a cooperative single-threaded event loop.
type Server struct {
	Title    string
	Term     *term.Terminal
	FB       *fbuf.Framebuffer
	Password string

	// Mirror, if set, receives a read-only feed of refresh activity for the
	// optional inspect WebSocket surface. Nil disables it entirely.
	Mirror *inspect.Hub

	clients [maxClients]*Client

	coreCh       chan func()
	resetTimerCh chan struct{}
	lastUpdate   time.Time

	visibleX, visibleY, visibleW, visibleH int

	// hostNumLock is the server's view of the host keyboard's NumLock
	// state. There is no real host keyboard to read an LED from, so this
	// is simply assumed on at startup; syncNumLock keeps each client's
	// reported NumLock state converged to it.
	hostNumLock bool
}

// NewServer constructs a Server around an already-built Terminal and
// Framebuffer pair.
func NewServer(title string, t *term.Terminal, fb *fbuf.Framebuffer, password string) *Server {
	return &Server{
		Title:        title,
		Term:         t,
		FB:           fb,
		Password:     password,
		coreCh:       make(chan func(), 256),
		resetTimerCh: make(chan struct{}, 1),
		visibleW:     fb.Width,
		visibleH:     fb.Height,
		hostNumLock:  true,
	}
}

// Serve accepts connections on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rfb: listen %s: %w", addr, err)
	}
	defer listener.Close()

	go s.runCore(ctx)
	go s.runRefreshTimer(ctx)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// withCore runs fn synchronously on the core goroutine and waits for it to
// complete, giving handshake/reader goroutines safe read/write access to
// shared state.
func (s *Server) withCore(fn func()) {
	done := make(chan struct{})
	s.coreCh <- func() {
		fn()
		close(done)
	}
	<-done
}

// post enqueues fn to run on the core goroutine without waiting.
func (s *Server) post(fn func()) {
	select {
	case s.coreCh <- fn:
	default:
		// Resource exhaustion on the event queue: drop and let the next
		// refresh tick resynchronise.
		logging.Warnf("rfb: core event queue full, dropping event")
	}
}

func (s *Server) runCore(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.coreCh:
			fn()
		}
	}
}

// runRefreshTimer owns the adaptive refresh interval and posts the
// drain-and-send tick to the core goroutine.
func (s *Server) runRefreshTimer(ctx context.Context) {
	interval := refreshBase
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.resetTimerCh:
			interval = refreshBase
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(interval)
		case <-timer.C:
			produced := make(chan bool, 1)
			s.post(func() { produced <- s.refreshTick() })
			var didProduce bool
			select {
			case didProduce = <-produced:
			case <-ctx.Done():
				return
			}
			if didProduce {
				interval /= 2
				if interval < refreshBase {
					interval = refreshBase
				}
			} else {
				interval += refreshInc
				if interval > refreshMax {
					interval = refreshMax
				}
			}
			timer.Reset(interval)
		}
	}
}

// resetRefreshTimer implements "on key/pointer event, the next tick is
// scheduled immediately with the base interval".
func (s *Server) resetRefreshTimer() {
	select {
	case s.resetTimerCh <- struct{}{}:
	default:
	}
}

// slotIndexForNew finds a free or reclaimable slot, or -1 if all 8 are in
// use by live connections.
func (s *Server) slotIndexForNew() int {
	for i, c := range s.clients {
		if c == nil || c.reclaimable() {
			return i
		}
	}
	return -1
}

// registerClient installs c into a free slot and marks a full-frame dirty
// so the new client receives an initial complete frame.
func (s *Server) registerClient(c *Client) bool {
	idx := s.slotIndexForNew()
	if idx < 0 {
		return false
	}
	s.clients[idx] = c
	c.dirty.Mark(0, 0, s.FB.Width, s.FB.Height)
	return true
}

// disconnectClient transitions a slot to reclaimable: buffers and dirty
// bitmap freed, but the slot entry is kept so its array index isn't
// immediately reused mid-iteration.
func (s *Server) disconnectClient(c *Client) {
	close(c.closeCh)
	c.conn = nil
	c.dirty = nil
}

// refreshTick drains every live client's dirty tracker into a
// FramebufferUpdate and reports whether any client received new data.
func (s *Server) refreshTick() bool {
	produced := false
	idleTooLong := time.Since(s.lastUpdate) >= refreshMaxIdle

	for _, c := range s.clients {
		if c == nil || c.reclaimable() {
			continue
		}
		rects := c.dirty.Drain()
		if c.pendingResize {
			rects = append(rects, dirty.Rect{W: s.FB.Width, H: s.FB.Height, IsResize: c.feat.hasResize})
			c.pendingResize = false
		}
		hasCursor := c.cursorUpdate
		if len(rects) == 0 && !hasCursor {
			if idleTooLong {
				c.nullUpdate = true
			} else {
				continue
			}
		}
		s.sendFramebufferUpdate(c, rects)
		if len(rects) > 0 || hasCursor {
			produced = true
			if len(rects) > 0 {
				s.mirrorRects(rects)
			}
		}
	}

	if produced {
		s.lastUpdate = time.Now()
	}
	return produced
}

func (s *Server) mirrorRects(rects []dirty.Rect) {
	if s.Mirror == nil {
		return
	}
	now := time.Now().UnixMilli()
	live := 0
	for _, c := range s.clients {
		if c != nil && !c.reclaimable() {
			live++
		}
	}
	for _, r := range rects {
		s.Mirror.Broadcast(inspect.Event{Type: "rect", Timestamp: now, X: r.X, Y: r.Y, W: r.W, H: r.H, Clients: live})
	}
}

// ConnectedClients reports the number of live RFB connections, for the
// optional status HTTP endpoint.
func (s *Server) ConnectedClients() int {
	done := make(chan int, 1)
	s.withCore(func() {
		n := 0
		for _, c := range s.clients {
			if c != nil && !c.reclaimable() {
				n++
			}
		}
		done <- n
	})
	return <-done
}

// Resize reloads the emulator's cell grid and framebuffer geometry to
// width x height, posted onto the core goroutine since this is always
// called from outside it (an operator-triggered geometry change, not from
// inside a running core closure).
func (s *Server) Resize(width, height int) {
	s.post(func() { s.Term.Resize(width, height) })
}

// Geometry returns the framebuffer's width, height, and pixel depth.
func (s *Server) Geometry() (width, height, depth int) {
	return s.FB.Width, s.FB.Height, s.FB.Depth
}

// DesktopTitle returns the desktop name sent in ServerInit.
func (s *Server) DesktopTitle() string { return s.Title }

// HandleHostOutput queues bytes read from the host byte sink (the PTY) for
// the emulator to consume on the core goroutine. Safe to call from any
// goroutine.
func (s *Server) HandleHostOutput(data []byte) {
	buf := append([]byte(nil), data...)
	s.post(func() { s.Term.Write(buf) })
}

// The following Cap-wiring helpers are invoked synchronously from inside
// Term.Write and friends, which only ever run as a core closure (posted via
// HandleHostOutput or withCore from a reader goroutine) — they touch
// s.clients directly without taking the core channel themselves, since
// taking it here would deadlock against the very closure calling them.

// MarkDirtyAllClients marks x,y,w,h dirty for every live client. Wired to
// term.Capabilities.Update.
func (s *Server) MarkDirtyAllClients(x, y, w, h int) {
	for _, c := range s.clients {
		if c != nil && !c.reclaimable() {
			c.dirty.Mark(x, y, w, h)
		}
	}
}

// BellAllClients queues a Bell message for every live client. Wired to
// term.Capabilities.Bell.
func (s *Server) BellAllClients() {
	for _, c := range s.clients {
		if c != nil && !c.reclaimable() {
			c.bellCount++
		}
	}
}

// SetCutTextAllClients queues a ServerCutText message for every live
// client. Wired to term.Capabilities.CutTextSink.
func (s *Server) SetCutTextAllClients(text string) {
	for _, c := range s.clients {
		if c != nil && !c.reclaimable() {
			c.pendingCutText = text
		}
	}
}

// ResizeAllClients marks a pending DesktopSize update for every live
// client, used when the emulator's geometry changes. Wired to
// term.Capabilities.Resize; refreshTick turns this into the DesktopSize
// pseudo-rectangle for clients that negotiated it, or a full-frame raster
// refresh for clients that didn't.
func (s *Server) ResizeAllClients() {
	for _, c := range s.clients {
		if c != nil && !c.reclaimable() {
			c.pendingResize = true
		}
	}
}

// CopyRectAllClients queues a CopyRect update (w x h region moved from
// (xs,ys) to (xd,yd)) for every live client. Wired to
// term.Capabilities.CopyRect.
func (s *Server) CopyRectAllClients(xs, ys, xd, yd, w, h int) {
	for _, c := range s.clients {
		if c != nil && !c.reclaimable() {
			c.dirty.MarkCopy(xs, ys, xd, yd, w, h)
		}
	}
}

// HasConnectedClients reports whether any client is live. Wired to
// term.Capabilities.ClientsConnected.
func (s *Server) HasConnectedClients() bool {
	for _, c := range s.clients {
		if c != nil && !c.reclaimable() {
			return true
		}
	}
	return false
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	c, err := s.handshake(conn)
	if err != nil {
		logging.Warnf("rfb: handshake failed: %v", err)
		conn.Close()
		return
	}

	ok := make(chan bool, 1)
	s.withCore(func() { ok <- s.registerClient(c) })
	if !<-ok {
		logging.Warnf("rfb: rejecting connection, all %d client slots in use", maxClients)
		conn.Close()
		return
	}

	go s.writerLoop(c)
	s.readerLoop(ctx, c)
}
