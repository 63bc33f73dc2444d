package tunnel

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.ngrok.com/ngrok"
	"golang.ngrok.com/ngrok/config"

	"rfbterm/internal/logging"
)

// NewService creates an idle tunnel service.
func NewService() *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		info:   Info{Status: StatusDisconnected},
	}
}

// Start opens a TCP tunnel forwarding to 127.0.0.1:localPort, the RFB
// server's listen address.
func (s *Service) Start(authToken string, localPort int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info.Status == StatusConnected || s.info.Status == StatusConnecting {
		return ErrAlreadyRunning
	}

	s.info.Status = StatusConnecting
	s.info.Error = ""
	s.info.LocalAddr = fmt.Sprintf("127.0.0.1:%d", localPort)

	go func() {
		if err := s.startTunnel(authToken, localPort); err != nil {
			s.mu.Lock()
			s.info.Status = StatusError
			s.info.Error = err.Error()
			s.mu.Unlock()
			logging.Warnf("tunnel: failed: %v", err)
		}
	}()

	return nil
}

func (s *Service) startTunnel(authToken string, localPort int) error {
	localURL, err := url.Parse(fmt.Sprintf("tcp://127.0.0.1:%d", localPort))
	if err != nil {
		return fmt.Errorf("tunnel: invalid local port: %w", err)
	}

	forwarder, err := ngrok.ListenAndForward(s.ctx, localURL, config.TCPEndpoint(), ngrok.WithAuthtoken(authToken))
	if err != nil {
		return fmt.Errorf("tunnel: failed to create ngrok tunnel: %w", err)
	}

	s.mu.Lock()
	s.forwarder = forwarder
	s.info.URL = forwarder.URL()
	s.info.Status = StatusConnected
	s.info.ConnectedAt = time.Now()
	s.mu.Unlock()

	logging.Infof("tunnel: established %s -> 127.0.0.1:%d", forwarder.URL(), localPort)

	return forwarder.Wait()
}

// Stop tears down the tunnel.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info.Status == StatusDisconnected {
		return ErrNotConnected
	}

	s.cancel()
	if s.forwarder != nil {
		if err := s.forwarder.Close(); err != nil {
			logging.Warnf("tunnel: error closing forwarder: %v", err)
		}
		s.forwarder = nil
	}

	s.info = Info{Status: StatusDisconnected}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	logging.Infof("tunnel: stopped")
	return nil
}

// GetStatus returns the current tunnel status.
func (s *Service) GetStatus() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatusResponse{
		Info:      s.info,
		IsRunning: s.info.Status == StatusConnected || s.info.Status == StatusConnecting,
	}
}

// IsRunning reports whether the tunnel is active or connecting.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.Status == StatusConnected || s.info.Status == StatusConnecting
}

// GetURL returns the current public tunnel URL.
func (s *Service) GetURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.URL
}

// SetConfig updates the tunnel configuration.
func (s *Service) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// GetConfig returns the current tunnel configuration.
func (s *Service) GetConfig() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Cleanup stops the tunnel, tolerating the not-connected case.
func (s *Service) Cleanup() {
	if err := s.Stop(); err != nil && err != ErrNotConnected {
		logging.Warnf("tunnel: error during cleanup: %v", err)
	}
}
