package rfb

import (
	"fmt"
	"net"
)

// handshake runs the VERSION -> AUTH -> INIT sequence on a freshly
// accepted connection. It blocks on conn directly: this is the
// connection's own goroutine, so blocking I/O is fine for the
// handshake's fixed-size, strictly-ordered messages.
func (s *Server) handshake(conn net.Conn) (*Client, error) {
	if _, err := conn.Write([]byte("RFB 003.003\n")); err != nil {
		return nil, newClientError("failed to send protocol version", ErrHostIO, "", err)
	}

	verBuf, err := readFull(conn, 12)
	if err != nil {
		return nil, newClientError("failed to read protocol version", ErrHostIO, "", err)
	}
	var major, minor int
	if _, err := fmt.Sscanf(string(verBuf), "RFB %03d.%03d\n", &major, &minor); err != nil {
		return nil, newClientError("malformed protocol version", ErrMalformedInput, "", err)
	}
	if major != 3 || (minor != 3 && minor != 4) {
		return nil, newClientError(fmt.Sprintf("unsupported protocol version %d.%d", major, minor), ErrAuthFailed, "", nil)
	}

	if err := s.authenticate(conn); err != nil {
		return nil, err
	}

	// ClientInit: 1 byte shared-flag, value not consulted by this server.
	if _, err := readFull(conn, 1); err != nil {
		return nil, newClientError("failed to read ClientInit", ErrHostIO, "", err)
	}

	c := newClient(conn, s.FB.Width, s.FB.Height)
	done := make(chan error, 1)
	s.withCore(func() {
		c.pf = serverPixelFormat(s.FB.Depth)
		done <- s.sendServerInit(conn)
	})
	if err := <-done; err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Server) sendServerInit(conn net.Conn) error {
	buf := make([]byte, 0, 32+len(s.Title))
	buf = putU16(buf, uint16(s.FB.Width))
	buf = putU16(buf, uint16(s.FB.Height))
	buf = append(buf, serverPixelFormat(s.FB.Depth).encode()...)
	buf = putU32(buf, uint32(len(s.Title)))
	buf = append(buf, []byte(s.Title)...)
	_, err := conn.Write(buf)
	return err
}

// authenticate runs the AUTH_RESPONSE phase: None (1) if no password is
// configured, else VNC Auth (2) with a DES challenge-response.
func (s *Server) authenticate(conn net.Conn) error {
	if s.Password == "" {
		_, err := conn.Write(putU32(nil, 1))
		return err
	}

	if _, err := conn.Write(putU32(nil, 2)); err != nil {
		return newClientError("failed to send auth type", ErrHostIO, "", err)
	}
	challenge, err := newChallenge()
	if err != nil {
		return newClientError("failed to generate auth challenge", ErrAuthFailed, "", err)
	}
	if _, err := conn.Write(challenge[:]); err != nil {
		return newClientError("failed to send auth challenge", ErrHostIO, "", err)
	}

	respBuf, err := readFull(conn, 16)
	if err != nil {
		return newClientError("failed to read auth response", ErrHostIO, "", err)
	}
	var response [16]byte
	copy(response[:], respBuf)

	if !verifyResponse(s.Password, challenge, response) {
		reason := "authentication failed"
		out := putU32(nil, 1)
		out = putU32(out, uint32(len(reason)))
		out = append(out, []byte(reason)...)
		conn.Write(out)
		return newClientError("VNC auth response mismatch", ErrAuthFailed, "", nil)
	}

	_, err = conn.Write(putU32(nil, 0))
	return err
}
