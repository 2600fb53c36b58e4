package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Telnet protocol bytes
const (
	iac  = 255
	dont = 254
	do   = 253
	wont = 252
	will = 251
	sb   = 250
	se   = 240
)

var promptSuffixes = []string{">", "#", "$", "%"}

// Telnet runs one command through a login/password/prompt dialogue.
// All option negotiation is refused.
type Telnet struct {
	Username string
	Password string
	Port     int
	Timeout  time.Duration
}

var _ Transport = (*Telnet)(nil)

// Name returns "telnet"
func (t *Telnet) Name() string { return "telnet" }

// Run logs in, runs req.Command and returns the output between the command
// echo and the next prompt.
func (t *Telnet) Run(ctx context.Context, req Request) Result {
	user, pass, addr := credentials(req, t.Username, t.Password, t.Port)
	if user == "" || pass == "" {
		return failed(t.Name(), errors.New("telnet credentials not configured"))
	}

	dialer := &net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return failed(t.Name(), errors.Wrapf(err, "dial %s", addr))
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline(ctx, t.Timeout)); err != nil {
		return failed(t.Name(), errors.Wrap(err, "set deadline"))
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s := &telnetSession{conn: conn}

	if _, err := s.readUntil(func(b string) bool { return containsFold(b, "login:") || containsFold(b, "username:") }); err != nil {
		return failed(t.Name(), errors.Wrap(err, "waiting for login prompt"))
	}
	if err := s.writeLine(user); err != nil {
		return failed(t.Name(), err)
	}
	if _, err := s.readUntil(func(b string) bool { return containsFold(b, "password:") }); err != nil {
		return failed(t.Name(), errors.Wrap(err, "waiting for password prompt"))
	}
	if err := s.writeLine(pass); err != nil {
		return failed(t.Name(), err)
	}

	banner, err := s.readUntil(func(b string) bool { return hasPrompt(b) || loginFailed(b) })
	if err != nil {
		return failed(t.Name(), errors.Wrap(err, "waiting for command prompt"))
	}
	if loginFailed(banner) {
		return failed(t.Name(), errors.Errorf("telnet authentication failed for %s", req.Host))
	}

	if err := s.writeLine(req.Command); err != nil {
		return failed(t.Name(), err)
	}
	output, err := s.readUntil(hasPrompt)
	if err != nil {
		return failed(t.Name(), errors.Wrapf(err, "run %q", req.Command))
	}

	return succeeded(t.Name(), stripEchoAndPrompt(output))
}

type telnetSession struct {
	conn net.Conn
	buf  bytes.Buffer
}

func (s *telnetSession) writeLine(line string) error {
	_, err := s.conn.Write([]byte(line + "\r\n"))
	return errors.Wrap(err, "telnet write")
}

// readUntil accumulates data until done reports true on the text read so far
func (s *telnetSession) readUntil(done func(string) bool) (string, error) {
	s.buf.Reset()
	chunk := make([]byte, 1024)
	for {
		n, err := s.conn.Read(chunk)
		if n > 0 {
			s.buf.Write(s.negotiate(chunk[:n]))
			if done(s.buf.String()) {
				return s.buf.String(), nil
			}
		}
		if err != nil {
			if err == io.EOF {
				return s.buf.String(), errors.New("connection closed by device")
			}
			return s.buf.String(), err
		}
	}
}

// negotiate strips IAC sequences from data, answering DO with WONT and
// WILL with DONT.
func (s *telnetSession) negotiate(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != iac || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		cmd := data[i+1]
		switch {
		case (cmd == do || cmd == dont || cmd == will || cmd == wont) && i+2 < len(data):
			opt := data[i+2]
			switch cmd {
			case do:
				s.conn.Write([]byte{iac, wont, opt})
			case will:
				s.conn.Write([]byte{iac, dont, opt})
			}
			i += 2
		case cmd == sb:
			j := i + 2
			for j+1 < len(data) && !(data[j] == iac && data[j+1] == se) {
				j++
			}
			i = j + 1
		case cmd == iac:
			out = append(out, iac)
			i++
		default:
			i++
		}
	}
	return out
}

func hasPrompt(b string) bool {
	trimmed := strings.TrimRight(b, " \t\r\n")
	for _, p := range promptSuffixes {
		if strings.HasSuffix(trimmed, p) {
			return true
		}
	}
	return false
}

func loginFailed(b string) bool {
	lower := strings.ToLower(b)
	return strings.Contains(lower, "login incorrect") ||
		strings.Contains(lower, "authentication failed") ||
		strings.Contains(lower, "access denied")
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

// stripEchoAndPrompt drops the echoed command line and the trailing prompt
func stripEchoAndPrompt(output string) string {
	lines := strings.Split(strings.ReplaceAll(output, "\r", ""), "\n")
	if len(lines) > 2 {
		lines = lines[1 : len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
