package transport

import (
	"bytes"
	"context"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSH runs commands over an SSH session with password authentication
type SSH struct {
	Username string
	Password string
	Port     int
	Timeout  time.Duration
	// KnownHosts pins host keys when set; otherwise any key is accepted
	KnownHosts string
}

var _ Transport = (*SSH)(nil)

// Name returns "ssh"
func (s *SSH) Name() string { return "ssh" }

// Run dials, authenticates and runs req.Command, returning its stdout
func (s *SSH) Run(ctx context.Context, req Request) Result {
	user, pass, addr := credentials(req, s.Username, s.Password, s.Port)
	if user == "" || pass == "" {
		return failed(s.Name(), errors.New("ssh credentials not configured"))
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if s.KnownHosts != "" {
		cb, err := knownhosts.New(s.KnownHosts)
		if err != nil {
			return failed(s.Name(), errors.Wrap(err, "load known_hosts"))
		}
		hostKey = cb
	}

	cfg := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(pass),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = pass
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKey,
		Timeout:         s.Timeout,
	}

	dialer := &net.Dialer{Timeout: s.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return failed(s.Name(), errors.Wrapf(err, "dial %s", addr))
	}
	if err := conn.SetDeadline(deadline(ctx, s.Timeout)); err != nil {
		conn.Close()
		return failed(s.Name(), errors.Wrap(err, "set deadline"))
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return failed(s.Name(), errors.Wrapf(err, "ssh authentication failed for %s", req.Host))
		}
		return failed(s.Name(), errors.Wrapf(err, "ssh handshake with %s", addr))
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return failed(s.Name(), errors.Wrap(err, "open ssh session"))
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Run(req.Command); err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) || stdout.Len() == 0 {
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				err = errors.Wrap(err, msg)
			}
			return failed(s.Name(), errors.Wrapf(err, "run %q", req.Command))
		}
	}

	return succeeded(s.Name(), strings.TrimSpace(stdout.String()))
}
