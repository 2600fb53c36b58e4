package transport

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Request describes one command to run on a device. Empty credentials and
// a zero port fall back to the transport's configured defaults.
type Request struct {
	Host     string
	Port     int
	Username string
	Password string
	Command  string
}

// Result is the outcome of one Run. Error is set whenever Success is false.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
	Method  string `json:"method"`
}

// Transport executes commands against a device management plane
type Transport interface {
	Name() string
	Run(ctx context.Context, req Request) Result
}

func failed(method string, err error) Result {
	return Result{Method: method, Error: err.Error()}
}

func succeeded(method, output string) Result {
	return Result{Method: method, Success: true, Output: output}
}

// credentials picks request values over configured defaults
func credentials(req Request, username, password string, port int) (string, string, string) {
	if req.Username != "" {
		username = req.Username
	}
	if req.Password != "" {
		password = req.Password
	}
	if req.Port != 0 {
		port = req.Port
	}
	return username, password, net.JoinHostPort(req.Host, strconv.Itoa(port))
}

// deadline is the earlier of ctx's deadline and now+timeout
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
