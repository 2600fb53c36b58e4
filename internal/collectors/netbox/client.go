package netbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/pkg/config"
	"github.com/yairfalse/netpilot/pkg/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	devicesPath    = "/api/dcim/devices/"
	interfacesPath = "/api/dcim/interfaces/"
	cablesPath     = "/api/dcim/cables/"

	defaultPageSize = 100
	maxPages        = 1000
)

// Client talks to the NetBox REST API
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
	logger   logger.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a NetBox client. The default transport is wrapped with
// otelhttp so every API call gets a client span.
func NewClient(cfg config.NetBoxConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		logger:   logger.NewNop(),
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return c
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

type page struct {
	Count   int                      `json:"count"`
	Next    *string                  `json:"next"`
	Results []map[string]interface{} `json:"results"`
}

// list follows the next links of a paginated endpoint
func (c *Client) list(ctx context.Context, path string) ([]map[string]interface{}, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, errors.Wrap(err, "parse NetBox URL")
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.pageSize))
	u.RawQuery = q.Encode()

	var all []map[string]interface{}
	next := u.String()
	for i := 0; next != "" && i < maxPages; i++ {
		p, err := c.get(ctx, next)
		if err != nil {
			return nil, errors.Wrapf(err, "%s page=%d", path, i+1)
		}
		if all == nil {
			all = make([]map[string]interface{}, 0, p.Count)
		}
		all = append(all, p.Results...)

		next = ""
		if p.Next != nil {
			next = *p.Next
		}
		c.logger.WithFields(map[string]interface{}{
			"path": path,
			"have": len(all),
			"want": p.Count,
		}).Debug("fetched a page")
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, u string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("NetBox returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &p, nil
}

// Devices returns every device with its interfaces attached under "interfaces".
func (c *Client) Devices(ctx context.Context) ([]types.RawRecord, error) {
	devices, err := c.list(ctx, devicesPath)
	if err != nil {
		return nil, err
	}

	interfaces, err := c.Interfaces(ctx)
	if err != nil {
		return nil, err
	}

	byDevice := make(map[string][]interface{})
	for _, iface := range interfaces {
		name := nestedName(iface["device"])
		if name == "" {
			continue
		}
		byDevice[name] = append(byDevice[name], iface)
	}

	records := make([]types.RawRecord, 0, len(devices))
	for _, d := range devices {
		rec := types.RawRecord(d)
		if name, ok := d["name"].(string); ok {
			if ifaces, ok := byDevice[name]; ok {
				rec["interfaces"] = ifaces
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Interfaces returns every dcim interface
func (c *Client) Interfaces(ctx context.Context) ([]map[string]interface{}, error) {
	return c.list(ctx, interfacesPath)
}

// Links returns the cabling between device interfaces
func (c *Client) Links(ctx context.Context) ([]Link, error) {
	cables, err := c.list(ctx, cablesPath)
	if err != nil {
		return nil, err
	}

	links := make([]Link, 0, len(cables))
	for _, cable := range cables {
		if link, ok := linkFromCable(cable); ok {
			links = append(links, link)
		}
	}
	return links, nil
}

// Topology fetches devices, interfaces and links in one view
func (c *Client) Topology(ctx context.Context) (*Topology, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	links, err := c.Links(ctx)
	if err != nil {
		return nil, err
	}
	return newTopology(devices, links, c.baseURL), nil
}

func nestedName(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		for _, key := range []string{"name", "display"} {
			if s, ok := t[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
