package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/internal/metrics"
)

// Parameter types understood by both servers
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Param describes one tool argument
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}

// Handler runs a tool. The returned value is marshalled as a JSON object.
type Handler func(ctx context.Context, args Args) (interface{}, error)

// Tool is one named operation exposed to agents
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`
	Handler     Handler `json:"-"`
}

// Registry maps tool names to tools. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(log logger.Logger, m *metrics.Metrics) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{tools: make(map[string]Tool), metrics: m, logger: log}
}

// Register adds t. Names are unique.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Handler == nil {
		return apperrors.InvalidRequest(apperrors.ComponentTools, "tool needs a name and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("tool %s already registered", t.Name))
	}
	r.tools[t.Name] = t
	return nil
}

// Tools returns every registered tool ordered by name
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the named tool
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Call validates args against the tool's parameters and runs it
func (r *Registry) Call(ctx context.Context, name string, args map[string]interface{}) (result interface{}, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		r.metrics.ToolCall(name, outcome, time.Since(start))
	}()

	t, ok := r.Lookup(name)
	if !ok {
		return nil, apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("unknown tool %q", name))
	}
	for _, p := range t.Params {
		if v, present := args[p.Name]; p.Required && (!present || v == nil || v == "") {
			return nil, apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("%s: missing required argument %q", name, p.Name))
		}
	}

	result, err = t.Handler(ctx, Args(args))
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"tool":  name,
			"error": err.Error(),
		}).Warn("tool call failed")
	}
	return result, err
}

// Execute runs a tool from a JSON argument object and always answers with a
// JSON object. Failures are embedded as {"error": ..., "type": ...}.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) string {
	args := make(map[string]interface{})
	if s := strings.TrimSpace(argsJSON); s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &args); err != nil {
			return errorJSON(apperrors.InvalidRequest(apperrors.ComponentTools, "arguments must be a JSON object: "+err.Error()))
		}
	}

	result, err := r.Call(ctx, name, args)
	if err != nil {
		return errorJSON(err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return errorJSON(err)
	}
	if len(data) == 0 || data[0] != '{' {
		data, _ = json.Marshal(map[string]json.RawMessage{"result": data})
	}
	return string(data)
}

// ErrorObject is the embedded form of a failed call
type ErrorObject struct {
	Error     string   `json:"error"`
	Type      string   `json:"type"`
	Solutions []string `json:"solutions,omitempty"`
}

// NewErrorObject describes err for embedding in a tool response
func NewErrorObject(err error) ErrorObject {
	obj := ErrorObject{Error: err.Error(), Type: "Internal"}
	if e, ok := apperrors.As(err); ok {
		obj.Type = string(e.Type)
		obj.Solutions = e.Solutions
	}
	return obj
}

func errorJSON(err error) string {
	data, _ := json.Marshal(NewErrorObject(err))
	return string(data)
}

// Args is the decoded argument object of one call
type Args map[string]interface{}

// String returns the named argument as a string, or "" when absent
func (a Args) String(name string) string {
	switch v := a[name].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the named argument as an integer. ok is false when absent.
func (a Args) Int(name string) (n int, ok bool, err error) {
	switch v := a[name].(type) {
	case nil:
		return 0, false, nil
	case float64:
		if v != float64(int(v)) {
			return 0, true, apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("%s must be an integer", name))
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, true, apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("%s must be an integer, got %q", name, v))
		}
		return n, true, nil
	default:
		return 0, true, apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("%s must be an integer", name))
	}
}

// Bool returns the named argument as a boolean, or def when absent
func (a Args) Bool(name string, def bool) bool {
	switch v := a[name].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}
