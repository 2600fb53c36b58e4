package local

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/yairfalse/netpilot/internal/collectors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/pkg/config"
	"k8s.io/client-go/kubernetes"
)

// Collector reads the operator-maintained devices document
type Collector struct {
	path        string
	kubeconfig  string
	kubeContext string
	clientset   kubernetes.Interface
	logger      logger.Logger
}

// Option customises a Collector
type Option func(*Collector)

// WithClientset injects the Kubernetes client used for configmap:// paths
func WithClientset(cs kubernetes.Interface) Option {
	return func(c *Collector) { c.clientset = cs }
}

// WithLogger sets the collector logger
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// New creates a local inventory collector from configuration
func New(cfg config.LocalConfig, opts ...Option) *Collector {
	c := &Collector{
		path:        cfg.Path,
		kubeconfig:  cfg.Kubeconfig,
		kubeContext: cfg.KubeContext,
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ collectors.Collector = (*Collector)(nil)

// Name returns the configured location
func (c *Collector) Name() string {
	return c.path
}

// Collect fetches and decodes the devices document
func (c *Collector) Collect(ctx context.Context) (*collectors.Result, error) {
	loc, err := ParseLocation(c.path)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"backend":  string(loc.Backend),
		"location": loc.Raw,
	}).Debug("loading local inventory")

	data, err := c.read(ctx, loc)
	if err != nil {
		return nil, err
	}

	records, err := ParseDocument(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", loc.Raw)
	}
	if len(records) == 0 {
		c.logger.WithField("location", loc.Raw).Warn("local inventory has no devices")
	}

	return &collectors.Result{Records: records, Origin: loc.Raw}, nil
}

func (c *Collector) read(ctx context.Context, loc Location) ([]byte, error) {
	switch loc.Backend {
	case BackendFile:
		data, err := os.ReadFile(loc.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrapf(ErrObjectNotFound, "%s", loc.Path)
			}
			return nil, errors.Wrapf(err, "read %s", loc.Path)
		}
		return data, nil
	case BackendS3:
		return readS3(ctx, loc)
	case BackendGCS:
		return readGCS(ctx, loc)
	case BackendAzure:
		return readAzure(ctx, loc)
	case BackendConfigMap:
		cs, err := c.kubeClient()
		if err != nil {
			return nil, err
		}
		return readConfigMap(ctx, cs, loc)
	default:
		return nil, errors.Errorf("unsupported backend %s", loc.Backend)
	}
}

func (c *Collector) kubeClient() (kubernetes.Interface, error) {
	if c.clientset != nil {
		return c.clientset, nil
	}
	restConfig, err := kubeClientConfig(c.kubeconfig, c.kubeContext)
	if err != nil {
		return nil, err
	}
	cs, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create Kubernetes client")
	}
	return cs, nil
}
