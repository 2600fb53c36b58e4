package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// kubeClientConfig resolves in-cluster config first, then the kubeconfig file.
func kubeClientConfig(kubeconfig, kubeContext string) (*rest.Config, error) {
	if config, err := rest.InClusterConfig(); err == nil {
		return config, nil
	}

	if kubeconfig == "" {
		if home, err := os.UserHomeDir(); err == nil {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}

	overrides := &clientcmd.ConfigOverrides{}
	if kubeContext != "" {
		overrides.CurrentContext = kubeContext
	}

	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, errors.Wrap(err, "load kubeconfig")
	}
	return config, nil
}

// readConfigMap returns one data key of configmap://namespace/name/key
func readConfigMap(ctx context.Context, client kubernetes.Interface, loc Location) ([]byte, error) {
	name, key := loc.split()

	cm, err := client.CoreV1().ConfigMaps(loc.Host).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, errors.Wrapf(ErrObjectNotFound, "configmap %s/%s", loc.Host, name)
		}
		return nil, errors.Wrapf(err, "get configmap %s/%s", loc.Host, name)
	}

	if v, ok := cm.Data[key]; ok {
		return []byte(v), nil
	}
	if v, ok := cm.BinaryData[key]; ok {
		return v, nil
	}
	return nil, errors.Wrap(ErrObjectNotFound, fmt.Sprintf("configmap %s/%s has no key %q", loc.Host, name, key))
}
