package orchestrator

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"

	"github.com/ErzenXz/huly-selfhost/internal/overrides"
	"github.com/ErzenXz/huly-selfhost/internal/services"
)

// NewKubeClient connects with the given kubeconfig, the default loading rules
// ($KUBECONFIG, ~/.kube/config) when empty, or the in-cluster config as a
// last resort.
func NewKubeClient(kubeconfig string) (kubernetes.Interface, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil && kubeconfig == "" {
		config, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("kubernetes config: %w", err)
	}
	return kubernetes.NewForConfig(config)
}

// ImageChange is one container image to replace.
type ImageChange struct {
	Service    string
	Deployment string
	Container  string
	From       string
	To         string
}

// ImagePlan is what ApplyImages does, or would do in a dry run.
type ImagePlan struct {
	Changes   []ImageChange
	Unchanged []string // deployments already running the override
	Missing   []string // services without a deployment
	Unknown   []string // override keys that name no service
}

// Kube applies image overrides to deployments in one namespace.
type Kube struct {
	client    kubernetes.Interface
	namespace string
}

func NewKube(client kubernetes.Interface, namespace string) *Kube {
	return &Kube{client: client, namespace: namespace}
}

// Plan matches overrides to deployments. The deployment is named after the
// service; the container named after the service is updated, else the first.
func (k *Kube) Plan(ctx context.Context, registry *services.Registry, entries []overrides.Entry) (ImagePlan, error) {
	var plan ImagePlan
	for _, entry := range entries {
		spec, ok := registry.ByEnvKey(entry.Key)
		if !ok {
			plan.Unknown = append(plan.Unknown, entry.Key)
			continue
		}

		deployment, err := k.client.AppsV1().Deployments(k.namespace).Get(ctx, spec.Name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			plan.Missing = append(plan.Missing, spec.Name)
			continue
		}
		if err != nil {
			return ImagePlan{}, fmt.Errorf("get deployment %s/%s: %w", k.namespace, spec.Name, err)
		}

		containers := deployment.Spec.Template.Spec.Containers
		if len(containers) == 0 {
			plan.Missing = append(plan.Missing, spec.Name)
			continue
		}
		index := containerIndex(containers, spec.Name)
		current := containers[index].Image
		if current == entry.Value {
			plan.Unchanged = append(plan.Unchanged, spec.Name)
			continue
		}
		plan.Changes = append(plan.Changes, ImageChange{
			Service:    spec.Name,
			Deployment: deployment.Name,
			Container:  containers[index].Name,
			From:       current,
			To:         entry.Value,
		})
	}
	return plan, nil
}

// Apply updates every planned deployment, re-reading it on conflicts.
func (k *Kube) Apply(ctx context.Context, plan ImagePlan) error {
	deployments := k.client.AppsV1().Deployments(k.namespace)
	for _, change := range plan.Changes {
		err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
			deployment, err := deployments.Get(ctx, change.Deployment, metav1.GetOptions{})
			if err != nil {
				return err
			}
			containers := deployment.Spec.Template.Spec.Containers
			for i := range containers {
				if containers[i].Name == change.Container {
					containers[i].Image = change.To
				}
			}
			_, err = deployments.Update(ctx, deployment, metav1.UpdateOptions{})
			return err
		})
		if err != nil {
			return fmt.Errorf("update deployment %s/%s: %w", k.namespace, change.Deployment, err)
		}
	}
	return nil
}

func containerIndex(containers []corev1.Container, name string) int {
	for i, c := range containers {
		if c.Name == name {
			return i
		}
	}
	return 0
}
