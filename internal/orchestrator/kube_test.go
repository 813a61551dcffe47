package orchestrator

import (
	"context"
	"reflect"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/ErzenXz/huly-selfhost/internal/overrides"
	"github.com/ErzenXz/huly-selfhost/internal/services"
)

const namespace = "huly"

func newDeployment(name string, containers ...corev1.Container) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: appsv1.DeploymentSpec{
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{Containers: containers},
			},
		},
	}
}

func fixtureClient() *fake.Clientset {
	return fake.NewSimpleClientset(
		newDeployment("front",
			corev1.Container{Name: "proxy", Image: "nginx:1.27"},
			corev1.Container{Name: "front", Image: "hardcoreeng/front:v0.6.500"},
		),
		newDeployment("account", corev1.Container{Name: "app", Image: "hardcoreeng/account:v0.6.500"}),
		newDeployment("stats", corev1.Container{Name: "stats", Image: "huly/stats:local-1"}),
	)
}

var imageEntries = []overrides.Entry{
	{Key: "IMAGE_FRONT", Value: "huly/front:local-2"},
	{Key: "IMAGE_ACCOUNT", Value: "huly/account:local-2"},
	{Key: "IMAGE_STATS", Value: "huly/stats:local-1"},
	{Key: "IMAGE_KVS", Value: "huly/kvs:local-2"},
	{Key: "IMAGE_MAIL", Value: "huly/mail:local-2"},
}

func TestPlan(t *testing.T) {
	kube := NewKube(fixtureClient(), namespace)

	plan, err := kube.Plan(context.Background(), services.Default(), imageEntries)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	wantChanges := []ImageChange{
		{Service: "front", Deployment: "front", Container: "front", From: "hardcoreeng/front:v0.6.500", To: "huly/front:local-2"},
		{Service: "account", Deployment: "account", Container: "app", From: "hardcoreeng/account:v0.6.500", To: "huly/account:local-2"},
	}
	if !reflect.DeepEqual(plan.Changes, wantChanges) {
		t.Errorf("unexpected changes:\n%+v", plan.Changes)
	}
	if !reflect.DeepEqual(plan.Unchanged, []string{"stats"}) {
		t.Errorf("unexpected unchanged %v", plan.Unchanged)
	}
	if !reflect.DeepEqual(plan.Missing, []string{"kvs"}) {
		t.Errorf("unexpected missing %v", plan.Missing)
	}
	if !reflect.DeepEqual(plan.Unknown, []string{"IMAGE_MAIL"}) {
		t.Errorf("unexpected unknown %v", plan.Unknown)
	}
}

func TestApply(t *testing.T) {
	client := fixtureClient()
	kube := NewKube(client, namespace)
	ctx := context.Background()

	plan, err := kube.Plan(ctx, services.Default(), imageEntries)
	if err != nil {
		t.Fatal(err)
	}
	if err := kube.Apply(ctx, plan); err != nil {
		t.Fatalf("apply: %v", err)
	}

	front, err := client.AppsV1().Deployments(namespace).Get(ctx, "front", metav1.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	containers := front.Spec.Template.Spec.Containers
	if containers[0].Image != "nginx:1.27" || containers[1].Image != "huly/front:local-2" {
		t.Errorf("unexpected front containers %+v", containers)
	}

	account, err := client.AppsV1().Deployments(namespace).Get(ctx, "account", metav1.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := account.Spec.Template.Spec.Containers[0].Image; got != "huly/account:local-2" {
		t.Errorf("account not updated: %s", got)
	}
}

func TestPlanIsReadOnly(t *testing.T) {
	client := fixtureClient()
	if _, err := NewKube(client, namespace).Plan(context.Background(), services.Default(), imageEntries); err != nil {
		t.Fatal(err)
	}
	for _, action := range client.Actions() {
		if action.GetVerb() != "get" {
			t.Errorf("dry run performed %s", action.GetVerb())
		}
	}
}
