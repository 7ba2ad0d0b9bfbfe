package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"
)

func testDeployment() *appsv1.Deployment {
	labels := map[string]string{"app": "checkout"}
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "checkout", Namespace: "shop-prod"},
		Spec: appsv1.DeploymentSpec{
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{Containers: []corev1.Container{{
					Name: "app",
					Resources: corev1.ResourceRequirements{
						Requests: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse("200m"),
							corev1.ResourceMemory: resource.MustParse("256Mi"),
						},
						Limits: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse("500m"),
							corev1.ResourceMemory: resource.MustParse("512Mi"),
						},
					},
				}}},
			},
		},
		Status: appsv1.DeploymentStatus{Replicas: 2},
	}
}

func testPod(name string, restarts int32) *corev1.Pod {
	deploy := testDeployment()
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "shop-prod", Labels: deploy.Spec.Template.Labels},
		Spec:       deploy.Spec.Template.Spec,
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{{Name: "app", RestartCount: restarts}},
		},
	}
}

func podMetrics(name, cpu, memory string) metricsv1beta1.PodMetrics {
	return metricsv1beta1.PodMetrics{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "shop-prod"},
		Containers: []metricsv1beta1.ContainerMetrics{{
			Name: "app",
			Usage: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse(cpu),
				corev1.ResourceMemory: resource.MustParse(memory),
			},
		}},
	}
}

func metricsClient(items ...metricsv1beta1.PodMetrics) *metricsfake.Clientset {
	client := metricsfake.NewSimpleClientset()
	client.PrependReactor("list", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, &metricsv1beta1.PodMetricsList{Items: items}, nil
	})
	return client
}

func TestSnapshot_NotDeployed(t *testing.T) {
	inspector := NewInspector(fake.NewSimpleClientset(), nil, nil)

	snapshot, err := inspector.Snapshot(context.Background(), "shop-prod", "checkout")
	require.NoError(t, err)
	assert.Equal(t, NotDeployedNote, snapshot.State.Note)
	assert.Nil(t, snapshot.State.CurrentReplicas)
	assert.Equal(t, RestartRateUnknown, snapshot.RestartRate())
}

func TestSnapshot_FromPodMetrics(t *testing.T) {
	kube := fake.NewSimpleClientset(testDeployment(), testPod("checkout-a", 0), testPod("checkout-b", 1))
	metrics := metricsClient(
		podMetrics("checkout-a", "150m", "128Mi"),
		podMetrics("checkout-b", "150m", "256Mi"),
	)
	inspector := NewInspector(kube, metrics, nil)

	snapshot, err := inspector.Snapshot(context.Background(), "shop-prod", "checkout")
	require.NoError(t, err)

	require.NotNil(t, snapshot.State.CurrentReplicas)
	assert.Equal(t, int32(2), *snapshot.State.CurrentReplicas)
	require.NotNil(t, snapshot.State.CurrentCPUUtilization)
	assert.Equal(t, int32(75), *snapshot.State.CurrentCPUUtilization)
	require.NotNil(t, snapshot.State.CurrentMemoryUtilization)
	assert.Equal(t, int32(75), *snapshot.State.CurrentMemoryUtilization)
	assert.Equal(t, "200m", snapshot.State.CurrentResources.CPURequest)
	assert.Equal(t, "512Mi", snapshot.State.CurrentResources.MemoryLimit)
	assert.Equal(t, 2, snapshot.Pods)
	assert.Equal(t, RestartRateLow, snapshot.RestartRate())
	assert.Empty(t, snapshot.HPAName)
}

func TestSnapshot_PrefersHPAStatus(t *testing.T) {
	cpu := int32(64)
	hpa := &autoscalingv2.HorizontalPodAutoscaler{
		ObjectMeta: metav1.ObjectMeta{Name: "checkout-hpa", Namespace: "shop-prod"},
		Spec: autoscalingv2.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: autoscalingv2.CrossVersionObjectReference{Kind: "Deployment", Name: "checkout"},
			MaxReplicas:    10,
		},
		Status: autoscalingv2.HorizontalPodAutoscalerStatus{
			CurrentMetrics: []autoscalingv2.MetricStatus{{
				Type: autoscalingv2.ResourceMetricSourceType,
				Resource: &autoscalingv2.ResourceMetricStatus{
					Name:    corev1.ResourceCPU,
					Current: autoscalingv2.MetricValueStatus{AverageUtilization: &cpu},
				},
			}},
		},
	}
	kube := fake.NewSimpleClientset(testDeployment(), hpa, testPod("checkout-a", 12))
	inspector := NewInspector(kube, metricsClient(podMetrics("checkout-a", "20m", "128Mi")), nil)

	snapshot, err := inspector.Snapshot(context.Background(), "shop-prod", "checkout")
	require.NoError(t, err)
	assert.Equal(t, "checkout-hpa", snapshot.HPAName)
	assert.Equal(t, int32(64), *snapshot.State.CurrentCPUUtilization)
	assert.Equal(t, int32(50), *snapshot.State.CurrentMemoryUtilization)
	assert.Equal(t, RestartRateHigh, snapshot.RestartRate())
}
