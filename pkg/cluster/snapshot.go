package cluster

import (
	"context"
	"fmt"
	"math"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"go.uber.org/zap"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

// NotDeployedNote is reported when the deployment does not exist yet
const NotDeployedNote = "Application not yet deployed or monitored"

// Restart rate labels
const (
	RestartRateLow     = "low"
	RestartRateMedium  = "medium"
	RestartRateHigh    = "high"
	RestartRateUnknown = "unknown"
)

// Snapshot is the live state of one deployment
type Snapshot struct {
	State       models.CurrentState
	HPAName     string
	Pods        int
	PodRestarts int32
}

// RestartRate buckets container restarts per pod
func (s *Snapshot) RestartRate() string {
	if s == nil || s.Pods == 0 {
		return RestartRateUnknown
	}
	perPod := float64(s.PodRestarts) / float64(s.Pods)
	switch {
	case perPod < 1:
		return RestartRateLow
	case perPod < 5:
		return RestartRateMedium
	default:
		return RestartRateHigh
	}
}

// Inspector reads deployment, HPA and pod usage. metrics may be nil when the
// metrics server is not installed.
type Inspector struct {
	kube    kubernetes.Interface
	metrics metricsv.Interface
	logger  *zap.Logger
}

func NewInspector(kube kubernetes.Interface, metrics metricsv.Interface, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{kube: kube, metrics: metrics, logger: logger}
}

// Snapshot collects the current state of a deployment. A missing deployment
// is not an error: the state carries NotDeployedNote instead.
func (i *Inspector) Snapshot(ctx context.Context, namespace, deployment string) (*Snapshot, error) {
	deploy, err := i.kube.AppsV1().Deployments(namespace).Get(ctx, deployment, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return &Snapshot{State: models.CurrentState{Note: NotDeployedNote}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s/%s: %w", namespace, deployment, err)
	}

	snapshot := &Snapshot{}
	replicas := deploy.Status.Replicas
	snapshot.State.CurrentReplicas = &replicas

	if containers := deploy.Spec.Template.Spec.Containers; len(containers) > 0 {
		snapshot.State.CurrentResources = containerResources(containers[0])
	}

	hpa := i.findHPA(ctx, namespace, deployment)
	if hpa != nil {
		snapshot.HPAName = hpa.Name
		snapshot.State.CurrentCPUUtilization = hpaUtilization(hpa, corev1.ResourceCPU)
		snapshot.State.CurrentMemoryUtilization = hpaUtilization(hpa, corev1.ResourceMemory)
	}

	selector, err := metav1.LabelSelectorAsSelector(deploy.Spec.Selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector on deployment %s/%s: %w", namespace, deployment, err)
	}
	pods, err := i.kube.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	snapshot.Pods = len(pods.Items)
	for _, pod := range pods.Items {
		for _, status := range pod.Status.ContainerStatuses {
			snapshot.PodRestarts += status.RestartCount
		}
	}

	if snapshot.State.CurrentCPUUtilization == nil || snapshot.State.CurrentMemoryUtilization == nil {
		cpu, memory := i.podUtilization(ctx, namespace, pods.Items)
		if snapshot.State.CurrentCPUUtilization == nil {
			snapshot.State.CurrentCPUUtilization = cpu
		}
		if snapshot.State.CurrentMemoryUtilization == nil {
			snapshot.State.CurrentMemoryUtilization = memory
		}
	}

	return snapshot, nil
}

// findHPA returns the HPA targeting the deployment, if any
func (i *Inspector) findHPA(ctx context.Context, namespace, deployment string) *autoscalingv2.HorizontalPodAutoscaler {
	hpaList, err := i.kube.AutoscalingV2().HorizontalPodAutoscalers(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		i.logger.Debug("listing HPAs failed", zap.String("namespace", namespace), zap.Error(err))
		return nil
	}
	for idx := range hpaList.Items {
		ref := hpaList.Items[idx].Spec.ScaleTargetRef
		if ref.Kind == "Deployment" && ref.Name == deployment {
			return &hpaList.Items[idx]
		}
	}
	return nil
}

func hpaUtilization(hpa *autoscalingv2.HorizontalPodAutoscaler, name corev1.ResourceName) *int32 {
	for _, metric := range hpa.Status.CurrentMetrics {
		if metric.Type != autoscalingv2.ResourceMetricSourceType || metric.Resource == nil {
			continue
		}
		if metric.Resource.Name == name && metric.Resource.Current.AverageUtilization != nil {
			value := *metric.Resource.Current.AverageUtilization
			return &value
		}
	}
	return nil
}

// podUtilization compares metrics-server usage with container requests
func (i *Inspector) podUtilization(ctx context.Context, namespace string, pods []corev1.Pod) (*int32, *int32) {
	if i.metrics == nil || len(pods) == 0 {
		return nil, nil
	}

	podMetrics, err := i.metrics.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		i.logger.Debug("pod metrics unavailable", zap.String("namespace", namespace), zap.Error(err))
		return nil, nil
	}

	type usage struct {
		cpu    resource.Quantity
		memory resource.Quantity
	}
	metricsMap := make(map[string]map[string]usage)
	for _, pm := range podMetrics.Items {
		metricsMap[pm.Name] = make(map[string]usage)
		for _, container := range pm.Containers {
			metricsMap[pm.Name][container.Name] = usage{
				cpu:    container.Usage[corev1.ResourceCPU],
				memory: container.Usage[corev1.ResourceMemory],
			}
		}
	}

	var requestedCPU, usedCPU, requestedMemory, usedMemory int64
	for _, pod := range pods {
		containers, ok := metricsMap[pod.Name]
		if !ok {
			continue
		}
		for _, container := range pod.Spec.Containers {
			used, ok := containers[container.Name]
			if !ok {
				continue
			}
			if req, ok := container.Resources.Requests[corev1.ResourceCPU]; ok {
				requestedCPU += req.MilliValue()
				usedCPU += used.cpu.MilliValue()
			}
			if req, ok := container.Resources.Requests[corev1.ResourceMemory]; ok {
				requestedMemory += req.Value()
				usedMemory += used.memory.Value()
			}
		}
	}

	return percentage(usedCPU, requestedCPU), percentage(usedMemory, requestedMemory)
}

func percentage(used, requested int64) *int32 {
	if requested <= 0 {
		return nil
	}
	value := int32(math.Round(float64(used) / float64(requested) * 100))
	return &value
}

func containerResources(container corev1.Container) *models.Resources {
	quantity := func(list corev1.ResourceList, name corev1.ResourceName) string {
		if q, ok := list[name]; ok {
			return q.String()
		}
		return ""
	}
	return &models.Resources{
		CPURequest:    quantity(container.Resources.Requests, corev1.ResourceCPU),
		MemoryRequest: quantity(container.Resources.Requests, corev1.ResourceMemory),
		CPULimit:      quantity(container.Resources.Limits, corev1.ResourceCPU),
		MemoryLimit:   quantity(container.Resources.Limits, corev1.ResourceMemory),
	}
}
