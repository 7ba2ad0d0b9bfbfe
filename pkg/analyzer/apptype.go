package analyzer

import "strings"

// ApplicationType classifies a workload by what it does
type ApplicationType string

const (
	ApplicationAPI      ApplicationType = "api_service"
	ApplicationWorker   ApplicationType = "worker_service"
	ApplicationFrontend ApplicationType = "frontend_service"
)

// SourceNamePattern tags application types inferred from the name
const SourceNamePattern = "name_pattern_inference"

// ApplicationTypeConfig describes an application type
type ApplicationTypeConfig struct {
	Keywords    []string
	Description string
}

// applicationTypes is ordered: API keywords win over worker and frontend ones
var applicationTypes = []struct {
	appType ApplicationType
	config  ApplicationTypeConfig
}{
	{ApplicationAPI, ApplicationTypeConfig{
		Keywords:    []string{"api", "service", "rest", "graphql"},
		Description: "Request/response API service",
	}},
	{ApplicationWorker, ApplicationTypeConfig{
		Keywords:    []string{"worker", "job", "queue", "processor"},
		Description: "Background worker or queue consumer",
	}},
	{ApplicationFrontend, ApplicationTypeConfig{
		Keywords:    []string{"frontend", "ui", "web", "react", "vue", "angular"},
		Description: "User-facing frontend",
	}},
}

// InferApplicationType matches keywords in the application name, defaulting to API
func InferApplicationType(name string) ApplicationType {
	lower := strings.ToLower(name)
	for _, entry := range applicationTypes {
		for _, keyword := range entry.config.Keywords {
			if strings.Contains(lower, keyword) {
				return entry.appType
			}
		}
	}
	return ApplicationAPI
}

// GetApplicationTypeConfig returns the configuration for an application type
func GetApplicationTypeConfig(appType ApplicationType) ApplicationTypeConfig {
	for _, entry := range applicationTypes {
		if entry.appType == appType {
			return entry.config
		}
	}
	return applicationTypes[0].config
}
