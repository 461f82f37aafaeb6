package types

import "time"

// ModelList is the body of GET /v1/models.
type ModelList struct {
	// Object is always "list".
	Object string `json:"object"`

	// Data lists the model names clients can request.
	Data []Model `json:"data"`
}

// Model is one entry of a ModelList.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// DeploymentHealth is one deployment in GET /health/deployments.
type DeploymentHealth struct {
	ID             string     `json:"id"`
	ModelName      string     `json:"model_name"`
	Provider       string     `json:"provider"`
	State          string     `json:"state"`
	Healthy        bool       `json:"healthy"`
	InFlight       int64      `json:"in_flight"`
	MaxConcurrent  int64      `json:"max_concurrent"`
	AvgLatencyMs   float64    `json:"avg_latency_ms"`
	Successes      int64      `json:"successes"`
	Failures       int64      `json:"failures"`
	RecentFailures int        `json:"recent_failures"`
	CooldownUntil  *time.Time `json:"cooldown_until,omitempty"`
}

// DeploymentHealthList is the body of GET /health/deployments.
type DeploymentHealthList struct {
	HealthyCount   int                `json:"healthy_count"`
	UnhealthyCount int                `json:"unhealthy_count"`
	Deployments    []DeploymentHealth `json:"deployments"`
}
