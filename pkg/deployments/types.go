package deployments

import (
	"encoding/json"
	"fmt"
	"time"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// Status is the lifecycle state of a deployment as reported by the manager.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusStarting          Status = "STARTING"
	StatusRunning           Status = "RUNNING"
	StatusStopping          Status = "STOPPING"
	StatusStopped           Status = "STOPPED"
	StatusInsufficientFunds Status = "INSUFFICIENT_FUNDS"
	StatusArchived          Status = "ARCHIVED"
	StatusError             Status = "ERROR"
)

var knownStatuses = map[Status]bool{
	StatusDraft: true, StatusStarting: true, StatusRunning: true, StatusStopping: true,
	StatusStopped: true, StatusInsufficientFunds: true, StatusArchived: true, StatusError: true,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return knownStatuses[s]
}

// Terminal reports whether no further lifecycle operation is accepted.
func (s Status) Terminal() bool {
	return s == StatusArchived
}

// UnmarshalJSON rejects statuses outside the known set.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !Status(raw).Valid() {
		return sdkerrors.NewDeploymentError(sdkerrors.CodeUnexpectedStatus,
			fmt.Sprintf("unknown deployment status %q", raw), nil)
	}
	*s = Status(raw)
	return nil
}

// Strategy controls how the manager schedules jobs for a deployment.
type Strategy string

const (
	StrategySimple    Strategy = "SIMPLE"
	StrategyScheduled Strategy = "SCHEDULED"
	StrategyInfinite  Strategy = "INFINITE"
)

// TaskType is the kind of scheduled manager task.
type TaskType string

const (
	TaskList   TaskType = "LIST"
	TaskExtend TaskType = "EXTEND"
	TaskStop   TaskType = "STOP"
)

// Job is a job posted on behalf of a deployment.
type Job struct {
	Job        string    `json:"job"`
	Deployment string    `json:"deployment"`
	Tx         string    `json:"tx"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Event is an entry in a deployment's history.
type Event struct {
	Category     string    `json:"category"`
	DeploymentID string    `json:"deploymentId"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	Tx           string    `json:"tx,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Task is a scheduled manager action for a deployment.
type Task struct {
	Task         TaskType  `json:"task"`
	DeploymentID string    `json:"deploymentId"`
	Tx           string    `json:"tx,omitempty"`
	DueAt        time.Time `json:"dueAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Deployment is the manager's record of a deployment.
type Deployment struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Vault              string    `json:"vault"`
	Market             string    `json:"market"`
	Owner              string    `json:"owner"`
	Status             Status    `json:"status"`
	Strategy           Strategy  `json:"strategy"`
	Schedule           string    `json:"schedule,omitempty"`
	IPFSDefinitionHash string    `json:"ipfsDefinitionHash"`
	Replicas           int       `json:"replicas"`
	Timeout            int       `json:"timeout"`
	Jobs               []Job     `json:"jobs"`
	Events             []Event   `json:"events"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// CreateRequest is the body of a create call.
type CreateRequest struct {
	Name               string   `json:"name" validate:"required"`
	Market             string   `json:"market" validate:"required"`
	IPFSDefinitionHash string   `json:"ipfsDefinitionHash" validate:"required"`
	Replicas           int      `json:"replicas" validate:"gte=0"`
	Timeout            int      `json:"timeout" validate:"gt=0"`
	Strategy           Strategy `json:"strategy" validate:"required,oneof=SIMPLE SCHEDULED INFINITE"`
	Schedule           string   `json:"schedule,omitempty" validate:"required_if=Strategy SCHEDULED,omitempty,cron6"`
}

// StatusUpdate is the manager's answer to start, stop and archive.
type StatusUpdate struct {
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReplicaUpdate is the manager's answer to a replica count change.
type ReplicaUpdate struct {
	Replicas  int       `json:"replicas"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TimeoutUpdate is the manager's answer to a timeout change.
type TimeoutUpdate struct {
	Timeout   int       `json:"timeout"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type replicaRequest struct {
	Replicas int `json:"replicas"`
}

type timeoutRequest struct {
	Timeout int `json:"timeout"`
}

// VaultSummary is one entry of the vault listing. The manager has used
// several field names for the vault address over time.
type VaultSummary struct {
	Address string `json:"address,omitempty"`
	Vault   string `json:"vault,omitempty"`
	ID      string `json:"id,omitempty"`
	Owner   string `json:"owner,omitempty"`
}

// Key returns the vault address.
func (v VaultSummary) Key() string {
	switch {
	case v.Address != "":
		return v.Address
	case v.Vault != "":
		return v.Vault
	default:
		return v.ID
	}
}

// VaultBalance is the manager's view of a vault balance, in whole units.
type VaultBalance struct {
	SOL float64 `json:"SOL"`
	NOS float64 `json:"NOS"`
}

// WithdrawRequest asks the manager to build a withdrawal transaction. Nil
// amounts mean everything.
type WithdrawRequest struct {
	SOL *float64 `json:"SOL,omitempty"`
	NOS *float64 `json:"NOS,omitempty"`
}

// WithdrawTransaction is the unsigned transaction the manager builds.
type WithdrawTransaction struct {
	Transaction string `json:"transaction"`
}
