// Package service wires the agent chain together and runs machine
// analyses on behalf of the HTTP layer.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FactorySense/internal/agent"
	"FactorySense/internal/config"
	"FactorySense/internal/llm"
	"FactorySense/internal/maintenance"
	"FactorySense/internal/models"
	"FactorySense/internal/workflow"
	fshttp "FactorySense/pkg/http"
	"FactorySense/pkg/logger"
)

// ErrNoAgentsAvailable means no agent in the chain could be resolved,
// so there is nothing to run an analysis with.
var ErrNoAgentsAvailable = errors.New("no agents could be resolved from configuration")

// EventPublisher emits workflow progress events. The Kafka step
// publisher satisfies this; tests use an in-memory fake.
type EventPublisher interface {
	PublishStepEvent(ctx context.Context, entry *models.StepLogEntry) error
}

// PeerResolver finds peer agent addresses by service name. The etcd
// ServiceDiscovery client satisfies this.
type PeerResolver interface {
	Discover(serviceName string) ([]string, error)
}

// Deps carries the optional backends the service can run with. A nil
// Store or LLM disables in-process agents, a nil Publisher disables
// progress events.
type Deps struct {
	Client    *fshttp.Client
	Store     maintenance.Store
	LLM       llm.LLM
	Publisher EventPublisher
	Resolver  PeerResolver
}

// Service resolves the five-stage agent chain once at startup and runs
// the pipeline for each analysis request. Agents that fail to resolve
// are skipped so one unreachable service does not take the pipeline down.
type Service struct {
	agents      []agent.Agent
	stepTimeout time.Duration
	haltOnError bool
	publisher   EventPublisher
	log         *logger.Logger
}

func New(ctx context.Context, cfg *config.AppConfig, deps Deps) *Service {
	stepTimeout, err := time.ParseDuration(cfg.Workflow.StepTimeout)
	if err != nil {
		stepTimeout = 0 // step executor falls back to its default
	}
	s := &Service{
		stepTimeout: stepTimeout,
		haltOnError: cfg.Workflow.HaltOnError,
		publisher:   deps.Publisher,
		log:         logger.New("workflow-service", "", ""),
	}
	s.resolveAgents(ctx, cfg, deps)
	return s
}

// resolveAgents builds the chain in pipeline order. Hosted agents are
// looked up on the agent platform, the repair planner and (unless local
// mode is on) the scheduling and ordering agents are resolved as A2A
// peers.
func (s *Service) resolveAgents(ctx context.Context, cfg *config.AppConfig, deps Deps) {
	ac := cfg.Agents

	s.addHosted(ctx, deps.Client, ac.ProjectEndpoint, ac.AnomalyAgentName)
	s.addHosted(ctx, deps.Client, ac.ProjectEndpoint, ac.FaultAgentName)
	s.addPeer(ctx, deps.Client, s.peerURL(deps, ac.RepairPlannerURL, "repair_planner"))

	if ac.LocalAgents && deps.Store != nil && deps.LLM != nil {
		s.agents = append(s.agents,
			maintenance.NewSchedulerAgent(deps.LLM, deps.Store),
			maintenance.NewPartsAgent(deps.LLM, deps.Store))
		return
	}
	s.addPeer(ctx, deps.Client, s.peerURL(deps, ac.SchedulerAgentURL, "scheduler_agent"))
	s.addPeer(ctx, deps.Client, s.peerURL(deps, ac.PartsAgentURL, "parts_agent"))
}

// peerURL prefers the configured address and falls back to etcd
// discovery by service name. An empty result means the agent is skipped.
func (s *Service) peerURL(deps Deps, configured, serviceName string) string {
	if configured != "" || deps.Resolver == nil {
		return configured
	}
	addrs, err := deps.Resolver.Discover(serviceName)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	s.log.Info(fmt.Sprintf("resolved %s via service discovery: %s", serviceName, addrs[0]))
	return addrs[0]
}

func (s *Service) addHosted(ctx context.Context, client *fshttp.Client, endpoint, name string) {
	if endpoint == "" || name == "" {
		return
	}
	a, err := agent.NewHostedAgent(ctx, client, endpoint, name)
	if err != nil {
		s.log.WithError(models.ErrorInfo{Message: err.Error(), Type: "resolution_error"}).
			Warn(fmt.Sprintf("skipping hosted agent %s", name))
		return
	}
	s.agents = append(s.agents, a)
}

func (s *Service) addPeer(ctx context.Context, client *fshttp.Client, baseURL string) {
	if baseURL == "" {
		return
	}
	a, err := agent.NewPeerAgent(ctx, client, baseURL)
	if err != nil {
		s.log.WithError(models.ErrorInfo{Message: err.Error(), Type: "resolution_error"}).
			Warn(fmt.Sprintf("skipping peer agent at %s", baseURL))
		return
	}
	s.agents = append(s.agents, a)
}

// AgentNames lists the resolved chain in execution order.
func (s *Service) AgentNames() []string {
	names := make([]string, 0, len(s.agents))
	for _, a := range s.agents {
		names = append(names, a.Name())
	}
	return names
}

// AnalyzeMachine runs the full pipeline for one machine. The telemetry
// payload is serialized into the seed prompt for the first agent.
func (s *Service) AnalyzeMachine(ctx context.Context, machineID string, telemetry any) (*models.WorkflowResponse, error) {
	if len(s.agents) == 0 {
		return nil, ErrNoAgentsAvailable
	}

	runID := uuid.NewString()
	log := logger.New("workflow-service", runID, machineID)

	telemetryJSON, err := json.Marshal(telemetry)
	if err != nil {
		return nil, fmt.Errorf("encode telemetry: %w", err)
	}
	seed := fmt.Sprintf("Classify the following anomalies for machine %s: %s", machineID, telemetryJSON)

	opts := workflow.Options{
		StepTimeout: s.stepTimeout,
		HaltOnError: s.haltOnError,
		Observer:    s.stepObserver(machineID),
	}
	builder := workflow.NewBuilder(opts)
	for _, a := range s.agents {
		builder.AddAgent(a)
	}
	wf, err := builder.Build()
	if err != nil {
		return nil, err
	}

	log.Info("starting machine analysis")
	resp := wf.Run(ctx, runID, seed)
	log.WithPayload(map[string]any{"steps": len(resp.AgentSteps)}).Info("machine analysis finished")
	return resp, nil
}

// stepObserver forwards workflow progress to the event publisher,
// stamping each entry with the machine under analysis.
func (s *Service) stepObserver(machineID string) workflow.StepObserver {
	if s.publisher == nil {
		return nil
	}
	return func(ctx context.Context, entry *models.StepLogEntry) {
		entry.MachineID = machineID
		if err := s.publisher.PublishStepEvent(ctx, entry); err != nil {
			s.log.WithError(models.ErrorInfo{Message: err.Error(), Type: "publish_error"}).
				Warn("failed to publish step event")
		}
	}
}
