// File: pipeline/plan.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Plan (the executable query plan) is a concrete DAG instance plus its FSM state,
// source drivers, sink terminators, and per-pipeline metadata (spec
// §4.6).

package pipeline

import (
	"sync"

	"github.com/nebulastream/streamcore/errs"
)

// State is one state of the plan's lifecycle FSM (spec §4.6 "State machine").
type State int

const (
	Created State = iota
	Deployed
	Running
	Stopped
	ErrorState
	Destroyed
)

func (s State) String() string {
	switch s {
	case Deployed:
		return "Deployed"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case ErrorState:
		return "ErrorState"
	case Destroyed:
		return "Destroyed"
	default:
		return "Created"
	}
}

// Plan is the executable instance of one SubPlan: queryId, subPlanId,
// its sources, its pipeline DAG, and its lifecycle state (spec §3
// "Executable Query Plan").
type Plan struct {
	QueryID   uint64
	SubPlanID uint64
	Sources   []Source
	Pipelines []*Pipeline

	mu       sync.Mutex
	state    State
	firstErr error

	byID map[PipelineID]*Pipeline
}

// NewPlan constructs a Plan in the Created state. pipelines is the
// compiled DAG in the order the query compiler produced it; this order
// is preserved for Setup/TearDown.
func NewPlan(queryID, subPlanID uint64, pipelines []*Pipeline, sources []Source) *Plan {
	p := &Plan{
		QueryID:   queryID,
		SubPlanID: subPlanID,
		Sources:   sources,
		Pipelines: pipelines,
		state:     Created,
		byID:      make(map[PipelineID]*Pipeline, len(pipelines)),
	}
	for _, pl := range pipelines {
		p.byID[pl.ID] = pl
	}
	return p
}

// State returns the plan's current FSM state.
func (p *Plan) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pipeline looks up a pipeline by ID within this plan.
func (p *Plan) Pipeline(id PipelineID) (*Pipeline, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.byID[id]
	return pl, ok
}

// FirstError returns the error that first drove the plan into
// ErrorState, or nil if it never entered that state.
func (p *Plan) FirstError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}

func (p *Plan) transition(from, to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != from {
		return errs.New(errs.CodeInvalidArgument, "invalid plan state transition").
			WithContext("have", p.state.String()).WithContext("want-from", from.String()).WithContext("to", to.String())
	}
	p.state = to
	return nil
}

// Setup calls Setup() on every stage in pipeline order and transitions
// Created → Deployed (spec §4.6).
func (p *Plan) Setup() error {
	if err := p.transition(Created, Deployed); err != nil {
		return err
	}
	for _, pl := range p.Pipelines {
		if err := pl.Stage.Setup(); err != nil {
			p.MarkError(err)
			return err
		}
	}
	return nil
}

// Start transitions Deployed → Running. Starting the sources themselves
// and installing task handlers is the Node Engine's responsibility;
// Start only performs the FSM transition so it composes with however
// the caller wires source goroutines.
func (p *Plan) Start() error {
	return p.transition(Deployed, Running)
}

// Stop transitions Running → Stopped. hard is ignored: it is not
// recorded, and the transition is identical either way; Stop neither
// cancels nor waits for tasks already queued (spec §4.8 stopQuery).
func (p *Plan) Stop(hard bool) error {
	return p.transition(Running, Stopped)
}

// MarkError transitions the plan to ErrorState from whatever running
// state it is currently in, recording the first error seen. Subsequent
// calls are no-ops so the first failure is always the one surfaced
// (spec §4.6 "ErrorState | any stage Error").
func (p *Plan) MarkError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == ErrorState || p.state == Destroyed {
		return
	}
	p.state = ErrorState
	if p.firstErr == nil {
		p.firstErr = err
	}
}

// Destroy transitions Stopped or ErrorState → Destroyed, tearing down
// every stage in pipeline order. Buffer release is the caller's
// responsibility (the Node Engine drops its references to this Plan
// after Destroy returns).
func (p *Plan) Destroy() error {
	p.mu.Lock()
	cur := p.state
	p.mu.Unlock()
	if cur != Stopped && cur != ErrorState {
		return errs.New(errs.CodeInvalidArgument, "destroy requires Stopped or ErrorState").
			WithContext("have", cur.String())
	}

	var firstTearDownErr error
	for _, pl := range p.Pipelines {
		if err := pl.Stage.TearDown(); err != nil && firstTearDownErr == nil {
			firstTearDownErr = err
		}
	}

	p.mu.Lock()
	p.state = Destroyed
	p.mu.Unlock()
	return firstTearDownErr
}
