// Package scheduler runs cron-triggered workflow dispatches: operators
// register a (cron expression, template name, static inputs) triple, and at
// each tick the scheduler plans and dispatches that template through the
// same Planner+Dispatcher path the REST handlers use.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"taskloom/internal/logging"
	"taskloom/internal/runtime"
	"taskloom/internal/workflows"
)

// Trigger binds a cron schedule to a template and the static inputs it
// should be dispatched with every time the schedule fires.
type Trigger struct {
	Name     string                 `yaml:"name"`
	Schedule string                 `yaml:"schedule"` // standard 5-field cron expression
	Template string                 `yaml:"template"`
	Inputs   map[string]interface{} `yaml:"inputs"`
}

// Scheduler owns a cron runner and dispatches triggers against it.
type Scheduler struct {
	cron       *cron.Cron
	loader     *workflows.Loader
	dispatcher *runtime.Dispatcher
}

func New(loader *workflows.Loader, dispatcher *runtime.Dispatcher) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		loader:     loader,
		dispatcher: dispatcher,
	}
}

// Register adds trigger to the schedule. It returns an error if the cron
// expression cannot be parsed; call it for every configured trigger before
// Start.
func (s *Scheduler) Register(trigger Trigger) error {
	_, err := s.cron.AddFunc(trigger.Schedule, func() {
		s.fire(trigger)
	})
	return err
}

func (s *Scheduler) fire(trigger Trigger) {
	ctx := context.Background()

	tf, err := s.loader.LoadByName(trigger.Template)
	if err != nil {
		logging.Error("scheduler: trigger %s: loading template %s: %v", trigger.Name, trigger.Template, err)
		return
	}

	inputs := make(map[string]interface{}, len(trigger.Inputs))
	for k, v := range trigger.Inputs {
		inputs[k] = v
	}
	if _, ok := inputs["workflow_id"]; !ok {
		inputs["workflow_id"] = trigger.Name
	}

	if _, err := s.dispatcher.Dispatch(ctx, trigger.Name, tf.Template, inputs, nil); err != nil {
		logging.Error("scheduler: trigger %s: dispatch failed: %v", trigger.Name, err)
		return
	}
	logging.Info("scheduler: trigger %s dispatched template %s", trigger.Name, trigger.Template)
}

// Start runs the cron scheduler in the background until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}()
}
