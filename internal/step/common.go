package step

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/geneflow-org/geneflow/internal/datamgr"
	"github.com/geneflow-org/geneflow/internal/geneuri"
	"github.com/geneflow-org/geneflow/internal/model"
	"github.com/geneflow-org/geneflow/internal/step/shared"
)

// Common implements every phase of the Executor contract that does not
// depend on how a job is actually submitted or polled. Each backend
// struct embeds Common and supplies a Driver; Common calls back into it
// only where backends differ (Submit/Poll, and the SupportsRetry check).
type Common struct {
	Def     model.Step
	App     model.App
	DataMgr *datamgr.Manager

	// StepWorkURI is this step's output folder under its execution
	// context's work URI; LogURI is its nested "_log" subfolder.
	StepWorkURI geneuri.URI
	LogURI      geneuri.URI

	// Scope carries the workflow inputs/parameters and already-finished
	// step outputs this step's template may reference. Positional is
	// filled in per map item during IterateMapURI.
	Scope shared.Scope

	Throttle  *shared.Throttle
	PollDelay time.Duration

	mu    sync.Mutex
	items []model.MapItem
}

// NewCommon returns a Common ready to drive def's lifecycle.
func NewCommon(def model.Step, app model.App, dm *datamgr.Manager, workURI geneuri.URI, scope shared.Scope, throttleLimit int, pollDelay time.Duration) *Common {
	logURI := workURI.Join("_log")
	return &Common{
		Def:         def,
		App:         app,
		DataMgr:     dm,
		StepWorkURI: workURI,
		LogURI:      logURI,
		Scope:       scope,
		Throttle:    shared.NewThrottle(throttleLimit),
		PollDelay:   pollDelay,
	}
}

func (c *Common) StepName() string { return c.Def.Name }

func (c *Common) OutputURI() geneuri.URI { return c.StepWorkURI }

// MapItems returns a snapshot copy of the step's current map items.
func (c *Common) MapItems() []model.MapItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.MapItem, len(c.items))
	copy(out, c.items)
	return out
}

// InitDataURI implements Executor.InitDataURI.
func (c *Common) InitDataURI(ctx context.Context, clean bool) error {
	if clean {
		if ok, err := c.DataMgr.Exists(ctx, c.StepWorkURI); err == nil && ok {
			if _, err := c.DataMgr.Delete(ctx, c.StepWorkURI); err != nil {
				return fmt.Errorf("step %s: clean output folder: %w", c.Def.Name, err)
			}
		}
	}
	if err := c.DataMgr.Mkdir(ctx, c.StepWorkURI, true); err != nil {
		return fmt.Errorf("step %s: create output folder: %w", c.Def.Name, err)
	}
	if err := c.DataMgr.Mkdir(ctx, c.LogURI, true); err != nil {
		return fmt.Errorf("step %s: create log folder: %w", c.Def.Name, err)
	}
	return nil
}

// IterateMapURI implements Executor.IterateMapURI. An unmapped step
// synthesizes a single map item from its verbatim template; a mapped
// step lists its map URI and produces one item per matched name.
func (c *Common) IterateMapURI(ctx context.Context) error {
	if c.Def.Map == nil {
		tmpl, err := shared.EvaluateTemplate(c.Def.Template, c.Scope)
		if err != nil {
			return fmt.Errorf("step %s: template: %w", c.Def.Name, err)
		}
		tmpl["output"] = fmt.Sprintf("%s-%d", c.Def.Name, 0)
		c.setItems([]model.MapItem{{Status: model.StatusPending, Template: tmpl}})
		return nil
	}

	mapURIStr, err := shared.Evaluate(c.Def.Map.URI, c.Scope)
	if err != nil {
		return fmt.Errorf("step %s: map uri: %w", c.Def.Name, err)
	}
	mapURI, err := geneuri.Parse(mapURIStr)
	if err != nil {
		return fmt.Errorf("step %s: map uri %q: %w", c.Def.Name, mapURIStr, err)
	}

	glob := c.Def.Map.GlobOrDefault()
	names, err := c.DataMgr.List(ctx, mapURI, glob, c.Def.Map.Recursive)
	if err != nil {
		return fmt.Errorf("step %s: list map uri: %w", c.Def.Name, err)
	}
	if c.Def.Map.Inclusive {
		if matched, _ := doublestar.Match(glob, mapURI.Name); matched {
			names = append([]string{mapURI.Name}, names...)
		}
	}

	items := make([]model.MapItem, 0, len(names))
	for i, name := range names {
		scope := c.Scope
		scope.Positional = map[string]string{
			"1": name,
			"2": shared.BasenameNoExt(name),
		}
		tmpl, err := shared.EvaluateTemplate(c.Def.Template, scope)
		if err != nil {
			return fmt.Errorf("step %s: template for %q: %w", c.Def.Name, name, err)
		}
		tmpl["output"] = shared.OutputSlug(c.Def.Name, i, name)
		items = append(items, model.MapItem{Filename: name, Status: model.StatusPending, Template: tmpl})
	}
	c.setItems(items)
	return nil
}

func (c *Common) setItems(items []model.MapItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

// AllDone implements Executor.AllDone.
func (c *Common) AllDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return shared.AllTerminal(c.items)
}

// Run submits every PENDING item through driver, respecting the
// throttle's admission gate.
func (c *Common) Run(ctx context.Context, driver Driver) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Status != model.StatusPending {
			continue
		}
		if !c.Throttle.Admit() {
			continue
		}
		if err := c.submitLocked(ctx, driver, i); err != nil {
			return err
		}
	}
	return nil
}

// submitLocked assumes c.mu is held and a throttle slot has already
// been admitted for c.items[i].
func (c *Common) submitLocked(ctx context.Context, driver Driver, i int) error {
	item := &c.items[i]
	jobName := shared.JobName(item.Attempt, c.Def.Name, item.Template["output"])
	run, err := driver.Submit(ctx, item, jobName)
	if err != nil {
		c.Throttle.Release()
		return fmt.Errorf("step %s: submit %s: %w", c.Def.Name, jobName, err)
	}
	item.Run = append(item.Run, run)
	item.Status = run.Status
	if item.Status.Terminal() {
		c.Throttle.Release()
	}
	return nil
}

// CheckRunningJobs polls every non-terminal item once, updating its
// status, and resubmits a FAILED item that qualifies for retry as soon
// as a throttle slot is free.
func (c *Common) CheckRunningJobs(ctx context.Context, driver Driver) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		item := &c.items[i]

		// An item still waiting on its first submission for the current
		// attempt (the initial Run pass found no free throttle slot) is
		// submitted here rather than polled.
		if item.Status == model.StatusPending && len(item.Run) == item.Attempt {
			if !c.Throttle.Admit() {
				continue
			}
			if err := c.submitLocked(ctx, driver, i); err != nil {
				return err
			}
			continue
		}

		if !item.Status.Terminal() {
			status, err := driver.Poll(ctx, item)
			if err != nil {
				return fmt.Errorf("step %s: poll %s: %w", c.Def.Name, item.Template["output"], err)
			}
			item.Status = status
			if run := item.LastRun(); run != nil {
				run.Status = status
			}
			if status.Terminal() {
				c.Throttle.Release()
			}
		}

		// A FAILED item, whether just observed above or left over from
		// a prior pass that found no free throttle slot, re-qualifies
		// for retry every pass until it is re-admitted or exhausts its
		// attempt budget.
		if item.Status == model.StatusFailed && shared.ShouldRetry(item, driver.SupportsRetry()) {
			if !c.Throttle.Admit() {
				continue
			}
			item.Attempt++
			item.Status = model.StatusPending
			if err := c.submitLocked(ctx, driver, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// Checkpoint evaluates the step's checkpoint policy over its current
// map items.
func (c *Common) Checkpoint() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return shared.EvaluateCheckpoint(c.Def.CheckpointOrDefault(), c.items)
}

// Finalize applies the checkpoint policy, returning an error if it
// fails. Every backend's CleanUp calls Finalize after any
// backend-specific artifact staging it needs to do first.
func (c *Common) Finalize() error {
	if !c.Checkpoint() {
		return fmt.Errorf("step %s: checkpoint %q failed", c.Def.Name, c.Def.CheckpointOrDefault())
	}
	return nil
}
