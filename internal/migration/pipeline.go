package migration

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/terraincognita07/paindiary/internal/logger"
)

// Step moves a document from version From to From+1. Down is the best-effort
// inverse. Validate runs on the output of Up; a non-nil error fails the step.
type Step struct {
	From        int
	Name        string
	Description string
	Up          func(doc Document) (Document, error)
	Down        func(doc Document) (Document, error)
	Validate    func(doc Document) error
}

func (step Step) To() int {
	return step.From + 1
}

type Result struct {
	From    int      `json:"from"`
	To      int      `json:"to"`
	Applied []string `json:"applied"`
}

// NoOp reports whether nothing had to run.
func (result Result) NoOp() bool {
	return len(result.Applied) == 0
}

type Pipeline struct {
	current int
	steps   map[int]Step
	log     *logger.Logger
}

func NewPipeline(current int, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		current: current,
		steps:   make(map[int]Step),
		log:     log.With("component", "migration"),
	}
}

func (pipeline *Pipeline) CurrentVersion() int {
	return pipeline.current
}

func (pipeline *Pipeline) Register(step Step) error {
	if step.From < 0 {
		return fmt.Errorf("%w: negative source version %d", ErrInvalidStep, step.From)
	}
	if step.Up == nil || step.Down == nil || step.Validate == nil {
		return fmt.Errorf("%w: step %q must define up, down and validate", ErrInvalidStep, step.Name)
	}
	if existing, ok := pipeline.steps[step.From]; ok {
		return fmt.Errorf("%w: version %d already handled by %q", ErrInvalidStep, step.From, existing.Name)
	}
	pipeline.steps[step.From] = step
	return nil
}

// Versions lists the source versions of registered steps in ascending order.
func (pipeline *Pipeline) Versions() []int {
	versions := make([]int, 0, len(pipeline.steps))
	for version := range pipeline.steps {
		versions = append(versions, version)
	}
	sort.Ints(versions)
	return versions
}

func (pipeline *Pipeline) NeedsMigration(version int) bool {
	return version != pipeline.current
}

// Plan resolves the contiguous chain of steps between two versions. For a
// downward plan the steps are returned in the order their Down must run.
func (pipeline *Pipeline) Plan(from int, to int) ([]Step, error) {
	if from == to {
		return nil, nil
	}
	if from < to {
		plan := make([]Step, 0, to-from)
		for version := from; version < to; version++ {
			step, ok := pipeline.steps[version]
			if !ok {
				return nil, fmt.Errorf("%w: missing step %d -> %d", ErrNoMigrationPath, version, version+1)
			}
			plan = append(plan, step)
		}
		return plan, nil
	}

	plan := make([]Step, 0, from-to)
	for version := from - 1; version >= to; version-- {
		step, ok := pipeline.steps[version]
		if !ok {
			return nil, fmt.Errorf("%w: missing step %d -> %d", ErrNoMigrationPath, version+1, version)
		}
		plan = append(plan, step)
	}
	return plan, nil
}

// Migrate upgrades doc to the pipeline's current version.
func (pipeline *Pipeline) Migrate(ctx context.Context, doc Document) (Document, Result, error) {
	return pipeline.MigrateTo(ctx, doc, pipeline.current)
}

// MigrateTo runs the up chain to target. On failure the returned document is
// a clone of the input taken before the first step, never the output of a
// down chain, and the error is a *MigrationError. Down steps may be lossy, so
// the held clone is what restores state.
func (pipeline *Pipeline) MigrateTo(ctx context.Context, doc Document, target int) (Document, Result, error) {
	if doc == nil {
		doc = Document{}
	}
	from := doc.Version()
	result := Result{From: from, To: from}
	if from == target {
		return doc, result, nil
	}
	if from > target {
		return doc, result, fmt.Errorf("%w: stored version %d is newer than %d", ErrUnsupportedVersion, from, target)
	}

	plan, err := pipeline.Plan(from, target)
	if err != nil {
		return doc, result, &MigrationError{From: from, To: target, Err: err}
	}

	original := doc.Clone()
	state := doc.Clone()
	completed := make([]Step, 0, len(plan))
	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			rollbackErr := pipeline.rollback(state, completed)
			return original, result, &MigrationError{From: from, To: target, FailedStep: step.Name, Err: err, RollbackErr: rollbackErr}
		}

		preStep := state.Clone()
		next, err := pipeline.runStep(step, state)
		if err != nil {
			pipeline.log.Error("migration step failed", "step", step.Name, "from", step.From, "error", err)
			rollbackErr := pipeline.rollback(preStep, completed)
			if rollbackErr != nil {
				pipeline.log.Error("migration rollback failed", "step", step.Name, "error", rollbackErr)
			}
			return original, result, &MigrationError{From: from, To: target, FailedStep: step.Name, Err: err, RollbackErr: rollbackErr}
		}

		state = next
		completed = append(completed, step)
		result.Applied = append(result.Applied, step.Name)
		result.To = step.To()
		pipeline.log.Info("migration step applied", "step", step.Name, "from", step.From, "to", step.To())
	}

	return state, result, nil
}

// Rollback runs the down chain from the document's version to target.
func (pipeline *Pipeline) Rollback(ctx context.Context, doc Document, target int) (Document, error) {
	from := doc.Version()
	if from < target {
		return doc, fmt.Errorf("%w: cannot roll back from %d up to %d", ErrUnsupportedVersion, from, target)
	}
	plan, err := pipeline.Plan(from, target)
	if err != nil {
		return doc, err
	}
	state := doc.Clone()
	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			return doc, err
		}
		state, err = runDown(step, state)
		if err != nil {
			return doc, fmt.Errorf("roll back step %q: %w", step.Name, err)
		}
	}
	return state, nil
}

func (pipeline *Pipeline) runStep(step Step, state Document) (next Document, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			next = nil
			err = fmt.Errorf("step panicked: %v", recovered)
		}
	}()

	next, err = step.Up(state.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, errors.New("step returned no document")
	}
	next.SetVersion(step.To())
	if err := step.Validate(next); err != nil {
		return nil, fmt.Errorf("validate %q output: %w", step.Name, err)
	}
	return next, nil
}

// rollback runs the down chain of completed steps, newest first, from the
// document taken before the failing step. Its output is discarded; the error
// reports whether the applied steps could be reverted.
func (pipeline *Pipeline) rollback(snapshot Document, completed []Step) error {
	state := snapshot.Clone()
	for index := len(completed) - 1; index >= 0; index-- {
		step := completed[index]
		var err error
		state, err = runDown(step, state)
		if err != nil {
			return fmt.Errorf("roll back step %q: %w", step.Name, err)
		}
	}
	return nil
}

func runDown(step Step, state Document) (next Document, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			next = nil
			err = fmt.Errorf("down panicked: %v", recovered)
		}
	}()

	next, err = step.Down(state.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, errors.New("down returned no document")
	}
	next.SetVersion(step.From)
	return next, nil
}
