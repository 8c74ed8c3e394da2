// Copyright © 2018 One Concern

package bootstrap

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Step of the bootstrap
type Step interface {
	Name() string
	Run(context.Context) error
}

// Bootstrapper runs steps
type Bootstrapper struct {
	steps    []Step
	failFast bool
	parallel bool
	skip     map[string]struct{}
	l        *zap.Logger
}

// New bootstrapper running steps in the given order
func New(steps []Step, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		steps: steps,
		skip:  make(map[string]struct{}),
		l:     zap.NewNop(),
	}
	for _, apply := range opts {
		apply(b)
	}
	return b
}

// Run all steps, and return the report together with the joined errors of failed steps
func (b *Bootstrapper) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{Outcomes: make([]Outcome, len(b.steps))}
	for i, step := range b.steps {
		report.Outcomes[i] = Outcome{Step: step.Name(), Status: NotRun}
	}

	if b.parallel {
		b.runParallel(ctx, report.Outcomes)
	} else {
		b.runSequential(ctx, report.Outcomes)
	}

	if err := ctx.Err(); err != nil {
		b.l.Warn("bootstrap interrupted", zap.Error(err))
		report.Interrupted = err
	}

	report.Elapsed = time.Since(start)
	return report, report.Err()
}

func (b *Bootstrapper) runSequential(ctx context.Context, outcomes []Outcome) {
	for i, step := range b.steps {
		if b.skipped(step, &outcomes[i]) {
			continue
		}
		if err := ctx.Err(); err != nil {
			b.l.Warn("interrupted, step not run", zap.String("step", step.Name()))
			outcomes[i].Status = Cancelled
			continue
		}

		b.run(ctx, step, &outcomes[i])
		if outcomes[i].Status == Failed && b.failFast {
			b.l.Info("fail fast: remaining steps not run")
			return
		}
	}
}

func (b *Bootstrapper) runParallel(ctx context.Context, outcomes []Outcome) {
	var (
		group *errgroup.Group
		gctx  = ctx
	)
	if b.failFast {
		group, gctx = errgroup.WithContext(ctx)
	} else {
		group = &errgroup.Group{}
	}

	for i, step := range b.steps {
		if b.skipped(step, &outcomes[i]) {
			continue
		}
		i, step := i, step
		group.Go(func() error {
			b.run(gctx, step, &outcomes[i])
			return outcomes[i].Err
		})
	}
	_ = group.Wait()

	if ctx.Err() != nil {
		return
	}
	for i := range outcomes {
		// steps interrupted because a sibling failed
		if outcomes[i].Status == Failed && errors.Is(outcomes[i].Err, context.Canceled) {
			outcomes[i].Status = Cancelled
		}
	}
}

func (b *Bootstrapper) skipped(step Step, outcome *Outcome) bool {
	if _, ok := b.skip[step.Name()]; !ok {
		return false
	}
	b.l.Info("step skipped", zap.String("step", step.Name()))
	outcome.Status = Skipped
	return true
}

func (b *Bootstrapper) run(ctx context.Context, step Step, outcome *Outcome) {
	logger := b.l.With(zap.String("step", step.Name()))
	logger.Debug("step starting")
	start := time.Now()
	err := step.Run(ctx)
	outcome.Elapsed = time.Since(start)

	if err != nil {
		outcome.Status = Failed
		outcome.Err = err
		logger.Error("step failed", zap.Error(err), zap.Duration("elapsed", outcome.Elapsed))
		return
	}
	outcome.Status = Succeeded
	logger.Info("step completed", zap.Duration("elapsed", outcome.Elapsed))
}
