// Package batch builds queues of chapter requests and runs them one at a
// time through an automation driver.
package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thywilljoshua/chapter-runner/internal/ai"
	"github.com/thywilljoshua/chapter-runner/internal/extract"
	"github.com/thywilljoshua/chapter-runner/internal/pagerange"
)

var ErrBusy = errors.New("a run is already in progress")

type State int32

const (
	Idle State = iota
	Running
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

type Policy int

const (
	SkipAndContinue Policy = iota
	AbortOnError
)

// Delays are settle times after an item: Item before the next item of the
// same file, File before the first item of a different file.
type Delays struct {
	Item time.Duration
	File time.Duration
}

type Options struct {
	Policy Policy
	Delays Delays
}

type Phase int

const (
	Started Phase = iota
	Succeeded
	Failed
)

// Progress is emitted before and after each item.
type Progress struct {
	Index int // 1-based
	Total int
	Item  Item
	Phase Phase
	Err   error
}

type Failure struct {
	Item Item
	Err  error
}

type Summary struct {
	State     State
	Total     int
	Processed int
	Failures  []Failure
}

// Skipped counts items never attempted because the run stopped early.
func (s Summary) Skipped() int { return s.Total - s.Processed - len(s.Failures) }

type Runner struct {
	driver ai.Driver
	opts   Options
	busy   atomic.Bool
	state  atomic.Int32
	sleep  func(context.Context, time.Duration) error
}

func NewRunner(d ai.Driver, opts Options) *Runner {
	return &Runner{driver: d, opts: opts, sleep: sleepCtx}
}

func (r *Runner) State() State { return State(r.state.Load()) }

// Run is one started queue.
type Run struct {
	events  chan Progress
	done    chan struct{}
	summary Summary
}

// Events streams progress; it is closed when the run ends. Callers that
// start a run must drain it.
func (run *Run) Events() <-chan Progress { return run.events }

// Wait blocks until the run ends and returns its summary.
func (run *Run) Wait() Summary {
	<-run.done
	return run.summary
}

// Start runs items on a worker goroutine. Only one run may be active.
func (r *Runner) Start(ctx context.Context, items []Item) (*Run, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	r.state.Store(int32(Running))
	run := &Run{events: make(chan Progress), done: make(chan struct{})}
	go func() {
		defer close(run.done)
		defer r.busy.Store(false)
		defer close(run.events)
		run.summary = r.loop(ctx, items, run.events)
		r.state.Store(int32(run.summary.State))
	}()
	return run, nil
}

// Run processes items synchronously, calling fn (if non-nil) for each
// progress event.
func (r *Runner) Run(ctx context.Context, items []Item, fn func(Progress)) (Summary, error) {
	run, err := r.Start(ctx, items)
	if err != nil {
		return Summary{}, err
	}
	for p := range run.Events() {
		if fn != nil {
			fn(p)
		}
	}
	return run.Wait(), nil
}

func (r *Runner) loop(ctx context.Context, items []Item, events chan<- Progress) Summary {
	sum := Summary{State: Completed, Total: len(items)}
	emit := func(p Progress) {
		select {
		case events <- p:
		case <-ctx.Done():
		}
	}
	for i, it := range items {
		if ctx.Err() != nil {
			sum.State = Aborted
			break
		}
		l := log.With().Int("item", i+1).Int("of", len(items)).Str("file", it.File.Path).Str("label", it.Label).Logger()
		emit(Progress{Index: i + 1, Total: len(items), Item: it, Phase: Started})
		l.Info().Msg("processing")

		err := r.process(ctx, it)
		if err != nil && ctx.Err() != nil {
			sum.State = Aborted
			break
		}
		if err != nil {
			l.Error().Err(err).Msg("item failed")
			sum.Failures = append(sum.Failures, Failure{Item: it, Err: err})
			emit(Progress{Index: i + 1, Total: len(items), Item: it, Phase: Failed, Err: err})
			if r.opts.Policy == AbortOnError {
				sum.State = Aborted
				break
			}
		} else {
			sum.Processed++
			emit(Progress{Index: i + 1, Total: len(items), Item: it, Phase: Succeeded})
		}

		if i == len(items)-1 {
			break
		}
		d := r.opts.Delays.Item
		if items[i+1].File.ID != it.File.ID {
			d = r.opts.Delays.File
		}
		if err := r.sleep(ctx, d); err != nil {
			sum.State = Aborted
			break
		}
	}
	log.Info().Stringer("state", sum.State).Int("processed", sum.Processed).
		Int("failed", len(sum.Failures)).Int("skipped", sum.Skipped()).Msg("run finished")
	return sum
}

// process re-reads the file for every item so edits or deletions made since
// the queue was built are seen.
func (r *Runner) process(ctx context.Context, it Item) error {
	src := extract.Source{Path: it.File.Path, Type: it.File.Type, Part: it.Part}
	if it.Pages != "" && it.Part == nil {
		pages, err := pagerange.Parse(it.Pages)
		if err != nil {
			return err
		}
		src.Pages = pages
	}
	ex := extract.Extractor{FileRefs: ai.SupportsFiles(r.driver)}
	payload, err := ex.Extract(src)
	if err != nil {
		return err
	}
	return r.driver.Perform(ctx, ai.Job{
		File:    it.File.Path,
		Label:   it.Label,
		Prompt:  it.Prompt(),
		Payload: payload,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
