package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pinkpay/internal/clock"
	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

const DefaultTimeout = 2 * time.Second

// LogRecorder persists one log entry per plugin invocation.
type LogRecorder interface {
	RecordPluginLog(ctx context.Context, entry *models.PluginLog) error
}

type Pipeline struct {
	plugins  []Plugin
	recorder LogRecorder
	clock    clock.Clock
	logger   *zap.Logger
	timeout  time.Duration

	mu      sync.RWMutex
	enabled map[string]bool
}

// NewPipeline registers plugins in execution order, all enabled.
func NewPipeline(recorder LogRecorder, clk clock.Clock, logger *zap.Logger, timeout time.Duration, plugins ...Plugin) *Pipeline {
	if recorder == nil {
		panic("recorder is required")
	}
	if clk == nil {
		panic("clock is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	enabled := make(map[string]bool, len(plugins))
	for _, p := range plugins {
		enabled[p.Name()] = true
	}
	return &Pipeline{
		plugins:  plugins,
		recorder: recorder,
		clock:    clk,
		logger:   logger,
		timeout:  timeout,
		enabled:  enabled,
	}
}

func (p *Pipeline) Enable(name string) error {
	return p.setEnabled(name, true)
}

func (p *Pipeline) Disable(name string) error {
	return p.setEnabled(name, false)
}

func (p *Pipeline) setEnabled(name string, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.enabled[name]; !ok {
		return domainErrors.ErrNotFound.WithMessage("plugin %q is not registered", name)
	}
	p.enabled[name] = on
	p.logger.Info("plugin toggled", zap.String("plugin", name), zap.Bool("enabled", on))
	return nil
}

// Only enables exactly the named plugins.
func (p *Pipeline) Only(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	for name := range p.enabled {
		p.enabled[name] = keep[name]
	}
}

func (p *Pipeline) Info() []Info {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Info, 0, len(p.plugins))
	for _, pl := range p.plugins {
		out = append(out, Info{
			Name:     pl.Name(),
			Version:  pl.Version(),
			Critical: pl.Critical(),
			Enabled:  p.enabled[pl.Name()],
		})
	}
	return out
}

func (p *Pipeline) active() []Plugin {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Plugin, 0, len(p.plugins))
	for _, pl := range p.plugins {
		if p.enabled[pl.Name()] {
			out = append(out, pl)
		}
	}
	return out
}

// Run executes every enabled plugin in order against a copy of seed.
// transactionID links the log entries to their transaction.
func (p *Pipeline) Run(ctx context.Context, transactionID uuid.UUID, seed Context) *RunResult {
	data := seed.Clone()
	result := &RunResult{Success: true, Data: data}

	for _, pl := range p.active() {
		input := snapshot(data)
		started := time.Now()
		res, err := p.invoke(ctx, pl, data.Clone())
		elapsed := time.Since(started)

		critical := pl.Critical()
		if err != nil {
			res = Result{Success: false, Error: err.Error()}
		} else if !res.Success {
			critical = critical || res.Critical
			if res.Error == "" {
				res.Error = "plugin reported failure"
			}
		}

		entry := &models.PluginLog{
			ID:              uuid.New(),
			TransactionID:   transactionID,
			PluginName:      pl.Name(),
			PluginVersion:   pl.Version(),
			InputData:       input,
			ExecutionTimeMs: elapsed.Milliseconds(),
			CreatedAt:       p.clock.Now(),
		}

		if res.Success {
			data.Merge(res.Data)
			entry.Status = models.PluginLogSuccess
			entry.OutputData = snapshot(res.Data)
			p.record(ctx, entry)
			continue
		}

		msg := res.Error
		entry.Status = models.PluginLogError
		entry.ErrorMessage = &msg
		p.record(ctx, entry)

		result.Errors = append(result.Errors, Error{Plugin: pl.Name(), Error: msg})
		p.logger.Warn("plugin failed",
			zap.String("plugin", pl.Name()),
			zap.Stringer("transaction_id", transactionID),
			zap.Bool("critical", critical),
			zap.String("error", msg))

		if critical {
			result.Success = false
			break
		}
	}

	return result
}

// invoke runs one plugin under the per-plugin timeout, converting panics
// into PluginExecutionError.
func (p *Pipeline) invoke(ctx context.Context, pl Plugin, data Context) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: domainErrors.ErrPluginExecution.WithMessage("plugin %s panicked: %v", pl.Name(), r)}
			}
		}()
		res, err := pl.Execute(ctx, data)
		if err != nil {
			err = domainErrors.ErrPluginExecution.Wrap(err).WithMessage("plugin %s fault", pl.Name())
		}
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return Result{}, domainErrors.ErrPluginExecution.WithMessage("plugin %s timed out after %s", pl.Name(), p.timeout)
	}
}

func (p *Pipeline) record(ctx context.Context, entry *models.PluginLog) {
	if err := p.recorder.RecordPluginLog(ctx, entry); err != nil {
		p.logger.Error("failed to record plugin log",
			zap.String("plugin", entry.PluginName), zap.Error(err))
	}
}

// snapshot converts arbitrary values into a JSON-safe map for storage.
func snapshot(data map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	if len(data) == 0 {
		return out
	}
	raw, err := json.Marshal(data)
	if err != nil {
		for k, v := range data {
			out[k] = fmt.Sprint(v)
		}
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
