// Package plugin runs the ordered chain of processing steps (currency
// conversion, risk assessment, token handling) against one transaction.
//
// Each Plugin receives the shared Context, returns a Result, and the
// Pipeline merges successful output back into the Context so later plugins
// see it. A failure of a critical plugin stops the run; any other failure,
// including a panic or a timeout, is logged and the run continues.
package plugin

import "context"

// Plugin is one processing step.
type Plugin interface {
	Name() string
	Version() string
	// Critical plugins halt the pipeline when they fail.
	Critical() bool
	// Execute must not mutate data; output goes in Result.Data. A returned
	// error is an unexpected fault and is treated as a failure.
	Execute(ctx context.Context, data Context) (Result, error)
}

// Result is what a plugin reports. Critical escalates a single failure even
// when the plugin is not critical in general.
type Result struct {
	Success  bool
	Data     map[string]any
	Error    string
	Critical bool
}

func Succeeded(data map[string]any) Result {
	return Result{Success: true, Data: data}
}

func Failed(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Info describes a registered plugin.
type Info struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Critical bool   `json:"critical"`
	Enabled  bool   `json:"enabled"`
}

// Error is one entry of RunResult.Errors.
type Error struct {
	Plugin string `json:"plugin"`
	Error  string `json:"error"`
}

type RunResult struct {
	Success bool    `json:"success"`
	Data    Context `json:"data"`
	Errors  []Error `json:"errors"`
}

// ErrorMessages flattens Errors for metadata.
func (r *RunResult) ErrorMessages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Plugin+": "+e.Error)
	}
	return out
}
