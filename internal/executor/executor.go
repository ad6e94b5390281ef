package executor

import (
	"codegen-pipeline/internal/async"
	"codegen-pipeline/internal/helper"
)

// ArgsFunc builds the arguments passed to an entry.
type ArgsFunc func(entry helper.Entry) any

// InvokeFunc runs a single entry. It may return an immediate or a deferred
// Result.
type InvokeFunc func(entry helper.Entry, args any, next helper.Next) async.Result[struct{}]

// Options configures Execute.
type Options struct {
	Args   ArgsFunc
	Invoke InvokeFunc
	// Visited receives the id of each entry right before it starts.
	Visited map[string]struct{}
}

type chain struct {
	entries []helper.Entry
	opts    Options
}

// Execute runs entries strictly in order.
//
// Each entry receives a next continuation that runs the rest of the chain.
// Calling it more than once returns the first call's Result. When an entry
// completes without calling next, Execute continues the chain itself, so
// every entry runs exactly once either way. A failure further down the chain
// is returned even if the entry that called next ignored it.
//
// The returned Result is immediate unless some entry returned a deferred one.
func Execute(entries []helper.Entry, opts Options) async.Result[struct{}] {
	c := &chain{entries: entries, opts: opts}

	return c.from(0)
}

func (c *chain) from(i int) async.Result[struct{}] {
	if i >= len(c.entries) {
		return async.Ok()
	}

	entry := c.entries[i]
	if c.opts.Visited != nil {
		c.opts.Visited[entry.ID] = struct{}{}
	}

	var (
		called     bool
		downstream async.Result[struct{}]
	)

	next := func() async.Result[struct{}] {
		if !called {
			called = true
			downstream = c.from(i + 1)
		}

		return downstream
	}

	res := async.Try(func() async.Result[struct{}] {
		var args any
		if c.opts.Args != nil {
			args = c.opts.Args(entry)
		}

		return c.opts.Invoke(entry, args, next)
	})

	return async.Handle(res, func(_ struct{}, err error) async.Result[struct{}] {
		if err != nil {
			return async.Error[struct{}](err)
		}

		return next()
	})
}
