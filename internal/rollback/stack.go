package rollback

import (
	"errors"
	"fmt"

	"codegen-pipeline/internal/async"
)

//go:generate go tool stringer -type=Source -linecomment -output=source_string.go

// Source identifies who contributed a rollback entry.
type Source int

const (
	SourceHelper    Source = iota // helper
	SourceExtension               // extension
)

// Action undoes a previously applied change.
type Action func() async.Result[struct{}]

// Entry is one undo step.
type Entry struct {
	Key   string
	Label string
	Run   Action
}

// ErrorMetadata is the serializable shape of a rollback failure.
type ErrorMetadata struct {
	Name    string
	Message string
	Stack   string
	Cause   error
}

// Failure describes an undo action that failed.
type Failure struct {
	Source   Source
	Entry    Entry
	Err      error
	Metadata ErrorMetadata
}

// Options configures Run.
type Options struct {
	Source  Source
	OnError func(Failure)
}

// Run executes entries from last to first. The returned Result never carries
// an error; failures go to opts.OnError.
func Run(entries []Entry, opts Options) async.Result[struct{}] {
	return runFrom(entries, len(entries)-1, opts)
}

func runFrom(entries []Entry, i int, opts Options) async.Result[struct{}] {
	for ; i >= 0; i-- {
		entry := entries[i]
		if entry.Run == nil {
			continue
		}

		res := async.Try(func() async.Result[struct{}] { return entry.Run() })

		if !res.Deferred() {
			report(entry, res.Err(), opts)

			continue
		}

		next := i - 1

		return async.Handle(res, func(_ struct{}, err error) async.Result[struct{}] {
			report(entry, err, opts)

			return runFrom(entries, next, opts)
		})
	}

	return async.Ok()
}

func report(entry Entry, err error, opts Options) {
	if err == nil || opts.OnError == nil {
		return
	}

	opts.OnError(Failure{
		Source:   opts.Source,
		Entry:    entry,
		Err:      err,
		Metadata: Metadata(err),
	})
}

// Metadata extracts name, message, stack and cause from err.
func Metadata(err error) ErrorMetadata {
	if err == nil {
		return ErrorMetadata{}
	}

	md := ErrorMetadata{
		Name:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Cause:   errors.Unwrap(err),
	}

	var pe *async.PanicError
	if errors.As(err, &pe) {
		md.Stack = string(pe.Stack)
	}

	return md
}
