package async

import (
	"fmt"
	"runtime/debug"
)

// PanicError wraps a panic recovered while producing a Result.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("async: panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// Result is either an immediate value/error or a deferred computation.
// The zero Result is an immediate success holding the zero value of T.
type Result[T any] struct {
	value T
	err   error
	fut   *future[T]
}

type future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// closed is returned by Done for immediate results.
var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)

	return ch
}()

// Value returns an immediate successful Result.
func Value[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Error returns an immediate failed Result.
func Error[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// From returns an immediate Result from a (value, error) pair.
func From[T any](v T, err error) Result[T] {
	return Result[T]{value: v, err: err}
}

// Ok is the immediate successful Result carrying no value.
func Ok() Result[struct{}] {
	return Result[struct{}]{}
}

// Go runs fn on a new goroutine and returns a deferred Result for it.
// A panic inside fn is reported as a *PanicError.
func Go[T any](fn func() (T, error)) Result[T] {
	f := &future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		f.value, f.err = call(fn)
	}()

	return Result[T]{fut: f}
}

// Try invokes fn and converts a panic into a failed Result.
func Try[T any](fn func() Result[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Error[T](&PanicError{Value: r, Stack: debug.Stack()})
		}
	}()

	return fn()
}

// Deferred reports whether the Result completes asynchronously.
func (r Result[T]) Deferred() bool {
	return r.fut != nil
}

// Done is closed once the Result has completed.
func (r Result[T]) Done() <-chan struct{} {
	if r.fut == nil {
		return closed
	}

	return r.fut.done
}

// Await blocks until the Result completes and returns its outcome.
func (r Result[T]) Await() (T, error) {
	if r.fut == nil {
		return r.value, r.err
	}

	<-r.fut.done

	return r.fut.value, r.fut.err
}

// Err waits for completion and returns only the error.
func (r Result[T]) Err() error {
	_, err := r.Await()

	return err
}

// Handle feeds the outcome of r, success or failure, into fn.
// When r is immediate fn runs inline; otherwise the returned Result is
// deferred and fn runs once r completes.
func Handle[T, U any](r Result[T], fn func(T, error) Result[U]) Result[U] {
	if r.fut == nil {
		v, err := r.value, r.err

		return Try(func() Result[U] { return fn(v, err) })
	}

	return Go(func() (U, error) {
		v, err := r.Await()

		return Try(func() Result[U] { return fn(v, err) }).Await()
	})
}

// Then runs fn with the value of r when r succeeds. Failures pass through.
func Then[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	return Handle(r, func(v T, err error) Result[U] {
		if err != nil {
			return Error[U](err)
		}

		return fn(v)
	})
}

// Catch runs fn when r fails. Successes pass through.
func Catch[T any](r Result[T], fn func(error) Result[T]) Result[T] {
	return Handle(r, func(v T, err error) Result[T] {
		if err == nil {
			return Value(v)
		}

		return fn(err)
	})
}

// Discard drops the value of r, keeping only completion and error.
func Discard[T any](r Result[T]) Result[struct{}] {
	return Then(r, func(T) Result[struct{}] { return Ok() })
}

func call[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return fn()
}

// Sequence runs fns one after another and stops at the first failure.
// The result is immediate as long as every fn returned an immediate Result.
func Sequence(fns ...func() Result[struct{}]) Result[struct{}] {
	return sequenceFrom(fns, 0)
}

func sequenceFrom(fns []func() Result[struct{}], i int) Result[struct{}] {
	for ; i < len(fns); i++ {
		res := Try(fns[i])
		if !res.Deferred() {
			if err := res.Err(); err != nil {
				return Error[struct{}](err)
			}

			continue
		}

		next := i + 1

		return Then(res, func(struct{}) Result[struct{}] {
			return sequenceFrom(fns, next)
		})
	}

	return Ok()
}
