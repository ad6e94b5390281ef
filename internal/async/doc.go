// Package async provides Result, a value that is either already complete or
// will complete later.
//
// A Result produced by Value or Error is immediate: Await returns without
// blocking and composing it with Then or Handle runs the continuation inline
// on the caller's goroutine. A Result produced by Go is deferred. Composing a
// deferred Result yields another deferred Result, so a chain only pays for
// goroutines and channels once something in it actually suspended.
package async
