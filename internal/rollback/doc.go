// Package rollback runs undo actions in reverse registration order.
//
// A failing action never stops the actions registered before it. Failures
// are converted into ErrorMetadata and handed to the caller's OnError
// callback instead of being returned.
package rollback
