// Package emit is a small manifest-driven generator built on the pipeline
// engine.
//
// Fragment helpers record their key in the draft. Finalizing the draft
// yields an Artifact. Extension hooks annotate the artifact and may write
// an index of generated files on commit. Builder helpers render one text
// file each into the output directory and register a rollback that removes
// it again.
//
// Options.FailAt injects a failure at a named helper or extension, and
// Options.Deferred makes every helper complete through a future.
package emit
