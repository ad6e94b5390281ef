// Package manifest provides the YAML schema, parsing, and validation of a
// pipeline manifest: the helpers to register, the extension hooks to attach,
// the ordered lifecycles, and the dependency keys provided from outside.
//
// # Schema Overview
//
//	version: "1"
//	lifecycles: [after-fragments, before-builders]
//	provided_keys:
//	  fragment: runtime
//	helpers:
//	  - key: header
//	    kind: fragment
//	    priority: 10
//	  - key: types
//	    kind: fragment
//	    mode: override
//	    depends_on: header
//	  - key: writer
//	    kind: builder
//	    depends_on: [types]
//	    output: types.txt
//	extensions:
//	  - key: banner
//	    lifecycle: before-builders
//	    annotation: "generated, do not edit"
//	    index: true
//
// depends_on and provided_keys entries accept either a single string or a
// list of strings.
package manifest
