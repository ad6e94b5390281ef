// Package registry stores helpers per kind and enforces registration rules.
package registry
