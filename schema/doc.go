// Package schema manages the named JSON schemas that guide field extraction
// and validate extracted instances before evaluation.
package schema
