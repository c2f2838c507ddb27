// Package azure provides the optical layout recognition executor against a
// Document Intelligence style HTTP endpoint. Throttling and 5xx responses
// are classified as transient so the pipeline retry policy applies.
package azure
