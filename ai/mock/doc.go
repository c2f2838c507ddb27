// Package mock provides test doubles for the ai capability interfaces.
// Each mock supports behavior injection via function fields, tracks call
// counts for assertions, and is safe for concurrent use.
package mock
