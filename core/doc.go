// Package core defines the domain model for the document processing engine:
// object identities, job descriptors, the per-document record with its run
// lifecycle, and the error taxonomy shared by the pipeline components.
package core
