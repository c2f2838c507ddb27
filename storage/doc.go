// Package storage provides the persistence abstraction layer for the
// engine: the RecordStore holding per-document processing state and the
// ObjectStore holding document bytes.
//
// Public constructors in the implementation packages return interface types
// to enforce abstraction and keep backends swappable:
//
//   - storage/badger: BadgerDB-backed RecordStore
//   - storage/s3: S3-compatible ObjectStore via minio
//   - storage/memory: in-memory ObjectStore for tests and local runs
//
// All implementations must be thread-safe; RecordStore.Upsert must be a
// single atomic update per record.
package storage
