// Package s3 implements the ObjectStore over any S3-compatible service
// (MinIO, AWS S3, Azure gateway). Containers map to buckets.
package s3
