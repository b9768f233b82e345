// Package storage groups the blob store implementations. Every
// implementation satisfies analysis.BlobStore: objects go in under a
// generated id with the original filename kept as metadata, and come back
// out as a stream plus that filename. The subpackages cover Google Cloud
// Storage for production, the local filesystem for single-node setups,
// and an in-memory store for development and tests.
package storage
