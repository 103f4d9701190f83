// Package mocks provides mock implementations for testing the generation lifecycle.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// ports in internal/core. Hand-written in-memory doubles live in the generation
// subpackage.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRepo := mocks.NewMockGenerationRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), "job-1").Return(job, nil)
package mocks

// Generate mock for GenerationRepository interface from internal/core package.
// This creates MockGenerationRepository with methods for all GenerationRepository interface methods:
// Create, GetByID, ListByGroup, ListByExternalID, List, ListStale, ListActive, MarkGenerating, Complete, Fail, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=generation_repository_mock.go github.com/target/mmk-genstudio/internal/core GenerationRepository

// Generate mock for ProviderClient interface from internal/core package.
// This creates MockProviderClient with methods: Submit, Poll, Download
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=provider_client_mock.go github.com/target/mmk-genstudio/internal/core ProviderClient

// Generate mock for DistributedLock interface from internal/core package.
// This creates MockDistributedLock with methods: TryLock, Unlock
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=distributed_lock_mock.go github.com/target/mmk-genstudio/internal/core DistributedLock

// Generate mock for BlobStore interface from internal/core package.
// This creates MockBlobStore with methods: Put, Get, GetRange, Stat, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=blob_store_mock.go github.com/target/mmk-genstudio/internal/core BlobStore
