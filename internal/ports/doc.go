// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [BatchSender]: delivers one batch of a category queue to ingestion
//   - [BackoffGate]: failure accounting consulted before every send
//   - [QueueUpdater]: receives the authoritative queue after each acknowledged batch
//   - [QueueStore]: hands out queue snapshots and takes them back
//   - [QueueRepository]: persists category queues between runs
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// HTTP, file system and metrics code, which keeps the flush engine testable
// with in-memory fakes.
package ports
