// Package domain contains the core entities of the greenfinch delivery pipeline.
//
// It has no dependencies on infrastructure (HTTP, file system, logging) and
// holds only the value types the rest of the module passes around.
//
// # Entities
//
//   - [Record]: one telemetry item (event, people or group mutation)
//   - [Queue]: an ordered FIFO sequence of records for one [Category]
//   - [Failure]: the classified outcome of a failed ingestion request
//   - [AutoEvents]: tri-state switch for library-generated events
//
// Queues are values. Code that needs to change a queue works on a copy and
// hands the result back to the owning store.
package domain
