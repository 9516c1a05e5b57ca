// Package device provides the device directory for Spark Grid Core.
//
// The persisted directory (SQLite) is the single source of truth for device
// identity: it assigns the stable integer id on first registration and
// enforces full-name uniqueness. The in-process Cache is a non-owning
// projection of that directory (full name to id and class) used to validate
// incoming telemetry without a store read; it starts empty on boot and is
// warmed from the directory, then kept current by the registration handler.
//
// # Key Types
//
//   - Identity: a registered meter or transformer
//   - Class: device classification (power meter, transformer)
//   - Repository: persistence operations against the directory
//   - Cache: concurrent full-name lookup for telemetry validation
package device
