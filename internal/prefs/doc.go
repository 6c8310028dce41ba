// Package prefs provides durable key-value stores for user preferences.
//
// Three implementations share the same Get/Set contract:
//
//   - [MemoryStore]: process-local map, used by tests and when no durable
//     store is configured
//   - [FileStore]: a YAML document on disk
//   - [RedisStore]: keys in a Redis database
//
// Get reports a missing key with ok=false and a nil error.
package prefs
