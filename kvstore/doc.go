// Package kvstore defines the durable key-value store the state cache
// mirrors to, and a registry of providers:
//
//   - memory: process-local map, for tests and ephemeral runs
//   - redis: kvstore/redis, one Redis string per field under a key prefix
//   - sqlite: kvstore/sqlite, one row per field in a single table
//   - leveldb: kvstore/leveldb, one key per field in an embedded LevelDB
//   - object: kvstore/object, one JSON object per field in a storage backend
//
// Provider packages register themselves from init; import them for side
// effects and call New with the configured provider name. Setting
// encryption.key wraps the selected store in an EncryptedStore.
package kvstore
