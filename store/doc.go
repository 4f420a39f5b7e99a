// Package store defines how graph checkpoints are persisted.
//
// A checkpoint captures one thread's state after a graph step. The graph
// runner puts a checkpoint after every step and gets the latest one before a
// run, so a conversation resumes where it stopped, even in a new process.
// Stores only promise "read last write" per thread.
//
// Implementations live in sub-packages:
//
//   - memory: in-process, for tests and single runs
//   - file: one JSON file per thread
//   - sqlite: github.com/mattn/go-sqlite3
//   - postgres: github.com/jackc/pgx/v5
//   - redis: github.com/redis/go-redis/v9
//
// backend.Open picks one of them from a DSN such as "sqlite:///var/lib/autonix.db".
package store
