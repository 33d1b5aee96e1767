// Package store provides SQLite-backed durable storage for the task ledger.
//
// The store holds two tables:
//   - balances: funding balance per identity
//   - accounts: allocated data regions (one per live task record), each
//     carrying the deposit that backs it
//
// Store implements ledger.Ledger. Every Update runs in one SQL transaction,
// so an instruction either commits all of its balance and account changes or
// none of them.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: SQLite has a single writer, and holding one
//     connection serializes transactions per process
package store
