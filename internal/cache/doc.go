// Package cache offers the shared key/value store both agent workflows rely
// on. It exposes typed helpers over Redis (production) and an in-memory map
// (tests), plus the key conventions used for trend logs, launch records, and
// interaction traces. List keys are append-only by contract.
package cache
