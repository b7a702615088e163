// Package models defines the domain types for mirroring wiki pages between a source wiki and its translations.
//
// The package contains two categories of types:
//
// 1. Page values: pure helpers with no I/O
//   - [ToSlug] : title to URL slug (spaces become underscores)
//   - [Normalize] : canonical form of wikitext used for change detection
//   - [TargetMapping] : per-target slug to translated title table
//   - [Lookup] : tagged result of reading a page (missing vs. present)
//   - [Decide] : the create / update / skip decision table
//
// 2. Persistent entities: journal records written after a sync
//   - [Run] : one invocation of the synchronizer with its totals
//   - [SyncRecord] : the outcome of one page on one target
//
// [Run] implements the Model interface. The Repository[T] interface defines standard CRUD operations for database access.
package models
