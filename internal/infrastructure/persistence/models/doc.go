// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and AggregateModel
//   - ledger.go: orders, customers, due payments, allocations and the order counter
//   - types.go: column types shared by the models
//
// The SQL schema lives in migrations/; AutoMigrate is only used by tests.
package models
