// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns; each model has FromDomain/ToDomain mappers.
//
// Money columns are decimal(18,4). Versioned payloads (inspection form data,
// financing metadata) are stored as JSON documents carrying their own
// schema_version.
package models
