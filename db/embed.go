// Package db embeds the database schema and the default seed catalog.
package db

import _ "embed"

// Schema contains the DDL statements for the catalog tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the default seed catalog in JSON.
//
//go:embed seed/catalog.json
var Catalog []byte
