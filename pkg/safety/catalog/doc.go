// Package catalog holds the pattern catalog used to classify text.
//
// # Overview
//
// A Catalog is an immutable, versioned set of case-insensitive regular
// expressions grouped by Category. Text is normalised to Unicode NFKC
// before matching, so compatibility forms such as full-width letters match
// the same patterns as their ASCII equivalents.
//
// # Sources
//
// Catalogs are built from YAML documents:
//
//	version: 1.0.0
//	categories:
//	  crisis:
//	    - "\\bend it all\\b"
//	  vulnerability:
//	    - "\\blonely\\b"
//
// Documents are validated against an embedded JSON Schema, every known
// category must be present, and every pattern must compile. The built-in
// catalog returned by Default is used when no document is configured.
//
// # Hot Reload
//
// Manager keeps the active catalog behind an atomic pointer. Reload parses
// the configured Source and swaps the catalog only when the new document is
// valid and its version is not older than the active one. FileWatcher and
// the git poller call Reload when the underlying document changes.
package catalog
