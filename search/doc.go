// Package search implements tenant-scoped semantic retrieval. A query
// is embedded once, matched against the tenant's collection with a
// widened candidate scan, and returned as a ranked passage list.
package search
