// Package answer composes grounded responses from retrieved passages.
// Generation is constrained to the supplied context; when nothing
// relevant was retrieved the composer answers with a fixed
// insufficient-information response instead of guessing.
package answer
