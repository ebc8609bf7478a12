// Package extract turns uploaded document bytes into per-page text.
//
// It supports plain text, markdown, and PDF input. Media types outside
// that set fail with ErrUnsupportedFormat so the caller can reject the
// document without retrying.
package extract
