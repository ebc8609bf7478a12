// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/documentloaders"
)

// Page holds the text extracted from one page of a document.
// Page numbers are 1-based. Plain text documents without form feed
// separators yield a single page.
type Page struct {
	Number int
	Text   string
}

// Supported media types. Parameters (e.g. "; charset=utf-8") are
// stripped before matching.
const (
	MediaTypeText     = "text/plain"
	MediaTypeMarkdown = "text/markdown"
	MediaTypePDF      = "application/pdf"
)

// Supported reports whether documents of the given media type can be
// extracted. Callers should reject uploads up front rather than
// discovering the failure mid-pipeline.
func Supported(mediaType string) bool {
	switch normalizeMediaType(mediaType) {
	case MediaTypeText, MediaTypeMarkdown, MediaTypePDF:
		return true
	}
	return false
}

// Extract parses document data into per-page text.
//
// Text and markdown documents are split into pages on form feed
// characters; most yield a single page. PDF documents yield one page
// per PDF page.
func Extract(ctx context.Context, data []byte, mediaType string) ([]Page, error) {
	switch normalizeMediaType(mediaType) {
	case MediaTypeText, MediaTypeMarkdown:
		return extractText(ctx, data)
	case MediaTypePDF:
		return extractPDF(ctx, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
	}
}

func normalizeMediaType(mediaType string) string {
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func extractText(ctx context.Context, data []byte) ([]Page, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrCorruptInput)
	}

	loader := documentloaders.NewText(bytes.NewReader(data))
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptInput, err.Error())
	}

	var pages []Page
	number := 0
	for _, doc := range docs {
		// Form feed is the conventional page separator in plain text.
		for _, pageText := range strings.Split(doc.PageContent, "\f") {
			number++
			if strings.TrimSpace(pageText) == "" {
				continue
			}
			pages = append(pages, Page{Number: number, Text: pageText})
		}
	}

	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}
	return pages, nil
}

func extractPDF(ctx context.Context, data []byte) ([]Page, error) {
	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))

	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptInput, err.Error())
	}

	var pages []Page
	for i, doc := range docs {
		if strings.TrimSpace(doc.PageContent) == "" {
			continue
		}
		number := i + 1
		if p, ok := doc.Metadata["page"].(int); ok && p > 0 {
			number = p
		}
		pages = append(pages, Page{Number: number, Text: doc.PageContent})
	}

	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}
	return pages, nil
}
