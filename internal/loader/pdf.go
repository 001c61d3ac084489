// Package loader extracts raw text and page metadata from uploaded PDFs.
package loader

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"docchat/internal/domain"
)

// IsPDF reports whether the filename carries a .pdf extension. Both
// front-ends reject other files before any processing is scheduled.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// Load extracts the text of each non-empty page as its own Document so the
// page number survives as source metadata on retrieved chunks.
//
// The pdf library panics on malformed cross-reference tables and values
// instead of returning errors, so the whole extraction is fenced with a
// recover that converts such panics into ErrLoadFailure.
func Load(path string) (docs []domain.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("%w: %v", domain.ErrLoadFailure, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLoadFailure, err)
	}
	defer f.Close()

	docID := hashString(path)
	totalPage := r.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", domain.ErrLoadFailure, pageIndex, err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			ID:      docID + ":" + strconv.Itoa(pageIndex),
			Path:    path,
			Page:    pageIndex,
			Content: content,
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no extractable text in %s", domain.ErrLoadFailure, filepath.Base(path))
	}
	return docs, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
