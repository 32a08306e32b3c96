// Package record builds the description document that points at a published
// image. A document is built and encoded once per attempt; every upload retry
// resends the same bytes.
package record

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"pixelmint/internal/services"
)

const (
	ContentType = "application/json"
	NameLength  = 5
	FullShare   = 100
)

// File describes one file attached to the record.
type File struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// Creator is a royalty recipient.
type Creator struct {
	Address string `json:"address"`
	Share   int    `json:"share"`
}

// Properties groups the file list and creator split.
type Properties struct {
	Files    []File    `json:"files"`
	Category string    `json:"category"`
	Creators []Creator `json:"creators"`
}

// Record is the JSON description stored alongside the image.
type Record struct {
	Name                 string     `json:"name"`
	Symbol               string     `json:"symbol"`
	Description          string     `json:"description"`
	Image                string     `json:"image"`
	SellerFeeBasisPoints int        `json:"seller_fee_basis_points"`
	Properties           Properties `json:"properties"`
}

// Template holds the fields that do not vary between attempts.
type Template struct {
	Symbol               string
	Description          string
	Category             string
	SellerFeeBasisPoints int
}

// Document is an encoded record ready for upload.
type Document struct {
	Record      Record
	Body        []byte
	ContentType string
}

// Build assembles and encodes the record for an uploaded image.
func Build(name, imageLocator, mediaType string, tmpl Template, creator string) (Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Document{}, services.Wrap(services.ErrValidation, "record", "build", "name is required", nil)
	}
	if strings.TrimSpace(imageLocator) == "" {
		return Document{}, services.Wrap(services.ErrValidation, "record", "build", "image locator is required", nil)
	}
	if tmpl.SellerFeeBasisPoints < 0 || tmpl.SellerFeeBasisPoints > 10000 {
		return Document{}, services.Wrap(services.ErrValidation, "record", "build",
			fmt.Sprintf("seller fee %d basis points out of range", tmpl.SellerFeeBasisPoints), nil)
	}

	rec := Record{
		Name:                 name,
		Symbol:               tmpl.Symbol,
		Description:          tmpl.Description,
		Image:                imageLocator,
		SellerFeeBasisPoints: tmpl.SellerFeeBasisPoints,
		Properties: Properties{
			Files:    []File{{URI: imageLocator, Type: mediaType}},
			Category: tmpl.Category,
			Creators: []Creator{},
		},
	}
	if creator != "" {
		rec.Properties.Creators = append(rec.Properties.Creators, Creator{Address: creator, Share: FullShare})
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return Document{}, fmt.Errorf("encode record: %w", err)
	}
	return Document{Record: rec, Body: body, ContentType: ContentType}, nil
}

// NewName returns NameLength random uppercase ASCII letters read from src.
// A nil src uses crypto/rand.
func NewName(src io.Reader) (string, error) {
	if src == nil {
		src = rand.Reader
	}
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// Largest multiple of 26 that fits in a byte; higher values are rejected
	// so every letter is equally likely.
	const limit = 26 * (256 / 26)

	out := make([]byte, 0, NameLength)
	buf := make([]byte, NameLength*2)
	for len(out) < NameLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("read name entropy: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, letters[int(b)%26])
			if len(out) == NameLength {
				break
			}
		}
	}
	return string(out), nil
}
