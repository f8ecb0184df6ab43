package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// dataAnchor marks the script callbacks that carry the result payload.
	dataAnchor = "AF_initDataCallback"
	scriptEnd  = "</script>"
	// entryKey is the object member holding each result's record.
	entryKey  = "444383007"
	sourceKey = "2003"
)

// Positional layout of the results payload. These offsets track the page
// template and are the only place that needs updating when it drifts.
var (
	entriesPath   = []selector{at(56), at(1), at(0), last(), at(1), at(0)}
	recordPath    = []selector{at(0), at(0), key(entryKey), at(1)}
	fullPath      = []selector{at(3)}
	thumbnailPath = []selector{at(2), at(0)}
	sourcePath    = []selector{at(22), key(sourceKey), at(2)}
)

// Unpack extracts image records from a raw search results document.
// Entries that do not match the expected layout are skipped; only a
// document without a decodable payload fails with ErrParse.
func Unpack(body string) ([]Image, error) {
	images, _, err := unpack(body)
	return images, err
}

// unpack is Unpack that also reports how many entries were skipped.
func unpack(body string) ([]Image, int, error) {
	payload, err := slicePayload(body)
	if err != nil {
		return nil, 0, err
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, 0, fmt.Errorf("%w: decode payload: %w", ErrParse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("%w: trailing data after payload", ErrParse)
	}

	entries, ok := asArray(walk(root, entriesPath...))
	if !ok {
		return nil, 0, fmt.Errorf("%w: result entries not found", ErrParse)
	}

	images := make([]Image, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		img, ok := readEntry(entry)
		if !ok {
			skipped++
			continue
		}
		images = append(images, img)
	}
	return images, skipped, nil
}

// slicePayload cuts the array literal out of the last data callback and
// drops the dangling tail of the unfinished statement.
func slicePayload(body string) (string, error) {
	idx := strings.LastIndex(body, dataAnchor)
	if idx < 0 {
		return "", fmt.Errorf("%w: data anchor not found", ErrParse)
	}
	body = body[idx:]

	start := strings.Index(body, "[")
	if start < 0 {
		return "", fmt.Errorf("%w: payload start not found", ErrParse)
	}
	body = body[start:]

	end := strings.Index(body, scriptEnd)
	if end < 0 {
		return "", fmt.Errorf("%w: script end not found", ErrParse)
	}
	body = body[:end]

	cut := strings.LastIndex(body, ",")
	if cut < 0 {
		return "", fmt.Errorf("%w: payload separator not found", ErrParse)
	}
	return body[:cut], nil
}

func readEntry(entry any) (Image, bool) {
	record, ok := walk(entry, recordPath...)
	if !ok {
		return Image{}, false
	}

	full, ok := asArray(walk(record, fullPath...))
	if !ok {
		return Image{}, false
	}
	url, ok := asString(walk(full, at(0)))
	if !ok || url == "" {
		return Image{}, false
	}
	height, ok := asInt(walk(full, at(1)))
	if !ok || height <= 0 {
		return Image{}, false
	}
	width, ok := asInt(walk(full, at(2)))
	if !ok || width <= 0 {
		return Image{}, false
	}

	thumbnail, ok := asString(walk(record, thumbnailPath...))
	if !ok || thumbnail == "" {
		return Image{}, false
	}
	source, ok := asString(walk(record, sourcePath...))
	if !ok || source == "" {
		return Image{}, false
	}

	return Image{
		URL:       url,
		Width:     width,
		Height:    height,
		Thumbnail: thumbnail,
		Source:    source,
	}, true
}
