// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package leaflet renders geocoded friends as a self-contained Leaflet map.
//
// The document has an OpenStreetMap base layer and a single marker layer.
// Names reach the page only as JSON data inside a non-executable script
// element and are inserted into popups as text nodes, never as markup.
package leaflet

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"

	"github.com/friendmap/friendmap/mapper"
)

// Mode selects what Build does with the document.
type Mode int

const (
	// ModeWrite persists the document to a path.
	ModeWrite Mode = iota
	// ModeRender returns the document as a string.
	ModeRender
)

func (m Mode) String() string {
	switch m {
	case ModeWrite:
		return "write"
	case ModeRender:
		return "render"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Defaults used when Options leave a field empty.
const (
	DefaultTitle     = "Friends map"
	DefaultLayerName = "Twitter friends"
	DefaultPath      = "map.html"
)

//go:embed templates/map.html.tmpl
var templatesFS embed.FS

var mapTemplate = template.Must(template.ParseFS(templatesFS, "templates/map.html.tmpl"))

// ErrUnknownMode is returned by Build for a Mode it does not know. It is a
// caller bug, never a runtime condition.
var ErrUnknownMode = errors.New("unknown output mode")

// WriteError is a failure to persist the rendered document.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing map to %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Options configuration for Builder.
type Options struct {
	Title     string
	LayerName string
}

// Builder renders map documents. The output depends only on its input.
type Builder struct {
	title     string
	layerName string
}

// NewBuilder creates a new Builder.
func NewBuilder(opts *Options) *Builder {
	b := &Builder{title: DefaultTitle, layerName: DefaultLayerName}

	if opts != nil {
		if opts.Title != "" {
			b.title = opts.Title
		}

		if opts.LayerName != "" {
			b.layerName = opts.LayerName
		}
	}

	return b
}

type marker struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type mapData struct {
	Title     string
	LayerName string
	Markers   []marker
}

func (b *Builder) render(friends []mapper.GeocodedFriend) ([]byte, error) {
	data := mapData{
		Title:     b.title,
		LayerName: b.layerName,
		Markers:   make([]marker, 0, len(friends)),
	}

	for _, f := range friends {
		data.Markers = append(data.Markers, marker{Name: f.Name, Lat: f.Point.Lat, Lng: f.Point.Lng})
	}

	var buf bytes.Buffer
	if err := mapTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering map: %w", err)
	}

	return buf.Bytes(), nil
}

// Render returns the map document as a string. An empty list yields a map
// without markers.
func (b *Builder) Render(friends []mapper.GeocodedFriend) (string, error) {
	doc, err := b.render(friends)
	if err != nil {
		return "", err
	}

	return string(doc), nil
}

// Write renders the map and stores it at path, replacing any existing file.
func (b *Builder) Write(path string, friends []mapper.GeocodedFriend) error {
	doc, err := b.render(friends)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, doc, 0o644); err != nil { //nolint:gosec // the map is meant to be shared
		return &WriteError{Path: path, Err: err}
	}

	return nil
}

// Build dispatches on mode. In ModeWrite it returns path, in ModeRender the
// document itself. An unknown mode fails with ErrUnknownMode.
func (b *Builder) Build(mode Mode, path string, friends []mapper.GeocodedFriend) (string, error) {
	switch mode {
	case ModeWrite:
		if path == "" {
			path = DefaultPath
		}

		if err := b.Write(path, friends); err != nil {
			return "", err
		}

		return path, nil
	case ModeRender:
		return b.Render(friends)
	default:
		return "", fmt.Errorf("%w %s", ErrUnknownMode, mode)
	}
}
