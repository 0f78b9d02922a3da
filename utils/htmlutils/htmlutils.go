// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides helpers to inspect generated HTML documents.
package htmlutils

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Text appends the whitespace-normalized text content of n to sb.
func Text(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		tmp := strings.Join(strings.Fields(n.Data), " ")
		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}

		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		Text(child, sb)
	}
}

// TextOf is Text into a fresh string.
func TextOf(n *html.Node) string {
	sb := strings.Builder{}
	Text(n, &sb)

	return sb.String()
}

// Validates that response seems to be an HTML response.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader with the correct charset.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !hasHTMLContentType(media) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}

// Attr returns the value of the key attribute of n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}

	return "", false
}

// FindByID returns the first element whose id is id, or nil.
func FindByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		if v, ok := Attr(n, "id"); ok && v == id {
			return n
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := FindByID(child, id); found != nil {
			return found
		}
	}

	return nil
}

// FindAll returns every element named tag, in document order.
func FindAll(n *html.Node, tag string) []*html.Node {
	var ret []*html.Node

	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		ret = append(ret, n)
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		ret = append(ret, FindAll(child, tag)...)
	}

	return ret
}

// CountElements returns how many elements named tag n contains, n included.
func CountElements(n *html.Node, tag string) int {
	return len(FindAll(n, tag))
}
