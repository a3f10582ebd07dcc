package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	invisiblePattern  = regexp.MustCompile(`(?is)<(script|style|head)\b.*?</(script|style|head)>`)
	plainHeaderMarker = regexp.MustCompile(`(?i)content-type:\s*text/plain`)
	htmlHeaderMarker  = regexp.MustCompile(`(?i)content-type:\s*text/html`)
)

// blockElements get a trailing space so adjacent blocks do not run together.
const blockElements = "br,p,div,li,tr,td,th,h1,h2,h3,h4,h5,h6,table,blockquote,section,article"

// HTMLToText drops markup, script and style content, and collapses whitespace.
func HTMLToText(src string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return stripTags(src)
	}
	doc.Find("script,style,head,noscript").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})
	return collapseSpace(doc.Text())
}

func stripTags(src string) string {
	src = invisiblePattern.ReplaceAllString(src, " ")
	return collapseSpace(tagPattern.ReplaceAllString(src, " "))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// scanParts is the fallback when the message is not well-formed MIME: it
// looks for literal Content-Type headers and takes the content up to the
// next boundary line. No transfer decoding is applied.
func scanParts(raw []byte) textParts {
	var parts textParts
	body := string(raw)
	if i := strings.Index(body, "\r\n\r\n"); i >= 0 {
		body = body[i+4:]
	}

	if text, ok := sectionAfter(body, plainHeaderMarker); ok {
		parts.plain, parts.hasPlain = text, true
	}
	if text, ok := sectionAfter(body, htmlHeaderMarker); ok {
		parts.html, parts.hasHTML = text, true
	}
	return parts
}

func sectionAfter(body string, marker *regexp.Regexp) (string, bool) {
	loc := marker.FindStringIndex(body)
	if loc == nil {
		return "", false
	}
	rest := body[loc[1]:]
	start := strings.Index(rest, "\r\n\r\n")
	sep := 4
	if start < 0 {
		start = strings.Index(rest, "\n\n")
		sep = 2
	}
	if start < 0 {
		return "", false
	}
	rest = rest[start+sep:]
	if end := strings.Index(rest, "\n--"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimRight(rest, "\r"), true
}
