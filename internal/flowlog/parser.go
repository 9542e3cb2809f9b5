// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package flowlog splits raw flow-log lines into named records.
package flowlog

import (
	"strings"
)

// DefaultDelimiter separates fields unless configured otherwise.
const DefaultDelimiter = " "

// DefaultCommentPrefix marks lines to ignore.
const DefaultCommentPrefix = "#"

// NoCommentPrefix as a comment prefix disables comment detection.
const NoCommentPrefix = "none"

// Record is one parsed line: field name to trimmed value.
type Record map[string]string

// DstPort returns the raw destination port value.
func (r Record) DstPort() string { return r[FieldDstPort] }

// Protocol returns the raw protocol value (number or keyword).
func (r Record) Protocol() string { return r[FieldProtocol] }

// Verdict is the parser's outcome for a single line.
type Verdict int

const (
	Parsed Verdict = iota
	Blank
	Comment
	// Header marks a line whose destination port token is not numeric,
	// such as a column header row. It is ignored rather than counted as
	// malformed.
	Header
	// Malformed marks a line with too few tokens to reach the
	// destination port and protocol fields, or an empty port field.
	Malformed
)

func (v Verdict) String() string {
	switch v {
	case Parsed:
		return "parsed"
	case Blank:
		return "blank"
	case Comment:
		return "comment"
	case Header:
		return "header"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Parser turns lines into records under one layout. The zero value parses
// space-separated lines with the positional layout and "#" comments.
// An empty CommentPrefix means DefaultCommentPrefix.
type Parser struct {
	Layout        Layout
	Delimiter     string
	CommentPrefix string
}

// NewParser returns a parser with default delimiter and comment prefix.
func NewParser(layout Layout) Parser {
	return Parser{
		Layout:        layout,
		Delimiter:     DefaultDelimiter,
		CommentPrefix: DefaultCommentPrefix,
	}
}

// Parse classifies line and, for Parsed lines, returns its record.
// Records are never partial with respect to dstport and protocol.
func (p Parser) Parse(line string) (Record, Verdict) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, Blank
	}
	comment := p.CommentPrefix
	if comment == "" {
		comment = DefaultCommentPrefix
	}
	if comment != NoCommentPrefix && strings.HasPrefix(strings.TrimLeft(line, " \t"), comment) {
		return nil, Comment
	}

	tokens := p.split(line)
	layout := p.Layout
	if layout.Kind() == KindAuto {
		if v, ok := forVersion(tokens[0]); ok {
			layout = v
		} else {
			layout = Positional()
		}
	}

	if len(tokens) < layout.MinTokens() {
		return nil, Malformed
	}
	switch port := tokens[layout.DstPortIndex()]; {
	case port == "":
		return nil, Malformed
	case !isDigits(port):
		return nil, Header
	}

	fields := layout.fieldList()
	n := min(len(tokens), len(fields))
	rec := make(Record, n)
	for i := 0; i < n; i++ {
		rec[fields[i]] = tokens[i]
	}
	return rec, Parsed
}

func (p Parser) split(line string) []string {
	delim := p.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}
	if delim == " " {
		return strings.Fields(line)
	}
	tokens := strings.Split(line, delim)
	for i, tok := range tokens {
		tokens[i] = strings.TrimSpace(tok)
	}
	return tokens
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
