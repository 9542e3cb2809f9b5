// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package mapping holds the (destination port, protocol) to tag lookup table.
package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"grimm.is/flowtag/internal/errors"
	"grimm.is/flowtag/internal/logging"
	"grimm.is/flowtag/internal/protocol"
)

// MaxPort is the largest valid transport port.
const MaxPort = 65535

// Key identifies a mapping entry. Protocol is always a lowercase name.
type Key struct {
	Port     int
	Protocol string
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.Port, k.Protocol)
}

// Entry is one resolved mapping row.
type Entry struct {
	Key
	Tag string
}

// Table maps keys to tags. Later rows replace earlier ones for the same key.
type Table struct {
	tags  map[Key]string
	order []Key
}

// LoadStats summarizes a table load.
type LoadStats struct {
	Rows       int // data rows read, excluding any header
	Loaded     int
	Invalid    int
	Overridden int
}

// New returns an empty table.
func New() *Table {
	return &Table{tags: make(map[Key]string)}
}

// Set stores tag for key, replacing any previous tag. It reports whether
// an existing entry was replaced.
func (t *Table) Set(key Key, tag string) bool {
	_, exists := t.tags[key]
	if !exists {
		t.order = append(t.order, key)
	}
	t.tags[key] = tag
	return exists
}

// TagFor returns the tag for an exact (port, protocol) match.
func (t *Table) TagFor(port int, proto string) (string, bool) {
	tag, ok := t.tags[Key{Port: port, Protocol: proto}]
	return tag, ok
}

// Len returns the number of distinct keys.
func (t *Table) Len() int {
	return len(t.tags)
}

// Entries returns every entry in first-seen key order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Entry{Key: k, Tag: t.tags[k]})
	}
	return out
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, protocols *protocol.Table, logger *logging.Logger) (*Table, LoadStats, error) {
	if logger == nil {
		logger = logging.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		kind := errors.KindInternal
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return nil, LoadStats{}, errors.Attr(errors.Wrap(err, kind, "failed to open mapping table"), "file", path)
	}
	defer f.Close()

	t, stats, err := Load(f, protocols, logger.With("file", path))
	if err != nil {
		return nil, stats, errors.Attr(err, "file", path)
	}
	return t, stats, nil
}

type columns struct {
	port, proto, tag int
}

func (c columns) max() int {
	return max(c.port, c.proto, c.tag)
}

var positional = columns{port: 0, proto: 1, tag: 2}

// Load reads comma-separated (dstport, protocol, tag) rows. A leading header
// naming those columns is optional and, when present, decides column order.
// Protocol ids are resolved to names through protocols. Invalid rows are
// skipped with a warning; duplicate keys keep the last row's tag.
func Load(r io.Reader, protocols *protocol.Table, logger *logging.Logger) (*Table, LoadStats, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if protocols == nil {
		protocols = protocol.Default()
	}
	logger = logger.WithComponent("mapping")

	var stats LoadStats
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	t := New()
	cols := positional
	first := true

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.Rows++
				stats.Invalid++
				logger.WithError(err).Warn("Skipping unreadable mapping row", "line", perr.StartLine)
				continue
			}
			return nil, stats, errors.Wrap(err, errors.KindInternal, "failed to read mapping table")
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if hdr, ok := headerColumns(rec); ok {
				cols = hdr
				continue
			}
		}
		stats.Rows++

		entry, reason := parseRow(rec, cols, protocols)
		if reason != "" {
			stats.Invalid++
			logger.Warn("Skipping invalid mapping row", "line", line, "reason", reason, "row", strings.Join(rec, ","))
			continue
		}

		if t.Set(entry.Key, entry.Tag) {
			stats.Overridden++
			logger.Debug("Mapping row overrides earlier entry", "line", line, "key", entry.Key.String(), "tag", entry.Tag)
		}
		stats.Loaded++
	}

	logger.Debug("Loaded mapping table", "rows", stats.Rows, "entries", t.Len(), "invalid", stats.Invalid)
	return t, stats, nil
}

func headerColumns(rec []string) (columns, bool) {
	c := columns{port: -1, proto: -1, tag: -1}
	for i, h := range rec {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "dstport", "dst_port", "dst-port", "port":
			c.port = i
		case "protocol", "proto":
			c.proto = i
		case "tag":
			c.tag = i
		}
	}
	if c.port < 0 || c.proto < 0 || c.tag < 0 {
		return positional, false
	}
	return c, true
}

func parseRow(rec []string, cols columns, protocols *protocol.Table) (Entry, string) {
	if len(rec) <= cols.max() {
		return Entry{}, "too few columns"
	}

	port, ok := ParsePort(rec[cols.port])
	if !ok {
		return Entry{}, "invalid port"
	}

	proto := protocols.Resolve(rec[cols.proto])
	if proto == "" {
		return Entry{}, "empty protocol"
	}

	tag := strings.TrimSpace(rec[cols.tag])
	if tag == "" {
		return Entry{}, "empty tag"
	}

	return Entry{Key: Key{Port: port, Protocol: proto}, Tag: tag}, ""
}

// ParsePort parses decimal port text in [0, MaxPort], ignoring surrounding
// whitespace. Signs and other characters are rejected.
func ParsePort(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 10 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > MaxPort {
		return 0, false
	}
	return n, true
}
