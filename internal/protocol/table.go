// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package protocol maps IANA protocol numbers to lowercase protocol keywords.
package protocol

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"grimm.is/flowtag/internal/errors"
	"grimm.is/flowtag/internal/logging"
)

// MaxNumber is the largest assignable IP protocol number.
const MaxNumber = 255

// Header column names in the IANA protocol-numbers.csv export.
const (
	ColumnDecimal = "decimal"
	ColumnKeyword = "keyword"
)

// defaults is the built-in IANA subset used when no table is loaded.
var defaults = map[int]string{
	0:   "hopopt",
	1:   "icmp",
	2:   "igmp",
	4:   "ipv4",
	6:   "tcp",
	17:  "udp",
	41:  "ipv6",
	47:  "gre",
	50:  "esp",
	51:  "ah",
	58:  "ipv6-icmp",
	89:  "ospfigp",
	132: "sctp",
}

// Table resolves protocol numbers to names. It is read-only after loading
// and safe for concurrent lookups.
type Table struct {
	names map[int]string
}

// LoadStats summarizes a table load.
type LoadStats struct {
	Rows    int // data rows read, excluding the header
	Loaded  int
	Invalid int
}

// Default returns a table seeded with the built-in protocol numbers.
func Default() *Table {
	t := &Table{names: make(map[int]string, len(defaults))}
	for id, name := range defaults {
		t.names[id] = name
	}
	return t
}

// LoadFile loads a protocol-numbers CSV on top of the built-in defaults.
func LoadFile(path string, logger *logging.Logger) (*Table, LoadStats, error) {
	if logger == nil {
		logger = logging.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		kind := errors.KindInternal
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return nil, LoadStats{}, errors.Attr(errors.Wrap(err, kind, "failed to open protocol table"), "file", path)
	}
	defer f.Close()

	t, stats, err := Load(f, logger.With("file", path))
	if err != nil {
		return nil, stats, errors.Attr(err, "file", path)
	}
	return t, stats, nil
}

// Load reads a CSV with "Decimal" and "Keyword" header columns. Rows with a
// missing or non-numeric id, an id range, or an empty keyword are skipped
// with a warning. Later rows win over earlier rows and over the defaults.
func Load(r io.Reader, logger *logging.Logger) (*Table, LoadStats, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("protocol")

	var stats LoadStats
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, stats, errors.New(errors.KindValidation, "protocol table is empty")
	}
	if err != nil {
		return nil, stats, errors.Wrap(err, errors.KindValidation, "failed to read protocol table header")
	}

	idCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case ColumnDecimal:
			idCol = i
		case ColumnKeyword:
			nameCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return nil, stats, errors.Attr(
			errors.New(errors.KindValidation, "protocol table needs Decimal and Keyword header columns"),
			"header", strings.Join(header, ","))
	}

	t := Default()
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
				logger.WithError(err).Warn("Skipping unreadable protocol row", "line", perr.StartLine)
				continue
			}
			return nil, stats, errors.Wrap(err, errors.KindInternal, "failed to read protocol table")
		}
		stats.Rows++
		line, _ := cr.FieldPos(0)

		if idCol >= len(rec) || nameCol >= len(rec) {
			stats.Invalid++
			logger.Warn("Skipping short protocol row", "line", line, "columns", len(rec))
			continue
		}

		rawID := strings.TrimSpace(rec[idCol])
		name := strings.ToLower(strings.TrimSpace(rec[nameCol]))
		id, ok := parseNumber(rawID)
		if !ok || name == "" {
			stats.Invalid++
			logger.Warn("Skipping invalid protocol row", "line", line, "decimal", rawID, "keyword", name)
			continue
		}

		t.names[id] = name
		stats.Loaded++
	}

	logger.Debug("Loaded protocol table", "rows", stats.Rows, "loaded", stats.Loaded, "invalid", stats.Invalid)
	return t, stats, nil
}

// parseNumber accepts decimal text in [0, MaxNumber].
func parseNumber(s string) (int, bool) {
	if s == "" || !isDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > MaxNumber {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Lookup returns the name registered for id.
func (t *Table) Lookup(id int) (string, bool) {
	name, ok := t.names[id]
	return name, ok
}

// Resolve maps a protocol identifier to its lowercase name. Identifiers
// that are not known numbers come back as their own trimmed, lowercased
// text, so the result is always usable as a lookup key.
func (t *Table) Resolve(id string) string {
	id = strings.TrimSpace(id)
	if n, ok := parseNumber(id); ok {
		if name, ok := t.names[n]; ok {
			return name
		}
		return strconv.Itoa(n)
	}
	return strings.ToLower(id)
}

// Len returns the number of known protocol numbers.
func (t *Table) Len() int {
	return len(t.names)
}
