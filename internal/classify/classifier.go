// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package classify assigns tags to parsed flow records.
package classify

import (
	"strings"

	"grimm.is/flowtag/internal/errors"
	"grimm.is/flowtag/internal/flowlog"
	"grimm.is/flowtag/internal/mapping"
	"grimm.is/flowtag/internal/protocol"
)

// Untagged is the tag for records with no mapping entry.
const Untagged = "untagged"

// Key is the normalized (destination port, protocol name) pair.
type Key = mapping.Key

// ErrMalformed is returned for records without a usable port or protocol.
var ErrMalformed = errors.New(errors.KindMalformed, "malformed flow record")

// Classifier resolves records against a protocol table and a mapping table.
// Both tables are only read, so one Classifier may be shared by workers.
type Classifier struct {
	protocols *protocol.Table
	mappings  *mapping.Table
}

// New returns a classifier. A nil protocol table means the built-in defaults;
// a nil mapping table tags everything as Untagged.
func New(protocols *protocol.Table, mappings *mapping.Table) *Classifier {
	if protocols == nil {
		protocols = protocol.Default()
	}
	if mappings == nil {
		mappings = mapping.New()
	}
	return &Classifier{protocols: protocols, mappings: mappings}
}

// Classify returns the record's tag and its normalized key. The key is
// returned for untagged records too.
func (c *Classifier) Classify(rec flowlog.Record) (string, Key, error) {
	key, err := c.KeyFor(rec)
	if err != nil {
		return "", Key{}, err
	}
	if tag, ok := c.mappings.TagFor(key.Port, key.Protocol); ok {
		return tag, key, nil
	}
	return Untagged, key, nil
}

// KeyFor normalizes the record's destination port and protocol.
func (c *Classifier) KeyFor(rec flowlog.Record) (Key, error) {
	rawPort, ok := rec[flowlog.FieldDstPort]
	if !ok {
		return Key{}, errors.Attr(ErrMalformed, "reason", "missing dstport")
	}
	port, ok := mapping.ParsePort(rawPort)
	if !ok {
		return Key{}, errors.Attr(errors.Attr(ErrMalformed, "reason", "invalid dstport"), "dstport", rawPort)
	}

	rawProto := strings.TrimSpace(rec[flowlog.FieldProtocol])
	if !validProtocol(rawProto) {
		return Key{}, errors.Attr(errors.Attr(ErrMalformed, "reason", "invalid protocol"), "protocol", rawProto)
	}

	// Numbers go through the protocol table; keywords are already names.
	name := c.protocols.Resolve(rawProto)
	return Key{Port: port, Protocol: name}, nil
}

// validProtocol accepts protocol numbers and keywords such as "ipv6-icmp".
func validProtocol(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= '0' && ch <= '9', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch == '-', ch == '_', ch == '.':
		default:
			return false
		}
	}
	return true
}
