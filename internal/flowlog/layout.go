// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flowlog

import (
	"fmt"
	"strconv"
	"strings"

	"grimm.is/flowtag/internal/errors"
)

// Field names the classifier reads from every record.
const (
	FieldDstPort  = "dstport"
	FieldProtocol = "protocol"
)

// Kind selects a built-in layout or marks a caller-supplied one.
type Kind int

const (
	KindPositional Kind = iota
	KindAWSv2
	KindAWSv3
	KindAWSv4
	KindAWSv5
	KindAuto
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindPositional:
		return "positional"
	case KindAWSv2:
		return "v2"
	case KindAWSv3:
		return "v3"
	case KindAWSv4:
		return "v4"
	case KindAWSv5:
		return "v5"
	case KindAuto:
		return "auto"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// AWS VPC flow log default fields per record version.
var (
	awsV2Fields = []string{
		"version", "account-id", "interface-id", "srcaddr", "dstaddr", "srcport", "dstport",
		"protocol", "packets", "bytes", "start", "end", "action", "log-status",
	}
	awsV3Fields = append(clone(awsV2Fields),
		"vpc-id", "subnet-id", "instance-id", "tcp-flags", "type", "pkt-srcaddr", "pkt-dstaddr")
	awsV4Fields = append(clone(awsV3Fields),
		"region", "az-id", "sublocation-type", "sublocation-id")
	awsV5Fields = append(clone(awsV4Fields),
		"pkt-src-aws-service", "pkt-dst-aws-service", "flow-direction", "traffic-path")
)

// positionalFields names the fixed layout used when nothing else is declared:
// destination port in field 6 and protocol in field 8 (1-indexed).
var positionalFields = []string{
	"field1", "field2", "field3", "field4", "field5", FieldDstPort, "field7", FieldProtocol,
}

// Layout maps token positions to field names. The zero value is the
// positional layout.
type Layout struct {
	kind     Kind
	fields   []string
	dstPort  int
	protocol int
}

// Positional returns the fixed layout (dstport = field 6, protocol = field 8).
func Positional() Layout {
	return mustLayout(KindPositional, positionalFields)
}

// AWS returns the default VPC flow log layout for record version 2 to 5.
func AWS(version int) (Layout, error) {
	switch version {
	case 2:
		return mustLayout(KindAWSv2, awsV2Fields), nil
	case 3:
		return mustLayout(KindAWSv3, awsV3Fields), nil
	case 4:
		return mustLayout(KindAWSv4, awsV4Fields), nil
	case 5:
		return mustLayout(KindAWSv5, awsV5Fields), nil
	}
	return Layout{}, errors.Attr(errors.New(errors.KindValidation, "unsupported flow log version"), "version", version)
}

// Auto picks an AWS layout per line from its leading version token and falls
// back to the positional layout.
func Auto() Layout {
	l := Positional()
	l.kind = KindAuto
	return l
}

// Custom builds a layout from an explicit ordered field list. Names are
// trimmed and lowercased; the list must name dstport and protocol once each.
func Custom(fields []string) (Layout, error) {
	names := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		name := strings.ToLower(strings.TrimSpace(f))
		if name == "" {
			return Layout{}, errors.Attr(errors.New(errors.KindValidation, "empty field name in layout"), "position", i+1)
		}
		if seen[name] {
			return Layout{}, errors.Attr(errors.New(errors.KindValidation, "duplicate field name in layout"), "field", name)
		}
		seen[name] = true
		names = append(names, name)
	}
	return newLayout(KindCustom, names)
}

// ParseLayout resolves a layout name as used in flags and config files.
func ParseLayout(name string) (Layout, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "positional", "default":
		return Positional(), nil
	case "auto":
		return Auto(), nil
	default:
		v, err := strconv.Atoi(strings.TrimPrefix(strings.TrimPrefix(n, "aws-"), "v"))
		if err != nil {
			return Layout{}, errors.Attr(errors.New(errors.KindValidation, "unknown layout"), "layout", name)
		}
		return AWS(v)
	}
}

func newLayout(kind Kind, fields []string) (Layout, error) {
	l := Layout{kind: kind, fields: fields, dstPort: -1, protocol: -1}
	for i, f := range fields {
		switch f {
		case FieldDstPort:
			l.dstPort = i
		case FieldProtocol:
			l.protocol = i
		}
	}
	if l.dstPort < 0 || l.protocol < 0 {
		return Layout{}, errors.Attr(
			errors.Errorf(errors.KindValidation, "layout must include %q and %q fields", FieldDstPort, FieldProtocol),
			"fields", strings.Join(fields, ","))
	}
	return l, nil
}

func mustLayout(kind Kind, fields []string) Layout {
	l, err := newLayout(kind, fields)
	if err != nil {
		panic(err)
	}
	return l
}

// forVersion returns the AWS layout for a leading version token, if any.
func forVersion(token string) (Layout, bool) {
	if len(token) != 1 || token[0] < '2' || token[0] > '5' {
		return Layout{}, false
	}
	l, err := AWS(int(token[0] - '0'))
	return l, err == nil
}

// Kind reports which layout variant this is.
func (l Layout) Kind() Kind { return l.kind }

// Fields returns a copy of the field names in position order.
func (l Layout) Fields() []string { return clone(l.fieldList()) }

// DstPortIndex is the 0-based token position of the destination port.
func (l Layout) DstPortIndex() int { return l.resolved().dstPort }

// ProtocolIndex is the 0-based token position of the protocol.
func (l Layout) ProtocolIndex() int { return l.resolved().protocol }

// MinTokens is the fewest tokens a line needs to yield a usable record.
func (l Layout) MinTokens() int {
	r := l.resolved()
	return max(r.dstPort, r.protocol) + 1
}

func (l Layout) String() string {
	r := l.resolved()
	return fmt.Sprintf("%s (dstport=%d, protocol=%d, fields=%d)", l.kind, r.dstPort+1, r.protocol+1, len(r.fields))
}

// resolved maps the zero value onto the positional layout.
func (l Layout) resolved() Layout {
	if l.fields == nil {
		p := Positional()
		p.kind = l.kind
		return p
	}
	return l
}

func (l Layout) fieldList() []string {
	return l.resolved().fields
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}

// Builtin lists the named layouts in display order.
func Builtin() []Layout {
	layouts := []Layout{Positional()}
	for v := 2; v <= 5; v++ {
		l, _ := AWS(v)
		layouts = append(layouts, l)
	}
	return append(layouts, Auto())
}
