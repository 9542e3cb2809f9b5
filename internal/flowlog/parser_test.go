// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flowlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const awsV2Line = "2 123456789012 eni-0a1b2c3d 10.0.1.201 198.51.100.1 49152 443 6 25 20000 1620140661 1620140721 ACCEPT OK"

func TestParse_Positional(t *testing.T) {
	p := NewParser(Positional())

	rec, v := p.Parse("a b c d e 443 g 6")
	require.Equal(t, Parsed, v)
	assert.Equal(t, "443", rec.DstPort())
	assert.Equal(t, "6", rec.Protocol())
	assert.Equal(t, "a", rec["field1"])
}

func TestParse_Verdicts(t *testing.T) {
	p := NewParser(Positional())

	tests := []struct {
		name string
		line string
		want Verdict
	}{
		{"blank", "", Blank},
		{"whitespace", "   \t", Blank},
		{"crlf only", "\r\n", Blank},
		{"comment", "# exported 2024-01-01", Comment},
		{"indented comment", "  # note", Comment},
		{"header row", "f1 f2 f3 f4 f5 dstport f7 protocol", Header},
		{"non-numeric port", "a b c d e http g tcp", Header},
		{"too short for protocol", "a b c d e 443 g", Malformed},
		{"too short for port", "a b c", Malformed},
		{"extra tokens", "a b c d e 443 g 6 x y z", Parsed},
		{"runs of spaces", "a  b c d e   443 g 6\r", Parsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := p.Parse(tt.line)
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParse_AWSv2(t *testing.T) {
	layout, err := AWS(2)
	require.NoError(t, err)

	rec, v := NewParser(layout).Parse(awsV2Line)
	require.Equal(t, Parsed, v)
	assert.Equal(t, "443", rec.DstPort())
	assert.Equal(t, "6", rec.Protocol())
	assert.Equal(t, "49152", rec["srcport"])
	assert.Equal(t, "OK", rec["log-status"])
}

func TestParse_Auto(t *testing.T) {
	p := NewParser(Auto())

	rec, v := p.Parse(awsV2Line)
	require.Equal(t, Parsed, v)
	assert.Equal(t, "443", rec.DstPort(), "version token selects the AWS layout")

	rec, v = p.Parse("x b c d e 22 g tcp")
	require.Equal(t, Parsed, v)
	assert.Equal(t, "22", rec.DstPort(), "unknown version falls back to positional")
}

func TestParse_CustomLayout(t *testing.T) {
	layout, err := Custom([]string{"Protocol", " DSTPORT ", "tag", "extra"})
	require.NoError(t, err)

	p := Parser{Layout: layout, Delimiter: ","}

	rec, v := p.Parse(" tcp , 8080 , web , x ")
	require.Equal(t, Parsed, v)
	assert.Equal(t, "8080", rec.DstPort())
	assert.Equal(t, "tcp", rec.Protocol())

	rec, v = p.Parse("udp,53")
	require.Equal(t, Parsed, v, "partial records covering dstport and protocol are usable")
	assert.Len(t, rec, 2)

	_, v = p.Parse("udp")
	assert.Equal(t, Malformed, v)

	_, v = p.Parse("udp,,web")
	assert.Equal(t, Malformed, v, "an empty port field is not a header")

	_, v = p.Parse(",,")
	assert.Equal(t, Malformed, v)

	_, v = p.Parse("protocol,dstport,tag")
	assert.Equal(t, Header, v)
}

func TestParse_LiteralDelimiterKeepsEmptyTokens(t *testing.T) {
	p := Parser{Layout: Positional(), Delimiter: "\t"}

	_, v := p.Parse("a\t\tc\td\te\t443\tg\t6")
	assert.Equal(t, Parsed, v)

	_, v = p.Parse("a\tc\td\te\t443\tg\t6\tz")
	assert.Equal(t, Header, v, "shifted fields put a non-numeric token at the port position")
}

func TestParse_CustomCommentPrefix(t *testing.T) {
	p := Parser{Layout: Positional(), CommentPrefix: "//"}

	_, v := p.Parse("// generated")
	assert.Equal(t, Comment, v)

	_, v = p.Parse("# not a comment here")
	assert.Equal(t, Malformed, v)
}

func TestParse_CommentsDisabled(t *testing.T) {
	p := Parser{Layout: Positional(), CommentPrefix: NoCommentPrefix}

	_, v := p.Parse("# exported")
	assert.Equal(t, Malformed, v)

	rec, v := p.Parse("#a b c d e 80 g 6")
	require.Equal(t, Parsed, v)
	assert.Equal(t, "#a", rec[Positional().Fields()[0]])

	_, v = Parser{Layout: Positional()}.Parse("# exported")
	assert.Equal(t, Comment, v, "empty prefix keeps the default")
}

func TestZeroParser(t *testing.T) {
	var p Parser

	rec, v := p.Parse("a b c d e 80 g 6")
	require.Equal(t, Parsed, v)
	assert.Equal(t, "80", rec.DstPort())
}
