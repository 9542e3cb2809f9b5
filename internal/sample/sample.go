// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sample generates deterministic mapping tables and AWS version 2
// flow logs for demos and load testing.
package sample

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"

	"grimm.is/flowtag/internal/errors"
	"grimm.is/flowtag/internal/mapping"
)

// DefaultLines is the flow-log length used when Options.Lines is zero.
const DefaultLines = 50000

// Mappings are the rows written by WriteMapping.
var Mappings = []mapping.Entry{
	{Key: mapping.Key{Port: 25, Protocol: "tcp"}, Tag: "sv_P1"},
	{Key: mapping.Key{Port: 68, Protocol: "udp"}, Tag: "sv_P2"},
	{Key: mapping.Key{Port: 23, Protocol: "tcp"}, Tag: "sv_P1"},
	{Key: mapping.Key{Port: 31, Protocol: "udp"}, Tag: "SV_P3"},
	{Key: mapping.Key{Port: 443, Protocol: "tcp"}, Tag: "sv_P2"},
	{Key: mapping.Key{Port: 22, Protocol: "tcp"}, Tag: "sv_P4"},
	{Key: mapping.Key{Port: 3389, Protocol: "tcp"}, Tag: "sv_P5"},
	{Key: mapping.Key{Port: 0, Protocol: "icmp"}, Tag: "sv_P5"},
	{Key: mapping.Key{Port: 110, Protocol: "tcp"}, Tag: "email"},
	{Key: mapping.Key{Port: 993, Protocol: "tcp"}, Tag: "email"},
	{Key: mapping.Key{Port: 143, Protocol: "tcp"}, Tag: "email"},
}

var protocolNumbers = map[string]string{"tcp": "6", "udp": "17", "icmp": "1"}

// Options controls flow-log generation.
type Options struct {
	Lines           int
	Seed            uint64
	NumericProtocol bool // write 6/17/1 instead of tcp/udp/icmp
}

// WriteMapping writes Mappings as CSV with a dstport,protocol,tag header.
func WriteMapping(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("dstport,protocol,tag\n")
	for _, e := range Mappings {
		fmt.Fprintf(bw, "%d,%s,%s\n", e.Port, e.Protocol, e.Tag)
	}
	return bw.Flush()
}

type generator struct {
	rng      *rand.Rand
	accounts []string
	enis     []string
	ips      []string
	ports    []int
}

func newGenerator(seed uint64) *generator {
	g := &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	for range 10 {
		g.accounts = append(g.accounts, strconv.FormatInt(g.between(100000000000, 999999999999), 10))
	}
	for range 10 {
		g.enis = append(g.enis, fmt.Sprintf("eni-%db8ca%d", g.between(1000000, 9999999), g.between(100000000, 999999999)))
	}
	for range 50 {
		g.ips = append(g.ips, fmt.Sprintf("172.31.%d.%d", g.between(0, 255), g.between(0, 255)))
	}
	for _, e := range Mappings {
		g.ports = append(g.ports, e.Port)
	}
	for range 20 {
		g.ports = append(g.ports, int(g.between(1000, 65000)))
	}
	return g
}

// between returns a value in [lo, hi].
func (g *generator) between(lo, hi int64) int64 {
	return lo + g.rng.Int64N(hi-lo+1)
}

func pick[T any](g *generator, s []T) T {
	return s[g.rng.IntN(len(s))]
}

var (
	protocols = []string{"tcp", "udp", "icmp"}
	actions   = []string{"ACCEPT", "REJECT"}
	statuses  = []string{"OK", "FAIL"}
)

// WriteFlowLogs writes opts.Lines space-separated version 2 records. The
// same seed always produces the same output.
func WriteFlowLogs(w io.Writer, opts Options) error {
	n := opts.Lines
	if n == 0 {
		n = DefaultLines
	}
	if n < 0 {
		return errors.Attr(errors.New(errors.KindValidation, "line count must not be negative"), "lines", n)
	}

	g := newGenerator(opts.Seed)
	bw := bufio.NewWriter(w)
	for range n {
		proto := pick(g, protocols)
		if opts.NumericProtocol {
			proto = protocolNumbers[proto]
		}
		fmt.Fprintf(bw, "2 %s %s %s %s %d %d %s %d %d %d %d %s %s\n",
			pick(g, g.accounts),
			pick(g, g.enis),
			pick(g, g.ips),
			pick(g, g.ips),
			pick(g, g.ports),
			pick(g, g.ports),
			proto,
			g.between(1, 1000),
			g.between(64, 1500),
			g.between(1418530000, 1418539999),
			g.between(1418530000, 1418539999),
			pick(g, actions),
			pick(g, statuses),
		)
	}
	return bw.Flush()
}

// WriteFiles writes the mapping table to mappingPath and the flow logs to
// logPath.
func WriteFiles(mappingPath, logPath string, opts Options) error {
	if err := writeFile(mappingPath, WriteMapping); err != nil {
		return err
	}
	return writeFile(logPath, func(w io.Writer) error { return WriteFlowLogs(w, opts) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to create sample file"), "file", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to write sample file"), "file", path)
	}
	if err := f.Close(); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to close sample file"), "file", path)
	}
	return nil
}
