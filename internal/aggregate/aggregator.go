// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package aggregate accumulates per-tag and per-(port, protocol) counts.
package aggregate

import (
	"cmp"
	"slices"

	"grimm.is/flowtag/internal/classify"
)

// Stats accounts for every input line exactly once.
type Stats struct {
	Lines      int64 `json:"lines" yaml:"lines"`
	Classified int64 `json:"classified" yaml:"classified"`
	Skipped    int64 `json:"skipped" yaml:"skipped"`
	Headers    int64 `json:"headers" yaml:"headers"`
	Blank      int64 `json:"blank" yaml:"blank"`
}

// Add sums o into s.
func (s *Stats) Add(o Stats) {
	s.Lines += o.Lines
	s.Classified += o.Classified
	s.Skipped += o.Skipped
	s.Headers += o.Headers
	s.Blank += o.Blank
}

// Balanced reports whether Lines equals the sum of the outcome counters.
func (s Stats) Balanced() bool {
	return s.Lines == s.Classified+s.Skipped+s.Headers+s.Blank
}

// Aggregator holds the counters for one run, or for one worker's share of
// a run. It is not safe for concurrent use; give each goroutine its own and
// Merge them afterwards.
type Aggregator struct {
	tags  map[string]int64
	ports map[classify.Key]int64
	stats Stats
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		tags:  make(map[string]int64),
		ports: make(map[classify.Key]int64),
	}
}

// Record counts one classified line under tag and key.
func (a *Aggregator) Record(tag string, key classify.Key) {
	a.tags[tag]++
	a.ports[key]++
	a.stats.Lines++
	a.stats.Classified++
}

// RecordSkipped counts one malformed line.
func (a *Aggregator) RecordSkipped() {
	a.stats.Lines++
	a.stats.Skipped++
}

// RecordHeader counts one header or comment line.
func (a *Aggregator) RecordHeader() {
	a.stats.Lines++
	a.stats.Headers++
}

// RecordBlank counts one empty line.
func (a *Aggregator) RecordBlank() {
	a.stats.Lines++
	a.stats.Blank++
}

// Merge adds other's counters into a. Merging is commutative and
// associative, so worker results can be combined in any order.
func (a *Aggregator) Merge(other *Aggregator) {
	if other == nil {
		return
	}
	for tag, n := range other.tags {
		a.tags[tag] += n
	}
	for key, n := range other.ports {
		a.ports[key] += n
	}
	a.stats.Add(other.stats)
}

// Stats returns the line accounting so far.
func (a *Aggregator) Stats() Stats {
	return a.stats
}

// TagCount returns the count for tag.
func (a *Aggregator) TagCount(tag string) int64 {
	return a.tags[tag]
}

// PortCount returns the count for key.
func (a *Aggregator) PortCount(key classify.Key) int64 {
	return a.ports[key]
}

// TagCount is one row of the tag section.
type TagCount struct {
	Tag   string `json:"tag" yaml:"tag"`
	Count int64  `json:"count" yaml:"count"`
}

// PortCount is one row of the port/protocol section.
type PortCount struct {
	Port     int    `json:"port" yaml:"port"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Count    int64  `json:"count" yaml:"count"`
}

// Report is the ordered, render-ready view of an aggregator.
type Report struct {
	Tags  []TagCount  `json:"tags" yaml:"tags"`
	Ports []PortCount `json:"ports" yaml:"ports"`
	Stats Stats       `json:"stats" yaml:"stats"`
}

// Report snapshots the counters. Both sections are ordered by count
// descending; ties go to the smaller tag, or the smaller port and then
// protocol. Zero counts are omitted.
func (a *Aggregator) Report() *Report {
	r := &Report{
		Tags:  make([]TagCount, 0, len(a.tags)),
		Ports: make([]PortCount, 0, len(a.ports)),
		Stats: a.stats,
	}
	for tag, n := range a.tags {
		if n > 0 {
			r.Tags = append(r.Tags, TagCount{Tag: tag, Count: n})
		}
	}
	for key, n := range a.ports {
		if n > 0 {
			r.Ports = append(r.Ports, PortCount{Port: key.Port, Protocol: key.Protocol, Count: n})
		}
	}
	slices.SortFunc(r.Tags, compareTags)
	slices.SortFunc(r.Ports, comparePorts)
	return r
}

func compareTags(a, b TagCount) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return cmp.Compare(a.Tag, b.Tag)
}

func comparePorts(a, b PortCount) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Port, b.Port); c != 0 {
		return c
	}
	return cmp.Compare(a.Protocol, b.Protocol)
}
