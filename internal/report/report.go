// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package report renders aggregate reports.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"grimm.is/flowtag/internal/aggregate"
	"grimm.is/flowtag/internal/errors"
)

// Format selects a report encoding.
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatTable, FormatJSON, FormatYAML}

// ParseFormat resolves a format name; empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	case FormatText, FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", errors.Attr(errors.New(errors.KindValidation, "unknown report format"), "format", s)
}

// Write renders rep to w in the given format.
func Write(w io.Writer, rep *aggregate.Report, format Format) error {
	var err error
	switch format {
	case FormatText, "":
		err = writeText(w, rep)
	case FormatTable:
		err = writeTable(w, rep)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(rep); err == nil {
			err = enc.Close()
		}
	default:
		return errors.Attr(errors.New(errors.KindValidation, "unknown report format"), "format", string(format))
	}
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "failed to write report")
	}
	return nil
}

// Render returns the report as bytes.
func Render(rep *aggregate.Report, format Format) ([]byte, error) {
	var sb strings.Builder
	if err := Write(&sb, rep, format); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// WriteFile renders rep to path, replacing any existing file only once the
// report has been written completely.
func WriteFile(path string, rep *aggregate.Report, format Format) error {
	data, err := Render(rep, format)
	if err != nil {
		return errors.Attr(err, "file", path)
	}
	return WriteBytes(path, data)
}

// WriteBytes atomically replaces path with an already rendered report.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to create report file"), "file", path)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to write report"), "file", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to close report file"), "file", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to set report permissions"), "file", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to move report into place"), "file", path)
	}
	return nil
}

func writeText(w io.Writer, rep *aggregate.Report) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("Tag Counts:\n")
	bw.WriteString("Tag,Count\n")
	for _, t := range rep.Tags {
		fmt.Fprintf(bw, "%s,%d\n", t.Tag, t.Count)
	}

	bw.WriteString("\nPort/Protocol Combination Counts:\n")
	bw.WriteString("Port,Protocol,Count\n")
	for _, p := range rep.Ports {
		fmt.Fprintf(bw, "%d,%s,%d\n", p.Port, p.Protocol, p.Count)
	}

	s := rep.Stats
	fmt.Fprintf(bw, "\nProcessed Lines: %d\n", s.Lines)
	fmt.Fprintf(bw, "Skipped Lines: %d\n", s.Skipped)
	fmt.Fprintf(bw, "Header Lines: %d\n", s.Headers)
	fmt.Fprintf(bw, "Blank Lines: %d\n", s.Blank)

	return bw.Flush()
}

func writeTable(w io.Writer, rep *aggregate.Report) error {
	tags := make([][]string, 0, len(rep.Tags))
	for _, t := range rep.Tags {
		tags = append(tags, []string{t.Tag, strconv.FormatInt(t.Count, 10)})
	}
	renderTable(w, []string{"TAG", "COUNT"}, tags)

	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	ports := make([][]string, 0, len(rep.Ports))
	for _, p := range rep.Ports {
		ports = append(ports, []string{strconv.Itoa(p.Port), p.Protocol, strconv.FormatInt(p.Count, 10)})
	}
	renderTable(w, []string{"PORT", "PROTOCOL", "COUNT"}, ports)

	s := rep.Stats
	_, err := fmt.Fprintf(w, "\nlines=%d classified=%d skipped=%d headers=%d blank=%d\n",
		s.Lines, s.Classified, s.Skipped, s.Headers, s.Blank)
	return err
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	table := NewTable(w)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

// NewTable returns a borderless, left-aligned table writer in the style of
// the table report.
func NewTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}
