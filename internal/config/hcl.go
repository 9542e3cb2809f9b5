// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// MarshalHCL renders the config as HCL. Empty settings are omitted so the
// output loads back to the same config.
func (c *Config) MarshalHCL() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	setString := func(b *hclwrite.Body, name, v string) {
		if v != "" {
			b.SetAttributeValue(name, cty.StringVal(v))
		}
	}

	setString(body, "delimiter", c.Delimiter)
	if len(c.Fields) > 0 {
		body.SetAttributeValue("fields", toCtyStringList(c.Fields))
	} else {
		setString(body, "layout", c.Layout)
	}
	setString(body, "comment_prefix", c.CommentPrefix)
	setString(body, "protocol_file", c.ProtocolFile)
	setString(body, "format", c.Format)
	if c.Workers != 0 {
		body.SetAttributeValue("workers", cty.NumberIntVal(int64(c.Workers)))
	}
	if c.BatchSize != 0 {
		body.SetAttributeValue("batch_size", cty.NumberIntVal(int64(c.BatchSize)))
	}
	setString(body, "metrics_file", c.MetricsFile)

	if c.Log != nil && (c.Log.Level != "" || c.Log.Format != "") {
		body.AppendNewline()
		lb := body.AppendNewBlock("log", nil).Body()
		setString(lb, "level", c.Log.Level)
		setString(lb, "format", c.Log.Format)
	}

	return f.Bytes()
}

func toCtyStringList(strs []string) cty.Value {
	if len(strs) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(strs))
	for i, s := range strs {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
