package ingest

import (
	"strconv"
	"strings"

	"idsrs/core"
)

// CEFParser accepts lines beginning with "CEF:" followed by the
// standard pipe-delimited header and a space-separated key=value
// extension. Unlike a naive split on spaces, it honors backslash
// escaping (\=, \\) inside extension values.
type CEFParser struct{}

func (p *CEFParser) Name() string { return "cef" }

func (p *CEFParser) Parse(line string) (*core.Event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "CEF:") {
		return nil, false
	}

	// CEF:Version|Vendor|Product|Version|SignatureID|Name|Severity|Extension
	parts := strings.SplitN(line, "|", 8)
	if len(parts) < 8 {
		return nil, false
	}
	ext := parseCEFExtension(parts[7])

	if !strings.EqualFold(ext["act"], "drop") {
		return nil, false
	}

	src := ext["src"]
	if src == "" {
		return nil, false
	}
	dst := ext["dst"]

	dpt, ok := ext["dpt"]
	if !ok {
		return nil, false
	}
	port, err := strconv.Atoi(dpt)
	if err != nil || port < 1 || port > 65535 {
		return nil, false
	}

	return &core.Event{
		SourceIP: src,
		DestIP:   dst,
		DestPort: port,
		Proto:    strings.ToLower(ext["proto"]),
		Action:   core.ActionDrop,
	}, true
}

// parseCEFExtension splits a CEF extension into its key=value fields.
// An unescaped space always terminates a value; \= and \\ are the only
// recognized escapes, per the CEF extension grammar.
func parseCEFExtension(ext string) map[string]string {
	fields := make(map[string]string)
	n := len(ext)
	i := 0
	for i < n {
		for i < n && ext[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}
		keyStart := i
		for i < n && ext[i] != '=' {
			i++
		}
		if i >= n {
			break
		}
		key := ext[keyStart:i]
		i++ // skip '='

		var val strings.Builder
		for i < n {
			c := ext[i]
			if c == '\\' && i+1 < n && (ext[i+1] == '=' || ext[i+1] == '\\') {
				val.WriteByte(ext[i+1])
				i += 2
				continue
			}
			if c == ' ' {
				break
			}
			val.WriteByte(c)
			i++
		}
		fields[key] = val.String()
	}
	return fields
}
