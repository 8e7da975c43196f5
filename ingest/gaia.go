package ingest

import (
	"net"
	"strconv"
	"strings"

	"idsrs/core"
)

// recognized Gaia key: value field names, per the Checkpoint raw syslog
// record shape. service_id is accepted but not consumed; it identifies
// the named service definition, not a numeric port.
var gaiaFieldNames = []string{"src", "dst", "proto", "service", "s_port", "product", "rule", "service_id"}

// GaiaParser accepts Checkpoint Gaia raw syslog lines of the shape
// "<prefix> Checkpoint: drop <src-ip> proto: tcp; service: <port>; s_port: <port>".
// It is a zero-value type: stateless and safe for concurrent use.
type GaiaParser struct{}

func (p *GaiaParser) Name() string { return "gaia" }

func (p *GaiaParser) Parse(line string) (*core.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	rest, ok := gaiaDropCue(line)
	if !ok {
		return nil, false
	}

	fields := make(map[string]string, len(gaiaFieldNames))
	for _, key := range gaiaFieldNames {
		if val, found := scanGaiaField(line, key); found {
			fields[key] = val
		}
	}

	srcIP := fields["src"]
	if srcIP == "" {
		if bare, ok := firstWhitespaceToken(rest); ok && net.ParseIP(bare) != nil {
			srcIP = bare
		}
	}
	dstIP := fields["dst"]
	if srcIP == "" && dstIP == "" {
		return nil, false
	}

	service, ok := fields["service"]
	if !ok {
		return nil, false
	}
	port, err := strconv.Atoi(service)
	if err != nil || port < 1 || port > 65535 {
		return nil, false
	}

	return &core.Event{
		SourceIP: srcIP,
		DestIP:   dstIP,
		DestPort: port,
		Proto:    strings.ToLower(fields["proto"]),
		Action:   core.ActionDrop,
	}, true
}

// gaiaDropCue reports whether the space-bounded token "drop"
// appears in line (so "droplet" never matches) and returns the
// remainder of the line following it.
func gaiaDropCue(line string) (rest string, ok bool) {
	const cue = " drop "
	idx := strings.Index(line, cue)
	if idx < 0 {
		return "", false
	}
	return line[idx+len(cue):], true
}

// scanGaiaField performs a single delimiter-aware scan for "key: value"
// within line, tolerant of field ordering and of other colons elsewhere
// in the line (timestamps, the "Checkpoint:" tag). The value runs to the
// next ';' or end of line.
func scanGaiaField(line, key string) (string, bool) {
	lower := strings.ToLower(line)
	needle := strings.ToLower(key) + ":"
	from := 0
	for {
		rel := strings.Index(lower[from:], needle)
		if rel < 0 {
			return "", false
		}
		pos := from + rel
		if pos > 0 {
			switch lower[pos-1] {
			case ' ', '\t', ';':
				// valid delimiter before the key
			default:
				from = pos + len(needle)
				continue
			}
		}
		valStart := pos + len(needle)
		val := line[valStart:]
		if semi := strings.IndexByte(val, ';'); semi >= 0 {
			val = val[:semi]
		}
		return strings.TrimSpace(val), true
	}
}

func firstWhitespaceToken(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if idx := strings.IndexAny(s, " \t"); idx >= 0 {
		return s[:idx], true
	}
	return s, true
}
