// Package display renders banner, log, and alert output to the
// operator's terminal. It knows nothing about parsing or detection: it
// receives already-formatted data and shows it, which keeps this layer
// trivially testable and swappable.
package display

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"idsrs/config"
	"idsrs/core"
)

const maxDisplayPorts = 25

const timeLayout = "2006-01-02 15:04:05"

var (
	bannerLine = color.New(color.FgCyan, color.Bold)
	titleStyle = color.New(color.FgWhite, color.Bold)
	dimStyle   = color.New(color.Faint)
	infoTag    = color.New(color.FgBlue, color.Bold)
	warnTag    = color.New(color.FgYellow, color.Bold)
	errorTag   = color.New(color.FgRed, color.Bold)
	statTag    = color.New(color.FgCyan, color.Bold)
	boldStyle  = color.New(color.Bold)
	okStyle    = color.New(color.FgGreen, color.Bold)
	offStyle   = color.New(color.FgRed, color.Bold)
	fastStyle  = color.New(color.FgRed, color.Bold)
	slowStyle  = color.New(color.FgYellow, color.Bold)
)

// PrintBanner shows the startup banner with the active configuration,
// mirroring the confirm-your-settings banner every operator-facing CLI
// in this lineage prints on boot.
func PrintBanner(cfg *config.Config) {
	line := strings.Repeat("=", 62)

	fmt.Println()
	fmt.Println(bannerLine.Sprint(line))
	fmt.Println(titleStyle.Sprint("  IDS-RS  ::  Intrusion Detection System"))
	fmt.Println(dimStyle.Sprint("  Network Scan Detector"))
	fmt.Println(bannerLine.Sprint(line))

	fmt.Printf("  Parser:  %-14s Listen:  %s\n",
		boldStyle.Sprint(strings.ToUpper(cfg.Network.Parser)),
		boldStyle.Sprint(fmt.Sprintf("UDP/%d", cfg.Network.ListenPort)))

	siemStatus := offStyle.Sprint("OFF")
	if cfg.Alerting.SIEM.Enabled {
		siemStatus = okStyle.Sprint(fmt.Sprintf("%s:%d", cfg.Alerting.SIEM.Host, cfg.Alerting.SIEM.Port))
	}
	emailStatus := offStyle.Sprint("OFF")
	if cfg.Alerting.Email.Enabled {
		emailStatus = okStyle.Sprint("ON")
	}
	fmt.Printf("  SIEM:    %-14s Email:   %s\n", siemStatus, emailStatus)

	fmt.Printf("  Fast:    %s       Slow:    %s\n",
		boldStyle.Sprint(fmt.Sprintf(">%d ports/%s", cfg.Detection.FastScan.PortThreshold, cfg.Detection.FastScan.TimeWindow)),
		boldStyle.Sprint(fmt.Sprintf(">%d ports/%s", cfg.Detection.SlowScan.PortThreshold, cfg.Detection.SlowScan.TimeWindow)))

	fmt.Println(bannerLine.Sprint(line))
	fmt.Println()
}

func timestamp() string {
	return time.Now().Format(timeLayout)
}

// LogInfo prints an informational status line.
func LogInfo(message string) {
	fmt.Printf("%s %s %s\n", dimStyle.Sprintf("[%s]", timestamp()), infoTag.Sprint("[INFO]"), message)
}

// LogWarning prints a warning line.
func LogWarning(message string) {
	fmt.Printf("%s %s %s\n", dimStyle.Sprintf("[%s]", timestamp()), warnTag.Sprint("[WARN]"), message)
}

// LogError prints an error line.
func LogError(message string) {
	fmt.Printf("%s %s %s\n", dimStyle.Sprintf("[%s]", timestamp()), errorTag.Sprint("[ERROR]"), errorTag.Sprint(message))
}

// LogAlert renders an alert with a color keyed to its kind: red for
// FastScan (high urgency), yellow for SlowScan. The port list is
// truncated to maxDisplayPorts with a "+N more" suffix.
func LogAlert(alert core.Alert) {
	ts := alert.DetectedAt.Format(timeLayout)
	style := fastStyle
	label := "Fast Scan"
	if alert.Kind == core.SlowScan {
		style = slowStyle
		label = "Slow Scan"
	}

	portList, suffix := formatPortList(alert.PortsSample)
	separator := strings.Repeat("-", 62)

	fmt.Println(style.Sprint(separator))
	fmt.Printf("%s %s %s %s detected!\n",
		dimStyle.Sprintf("[%s]", ts),
		style.Sprint("[ALERT]"),
		titleStyle.Sprint(fmt.Sprintf("[IP: %s]", alert.SourceIP)),
		style.Sprint(label))
	fmt.Printf("  %s unique ports in the detection window\n", style.Sprint(strconv.Itoa(alert.UniquePortCount)))
	fmt.Printf("  Ports: %s%s\n", portList, suffix)
	fmt.Println(style.Sprint(separator))
}

func formatPortList(ports []int) (list, suffix string) {
	shown := ports
	if len(shown) > maxDisplayPorts {
		shown = shown[:maxDisplayPorts]
	}
	parts := make([]string, 0, len(shown))
	for _, p := range shown {
		parts = append(parts, strconv.Itoa(p))
	}
	list = strings.Join(parts, ", ")
	if len(ports) > maxDisplayPorts {
		suffix = fmt.Sprintf(" ... (+%d more)", len(ports)-maxDisplayPorts)
	}
	return list, suffix
}

// LogStats prints the periodic tracked/cleaned summary the cleanup
// scheduler emits after each pass.
func LogStats(trackedSources, cleanedSources int) {
	fmt.Printf("%s %s %s sources tracked | Cleanup: %s removed\n",
		dimStyle.Sprintf("[%s]", timestamp()),
		statTag.Sprint("[STAT]"),
		boldStyle.Sprint(strconv.Itoa(trackedSources)),
		boldStyle.Sprint(strconv.Itoa(cleanedSources)))
}
