// Command trafficgen sends synthetic firewall drop logs over UDP to an
// ids-rs listener, for exercising fast-scan, slow-scan, and normal
// traffic patterns without a real network scan.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"
)

var commonPorts = []int{22, 80, 443, 8080, 3389, 25, 53, 110, 143, 993}

func main() {
	host := flag.String("host", "127.0.0.1", "ids-rs listen address")
	port := flag.Int("port", 5555, "ids-rs listen UDP port")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: trafficgen <fast-scan|slow-scan|normal|replay> [flags]")
		os.Exit(1)
	}
	mode := os.Args[1]
	rest := os.Args[2:]

	switch mode {
	case "fast-scan", "slow-scan":
		fs := flag.NewFlagSet(mode, flag.ExitOnError)
		format := fs.String("format", "gaia", "log format: gaia or cef")
		source := fs.String("source", "192.168.11.7", "simulated source IP")
		batch := fs.Int("batch", 1, "logs per UDP packet")
		defaultPorts, defaultDelay := 20, 0.1
		if mode == "slow-scan" {
			defaultPorts, defaultDelay = 40, 7.0
		}
		ports := fs.Int("ports", defaultPorts, "number of unique ports to scan")
		delay := fs.Float64("delay", defaultDelay, "delay between batches in seconds")
		fs.StringVar(host, "host", *host, "ids-rs listen address")
		fs.IntVar(port, "port", *port, "ids-rs listen UDP port")
		fs.Parse(rest)

		sock := dial(*host, *port)
		defer sock.Close()
		runScan(sock, mode, *source, *format, *ports, *delay, *batch)

	case "normal":
		fs := flag.NewFlagSet(mode, flag.ExitOnError)
		format := fs.String("format", "gaia", "log format: gaia or cef")
		source := fs.String("source", "192.168.11.7", "simulated source IP")
		count := fs.Int("count", 5, "number of logs to send")
		fs.StringVar(host, "host", *host, "ids-rs listen address")
		fs.IntVar(port, "port", *port, "ids-rs listen UDP port")
		fs.Parse(rest)

		sock := dial(*host, *port)
		defer sock.Close()
		runNormal(sock, *source, *format, *count)

	case "replay":
		fs := flag.NewFlagSet(mode, flag.ExitOnError)
		file := fs.String("file", "", "path to a file of logs, one per line")
		delay := fs.Float64("delay", 0.1, "delay between batches in seconds")
		batch := fs.Int("batch", 1, "lines per UDP packet")
		fs.StringVar(host, "host", *host, "ids-rs listen address")
		fs.IntVar(port, "port", *port, "ids-rs listen UDP port")
		fs.Parse(rest)
		if *file == "" {
			fmt.Fprintln(os.Stderr, "replay: --file is required")
			os.Exit(1)
		}

		sock := dial(*host, *port)
		defer sock.Close()
		runReplay(sock, *file, *delay, *batch)

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
		os.Exit(1)
	}
}

func dial(host string, port int) net.Conn {
	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s:%d: %v\n", host, port, err)
		os.Exit(1)
	}
	return conn
}

func generateGaiaLog(sourceIP string, dstPort int, action string) string {
	second := rand.Intn(60)
	srcPort := 1024 + rand.Intn(65535-1024)
	return fmt.Sprintf(
		"Sep  3 15:12:%02d 192.168.99.1 Checkpoint: %s %s proto: tcp; service: %d; s_port: %d",
		second, action, sourceIP, dstPort, srcPort,
	)
}

func generateCEFLog(sourceIP string, dstPort int, action string) string {
	severity, name := 3, "Accept"
	if action == "drop" {
		severity, name = 5, "Drop"
	}
	return fmt.Sprintf(
		"CEF:0|CheckPoint|VPN-1 & FireWall-1|R81.20|100|%s|%d|src=%s dst=192.168.1.1 dpt=%d proto=TCP act=%s",
		name, severity, sourceIP, dstPort, action,
	)
}

func generateLog(format, sourceIP string, dstPort int, action string) string {
	if format == "cef" {
		return generateCEFLog(sourceIP, dstPort, action)
	}
	return generateGaiaLog(sourceIP, dstPort, action)
}

// sendUDP writes one datagram, joining batched lines with newlines the
// way the listener's line scanner expects.
func sendUDP(conn net.Conn, lines []string) {
	_, err := conn.Write([]byte(strings.Join(lines, "\n")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
	}
}

func uniquePorts(n int) []int {
	pool := make([]int, 0, 65535-1024)
	for p := 1024; p < 65535; p++ {
		pool = append(pool, p)
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

func runScan(conn net.Conn, mode, source, format string, numPorts int, delay float64, batchSize int) {
	label := "Fast Scan"
	if mode == "slow-scan" {
		label = "Slow Scan"
	}
	fmt.Printf("[*] Simulare %s: %d porturi unice catre %s, format=%s\n", label, numPorts, source, format)

	ports := uniquePorts(numPorts)
	batch := make([]string, 0, batchSize)
	sent := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		sendUDP(conn, batch)
		sent += len(batch)
		fmt.Printf("  [%4d/%d] trimis %d linie(i)\n", sent, numPorts, len(batch))
		batch = batch[:0]
	}

	for i, p := range ports {
		batch = append(batch, generateLog(format, source, p, "drop"))
		if len(batch) >= batchSize || i == len(ports)-1 {
			flush()
			if delay > 0 && i < len(ports)-1 {
				time.Sleep(time.Duration(delay * float64(time.Second)))
			}
		}
	}
	fmt.Printf("[+] %s complet: %d porturi trimise\n", label, sent)
}

func runNormal(conn net.Conn, source, format string, count int) {
	fmt.Printf("[*] Simulare trafic normal: %d log-uri, format=%s\n", count, format)
	for i := 0; i < count; i++ {
		p := commonPorts[rand.Intn(len(commonPorts))]
		line := generateLog(format, source, p, "drop")
		sendUDP(conn, []string{line})
		fmt.Printf("  [%d/%d] port %d\n", i+1, count, p)

		if i < count-1 {
			sleepSec := 0.5 + rand.Float64()*1.5
			time.Sleep(time.Duration(sleepSec * float64(time.Second)))
		}
	}
	fmt.Printf("[+] Trafic normal complet: %d log-uri trimise\n", count)
}

func runReplay(conn net.Conn, filePath string, delay float64, batchSize int) {
	f, err := os.Open(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "replay: reading %s: %v\n", filePath, err)
		os.Exit(1)
	}

	total := len(lines)
	fmt.Printf("[*] Replay din %s: %d linii incarcate\n", filePath, total)

	batch := make([]string, 0, batchSize)
	sent := 0
	for i, line := range lines {
		batch = append(batch, line)
		if len(batch) >= batchSize || i == total-1 {
			sendUDP(conn, batch)
			sent += len(batch)
			preview := batch[0]
			if len(preview) > 70 {
				preview = preview[:70]
			}
			fmt.Printf("  [%4d/%d] trimis %d linie(i) | %s...\n", sent, total, len(batch), preview)
			batch = batch[:0]
			if delay > 0 && i < total-1 {
				time.Sleep(time.Duration(delay * float64(time.Second)))
			}
		}
	}
	fmt.Printf("[+] Replay complet: %d log-uri trimise din %s\n", sent, filePath)
}
