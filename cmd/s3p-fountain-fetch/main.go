// Command s3p-fountain-fetch is a thin, best-effort UDP framer that
// listens for the datagrams s3p-fountain-serve emits, buffers packets
// that arrive before the metadata frame, and feeds everything to the
// peeling decoder until it converges or a wall-clock timeout expires.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/blocknet/s3p/internal/metrics"
	"github.com/blocknet/s3p/pkg/fountain"
)

// exitTimeout is the distinct non-zero status for wall-clock expiry.
const exitTimeout = 3

type rawPacketLine struct {
	IDs     []int  `json:"ids"`
	BodyHex string `json:"body_hex"`
}

func main() {
	addr := flag.String("addr", "127.0.0.1:9999", "UDP address to listen on")
	timeout := flag.Duration("timeout", 30*time.Second, "wall-clock timeout before giving up")
	out := flag.String("out", "recovered_ct.bin", "output path for the recovered ciphertext")
	flag.Parse()

	laddr, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3p-fountain-fetch: resolve addr: %v\n", err)
		os.Exit(2)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3p-fountain-fetch: listen: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	deadline := time.Now().Add(*timeout)
	conn.SetReadDeadline(deadline)

	var meta *fountain.Metadata
	var dec *fountain.Decoder
	var pending [][]byte // packet lines received before meta arrived

	buf := make([]byte, 64*1024)
	for {
		if time.Now().After(deadline) {
			fmt.Fprintln(os.Stderr, "s3p-fountain-fetch: timed out before decoding converged")
			os.Exit(exitTimeout)
		}
		conn.SetReadDeadline(deadline)
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				fmt.Fprintln(os.Stderr, "s3p-fountain-fetch: timed out before decoding converged")
				os.Exit(exitTimeout)
			}
			fmt.Fprintf(os.Stderr, "s3p-fountain-fetch: read: %v\n", err)
			os.Exit(2)
		}

		frame := buf[:n]
		if bytes.IndexByte(frame, '\n') != 1 {
			continue // malformed frame: discard, non-fatal for the stream
		}
		tag, body := frame[0], frame[2:]

		switch tag {
		case 'M':
			var m fountain.Metadata
			if err := json.Unmarshal(body, &m); err != nil {
				continue
			}
			if meta != nil {
				// metadata may be duplicated; the first one wins, but a
				// conflicting frame means two interleaved streams
				if err := dec.CheckMetadata(m); err != nil {
					fmt.Fprintf(os.Stderr, "s3p-fountain-fetch: %v\n", err)
					os.Exit(2)
				}
				continue
			}
			meta = &m
			dec = fountain.NewDecoder(m)
			for _, line := range pending {
				ingestLine(dec, line)
				if dec.Done() {
					break
				}
			}
			pending = nil
		case 'P':
			if dec == nil {
				// receivers that see packets before metadata arrives must
				// buffer until the metadata frame arrives, or discard them
				cp := append([]byte(nil), body...)
				pending = append(pending, cp)
				continue
			}
			ingestLine(dec, body)
		default:
			continue
		}

		if dec != nil && dec.Done() {
			ct, err := dec.Finalize()
			if err != nil {
				fmt.Fprintf(os.Stderr, "s3p-fountain-fetch: finalize: %v\n", err)
				os.Exit(2)
			}
			if err := os.WriteFile(*out, ct, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "s3p-fountain-fetch: write output: %v\n", err)
				os.Exit(2)
			}
			fmt.Printf("recovered %d bytes to %s\n", len(ct), *out)
			return
		}
	}
}

func ingestLine(dec *fountain.Decoder, line []byte) {
	var raw rawPacketLine
	if err := json.Unmarshal(line, &raw); err != nil {
		metrics.FountainPacketsAccepted.WithLabelValues("discarded").Inc()
		return // malformed packet: discard, non-fatal for the stream
	}
	body, err := hex.DecodeString(raw.BodyHex)
	if err != nil {
		metrics.FountainPacketsAccepted.WithLabelValues("discarded").Inc()
		return
	}
	// a rejected packet is fatal only for this ingest call
	if err := dec.Receive(fountain.Packet{IDs: raw.IDs, Body: body}); err != nil {
		metrics.FountainPacketsAccepted.WithLabelValues("discarded").Inc()
		return
	}
	metrics.FountainPacketsAccepted.WithLabelValues("accepted").Inc()
}
