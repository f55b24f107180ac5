// Command s3p-fountain-serve is a thin, best-effort UDP framer that
// replays a directory's fountain_meta.json and fountain_packets.jsonl
// over a datagram socket: each datagram is either 'M\n'+meta_json or
// 'P\n'+packet_json. It makes no reliability guarantees of its own; the
// receiving decoder is the only resilience mechanism.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

func main() {
	dir := flag.String("dir", "", "directory containing fountain_meta.json and fountain_packets.jsonl")
	addr := flag.String("addr", "127.0.0.1:9999", "destination UDP address")
	metaRepeat := flag.Int("meta-repeat", 3, "re-send the metadata frame after every N packets (0 disables re-sends)")
	pace := flag.Duration("pace", time.Millisecond, "delay between datagrams")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "s3p-fountain-serve: --dir is required")
		os.Exit(1)
	}

	raddr, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3p-fountain-serve: resolve addr: %v\n", err)
		os.Exit(2)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3p-fountain-serve: dial: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	metaBytes, err := os.ReadFile(filepath.Join(*dir, "fountain_meta.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3p-fountain-serve: read meta: %v\n", err)
		os.Exit(2)
	}

	sendFrame := func(tag byte, payload []byte) error {
		frame := append([]byte{tag, '\n'}, payload...)
		_, err := conn.Write(frame)
		return err
	}

	// Send the metadata frame first and logically ahead of every packet:
	// the encoder's systematic-first ordering is part of the contract and
	// must not be reordered downstream of this framer.
	if err := sendFrame('M', metaBytes); err != nil {
		fmt.Fprintf(os.Stderr, "s3p-fountain-serve: send meta: %v\n", err)
		os.Exit(2)
	}
	time.Sleep(*pace)

	f, err := os.Open(filepath.Join(*dir, "fountain_packets.jsonl"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3p-fountain-serve: open packets: %v\n", err)
		os.Exit(2)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sent := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe json.RawMessage
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		if err := sendFrame('P', line); err != nil {
			fmt.Fprintf(os.Stderr, "s3p-fountain-serve: send packet: %v\n", err)
			os.Exit(2)
		}
		sent++
		if *metaRepeat > 0 && sent%*metaRepeat == 0 {
			_ = sendFrame('M', metaBytes) // meta may be duplicated; receivers tolerate it
		}
		time.Sleep(*pace)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "s3p-fountain-serve: scan packets: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("sent %d packets to %s\n", sent, *addr)
}
