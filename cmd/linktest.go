// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/haldane-labs/sentline/internal/capturelink"
	"github.com/spf13/cobra"
)

var linkTestTimeout int

var linkTestCmd = &cobra.Command{
	Use:   "link-test",
	Short: "Test connectivity by waiting for a valid capture-link packet",
	Long: `Wait for a valid capture-link packet on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
capture-link packet. It ignores invalid bytes and waits for a complete,
valid packet (passing the CRC-16 check).

Exit codes:
  0 - Packet received before timeout
  1 - Timeout reached without receiving a valid packet
  2 - Connection error

Useful for testing connectivity to the probe or a WebSocket relay.`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().IntVar(&linkTestTimeout, "timeout", 10, "Timeout in seconds to wait for a packet")
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("sentline - Link Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", linkTestTimeout)
	fmt.Printf("Waiting for valid capture-link packet...\n\n")

	decoder := capturelink.NewDecoder()
	buf := make([]byte, 128)

	packetChan := make(chan *capturelink.Packet, 1)
	errChan := make(chan error, 1)

	go func() {
		invalidBytes := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				packet, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					invalidBytes++
					continue
				}
				if packet != nil {
					if invalidBytes > 0 {
						fmt.Printf("(%d link decode errors before the first valid packet)\n", invalidBytes)
					}
					packetChan <- packet
					return
				}
			}
		}
	}()

	select {
	case packet := <-packetChan:
		fmt.Printf("SUCCESS: Received valid packet\n")
		fmt.Printf("  Type: %s (0x%02X)\n", capturelink.FormatMessageType(packet.Type()), packet.Type())
		fmt.Printf("  Length: %d bytes\n", packet.Length())
		fmt.Printf("  CRC: 0x%04X\n", packet.CRC())
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(linkTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid packet received within %d seconds\n", linkTestTimeout)
		os.Exit(1)
	}

	return nil
}
