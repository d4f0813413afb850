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

var probeInfoTimeout int

var probeInfoCmd = &cobra.Command{
	Use:   "probe-info",
	Short: "Request identification from the capture probe",
	Long: `Send a PROBE_INFO_REQUEST and wait for the probe's PROBE_INFO reply.

Reports the probe's firmware version, capture-clock frequency, and channel
count. Useful for confirming the link is up and the probe firmware matches
what this tool expects before starting a decode session.

Exit codes:
  0 - PROBE_INFO received before timeout
  1 - Timeout reached without a reply
  2 - Connection error`,
	RunE: runProbeInfo,
}

func init() {
	rootCmd.AddCommand(probeInfoCmd)
	probeInfoCmd.Flags().IntVar(&probeInfoTimeout, "timeout", 5, "Timeout in seconds to wait for a reply")
}

func runProbeInfo(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("sentline - Probe Info\n")
	fmt.Printf("Connection: %s\n", connInfo)

	wire, err := capturelink.EncodePacket(capturelink.MsgProbeInfoRequest, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Sending PROBE_INFO_REQUEST...\n")
	if _, err := conn.Write(wire); err != nil {
		fmt.Fprintf(os.Stderr, "SEND FAILED: %v\n", err)
		os.Exit(2)
	}

	decoder := capturelink.NewDecoder()
	infoChan := make(chan capturelink.ProbeInfo, 1)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			for i := 0; i < n; i++ {
				packet, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					continue
				}
				if packet == nil || packet.Type() != capturelink.MsgProbeInfo {
					continue
				}
				info, err := capturelink.DecodeProbeInfo(packet.Payload())
				if err != nil {
					continue
				}
				infoChan <- info
				return
			}
		}
	}()

	select {
	case info := <-infoChan:
		fmt.Printf("\nPROBE_INFO received:\n")
		fmt.Printf("  Firmware: %d.%d\n", info.FirmwareMajor, info.FirmwareMinor)
		fmt.Printf("  Clock: %d Hz\n", info.ClockHz)
		fmt.Printf("  Channels: %d\n", info.ChannelCount)
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(probeInfoTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No PROBE_INFO received within %d seconds\n", probeInfoTimeout)
		os.Exit(1)
	}

	return nil
}
