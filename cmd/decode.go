// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"

	"github.com/haldane-labs/sentline/internal/capturelink"
	"github.com/haldane-labs/sentline/internal/sent"
	"github.com/spf13/cobra"
)

var decodeRecordPath string

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a live capture-link stream into SENT frames and signals",
	Long: `Continuously decode capture-link packets as they arrive from the probe,
feed each pulse sample into the SENT fast/slow channel decoder, and print
every validated frame along with its decoded signals.

Pass --record to also save each decoded capture-link packet, re-encoded as
a wire frame, to a log file for later replay. Frames that fail to decode
are not recorded.

Supports both serial and WebSocket connections.`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeRecordPath, "record", "", "Also record decoded capture-link packets to this log file")
}

func runDecode(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var recorder *recordingWriter
	if decodeRecordPath != "" {
		recorder, err = newRecordingWriter(decodeRecordPath)
		if err != nil {
			return fmt.Errorf("open record log: %w", err)
		}
		defer recorder.Close()
	}

	fmt.Printf("sentline - Decode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if recorder != nil {
		fmt.Printf("Recording to: %s\n", decodeRecordPath)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	linkDecoder := capturelink.NewDecoder()
	channel := sent.NewChannel()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err == ErrConnectionClosed {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			pkt, decodeErr := linkDecoder.DecodeByte(buf[i])
			if decodeErr != nil {
				fmt.Printf("[LINK ERROR] %v\n", decodeErr)
				continue
			}
			if pkt == nil {
				continue
			}
			if recorder != nil {
				recorder.recordPacket(pkt)
			}
			handleDecodedPacket(channel, pkt)
		}
	}
}

func handleDecodedPacket(channel *sent.Channel, pkt *capturelink.Packet) {
	switch pkt.Type() {
	case capturelink.MsgPulseSample:
		sample, err := capturelink.DecodePulseSample(pkt.Payload())
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			return
		}
		printFrameResult(channel, channel.Decode(sample.Ticks, sample.Flags))

	case capturelink.MsgPulseBatch:
		samples, err := capturelink.DecodePulseBatch(pkt.Payload())
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			return
		}
		for _, sample := range samples {
			printFrameResult(channel, channel.Decode(sample.Ticks, sample.Flags))
		}

	default:
		fmt.Print(capturelink.FormatPacket(pkt))
	}
}

func printFrameResult(channel *sent.Channel, result int32) {
	if result <= 0 {
		return
	}
	status, sig0, sig1, err := channel.GetSignals()
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		return
	}
	fmt.Printf("frame: status=0x%X sig0=0x%03X sig1=0x%03X tickPerUnit=%d\n",
		status, sig0, sig1, uint32(channel.GetTickTime()))
}
