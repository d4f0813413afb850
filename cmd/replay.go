// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/haldane-labs/sentline/internal/capturelink"
	"github.com/haldane-labs/sentline/internal/replay"
	"github.com/haldane-labs/sentline/internal/sent"
	"github.com/spf13/cobra"
)

var (
	replayPath  string
	replaySpeed float64
	replayLoop  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <logfile>",
	Short: "Replay a recorded capture-link session through the SENT decoder",
	Long: `Replay a previously recorded capture-link log file, feeding its frames
back through the decoder with their original relative timing (scaled by
--speed), exactly as if they had arrived live from the probe.

Log files are produced by passing --record to the decode command, or can
be hand-authored: a "START" line followed by "<t_ns>,<hex>" data lines, one
capture-link wire frame per line.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayLoop, "loop", false, "Loop playback indefinitely")
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open replay log: %w", err)
	}
	defer f.Close()

	recs, err := replay.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read replay log: %w", err)
	}

	fmt.Printf("sentline - Replay\n")
	fmt.Printf("Log: %s (%d records)\n", path, len(recs))
	fmt.Printf("Speed: %.2fx  Loop: %v\n\n", replaySpeed, replayLoop)

	linkDecoder := capturelink.NewDecoder()
	channel := sent.NewChannel()

	return replay.PlayPackets(recs, replaySpeed, replayLoop, nil, linkDecoder, func(pkt *capturelink.Packet) error {
		handleDecodedPacket(channel, pkt)
		return nil
	})
}

// recordingWriter appends each validated capture-link packet, re-encoded to
// its canonical wire form, to a replay log with a wall-clock timestamp.
// Used by the decode command's --record flag.
type recordingWriter struct {
	w *replay.Writer
}

func newRecordingWriter(path string) (*recordingWriter, error) {
	w, err := replay.CreateWriter(path)
	if err != nil {
		return nil, err
	}
	return &recordingWriter{w: w}, nil
}

func (r *recordingWriter) recordPacket(pkt *capturelink.Packet) {
	_ = r.w.WritePacket(time.Now(), pkt)
}

func (r *recordingWriter) Close() error {
	return r.w.Close()
}
