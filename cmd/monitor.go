// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/haldane-labs/sentline/internal/capturelink"
	"github.com/haldane-labs/sentline/internal/sent"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorText bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive dashboard for a live capture-link session",
	Long: `Decode a live capture-link stream and show a continuously updating
dashboard of link statistics, decoder state, and recent sync/CRC errors.

Pass --text to print the same information as a scrolling text log instead
of the full-screen terminal UI, useful when piping output or running over
a dumb terminal.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorText, "text", false, "Text mode instead of the terminal UI")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if monitorText {
		return runMonitorText(conn, connInfo)
	}
	return runMonitorTUI(conn, connInfo)
}

// monitorLogEntry is one line in the dashboard's scrolling event log.
type monitorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type monitorModel struct {
	connInfo      string
	linkStats     *capturelink.Statistics
	sentStats     sent.Stats
	channelState  string
	lastFrame     string
	mailbox       table.Model
	eventLog      []monitorLogEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
}

type monitorTickMsg time.Time
type monitorDecodeMsg struct {
	linkErr   error
	pkt       *capturelink.Packet
	frameOK   bool
	frameText string
	channel   *sent.Channel
}

func initialMonitorModel(connInfo string) monitorModel {
	return monitorModel{
		connInfo:      connInfo,
		linkStats:     capturelink.NewStatistics(),
		mailbox:       newMailboxTable(),
		eventLog:      make([]monitorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

// newMailboxTable builds an unfocused, non-interactive table for the slow
// channel mailbox (up to 32 slots, one row per currently populated id).
func newMailboxTable() table.Model {
	cols := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Hex", Width: 8},
		{Title: "Dec", Width: 8},
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(nil),
		table.WithFocused(false),
		table.WithHeight(slowChannelTableHeight),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(lipgloss.Color("12"))
	s.Selected = s.Selected.Foreground(lipgloss.Color("15")).Background(lipgloss.Color(""))
	t.SetStyles(s)
	return t
}

// mailboxRows converts a slow-channel snapshot into table rows, sorted by id.
func mailboxRows(entries []sent.SlowChannelEntry) []table.Row {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		rows[i] = table.Row{
			fmt.Sprintf("%d", e.ID),
			fmt.Sprintf("0x%04X", e.Data),
			fmt.Sprintf("%d", e.Data),
		}
	}
	return rows
}

const slowChannelTableHeight = 8

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), tea.EnterAltScreen)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, monitorLogEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		m.linkStats.CalculateRates()
		return m, monitorTickCmd()

	case monitorDecodeMsg:
		if msg.linkErr != nil {
			m.linkStats.Update(nil, msg.linkErr, nil)
			m.addLogEntry(fmt.Sprintf("LINK ERROR: %v", msg.linkErr), true)
			break
		}
		if msg.pkt != nil {
			m.linkStats.Update(msg.pkt, nil, nil)
		}
		if msg.frameOK {
			m.lastFrame = msg.frameText
			m.sentStats = msg.channel.Stats()
			m.channelState = msg.channel.Info()
			m.mailbox.SetRows(mailboxRows(msg.channel.SlowChannelSnapshot()))
			m.addLogEntry(msg.frameText, false)
		}
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Background(lipgloss.Color("235")).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("SENTLINE - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Press 'q' to quit", m.connInfo)))
	s.WriteString("\n\n")

	m.linkStats.CalculateRates()
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Link packets:"), valueStyle.Render(fmt.Sprintf("%d", m.linkStats.TotalPackets)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d", m.linkStats.ValidPackets)),
		labelStyle.Render("CRC errors:"), errorStyle.Render(fmt.Sprintf("%d", m.linkStats.CRCErrors)),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		labelStyle.Render("SENT frames:"), valueStyle.Render(fmt.Sprintf("%d", m.sentStats.FrameCnt)),
		labelStyle.Render("SENT errors:"), errorStyle.Render(fmt.Sprintf("%d", m.sentStats.TotalError())),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Sync errs:"), warningStyle.Render(fmt.Sprintf("%d", m.sentStats.SyncErr)),
		labelStyle.Render("CRC-4 errs:"), warningStyle.Render(fmt.Sprintf("%d", m.sentStats.CrcErrCnt)),
		labelStyle.Render("Restarts:"), warningStyle.Render(fmt.Sprintf("%d", m.sentStats.RestartCnt)),
	))
	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	if m.channelState != "" {
		s.WriteString(labelStyle.Render("Decoder state:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(m.channelState))
		s.WriteString("\n\n")
	}

	s.WriteString(labelStyle.Render("Slow channel mailbox:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.mailbox.View()))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	logHeight := m.height - 16 - slowChannelTableHeight
	if logHeight < 5 {
		logHeight = 5
	}
	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			ts := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(ts), errorStyle.Render("x "+entry.message)))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(ts), valueStyle.Render(entry.message)))
			}
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func runMonitorTUI(conn Connection, connInfo string) error {
	linkDecoder := capturelink.NewDecoder()
	channel := sent.NewChannel()

	m := initialMonitorModel(connInfo)
	p := tea.NewProgram(m)

	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			for i := 0; i < n; i++ {
				pkt, decodeErr := linkDecoder.DecodeByte(buf[i])
				if decodeErr != nil {
					p.Send(monitorDecodeMsg{linkErr: decodeErr})
					continue
				}
				if pkt == nil {
					continue
				}
				frameOK, frameText := feedMonitorPacket(channel, pkt)
				p.Send(monitorDecodeMsg{pkt: pkt, frameOK: frameOK, frameText: frameText, channel: channel})
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

func runMonitorText(conn Connection, connInfo string) error {
	fmt.Printf("sentline - Monitor (text mode)\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	linkDecoder := capturelink.NewDecoder()
	channel := sent.NewChannel()
	linkStats := capturelink.NewStatistics()
	buf := make([]byte, 128)

	statsTicker := time.NewTicker(10 * time.Second)
	defer statsTicker.Stop()

	dataCh := make(chan []byte, 10)
	go func() {
		for {
			n, err := conn.Read(buf)
			if err != nil {
				log.Printf("Read error: %v", err)
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			dataCh <- data
		}
	}()

	for {
		select {
		case data := <-dataCh:
			for _, b := range data {
				pkt, decodeErr := linkDecoder.DecodeByte(b)
				if decodeErr != nil {
					linkStats.Update(nil, decodeErr, nil)
					fmt.Printf("[LINK ERROR] %v\n", decodeErr)
					continue
				}
				if pkt == nil {
					continue
				}
				linkStats.Update(pkt, nil, nil)
				if ok, text := feedMonitorPacket(channel, pkt); ok {
					fmt.Println(text)
				}
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(linkStats.String())
			fmt.Println(channel.Info())
			fmt.Println(formatMailboxText(channel.SlowChannelSnapshot()))
			fmt.Println()
		}
	}
}

// formatMailboxText renders the slow-channel mailbox as a single-line
// summary with one bracketed entry per populated slot, for the --text
// fallback.
func formatMailboxText(entries []sent.SlowChannelEntry) string {
	rows := mailboxRows(entries)
	if len(rows) == 0 {
		return "mailbox: (empty)"
	}
	var b strings.Builder
	b.WriteString("mailbox:")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf(" [id=%s %s]", r[0], r[1]))
	}
	return b.String()
}

func feedMonitorPacket(channel *sent.Channel, pkt *capturelink.Packet) (bool, string) {
	var samples []capturelink.PulseSample
	switch pkt.Type() {
	case capturelink.MsgPulseSample:
		s, err := capturelink.DecodePulseSample(pkt.Payload())
		if err != nil {
			return false, ""
		}
		samples = []capturelink.PulseSample{s}
	case capturelink.MsgPulseBatch:
		var err error
		samples, err = capturelink.DecodePulseBatch(pkt.Payload())
		if err != nil {
			return false, ""
		}
	default:
		return false, ""
	}

	var lastOK bool
	var text string
	for _, s := range samples {
		if channel.Decode(s.Ticks, s.Flags) > 0 {
			status, sig0, sig1, err := channel.GetSignals()
			if err == nil {
				text = fmt.Sprintf("frame: status=0x%X sig0=0x%03X sig1=0x%03X", status, sig0, sig1)
				lastOK = true
			}
		}
	}
	return lastOK, text
}
