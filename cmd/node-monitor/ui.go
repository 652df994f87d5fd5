package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/helios/artnet"
)

var (
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleLabel = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleValue = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleBeat  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleAlive = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleStale = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleLog   = tcell.StyleDefault.Foreground(tcell.ColorTeal)
)

// puts writes text at (x, y) and returns the x after the last rune.
func puts(s tcell.Screen, x, y int, style tcell.Style, text string) int {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

func (m *monitor) draw() {
	s := m.screen
	s.Clear()
	_, h := s.Size()

	bs := m.clock.State()
	snap := m.status.Export()
	now := m.tp.Now()

	puts(s, 0, 0, styleTitle, "HELIOS MONITOR")

	// Tempo line. The dot flashes through the first fifth of each beat.
	x := puts(s, 0, 1, styleLabel, "tempo ")
	x = puts(s, x, 1, styleValue, fmt.Sprintf("%5.1f bpm ", bs.BPM))
	if bs.BeatPhase < 0.2 {
		x = puts(s, x, 1, styleBeat, "*")
	} else {
		x = puts(s, x, 1, styleLabel, ".")
	}
	x = puts(s, x, 1, styleValue, fmt.Sprintf(" %d/4", int(bs.BarPhase*4)+1))
	x = puts(s, x, 1, styleLabel, "   master ")
	x = puts(s, x, 1, styleValue, fmt.Sprintf("%3.0f%%", m.stack.Master()*100))
	x = puts(s, x, 1, styleLabel, "   click ")
	if m.met.IsMuted() {
		x = puts(s, x, 1, styleLabel, "off")
	} else {
		x = puts(s, x, 1, styleValue, "on")
	}
	if m.sceneName != "" {
		x = puts(s, x, 1, styleLabel, "   scene ")
		x = puts(s, x, 1, styleValue, fmt.Sprintf("%q", m.sceneName))
	}
	if m.sync != nil {
		x = puts(s, x, 1, styleLabel, "   sync ")
		state := m.sync.LinkState()
		style := styleLabel
		if state.String() == "connected" {
			style = styleAlive
		}
		puts(s, x, 1, style, state.String())
	}

	// Counters line.
	x = puts(s, 0, 2, styleLabel, "engine ")
	x = puts(s, x, 2, styleValue, fmt.Sprintf("ticks %d drops %d tick %.2fms",
		snap.Ints["engine.ticks"], snap.Ints["engine.frame_drops"], snap.Floats["engine.tick_ms"]))
	x = puts(s, x, 2, styleLabel, "   wire ")
	x = puts(s, x, 2, styleValue, fmt.Sprintf("packets %d frames %d syncs %d",
		snap.Ints["artnet.packets_sent"], snap.Ints["artnet.frames_streamed"], snap.Ints["artnet.syncs_sent"]))
	x = puts(s, x, 2, styleLabel, "   polls ")
	puts(s, x, 2, styleValue, fmt.Sprintf("%d", snap.Ints["artnet.polls"]))

	m.drawNodes(4, h-eventLogDepth-2, now)
	m.drawEventLog(h - eventLogDepth - 1)

	puts(s, 0, h-1, styleLabel, "space tap   +/- master   [/] nudge   m click   s save scene   q quit")

	s.Show()
}

func (m *monitor) drawNodes(top, bottom int, now time.Time) {
	s := m.screen
	nodes := m.disc.Nodes()
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].ShortName != nodes[j].ShortName {
			return nodes[i].ShortName < nodes[j].ShortName
		}
		return nodes[i].Key < nodes[j].Key
	})

	header := fmt.Sprintf("%-17s  %-15s  %-14s  %9s  %6s", "NODE", "IP", "UNIVERSES", "LATENCY", "SEEN")
	puts(s, 0, top, styleTitle, header)

	timeout := m.cfg.Wire.NodeTimeout.Std()
	row := top + 1
	for _, n := range nodes {
		if row >= bottom {
			break
		}
		style := styleStale
		if n.Alive(now, timeout) {
			style = styleAlive
		}
		puts(s, 0, row, style, formatNode(n, now))
		row++
	}
	if len(nodes) == 0 {
		puts(s, 0, top+1, styleLabel, "no nodes discovered yet")
	}
}

func formatNode(n artnet.Node, now time.Time) string {
	latency := "-"
	if n.Latency > 0 {
		latency = fmt.Sprintf("%.1fms", float64(n.Latency.Microseconds())/1000)
	}
	seen := now.Sub(n.LastSeen).Truncate(time.Second).String()
	return fmt.Sprintf("%-17s  %-15s  %-14s  %9s  %6s",
		n.ShortName, n.IP, fmt.Sprint(n.Universes), latency, seen)
}

func (m *monitor) drawEventLog(top int) {
	for i, line := range m.lines {
		puts(m.screen, 0, top+i, styleLog, line)
	}
}
