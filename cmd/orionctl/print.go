package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Protezhe/OrionSupport/pkg/lib"
)

func printStatusTable(w io.Writer, statuses []lib.ProcessStatus) {
	renderer := lipgloss.NewRenderer(w)
	running := renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	stopped := renderer.NewStyle().Faint(true)
	notReady := renderer.NewStyle().Foreground(lipgloss.Color("3"))

	now := time.Now()
	nameW, stateW, pidsW, readyW, upW := 4, 7, 4, 5, 6
	rows := make([][5]string, 0, len(statuses))
	for _, st := range statuses {
		ready := "-"
		if st.Ready != nil {
			ready = "no"
			if *st.Ready {
				ready = "yes"
			}
		}
		pids := joinPIDs(st.PIDs)
		if pids == "" {
			pids = "-"
		}
		row := [5]string{st.Name, st.State.String(), pids, ready, uptime(now, st.Since)}
		nameW = maxInt(nameW, len(row[0]))
		stateW = maxInt(stateW, len(row[1]))
		pidsW = maxInt(pidsW, len(row[2]))
		readyW = maxInt(readyW, len(row[3]))
		upW = maxInt(upW, len(row[4]))
		rows = append(rows, row)
	}

	sep := fmt.Sprintf("+-%s-+-%s-+-%s-+-%s-+-%s-+\n", strings.Repeat("-", nameW), strings.Repeat("-", stateW), strings.Repeat("-", pidsW), strings.Repeat("-", readyW), strings.Repeat("-", upW))
	fmt.Fprint(w, sep)
	fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n", pad("NAME", nameW), pad("STATE", stateW), pad("PIDS", pidsW), pad("READY", readyW), pad("UPTIME", upW))
	fmt.Fprint(w, sep)
	for i, row := range rows {
		// Pad before styling so escape codes do not skew the columns.
		state := pad(row[1], stateW)
		if statuses[i].State == lib.ProcessStateRunning {
			state = running.Render(state)
		} else {
			state = stopped.Render(state)
		}
		ready := pad(row[3], readyW)
		if row[3] == "no" {
			ready = notReady.Render(ready)
		}
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n", pad(row[0], nameW), state, pad(row[2], pidsW), ready, pad(row[4], upW))
	}
	fmt.Fprint(w, sep)
}

func uptime(now, since time.Time) string {
	if since.IsZero() {
		return "-"
	}
	return now.Sub(since).Truncate(time.Second).String()
}

func joinPIDs(pids []int) string {
	parts := make([]string, 0, len(pids))
	for _, pid := range pids {
		parts = append(parts, strconv.Itoa(pid))
	}
	return strings.Join(parts, ", ")
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
