package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/logger"
	"github.com/joshuapare/hmalloc/internal/workload"
)

func init() {
	cmd := newTopCmd()
	addWorkloadFlags(cmd)
	rootCmd.AddCommand(cmd)
}

func newTopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top",
		Short: "Run a workload with a live view of allocator counters",
		Long: `The top command runs the same workload as stress and shows progress and
allocator counters while it runs. Press q to stop early.

Example:
  hmallocctl top --arch coalescing --workers 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := workloadOptions()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			job, err := workload.Start(ctx, opts)
			if err != nil {
				return err
			}
			final, err := tea.NewProgram(newTopModel(job, cancel), tea.WithAltScreen()).Run()
			if err != nil {
				logger.Error("TUI error", "error", err)
				return err
			}

			m := final.(topModel)
			printReport(m.report)
			if m.err != nil && !errors.Is(m.err, context.Canceled) {
				return m.err
			}
			return nil
		},
	}
}

const topInterval = 100 * time.Millisecond

type tickMsg time.Time

type jobDoneMsg struct {
	report workload.Report
	err    error
}

// topModel is the bubbletea model behind the top command.
type topModel struct {
	job    *workload.Job
	cancel context.CancelFunc
	bar    progress.Model

	done, total int64
	stats       alloc.Stats
	stopping    bool
	finished    bool
	report      workload.Report
	err         error
}

func newTopModel(job *workload.Job, cancel context.CancelFunc) topModel {
	_, total := job.Progress()
	return topModel{
		job:    job,
		cancel: cancel,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		total:  total,
	}
}

func tick() tea.Cmd {
	return tea.Tick(topInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitJob(job *workload.Job) tea.Cmd {
	return func() tea.Msg {
		rep, err := job.Wait()
		return jobDoneMsg{report: rep, err: err}
	}
}

func (m topModel) Init() tea.Cmd {
	return tea.Batch(tick(), waitJob(m.job))
}

func (m topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.stopping = true
			m.cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), 80)
		return m, nil

	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.done, m.total = m.job.Progress()
		m.stats = m.job.Stats()
		return m, tick()

	case jobDoneMsg:
		m.finished = true
		m.report = msg.report
		m.err = msg.err
		m.done = msg.report.Ops
		m.stats = msg.report.Stats
		return m, tea.Quit
	}
	return m, nil
}

func (m topModel) View() string {
	var sb strings.Builder

	opts := m.job.Options()
	fmt.Fprintf(&sb, "%s  %s  %d workers\n\n",
		style(titleStyle).Render("hmalloc top"), opts.Architecture, opts.Workers)

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	fmt.Fprintf(&sb, "%s  %s / %s ops\n\n", m.bar.ViewAs(pct), formatNumber(m.done), formatNumber(m.total))
	sb.WriteString(renderStats(m.stats))
	sb.WriteString("\n\n")

	switch {
	case m.finished:
		sb.WriteString(style(labelStyle).Render("done"))
	case m.stopping:
		sb.WriteString(style(labelStyle).Render("stopping..."))
	default:
		sb.WriteString(style(labelStyle).Render("q: stop"))
	}
	sb.WriteByte('\n')
	return sb.String()
}
