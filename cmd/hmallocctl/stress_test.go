//go:build linux || darwin

package main

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/workload"
)

func TestStressCommand(t *testing.T) {
	for _, arch := range []string{"segregated", "coalescing"} {
		t.Run(arch, func(t *testing.T) {
			resetFlags(t)
			stressFlags.arch = arch

			opts, err := workloadOptions()
			require.NoError(t, err)
			out, err := captureOutput(t, func() error { return runStress(context.Background(), opts) })
			require.NoError(t, err)
			require.Contains(t, out, "Architecture: "+arch)
			require.Contains(t, out, "Operations:   4,000")
			require.Contains(t, out, "Integrity:    OK")
			require.Contains(t, out, "Pages mapped:")
		})
	}
}

func TestStressCommandJSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	stressFlags.arch = "coalescing"
	stressFlags.validate = true

	opts, err := workloadOptions()
	require.NoError(t, err)
	out, err := captureOutput(t, func() error { return runStress(context.Background(), opts) })
	require.NoError(t, err)

	var rep workload.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Equal(t, alloc.Coalescing, rep.Architecture)
	require.Equal(t, int64(4000), rep.Ops)
	require.Equal(t, rep.Stats.Allocs, rep.Stats.Frees)
}

func TestStressRejectsUnknownArch(t *testing.T) {
	resetFlags(t)
	stressFlags.arch = "buddy"

	_, err := workloadOptions()
	require.ErrorContains(t, err, "buddy")
}

func finishedJob(t *testing.T) (*workload.Job, workload.Report) {
	t.Helper()
	resetFlags(t)
	opts, err := workloadOptions()
	require.NoError(t, err)

	job, err := workload.Start(context.Background(), opts)
	require.NoError(t, err)
	rep, err := job.Wait()
	require.NoError(t, err)
	return job, rep
}

func get(handler fasthttp.RequestHandler, method, path string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	handler(ctx)
	return ctx
}

func TestStatsHandler(t *testing.T) {
	job, rep := finishedJob(t)
	h := statsHandler(job)

	ctx := get(h, fasthttp.MethodGet, "/stats")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	require.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	var s alloc.Stats
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &s))
	require.Equal(t, rep.Stats, s)

	ctx = get(h, fasthttp.MethodGet, "/progress")
	var p progressBody
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &p))
	require.Equal(t, rep.RunID, p.RunID)
	require.Equal(t, p.Total, p.Done)

	ctx = get(h, fasthttp.MethodGet, "/healthz")
	require.Equal(t, "ok", string(ctx.Response.Body()))

	ctx = get(h, fasthttp.MethodGet, "/missing")
	require.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())

	ctx = get(h, fasthttp.MethodPost, "/stats")
	require.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())
}

func TestServeStats(t *testing.T) {
	job, _ := finishedJob(t)

	srv, addr, err := serveStats("127.0.0.1:0", job)
	require.NoError(t, err)
	defer srv.Shutdown()

	status, body, err := fasthttp.GetTimeout(nil, "http://"+addr+"/healthz", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, fasthttp.StatusOK, status)
	require.Equal(t, "ok", string(body))
}

func TestTopModel(t *testing.T) {
	job, rep := finishedJob(t)
	canceled := false
	m := newTopModel(job, func() { canceled = true })
	require.NotNil(t, m.Init())

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(topModel)
	require.NotNil(t, cmd, "ticks continue while running")
	require.Equal(t, rep.Ops, m.done)

	next, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	m = next.(topModel)
	require.Equal(t, 36, m.bar.Width)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(topModel)
	require.True(t, canceled)
	require.Contains(t, m.View(), "stopping...")

	next, cmd = m.Update(jobDoneMsg{report: rep})
	m = next.(topModel)
	require.NotNil(t, cmd)
	require.True(t, m.finished)

	view := m.View()
	require.Contains(t, view, "hmalloc top")
	require.Contains(t, view, "Allocs:")
	require.Contains(t, view, "done")

	_, cmd = m.Update(tickMsg(time.Now()))
	require.Nil(t, cmd, "no ticks after the job ends")
}
