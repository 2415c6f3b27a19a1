package main

import (
	"net"

	"github.com/valyala/fasthttp"

	"github.com/joshuapare/hmalloc/internal/logger"
	"github.com/joshuapare/hmalloc/internal/workload"
)

type progressBody struct {
	RunID string `json:"run_id"`
	Done  int64  `json:"done"`
	Total int64  `json:"total"`
}

// statsHandler serves a running job's counters.
//
//	GET /stats     allocator counters
//	GET /progress  completed and total operations
//	GET /healthz   liveness
func statsHandler(job *workload.Job) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !ctx.IsGet() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		switch string(ctx.Path()) {
		case "/stats":
			writeJSON(ctx, job.Stats())
		case "/progress":
			done, total := job.Progress()
			writeJSON(ctx, progressBody{RunID: job.ID.String(), Done: done, Total: total})
		case "/healthz":
			ctx.SetBodyString("ok")
		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

// serveStats starts the counters endpoint and returns the bound address.
func serveStats(addr string, job *workload.Job) (*fasthttp.Server, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}
	srv := &fasthttp.Server{
		Handler: statsHandler(job),
		Name:    "hmallocctl",
	}
	go func() {
		if err := srv.Serve(ln); err != nil {
			logger.Warn("stats server stopped", "error", err)
		}
	}()
	return srv, ln.Addr().String(), nil
}
