package gateway

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"prismgw/prism/pkg/analysis/costs"
	"prismgw/prism/pkg/analysis/perf"
	"prismgw/prism/pkg/analysis/tokens"
	"prismgw/prism/pkg/calllog"
	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/gateway/middleware"
	"prismgw/prism/pkg/providers"
)

// completion runs the full request pipeline for one completion endpoint:
// parse, route, estimate, translate, dispatch, extract actuals, record.
func (g *Gateway) completion(client dialect.Dialect, endpoint string, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	requestID := middleware.GetRequestID(ctx)

	if r.Method != http.MethodPost {
		writeDialectError(w, client, http.StatusMethodNotAllowed, "invalid_request_error",
			fmt.Sprintf("method %s not allowed, use POST", r.Method))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeDialectError(w, client, http.StatusBadRequest, "invalid_request_error", "failed to read request body")
		return
	}

	req, err := dialect.ParseRequest(client, body)
	if err != nil {
		g.logger.Warn("rejecting unparseable request",
			"request_id", requestID,
			"endpoint", endpoint,
			"error", err,
		)
		writeDialectError(w, client, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	log := &calllog.CallLog{
		Timestamp:   start,
		Model:       req.Model,
		Endpoint:    endpoint,
		Method:      r.Method,
		ClientIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
		UserID:      r.Header.Get(UserIDHeader),
		SessionID:   r.Header.Get(SessionIDHeader),
		ProxyUsed:   g.proxyUsed,
		Streaming:   req.Stream,
		RequestBody: string(body),
	}

	provider, err := g.selectProvider(r, req.Model)
	if err != nil {
		// Nothing happened upstream, so no call log is written: an
		// unroutable model would pollute the provider-grouped views.
		g.logger.Warn("no provider for request",
			"request_id", requestID,
			"model", req.Model,
			"error", err,
		)
		status, errType := mapUpstreamError(err)
		writeDialectError(w, client, status, errType, err.Error())
		return
	}
	log.Provider = provider.GetName()
	defer g.record(log)
	mode := dialect.ModeFor(client, provider.Dialect())

	// Estimated track, computed before dispatch. The completion estimate
	// assumes the request's max_tokens ceiling for the cost calculation.
	log.EstimatedPromptTokens = g.counter.CountMessages(req.Messages, req.Model)
	log.EstimatedCompletionTokens = req.MaxTokens
	log.EstimatedCost = costs.Calculate(req.Model, log.EstimatedPromptTokens, log.EstimatedCompletionTokens).Total

	if usage := tokens.ContextUsage(req.Model, log.EstimatedPromptTokens+req.MaxTokens); usage >= 1.0 {
		g.logger.Warn("request may exceed model context window",
			"request_id", requestID,
			"model", req.Model,
			"context_window", tokens.ContextWindow(req.Model),
			"estimated_tokens", log.EstimatedPromptTokens+req.MaxTokens,
		)
	}

	if g.estimator != nil {
		est := g.estimator.Estimate(req.Messages, req.Model)
		log.EstimatedCachedTokens = est.CachedTokens
		log.EstimatedFreshTokens = est.FreshTokens
		log.EstimatedCacheHitRate = est.HitRate
		g.metrics.RecordCacheEstimate(req.Model, est.HitRate)
	}

	upstreamBody, err := dialect.TranslateRequest(mode, body)
	if err != nil {
		log.Error = err.Error()
		log.StatusCode = http.StatusBadRequest
		writeDialectError(w, client, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	g.logger.Info("dispatching completion request",
		"request_id", requestID,
		"provider", provider.GetName(),
		"model", req.Model,
		"mode", mode,
		"stream", req.Stream,
	)

	if req.Stream {
		g.streamCompletion(w, r, client, provider, mode, req, upstreamBody, log, start)
		return
	}

	call, err := provider.Send(ctx, upstreamBody)
	if err != nil {
		status, errType := mapUpstreamError(err)
		log.Error = err.Error()
		log.StatusCode = status
		log.TotalLatencyMs = time.Since(start).Milliseconds()
		g.metrics.RecordRequest(provider.GetName(), req.Model, "error", time.Since(start), 0, 0)
		g.metrics.RecordProviderError(provider.GetName(), errType)
		writeDialectError(w, client, status, errType, err.Error())
		return
	}
	end := time.Now()

	a := calllog.ExtractActuals(provider.Dialect(), call.ResponseBody)
	g.applyActuals(log, req.Model, a)

	if g.analysis.EnablePerformanceTracking {
		// Non-streaming responses arrive whole, so TTFT equals the total.
		pa := perf.NonStreaming(start, end)
		log.TTFTMs = pa.TTFTMs
		log.TotalLatencyMs = pa.TotalLatencyMs
	} else {
		log.TotalLatencyMs = end.Sub(start).Milliseconds()
	}

	respBody, err := dialect.TranslateResponse(mode, call.ResponseBody)
	if err != nil {
		log.Error = err.Error()
		log.StatusCode = http.StatusBadGateway
		g.metrics.RecordRequest(provider.GetName(), req.Model, "error", end.Sub(start), 0, 0)
		writeDialectError(w, client, http.StatusBadGateway, "api_error", "failed to translate upstream response")
		return
	}

	log.Success = true
	log.StatusCode = call.StatusCode
	log.ResponseBody = string(call.ResponseBody)
	log.ResponseSize = len(respBody)
	writeRaw(w, http.StatusOK, respBody)

	g.metrics.RecordRequest(provider.GetName(), req.Model, "success", end.Sub(start), a.TotalTokens, log.ActualCost)
	g.metrics.RecordTokens(provider.GetName(), req.Model, a.PromptTokens, a.CompletionTokens)
}

// streamCompletion relays an upstream SSE stream to the client, timing
// each chunk and translating frames between dialects as they pass.
func (g *Gateway) streamCompletion(w http.ResponseWriter, r *http.Request, client dialect.Dialect, provider providers.Provider, mode dialect.Mode, req *dialect.Request, upstreamBody []byte, log *calllog.CallLog, start time.Time) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error = "streaming unsupported by connection"
		log.StatusCode = http.StatusInternalServerError
		writeDialectError(w, client, http.StatusInternalServerError, "server_error",
			"streaming is not supported on this connection")
		return
	}

	sr, err := provider.OpenStream(ctx, upstreamBody)
	if err != nil {
		status, errType := mapUpstreamError(err)
		log.Error = err.Error()
		log.StatusCode = status
		log.TotalLatencyMs = time.Since(start).Milliseconds()
		g.metrics.RecordRequest(provider.GetName(), req.Model, "error", time.Since(start), 0, 0)
		g.metrics.RecordProviderError(provider.GetName(), errType)
		writeDialectError(w, client, status, errType, err.Error())
		return
	}
	defer sr.Close()

	setSSEHeaders(w)
	flusher.Flush()

	upstream := provider.Dialect()
	tracker := perf.NewTracker(start)
	var frames []string
	var output strings.Builder

	clientGone := false
	upstreamFailed := false
	doneSent := false

	for {
		ev, err := sr.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				// Client went away; the partial output still counts as a
				// successful call.
				clientGone = true
				break
			}
			upstreamFailed = true
			log.Error = err.Error()
			_ = writeSSEFrame(w, flusher, dialect.ErrorFrame(client, "upstream stream failed"))
			break
		}

		if ev.Data == dialect.DoneFrame {
			// Upstream terminator. Translate it (passthrough keeps [DONE],
			// Anthropic clients get message_stop) and stop reading.
			out, terr := dialect.TranslateStreamFrame(mode, ev.Data)
			if terr == nil {
				for _, f := range out {
					if writeSSEFrame(w, flusher, f) != nil {
						clientGone = true
						break
					}
					if f == dialect.DoneFrame {
						doneSent = true
					}
				}
			}
			break
		}

		tracker.Observe(ev.At)
		frames = append(frames, ev.Data)
		output.WriteString(dialect.DeltaText(upstream, ev.Data))

		out, terr := dialect.TranslateStreamFrame(mode, ev.Data)
		if terr != nil {
			g.logger.Warn("failed to translate stream frame",
				"request_id", requestID,
				"error", terr,
			)
			continue
		}
		aborted := false
		for _, f := range out {
			if writeSSEFrame(w, flusher, f) != nil {
				clientGone = true
				aborted = true
				break
			}
		}
		if aborted {
			break
		}
	}

	// OpenAI-dialect streams always terminate with [DONE], including after
	// an in-band error frame.
	if client == dialect.OpenAI && !doneSent && !clientGone {
		_ = writeSSEFrame(w, flusher, dialect.DoneFrame)
	}

	end := time.Now()

	a := calllog.ExtractStreamActuals(upstream, frames)
	if a.CompletionTokens == 0 && output.Len() > 0 {
		// Upstream reported no usage; fall back to counting the streamed
		// text ourselves.
		a.CompletionTokens = g.counter.Count(output.String(), req.Model)
		a.TotalTokens = a.PromptTokens + a.CompletionTokens
	}
	g.applyActuals(log, req.Model, a)

	if g.analysis.EnablePerformanceTracking {
		pa := tracker.Analyze(a.CompletionTokens)
		log.TTFTMs = pa.TTFTMs
		log.TPOTMs = pa.TPOTMs
		log.TokensPerSecond = pa.TokensPerSecond
		log.TotalLatencyMs = pa.TotalLatencyMs
	}
	if log.TotalLatencyMs == 0 {
		log.TotalLatencyMs = end.Sub(start).Milliseconds()
	}

	log.Success = !upstreamFailed
	log.StatusCode = sr.Meta().StatusCode
	log.ResponseBody = strings.Join(frames, "\n")
	log.ResponseSize = len(log.ResponseBody)

	status := "success"
	if upstreamFailed {
		status = "error"
	}
	g.metrics.RecordRequest(provider.GetName(), req.Model, status, end.Sub(start), a.TotalTokens, log.ActualCost)
	g.metrics.RecordTokens(provider.GetName(), req.Model, a.PromptTokens, a.CompletionTokens)
	if log.TTFTMs != nil {
		g.metrics.RecordTTFT(provider.GetName(), req.Model, time.Duration(*log.TTFTMs)*time.Millisecond)
	}

	g.logger.Info("streaming completion finished",
		"request_id", requestID,
		"provider", provider.GetName(),
		"model", req.Model,
		"chunks", tracker.ChunkCount(),
		"client_cancelled", clientGone,
		"upstream_failed", upstreamFailed,
		"total_latency_ms", log.TotalLatencyMs,
	)
}

// applyActuals copies upstream-reported usage onto the call log and
// records the cache prediction error when both tracks measured a rate.
func (g *Gateway) applyActuals(log *calllog.CallLog, model string, a calllog.Actuals) {
	log.ActualPromptTokens = a.PromptTokens
	log.ActualCompletionTokens = a.CompletionTokens
	log.ActualTotalTokens = a.TotalTokens
	log.ActualCost = costs.Calculate(model, a.PromptTokens, a.CompletionTokens).Total
	log.ActualCacheHitRate = a.CacheHitRate

	if a.CacheHitRate != nil && g.estimator != nil {
		g.metrics.RecordCachePredictionError(model, math.Abs(*a.CacheHitRate-log.EstimatedCacheHitRate))
	}
}

// ProviderHeader names a provider explicitly, overriding model-prefix
// routing.
const ProviderHeader = "X-Prism-Provider"

// UserIDHeader and SessionIDHeader carry optional caller context that is
// stored alongside the call log.
const (
	UserIDHeader    = "X-User-ID"
	SessionIDHeader = "X-Session-ID"
)

// selectProvider resolves the upstream provider: an explicit header
// override wins, otherwise routing goes by model prefix.
func (g *Gateway) selectProvider(r *http.Request, model string) (providers.Provider, error) {
	if name := r.Header.Get(ProviderHeader); name != "" {
		return g.selector.SelectByName(name)
	}
	return g.selector.SelectByModel(model)
}

// clientIP extracts the client address, honoring X-Forwarded-For from a
// fronting proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}
