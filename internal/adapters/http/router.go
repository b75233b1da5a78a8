// Package httpadapter exposes the REST surface of the backend: auth,
// skin check upload and polling, chat relay and stored image serving.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dermadoc/backend/internal/core/ports"
	"github.com/dermadoc/backend/internal/observability/metrics"
)

type Router struct {
	submitUC ports.CheckSubmitter
	queryUC  ports.CheckQueryService
	authUC   ports.AuthService
	chatUC   ports.ChatService
	store    ports.ImageStore

	metrics     *metrics.HTTPServerMetrics
	serviceName string

	rateLimitRPS   float64
	rateLimitBurst int
	maxConcurrent  int
}

type RouterDeps struct {
	SubmitUC ports.CheckSubmitter
	QueryUC  ports.CheckQueryService
	AuthUC   ports.AuthService
	ChatUC   ports.ChatService
	Store    ports.ImageStore

	Metrics     *metrics.HTTPServerMetrics
	ServiceName string

	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
}

func NewRouter(deps RouterDeps) *Router {
	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "api"
	}
	return &Router{
		submitUC:       deps.SubmitUC,
		queryUC:        deps.QueryUC,
		authUC:         deps.AuthUC,
		chatUC:         deps.ChatUC,
		store:          deps.Store,
		metrics:        deps.Metrics,
		serviceName:    serviceName,
		rateLimitRPS:   deps.RateLimitRPS,
		rateLimitBurst: deps.RateLimitBurst,
		maxConcurrent:  deps.MaxConcurrent,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("/api/auth/signup", rt.signup)
	mux.HandleFunc("/api/auth/login", rt.login)
	mux.HandleFunc("/api/auth/me", rt.requireAuth(rt.me))

	mux.HandleFunc("/api/skin-checks", rt.requireAuth(rt.listChecks))
	mux.HandleFunc("/api/skin-checks/upload", rt.requireAuth(rt.uploadCheck))
	mux.HandleFunc("/api/skin-checks/export", rt.requireAuth(rt.exportChecks))
	mux.HandleFunc("/api/skin-checks/", rt.requireAuth(rt.checkByID))

	mux.HandleFunc("/api/chat/sync", rt.requireAuth(rt.chatSync))
	mux.HandleFunc("/api/storage/", rt.requireAuth(rt.serveStoredImage))

	var handler http.Handler = mux
	if rt.maxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.maxConcurrent, 50*time.Millisecond)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
