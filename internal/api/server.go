package api

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"TrendMint/internal/auth"
	"TrendMint/internal/cache"
	"TrendMint/internal/engage"
	"TrendMint/internal/launch"
	"TrendMint/internal/minter"
	"TrendMint/internal/web3"
)

// Server 负责暴露 REST 接口，供外部提交发射任务并查看运行状态。
type Server struct {
	addr     string
	launches *launch.Service
	store    cache.Store
	chain    web3.Client
	engager  *engage.Engager
	auth     *auth.Service
}

// ServerOption 配置可选依赖。
type ServerOption func(*Server)

// WithCacheStore 提供已发射代币与追踪记录的缓存。
func WithCacheStore(store cache.Store) ServerOption {
	return func(s *Server) { s.store = store }
}

// WithChainClient 提供链上状态查询能力。
func WithChainClient(client web3.Client) ServerOption {
	return func(s *Server) { s.chain = client }
}

// WithEngager 提供互动流程的统计信息。
func WithEngager(engager *engage.Engager) ServerOption {
	return func(s *Server) { s.engager = engager }
}

// WithAuthService 启用 API key 校验。
func WithAuthService(svc *auth.Service) ServerOption {
	return func(s *Server) { s.auth = svc }
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, launches *launch.Service, opts ...ServerOption) *Server {
	s := &Server{addr: addr, launches: launches}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回完整的路由处理器。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/launches", s.handleLaunches)
	mux.HandleFunc("/api/v1/launches/", s.handleLaunchDetail)
	mux.HandleFunc("/api/v1/tokens", s.handleTokens)
	mux.HandleFunc("/api/v1/status", s.handleStatus)

	var handler http.Handler = mux
	if s.auth != nil {
		handler = s.auth.Middleware(auth.MiddlewareConfig{AuditEvent: "api"})(handler)
	}
	return handler
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleLaunches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateLaunch(w, r)
	case http.MethodGet:
		s.handleListLaunches(w, r)
	default:
		http.Error(w, "仅支持 GET/POST", http.StatusMethodNotAllowed)
	}
}

type createLaunchRequest struct {
	ID    string `json:"id,omitempty"`
	Trend string `json:"trend,omitempty"`
}

func (s *Server) handleCreateLaunch(w http.ResponseWriter, r *http.Request) {
	if s.launches == nil {
		http.Error(w, "发射服务未初始化", http.StatusServiceUnavailable)
		return
	}

	var req createLaunchRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "请求体解析失败", http.StatusBadRequest)
			return
		}
	}

	created, err := s.launches.Submit(r.Context(), launch.SubmitRequest{ID: req.ID, Trend: req.Trend})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, created)
}

func (s *Server) handleListLaunches(w http.ResponseWriter, r *http.Request) {
	if s.launches == nil {
		http.Error(w, "发射服务未初始化", http.StatusServiceUnavailable)
		return
	}

	opts := make([]launch.ListOption, 0, 3)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			opts = append(opts, launch.WithLimit(parsed))
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			opts = append(opts, launch.WithOffset(parsed))
		}
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		statuses := make([]launch.Status, 0, 2)
		for _, item := range strings.Split(raw, ",") {
			status := launch.Status(strings.TrimSpace(item))
			if launch.IsValidStatus(status) {
				statuses = append(statuses, status)
			}
		}
		if len(statuses) > 0 {
			opts = append(opts, launch.WithStatuses(statuses...))
		}
	}

	launches, err := s.launches.List(r.Context(), opts...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, launches)
}

func (s *Server) handleLaunchDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.launches == nil {
		http.Error(w, "发射服务未初始化", http.StatusServiceUnavailable)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/launches/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "缺少发射任务 ID", http.StatusBadRequest)
		return
	}

	result, err := s.launches.Get(r.Context(), id)
	if err != nil {
		if stdErrors.Is(err, launch.ErrLaunchNotFound) {
			http.Error(w, "发射任务不存在", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "缓存未初始化", http.StatusServiceUnavailable)
		return
	}

	raw, err := s.store.ListJSON(r.Context(), cache.KeyLaunchedTokens)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	tokens := make([]minter.Launched, 0, len(raw))
	for _, item := range raw {
		var launched minter.Launched
		if err := json.Unmarshal(item, &launched); err != nil {
			continue
		}
		tokens = append(tokens, launched)
	}
	writeJSON(w, http.StatusOK, tokens)
}

type statusResponse struct {
	Launches *launch.LaunchStats `json:"launches,omitempty"`
	Engage   *engage.Stats       `json:"engage,omitempty"`
	Chain    *web3.ChainSnapshot `json:"chain,omitempty"`
	ChainErr string              `json:"chain_error,omitempty"`
	Time     int64               `json:"time"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{Time: time.Now().Unix()}
	if s.launches != nil {
		if stats, err := s.launches.Stats(r.Context()); err == nil {
			resp.Launches = &stats
		}
	}
	if s.engager != nil {
		stats := s.engager.Stats()
		resp.Engage = &stats
	}
	if s.chain != nil {
		snapshot, err := s.chain.FetchChainSnapshot(r.Context())
		if err != nil {
			resp.ChainErr = err.Error()
		} else {
			resp.Chain = &snapshot
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
