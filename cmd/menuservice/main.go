package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sashabaranov/go-openai"

	"menuclassify/internal/classify/coordinator"
	"menuclassify/internal/classify/keyword"
	"menuclassify/internal/classify/llmclient"
	"menuclassify/internal/classify/vectorindex"
	"menuclassify/internal/menu/parser"
	"menuclassify/internal/prompts"
	"menuclassify/internal/review"
	"menuclassify/internal/review/reconciler"
	"menuclassify/internal/review/store"
	"menuclassify/pkg/config"
	"menuclassify/pkg/container"
	"menuclassify/pkg/database"
	errs "menuclassify/pkg/errors"
	"menuclassify/pkg/logging"
	"menuclassify/pkg/metrics"
)

func main() {
	c := container.New()

	_ = c.Provide(func() *config.Config { return config.Load() }, true)

	_ = c.Provide(func(cfg *config.Config) (*logging.Logger, error) {
		return logging.NewLogger(logging.LogConfig{
			Level:       parseLogLevel(cfg.LogLevel),
			Format:      cfg.LogFormat,
			Output:      "stdout",
			EnableFile:  cfg.EnableFileLogging,
			FilePath:    cfg.LogFile,
			EnableAsync: true,
		})
	}, true)

	_ = c.Provide(func(cfg *config.Config) (*database.DB, error) {
		return database.NewWithConfig(cfg.DatabaseURL, cfg)
	}, true)

	_ = c.Provide(func(cfg *config.Config) *openai.Client {
		return openai.NewClient(cfg.OpenAIAPIKey)
	}, true)

	_ = c.Provide(func(cfg *config.Config) (*prompts.Manager, error) {
		return prompts.NewManager(cfg.PromptDir)
	}, true)

	_ = c.Provide(func(cfg *config.Config) (*keyword.Engine, error) {
		return keyword.NewEngine(cfg.KeywordDictDir)
	}, true)

	_ = c.Provide(func(db *database.DB, api *openai.Client, cfg *config.Config, log *logging.Logger) *vectorindex.Index {
		embedder := vectorindex.NewOpenAIEmbedder(api, cfg.EmbeddingModel)
		return vectorindex.New(db, embedder, cfg.VectorIndexSeedPath, log)
	}, true)

	_ = c.Provide(func(api *openai.Client, pm *prompts.Manager, cfg *config.Config, log *logging.Logger) *llmclient.Client {
		return llmclient.New(api, pm, cfg.OpenAIModel, cfg.OpenAITimeout, log)
	}, true)

	_ = c.Provide(func(idx *vectorindex.Index, llm *llmclient.Client, kw *keyword.Engine, cfg *config.Config, log *logging.Logger) *coordinator.Coordinator {
		return coordinator.New(idx, llm, kw, coordinator.Config{
			EvidenceTopK:        cfg.VectorIndexTopK,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			WorkerBudget:        cfg.CoordinatorWorkerBudget,
		}, log)
	}, true)

	_ = c.Provide(func(log *logging.Logger) *store.Store { return store.New(log) }, true)

	_ = c.Provide(func(s *store.Store, log *logging.Logger) *reconciler.Reconciler { return reconciler.New(s, log) }, true)

	var cfg *config.Config
	if err := c.Resolve(&cfg); err != nil {
		log.Fatal("config resolve:", err)
	}

	var appLog *logging.Logger
	if err := c.Resolve(&appLog); err != nil {
		log.Fatal("logger resolve:", err)
	}
	defer appLog.Close()

	var (
		coord *coordinator.Coordinator
		recon *reconciler.Reconciler
		revSt *store.Store
	)
	if err := c.Resolve(&coord); err != nil {
		log.Fatal("coordinator resolve:", err)
	}
	if err := c.Resolve(&recon); err != nil {
		log.Fatal("reconciler resolve:", err)
	}
	if err := c.Resolve(&revSt); err != nil {
		log.Fatal("review store resolve:", err)
	}

	app := &App{coordinator: coord, reconciler: recon, reviewStore: revSt, log: appLog}

	router := mux.NewRouter()
	router.HandleFunc("/v1/menu/classify", app.classifyHandler).Methods("POST")
	router.HandleFunc("/v1/menu/review", app.reviewHandler).Methods("POST")

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	var adminServer *http.Server
	if cfg.MetricsEnabled {
		adminMux := http.NewServeMux()
		adminMux.Handle(cfg.MetricsPath, metrics.Handler())
		adminServer = &http.Server{Addr: ":" + cfg.MetricsPort, Handler: adminMux}
		go func() {
			appLog.Info("metrics server starting", logging.String("port", cfg.MetricsPort))
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.Error("metrics server error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		appLog.Info("shutdown signal received")
		cancel()
	}()

	cw := config.NewWatcher(time.Duration(cfg.ConfigReloadIntervalSeconds) * time.Second)
	cw.Start()
	chgCh := cw.Subscribe()
	go func() {
		for chg := range chgCh {
			if chg.Err != nil {
				appLog.Error("config reload failed", chg.Err)
				continue
			}
			appLog.Info("config reloaded", logging.String("fields", strings.Join(chg.Fields, ",")))
		}
	}()

	go func() {
		appLog.Info("menu service starting", logging.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error:", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown error", err)
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			appLog.Error("metrics server shutdown error", err)
		}
	}
	appLog.Info("menu service shutdown complete")
}

func parseLogLevel(s string) logging.LogLevel {
	switch strings.ToLower(s) {
	case "trace":
		return logging.LevelTrace
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// App holds the request-scoped HTTP handlers' collaborators.
type App struct {
	coordinator *coordinator.Coordinator
	reconciler  *reconciler.Reconciler
	reviewStore *store.Store
	log         *logging.Logger
}

type classifyRequest struct {
	RequestID string   `json:"request_id"`
	OCRTexts  []string `json:"ocr_texts"`
}

type vegetarianItemResponse struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type uncertainItemResponse struct {
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

type finalResponse struct {
	Status          string                   `json:"status"`
	RequestID       string                   `json:"request_id"`
	VegetarianItems []vegetarianItemResponse `json:"vegetarian_items"`
	TotalSum        float64                  `json:"total_sum"`
}

type needsReviewResponse struct {
	Status         string                   `json:"status"`
	RequestID      string                   `json:"request_id"`
	ConfidentItems []vegetarianItemResponse `json:"confident_items"`
	UncertainItems []uncertainItemResponse  `json:"uncertain_items"`
	PartialSum     float64                  `json:"partial_sum"`
}

func (app *App) classifyHandler(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.NewImageValidation("classifyHandler", "malformed request body", err))
		return
	}

	if len(req.OCRTexts) < 1 || len(req.OCRTexts) > 5 {
		writeError(w, errs.NewImageValidation("classifyHandler", "expected between 1 and 5 OCR texts", nil))
		return
	}

	hasText := false
	for _, t := range req.OCRTexts {
		if strings.TrimSpace(t) != "" {
			hasText = true
			break
		}
	}
	if !hasText {
		writeError(w, errs.NewOCRFailure("classifyHandler", "no non-whitespace OCR text across all images", nil))
		return
	}

	app.log.Debug("parse_start", logging.String("request_id", req.RequestID), logging.Int("ocr_texts", len(req.OCRTexts)))
	items := parser.Parse(req.OCRTexts)
	app.log.Debug("parse_done", logging.String("request_id", req.RequestID), logging.Int("items", len(items)))

	result := app.coordinator.ClassifyBatch(r.Context(), req.RequestID, items)

	switch v := result.(type) {
	case review.Final:
		writeJSON(w, http.StatusOK, toFinalResponse(v))
	case review.NeedsReview:
		app.reviewStore.Put(req.RequestID, review.PendingReview{
			RequestID:      v.RequestID,
			ConfidentItems: v.ConfidentItems,
			UncertainItems: v.UncertainItems,
		})
		writeJSON(w, http.StatusOK, toNeedsReviewResponse(v))
	}
}

type reviewRequest struct {
	RequestID   string            `json:"request_id"`
	Corrections []correctionInput `json:"corrections"`
}

type correctionInput struct {
	Name         string `json:"name"`
	IsVegetarian bool   `json:"is_vegetarian"`
}

func (app *App) reviewHandler(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.NewImageValidation("reviewHandler", "malformed request body", err))
		return
	}

	corrections := make([]reconciler.Correction, len(req.Corrections))
	for i, c := range req.Corrections {
		corrections[i] = reconciler.Correction{Name: c.Name, IsVegetarian: c.IsVegetarian}
	}

	final, err := app.reconciler.Submit(req.RequestID, corrections)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFinalResponse(final))
}

func toFinalResponse(f review.Final) finalResponse {
	items := make([]vegetarianItemResponse, len(f.VegetarianItems))
	for i, it := range f.VegetarianItems {
		items[i] = vegetarianItemResponse{Name: it.Name, Price: it.Price.Float(), Confidence: it.Confidence, Reasoning: it.Reasoning}
	}
	return finalResponse{
		Status:          "final",
		RequestID:       f.RequestID,
		VegetarianItems: items,
		TotalSum:        f.TotalSum.Float(),
	}
}

func toNeedsReviewResponse(n review.NeedsReview) needsReviewResponse {
	confident := make([]vegetarianItemResponse, len(n.ConfidentItems))
	for i, it := range n.ConfidentItems {
		confident[i] = vegetarianItemResponse{Name: it.Name, Price: it.Price.Float(), Confidence: it.Confidence, Reasoning: it.Reasoning}
	}
	uncertain := make([]uncertainItemResponse, len(n.UncertainItems))
	for i, it := range n.UncertainItems {
		uncertain[i] = uncertainItemResponse{Name: it.Name, Price: it.Price.Float(), Confidence: it.Confidence, Evidence: it.Evidence}
	}
	return needsReviewResponse{
		Status:         "needs_review",
		RequestID:      n.RequestID,
		ConfidentItems: confident,
		UncertainItems: uncertain,
		PartialSum:     n.PartialSum.Float(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindImageValidation, errs.KindOCRFailure:
		status = http.StatusBadRequest
	case errs.KindReviewNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
