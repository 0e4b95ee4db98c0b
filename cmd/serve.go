package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/internal/runner"
	"github.com/sells-group/variance-cli/internal/store"
	"github.com/sells-group/variance-cli/internal/table"
)

// maxUploadBytes caps multipart uploads to the dashboard API.
const maxUploadBytes = 32 << 20 // 32 MiB

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long:  "Serves analysis uploads and run history over HTTP for the variance dashboard.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		r, err := runner.New(cfg, initAnthropicClient())
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(r, st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the dashboard API routes.
func newRouter(r *runner.Runner, st store.Store) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Route("/api", func(api chi.Router) {
		api.Post("/analyze", handleAnalyze(r, st))
		api.Get("/runs", handleListRuns(st))
		api.Get("/runs/{id}", handleGetRun(st))
	})

	return mux
}

// handleAnalyze accepts a multipart CSV/XLSX upload, runs the full pipeline,
// persists the run, and returns it.
func handleAnalyze(r *runner.Runner, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)

		file, header, err := req.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
			return
		}
		defer file.Close() //nolint:errcheck

		tbl, err := saveAndLoadUpload(file, header.Filename)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		run, err := r.AnalyzeTable(req.Context(), header.Filename, tbl)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		if err := st.SaveRun(req.Context(), run); err != nil {
			zap.L().Error("save uploaded run", zap.String("source", run.Source), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to persist run")
			return
		}

		writeJSON(w, http.StatusCreated, run)
	}
}

// handleListRuns lists persisted runs, filtered by query parameters.
func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		runs, err := st.ListRuns(req.Context(), store.RunFilter{
			Source: q.Get("source"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			zap.L().Error("list runs", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"runs":  runs,
			"count": len(runs),
		})
	}
}

// handleGetRun returns one persisted run by ID.
func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")

		run, err := st.GetRun(req.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			zap.L().Error("get run", zap.String("id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load run")
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}

// saveAndLoadUpload spools an upload to disk so the XLSX reader can seek,
// then parses it with the same loader the CLI uses.
func saveAndLoadUpload(file io.Reader, name string) (analysis.Table, error) {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(name))
	if err != nil {
		return analysis.Table{}, eris.Wrap(err, "serve: spool upload")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	defer tmp.Close()           //nolint:errcheck

	if _, err := io.Copy(tmp, file); err != nil {
		return analysis.Table{}, eris.Wrap(err, "serve: spool upload")
	}

	return table.ReadFile(tmp.Name())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
