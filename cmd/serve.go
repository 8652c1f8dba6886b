package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bluereef-labs/mpagent/internal/model"
	"github.com/bluereef-labs/mpagent/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/documents", func(w http.ResponseWriter, req *http.Request) {
			file, header, err := req.FormFile("file")
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
				return
			}
			defer file.Close()

			tmpPath, err := spoolUpload(file, header.Filename)
			if err != nil {
				zap.L().Error("upload spool failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
				return
			}

			// The document is registered up front so the client gets an id
			// to poll; analysis runs asynchronously.
			doc, err := env.Runner.Register(req.Context(), header.Filename)
			if err != nil {
				zap.L().Error("document registration failed", zap.Error(err))
				os.Remove(tmpPath)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register document"})
				return
			}

			go func() {
				defer os.Remove(tmpPath)
				result, err := env.Runner.Process(ctx, doc, tmpPath)
				if err != nil {
					zap.L().Error("analysis failed",
						zap.String("document", doc.ID),
						zap.String("filename", header.Filename),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("analysis finished",
					zap.String("document", result.DocumentID),
					zap.String("status", string(result.Status)),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"id":       doc.ID,
				"status":   string(doc.Status),
				"filename": header.Filename,
			})
		})

		r.Get("/documents", func(w http.ResponseWriter, req *http.Request) {
			docs, err := env.Store.ListDocuments(req.Context(), store.DocumentFilter{
				Status: model.DocumentStatus(req.URL.Query().Get("status")),
			})
			if err != nil {
				zap.L().Error("list documents failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list failed"})
				return
			}
			writeJSON(w, http.StatusOK, docs)
		})

		r.Get("/documents/{id}/status", func(w http.ResponseWriter, req *http.Request) {
			doc, err := env.Store.GetDocument(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{
				"id":     doc.ID,
				"status": string(doc.Status),
			})
		})

		r.Get("/documents/{id}", func(w http.ResponseWriter, req *http.Request) {
			result, err := env.Store.GetResult(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	zap.L().Error("store read failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func spoolUpload(file io.Reader, filename string) (string, error) {
	tmp, err := os.CreateTemp("", "mpagent-*"+filepath.Ext(filename))
	if err != nil {
		return "", eris.Wrap(err, "create temp upload")
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", eris.Wrap(err, "write temp upload")
	}
	return tmp.Name(), nil
}
