package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/taxon-cli/internal/dataset"
	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/reconcile"
	"github.com/sells-group/taxon-cli/internal/store"
)

var (
	servePort    int
	serveDataset string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reconciliation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		// The exclusion lists come from a dataset directory when one is given.
		var policy model.ExclusionPolicy
		if serveDataset != "" {
			ds, err := dataset.Load(ctx, serveDataset)
			if err != nil {
				return eris.Wrap(err, "serve: load dataset")
			}
			policy = ds.Policy
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		engine := initEngine(cfg.Search)
		provider, err := initProvider(cfg.Search, engine.Classifier().Taxonomy())
		if err != nil {
			return err
		}
		sink, _, err := initSink(st, cfg.Handoff, false)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(reconcile.New(provider, engine, sink, policy), st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveDataset, "dataset", "", "dataset directory supplying the exclusion lists")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP API over a reconciler and the hand-off store.
func newRouter(rec *reconcile.Reconciler, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/reconcile", func(w http.ResponseWriter, r *http.Request) {
			var req model.TaxonRecord
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if req.ScientificName == "" {
				writeError(w, http.StatusBadRequest, "scientific_name is required")
				return
			}
			writeJSON(w, http.StatusOK, rec.Reconcile(r.Context(), req))
		})

		r.Get("/handoffs", func(w http.ResponseWriter, r *http.Request) {
			status := r.URL.Query().Get("status")
			if err := validHandoffStatus(status); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			hs, err := st.ListHandoffs(r.Context(), store.HandoffFilter{
				Status: model.HandoffStatus(status),
				Limit:  limit,
			})
			if err != nil {
				zap.L().Error("list handoffs failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "list handoffs failed")
				return
			}
			if hs == nil {
				hs = []model.Handoff{}
			}
			writeJSON(w, http.StatusOK, hs)
		})

		r.Post("/handoffs/{id}/submitted", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if err := st.MarkHandoffSubmitted(r.Context(), id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusNotFound, "handoff not found")
					return
				}
				zap.L().Error("mark handoff submitted failed", zap.String("id", id), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "mark submitted failed")
				return
			}
			h, err := st.GetHandoff(r.Context(), id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "load handoff failed")
				return
			}
			writeJSON(w, http.StatusOK, h)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
