package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/groundsight/prospector/internal/gauntlet"
	"github.com/groundsight/prospector/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for qualification requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initGauntlet(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		r.Post("/webhook/gauntlet", gauntletWebhookHandler(ctx, env.Store, env.Runner.Run))

		r.Post("/webhook/refresh", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				DaysOld int `json:"days_old"`
				Limit   int `json:"limit"`
			}
			if req.ContentLength > 0 {
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
					return
				}
			}

			daysOld := body.DaysOld
			if daysOld <= 0 {
				daysOld = cfg.Refresh.DaysOld
			}
			limit := body.Limit
			if limit <= 0 {
				limit = cfg.Refresh.Limit
			}

			summary, err := env.Refresher.Refresh(req.Context(), daysOld, limit)
			if err != nil {
				zap.L().Error("webhook refresh failed", zap.Error(err))
				http.Error(w, `{"error":"refresh failed"}`, http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(summary)
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
			// Fresh context so in-flight requests can drain after the
			// signal context is already cancelled.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// gauntletWebhookHandler accepts a qualification request and dispatches the
// run asynchronously; the caller only gets an acknowledgement. Dispatched
// runs are detached from baseCtx so server shutdown does not abort them.
func gauntletWebhookHandler(baseCtx context.Context, st store.Store, run gauntlet.RunFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			CompanyNumber string `json:"company_number"`
			ProspectID    string `json:"prospect_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		if body.CompanyNumber == "" && body.ProspectID == "" {
			http.Error(w, `{"error":"company_number or prospect_id is required"}`, http.StatusBadRequest)
			return
		}

		companyNumber, err := resolveCompanyNumber(req.Context(), st, body.CompanyNumber, body.ProspectID)
		if err != nil {
			http.Error(w, `{"error":"prospect not found"}`, http.StatusNotFound)
			return
		}

		runCtx := context.WithoutCancel(baseCtx)
		go func() {
			result, err := run(runCtx, companyNumber)
			if err != nil {
				zap.L().Error("webhook gauntlet failed",
					zap.String("company_number", companyNumber),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("webhook gauntlet complete",
				zap.String("company_number", result.CompanyNumber),
				zap.Int("score", result.Score),
				zap.String("tier", string(result.Tier)),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"status":         "accepted",
			"company_number": companyNumber,
		})
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
