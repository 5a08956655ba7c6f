package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

// Routes holds the handler set mounted by the API server.
type Routes struct {
	State       http.HandlerFunc
	Stream      http.HandlerFunc
	ListModels  http.HandlerFunc
	CreateModel http.HandlerFunc
	UpdateModel http.HandlerFunc
	ToggleModel http.HandlerFunc
	Trades      http.HandlerFunc
	Runs        http.HandlerFunc
	Signals     http.HandlerFunc
}

// StartServer runs the HTTP API until SIGINT/SIGTERM, then shuts down
// gracefully.
func StartServer(port string, routes *Routes) {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", routes.State)
		r.Get("/stream", routes.Stream)
		r.Get("/trades", routes.Trades)
		r.Get("/runs", routes.Runs)
		r.Get("/signals", routes.Signals)

		r.Get("/models", routes.ListModels)
		r.Post("/models", routes.CreateModel)
		r.Put("/models/{id}", routes.UpdateModel)
		r.Post("/models/{id}/toggle", routes.ToggleModel)
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
