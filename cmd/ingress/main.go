package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/smartinv/fulfillment/internal/adapter/queue"
	"github.com/smartinv/fulfillment/internal/config"
	"github.com/smartinv/fulfillment/internal/core/domain"
	"github.com/smartinv/fulfillment/internal/port"
)

// ingress accepts order submissions over HTTP and publishes them as "order
// placed" events. It is the event producer in front of the pipeline;
// authentication is handled upstream.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	publisher := queue.NewKafkaPublisher(cfg.KafkaBrokers)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	h := &ingressHandler{
		publisher:   publisher,
		ordersTopic: cfg.OrdersTopic,
		logger:      logger,
	}
	r.Post("/orders", h.submitOrder)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	server := &http.Server{Addr: cfg.IngressAddr, Handler: r}
	go func() {
		logger.Info("ingress listening", zap.String("addr", cfg.IngressAddr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("ingress server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	publisher.Close()
}

type ingressHandler struct {
	publisher   port.Publisher
	ordersTopic string
	logger      *zap.Logger
}

type submitResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

func (h *ingressHandler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var ev domain.OrderEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Message: "invalid request body"})
		return
	}
	if err := ev.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Message: err.Error()})
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, submitResponse{Message: "internal error"})
		return
	}

	key := strconv.FormatInt(ev.OrderID, 10)
	if err := h.publisher.Publish(r.Context(), h.ordersTopic, []byte(key), payload); err != nil {
		h.logger.Error("failed to publish order", zap.Int64("order_id", ev.OrderID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, submitResponse{Message: "queue unavailable"})
		return
	}

	h.logger.Info("order accepted", zap.Int64("order_id", ev.OrderID))
	writeJSON(w, http.StatusAccepted, submitResponse{Accepted: true})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
