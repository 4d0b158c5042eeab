package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes registers every application endpoint on router.
func (h *Handlers) Routes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods(http.MethodGet, http.MethodHead).Name("index")
	router.HandleFunc("/create-video", h.CreateVideo).Methods(http.MethodPost).Name("create-video")

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet).Name("health")
	router.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet).Name("healthz")
	router.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("livez")
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet).Name("readyz")
	router.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")
}
