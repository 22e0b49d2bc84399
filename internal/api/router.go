package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/app"
	"github.com/harrylevesque/txt2qr/internal/auth"
)

// Handler serves the HTTP API on top of an App.
type Handler struct {
	app *app.App
	log *zap.Logger
	now func() time.Time
}

func NewRouter(a *app.App) *mux.Router {
	h := &Handler{app: a, log: a.Log.Named("api"), now: time.Now}

	protect := func(f http.HandlerFunc) http.Handler { return f }
	if a.Verifier != nil {
		mw := auth.Middleware(a.Verifier, a.Log)
		protect = func(f http.HandlerFunc) http.Handler { return mw(f) }
	}

	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.HandleFunc("/time", h.GetTimeHandler).Methods("GET")
	r.HandleFunc("/capabilities", h.CapabilitiesHandler).Methods("GET")

	r.HandleFunc("/classify", h.ClassifyHandler).Methods("POST")
	r.HandleFunc("/qr", h.QRHandler).Methods("POST")

	r.HandleFunc("/preview", h.GetPreviewHandler).Methods("GET")
	r.HandleFunc("/preview", h.PreviewHandler).Methods("POST")
	r.HandleFunc("/preview", h.DismissPreviewHandler).Methods("DELETE")

	r.HandleFunc("/history", h.ListHistoryHandler).Methods("GET")
	r.HandleFunc("/history", h.SaveHistoryHandler).Methods("POST")
	r.HandleFunc("/history", h.ClearHistoryHandler).Methods("DELETE")
	r.HandleFunc("/history/{id}", h.GetHistoryHandler).Methods("GET")
	r.HandleFunc("/history/{id}", h.DeleteHistoryHandler).Methods("DELETE")

	r.HandleFunc("/ocr", h.OCRHandler).Methods("POST")
	r.Handle("/upload", protect(h.UploadHandler)).Methods("POST")

	r.HandleFunc("/premium", h.PremiumStatusHandler).Methods("GET")
	r.Handle("/premium/purchase", protect(h.PurchaseHandler)).Methods("POST")
	r.Handle("/premium/restore", protect(h.RestoreHandler)).Methods("POST")
	r.HandleFunc("/ads/next", h.NextAdHandler).Methods("GET")
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}
