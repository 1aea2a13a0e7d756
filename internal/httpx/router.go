package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/fakestat/internal/metrics"
	"github.com/AngelCh415/fakestat/internal/models"
	"github.com/AngelCh415/fakestat/internal/preset"
	"github.com/AngelCh415/fakestat/internal/store"
	"github.com/AngelCh415/fakestat/internal/utils"
)

// Deps are the services the router exposes. Hub, Metrics and StaticDir are optional.
type Deps struct {
	Store     *store.MemoryStore
	Stats     *metrics.Service
	Preset    *preset.Generator
	Hub       http.Handler
	Metrics   http.Handler
	StaticDir string
}

type createBody struct {
	Name            string  `json:"name"`
	Origin          *string `json:"origin"`
	SuccessfulLeads int     `json:"successful_leads"`
	TotalFTDs       int     `json:"total_ftds"`
	TotalLeads      *int    `json:"total_leads"`
	LateTotalFTDs   int     `json:"late_total_ftds"`
	Revenue         float64 `json:"revenue"`
}

func (b createBody) request() models.CreateRequest {
	req := models.CreateRequest{
		Name:            b.Name,
		Origin:          b.Origin,
		SuccessfulLeads: b.SuccessfulLeads,
		TotalFTDs:       b.TotalFTDs,
		TotalLeads:      b.SuccessfulLeads,
		LateTotalFTDs:   b.LateTotalFTDs,
		Revenue:         b.Revenue,
	}
	if b.TotalLeads != nil {
		req.TotalLeads = *b.TotalLeads
	}
	if req.Origin != nil && strings.TrimSpace(*req.Origin) == "" {
		req.Origin = nil
	}
	return req
}

type reassignBody struct {
	ID *int `json:"id"`
}

func NewRouter(log *slog.Logger, d Deps) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(utils.Recovery(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })

	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics)
	}
	if d.Hub != nil {
		mux.Handle("/ws", d.Hub)
	}

	mux.Route("/api", func(api chi.Router) {
		api.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, d.Stats.Query(r.URL.Query()))
		})

		api.Get("/stats/summary", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, d.Stats.Summary())
		})

		api.Post("/stats", func(w http.ResponseWriter, r *http.Request) {
			var body createBody
			if err := readJSON(w, r, &body); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			req := body.request()
			if err := req.Validate(); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeJSON(w, http.StatusCreated, d.Store.Create(req))
		})

		api.Post("/stats/noob", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, d.Preset.AddNoob(d.Store))
		})

		api.Delete("/stats", func(w http.ResponseWriter, r *http.Request) {
			d.Store.Clear()
			w.WriteHeader(http.StatusNoContent)
		})

		api.Patch("/stats/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			var p models.Patch
			if err := readJSON(w, r, &p); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			p.MirrorLeads()
			if err := p.Validate(); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			stat, found := d.Store.Update(id, p)
			if !found {
				writeError(w, http.StatusNotFound, "stat not found")
				return
			}
			writeJSON(w, http.StatusOK, stat)
		})

		api.Put("/stats/{id}/id", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			var body reassignBody
			if err := readJSON(w, r, &body); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if body.ID == nil {
				writeError(w, http.StatusBadRequest, "id required")
				return
			}
			if *body.ID < 0 {
				writeError(w, http.StatusBadRequest, "id must not be negative")
				return
			}
			if !d.Store.ReassignID(id, *body.ID) {
				if _, exists := d.Store.Get(id); !exists {
					writeError(w, http.StatusNotFound, "stat not found")
					return
				}
				writeError(w, http.StatusConflict, "id already in use")
				return
			}
			stat, _ := d.Store.Get(*body.ID)
			writeJSON(w, http.StatusOK, stat)
		})

		api.Delete("/stats/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			if !d.Store.Delete(id) {
				writeError(w, http.StatusNotFound, "stat not found")
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		api.Get("/export", func(w http.ResponseWriter, r *http.Request) {
			compact, _ := strconv.ParseBool(r.URL.Query().Get("compact"))
			data, err := d.Store.ExportJSON(!compact)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
		})

		api.Post("/import", func(w http.ResponseWriter, r *http.Request) {
			data, err := readBody(w, r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if err := d.Store.ImportJSON(data); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		api.Post("/preset", func(w http.ResponseWriter, r *http.Request) {
			cfg := preset.DefaultConfig()
			if err := readJSON(w, r, &cfg); err != nil && !errors.Is(err, errEmptyBody) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			sum, err := d.Preset.Run(d.Store, cfg)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeJSON(w, http.StatusCreated, sum)
		})
	})

	if d.StaticDir != "" {
		mux.Handle("/*", spaHandler(d.StaticDir))
	}

	return mux
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}
