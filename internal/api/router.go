package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"bookkeeper-backend/internal/api/httpx"
	"bookkeeper-backend/internal/api/validate"
	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/config"
	"bookkeeper-backend/internal/metrics"
	"bookkeeper-backend/internal/middleware"
	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
	"bookkeeper-backend/internal/services"
)

type RouterDeps struct {
	Cfg       config.Config
	Auth      *middleware.AuthMiddleware
	UserSvc   *services.UserService
	LedgerSvc *services.LedgerService
	AuditSvc  *services.AuditService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
			var req struct{ Username, Email, Password string }
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			u, err := d.UserSvc.Register(r.Context(), req.Username, req.Email, req.Password)
			if err != nil {
				httpx.WriteAppError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusCreated, u)
		})

		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var req struct{ Email, Password string }
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			pair, err := d.UserSvc.Login(r.Context(), req.Email, req.Password)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, pair)
		})

		// everything below requires an access token
		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Auth)

			r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
				users, err := d.UserSvc.List(r.Context())
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, users)
			})

			// ---------- transactions ----------
			r.Post("/transactions", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					WorkspaceID string  `json:"workspace_id"`
					Date        string  `json:"date"`
					Amount      int64   `json:"amount"`
					Currency    string  `json:"currency"`
					Description string  `json:"description"`
					CategoryID  *string `json:"category_id"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				if ef := validate.Required("workspace_id", req.WorkspaceID); ef != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", ef.Field+": "+ef.Msg, nil)
					return
				}
				t := models.Transaction{
					WorkspaceID: req.WorkspaceID,
					Amount:      req.Amount,
					Currency:    req.Currency,
					Description: req.Description,
					CategoryID:  req.CategoryID,
				}
				if req.Date != "" {
					ts, err := time.Parse(time.RFC3339, req.Date)
					if err != nil {
						httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid date", nil)
						return
					}
					t.Date = ts
				}
				created, err := d.LedgerSvc.CreateTransaction(r.Context(), t, middleware.UserID(r.Context()))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, created)
			})

			r.Put("/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Date        string  `json:"date"`
					Amount      *int64  `json:"amount"`
					Currency    string  `json:"currency"`
					Description *string `json:"description"`
					CategoryID  *string `json:"category_id"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				id := chi.URLParam(r, "id")
				prev, err := d.LedgerSvc.GetTransaction(r.Context(), id)
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				next := prev
				if req.Date != "" {
					ts, err := time.Parse(time.RFC3339, req.Date)
					if err != nil {
						httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid date", nil)
						return
					}
					next.Date = ts
				}
				if req.Amount != nil {
					next.Amount = *req.Amount
				}
				if req.Currency != "" {
					next.Currency = req.Currency
				}
				if req.Description != nil {
					next.Description = *req.Description
				}
				if req.CategoryID != nil {
					next.CategoryID = req.CategoryID
				}
				updated, err := d.LedgerSvc.UpdateTransaction(r.Context(), next, middleware.UserID(r.Context()))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, updated)
			})

			r.Delete("/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
				if err := d.LedgerSvc.DeleteTransaction(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context())); err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Get("/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
				t, err := d.LedgerSvc.GetTransaction(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, t)
			})

			r.Get("/transactions", func(w http.ResponseWriter, r *http.Request) {
				wid := r.URL.Query().Get("workspace_id")
				if ef := validate.Required("workspace_id", wid); ef != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", ef.Field+": "+ef.Msg, nil)
					return
				}
				limit, offset := intParam(r, "limit", 50), intParam(r, "offset", 0)
				if ef := validate.MinInt("limit", int64(limit), 1); ef != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", ef.Field+": "+ef.Msg, nil)
					return
				}
				txs, err := d.LedgerSvc.ListTransactions(r.Context(), wid, limit, offset)
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, txs)
			})

			// ---------- categories ----------
			r.Post("/categories", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					WorkspaceID string  `json:"workspace_id"`
					Name        string  `json:"name"`
					Color       string  `json:"color"`
					ParentID    *string `json:"parent_id"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				c, err := d.LedgerSvc.CreateCategory(r.Context(), models.Category{
					WorkspaceID: req.WorkspaceID, Name: req.Name, Color: req.Color, ParentID: req.ParentID,
				}, middleware.UserID(r.Context()))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, c)
			})

			r.Delete("/categories/{id}", func(w http.ResponseWriter, r *http.Request) {
				if err := d.LedgerSvc.DeleteCategory(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context())); err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			// ---------- statement import ----------
			r.Post("/statements/import", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					WorkspaceID  string `json:"workspace_id"`
					FileName     string `json:"file_name"`
					Provider     string `json:"provider"`
					Transactions []struct {
						Date        string `json:"date"`
						Amount      int64  `json:"amount"`
						Currency    string `json:"currency"`
						Description string `json:"description"`
					} `json:"transactions"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				txs := make([]models.Transaction, 0, len(req.Transactions))
				for _, row := range req.Transactions {
					t := models.Transaction{Amount: row.Amount, Currency: row.Currency, Description: row.Description}
					if row.Date != "" {
						if ts, err := time.Parse(time.RFC3339, row.Date); err == nil {
							t.Date = ts
						}
					}
					txs = append(txs, t)
				}
				st, batch, err := d.LedgerSvc.ImportStatement(r.Context(), models.Statement{
					WorkspaceID: req.WorkspaceID, FileName: req.FileName, Provider: req.Provider,
				}, txs, middleware.UserID(r.Context()))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, map[string]any{"statement": st, "batch": batch})
			})

			// ---------- audit events ----------
			r.Get("/audit-events", func(w http.ResponseWriter, r *http.Request) {
				f, err := eventFilterFromQuery(r)
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				page, err := d.AuditSvc.FindEvents(r.Context(), f)
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, page)
			})

			r.Get("/audit-events/entity/{entityType}/{entityId}", func(w http.ResponseWriter, r *http.Request) {
				events, err := d.AuditSvc.GetEntityHistory(r.Context(),
					models.EntityType(chi.URLParam(r, "entityType")),
					chi.URLParam(r, "entityId"),
					strParam(r, "workspace_id"))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, events)
			})

			r.Get("/audit-events/batch/{batchId}", func(w http.ResponseWriter, r *http.Request) {
				events, err := d.AuditSvc.GetBatch(r.Context(), chi.URLParam(r, "batchId"), strParam(r, "workspace_id"))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, events)
			})

			r.Get("/audit-events/{id}", func(w http.ResponseWriter, r *http.Request) {
				ev, err := d.AuditSvc.GetEvent(r.Context(), chi.URLParam(r, "id"), strParam(r, "workspace_id"))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, ev)
			})

			r.With(middleware.RequireRole("admin")).
				Post("/audit-events/{id}/rollback", func(w http.ResponseWriter, r *http.Request) {
					res, err := d.AuditSvc.Rollback(r.Context(), chi.URLParam(r, "id"),
						middleware.UserID(r.Context()), strParam(r, "workspace_id"))
					if err != nil {
						httpx.WriteAppError(w, err)
						return
					}
					httpx.WriteJSON(w, http.StatusOK, res)
				})
		})
	})

	return r
}

func strParam(r *http.Request, name string) *string {
	if v := r.URL.Query().Get(name); v != "" {
		return &v
	}
	return nil
}

func intParam(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func eventFilterFromQuery(r *http.Request) (repo.EventFilter, error) {
	f := repo.EventFilter{
		WorkspaceID: strParam(r, "workspace_id"),
		EntityID:    strParam(r, "entity_id"),
		ActorID:     strParam(r, "actor_id"),
		BatchID:     strParam(r, "batch_id"),
		Page:        intParam(r, "page", 1),
		Limit:       intParam(r, "limit", 20),
	}
	if v := r.URL.Query().Get("entity_type"); v != "" {
		et := models.EntityType(v)
		f.EntityType = &et
	}
	if v := r.URL.Query().Get("actor_type"); v != "" {
		at := models.ActorType(v)
		f.ActorType = &at
	}
	if v := r.URL.Query().Get("severity"); v != "" {
		sev := models.Severity(v)
		f.Severity = &sev
	}
	var err error
	if f.DateFrom, err = timeParam(r, "date_from"); err != nil {
		return repo.EventFilter{}, err
	}
	if f.DateTo, err = timeParam(r, "date_to"); err != nil {
		return repo.EventFilter{}, err
	}
	return f, nil
}

func timeParam(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperr.Validationf("invalid %s, want RFC3339", name)
	}
	return &ts, nil
}
