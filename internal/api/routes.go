package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coinpilot/coinpilot/internal/advisor"
	"github.com/coinpilot/coinpilot/internal/auth"
	"github.com/coinpilot/coinpilot/internal/database"
)

// Deps bundles everything the route table needs.
type Deps struct {
	DB              *sql.DB
	Users           *database.UserRepository
	Strategies      *database.StrategyRepository
	Recommendations *database.RecommendationRepository
	Notifications   *database.NotificationRepository
	Service         *advisor.Service
	AuthConfig      auth.Config
	Logger          *slog.Logger
}

// SetupRoutes wires all API routes onto the mux.
func SetupRoutes(mux *http.ServeMux, deps Deps) {
	logger := deps.Logger

	healthHandler := NewHealthHandler(deps.DB, logger)
	authHandler := NewAuthHandler(deps.Users, deps.AuthConfig, logger)
	strategyHandler := NewStrategyHandler(deps.Strategies, deps.Recommendations, deps.Notifications, logger)
	adviceHandler := NewAdviceHandler(deps.Strategies, deps.Service, logger)

	authMiddleware := auth.Middleware(deps.AuthConfig)

	mux.HandleFunc("/api/health", healthHandler.Health)

	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		authHandler.Register(w, r)
	})

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		authHandler.Login(w, r)
	})

	mux.HandleFunc("/api/strategies", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				strategyHandler.List(w, r)
			case http.MethodPost:
				strategyHandler.Create(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/strategies/", func(w http.ResponseWriter, r *http.Request) {
		// Browsers cannot set headers on websocket upgrades, so the ws
		// route also accepts the token as a query parameter.
		if r.Header.Get("Authorization") == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}

		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/strategies/"), "/")
			if len(parts) == 0 || parts[0] == "" {
				http.Error(w, "Strategy ID required", http.StatusBadRequest)
				return
			}
			strategyID := parts[0]

			// Subroutes: /advise, /advise/ws, /recommendations, /notifications.
			if len(parts) >= 2 {
				switch {
				case parts[1] == "advise" && len(parts) == 3 && parts[2] == "ws":
					if r.Method != http.MethodGet {
						http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
						return
					}
					adviceHandler.AdviseWS(w, r, strategyID)
				case parts[1] == "advise" && len(parts) == 2:
					if r.Method != http.MethodPost {
						http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
						return
					}
					adviceHandler.Advise(w, r, strategyID)
				case parts[1] == "recommendations" && len(parts) == 2:
					if r.Method != http.MethodGet {
						http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
						return
					}
					strategyHandler.Recommendations(w, r, strategyID)
				case parts[1] == "notifications" && len(parts) == 2:
					if r.Method != http.MethodGet {
						http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
						return
					}
					strategyHandler.Notifications(w, r, strategyID)
				default:
					http.Error(w, "Not found", http.StatusNotFound)
				}
				return
			}

			switch r.Method {
			case http.MethodGet:
				strategyHandler.Get(w, r, strategyID)
			case http.MethodPut:
				strategyHandler.Update(w, r, strategyID)
			case http.MethodDelete:
				strategyHandler.Delete(w, r, strategyID)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/notifications/", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/notifications/"), "/")
			if len(parts) != 2 || parts[0] == "" || parts[1] != "read" {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			strategyHandler.MarkNotificationRead(w, r, parts[0])
		})).ServeHTTP(w, r)
	})
}
