package handlers

import (
	"net/http"
	"strings"

	"lendfi/internal/config"
	"lendfi/internal/middleware"
	"lendfi/internal/validator"
	"lendfi/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler struct {
	cfg          config.Config
	log          *zap.Logger
	users        middleware.UserLookup
	auth         AuthService
	loans        LoanService
	roscas       ROSCAService
	transactions TransactionService
	admin        AdminService
	validate     *validator.Validator
	rdb          *redis.Client
	hub          *websocket.Hub
}

// New wires the HTTP layer. rdb may be nil, in which case idempotency keys are ignored.
func New(cfg config.Config, log *zap.Logger, users middleware.UserLookup, auth AuthService, loans LoanService, roscas ROSCAService, transactions TransactionService, admin AdminService, rdb *redis.Client, hub *websocket.Hub) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		cfg:          cfg,
		log:          log,
		users:        users,
		auth:         auth,
		loans:        loans,
		roscas:       roscas,
		transactions: transactions,
		admin:        admin,
		validate:     validator.New(),
		rdb:          rdb,
		hub:          hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(h.log))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(h.cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.IdempotencyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(h.cfg.JWTSecret, h.users)
	idempotent := middleware.Idempotency(h.rdb, h.cfg.IdempotencyTTL)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/profile", h.Profile)
			r.Put("/profile", h.UpdateProfile)
			r.Put("/change-password", h.ChangePassword)
		})
	})

	router.Route("/loans", func(r chi.Router) {
		r.Use(authenticate)
		r.With(middleware.RequireKYC).Post("/request", h.RequestLoan)
		r.Get("/", h.ListLoans)
		r.Get("/{id}", h.GetLoan)
		r.With(middleware.RequireKYC, idempotent).Post("/{id}/fund", h.FundLoan)
		r.With(idempotent).Post("/{id}/payment", h.PayLoan)
	})

	router.Route("/roscas", func(r chi.Router) {
		r.Use(authenticate)
		r.With(middleware.RequireKYC).Post("/", h.CreateROSCA)
		r.Get("/", h.ListROSCAs)
		r.With(middleware.RequireKYC).Post("/join/{inviteCode}", h.JoinROSCAByInvite)
		r.Get("/{id}", h.GetROSCA)
		r.Get("/{id}/members", h.ROSCAMembers)
		r.With(middleware.RequireKYC).Post("/{id}/join", h.JoinROSCA)
		r.With(middleware.RequireKYC, idempotent).Post("/{id}/contribute", h.Contribute)
	})

	router.Route("/transactions", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", h.ListTransactions)
		r.Post("/", h.CreateTransaction)
		r.Get("/summary", h.TransactionSummary)
		r.Get("/{id}", h.GetTransaction)
		r.Put("/{id}/status", h.UpdateTransactionStatus)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireAdmin)
		r.Get("/dashboard", h.AdminDashboard)
		r.Get("/users", h.AdminListUsers)
		r.Get("/users/{id}", h.AdminGetUser)
		r.Put("/users/{id}/kyc", h.AdminUpdateKYC)
		r.Put("/users/{id}/deactivate", h.AdminDeactivateUser)
		r.Put("/loans/{id}/status", h.AdminUpdateLoanStatus)
		r.Get("/export", h.AdminExport)
		r.Get("/audit", h.AdminAuditLog)
	})

	router.Get("/ws/notifications", h.WSNotifications)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, http.StatusOK, "LendFi API is running", map[string]string{"status": "ok"})
	})
	return router
}

func allowedOrigins(raw string) []string {
	origins := make([]string, 0, 1)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, "*")
	}
	return origins
}
