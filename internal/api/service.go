// Package api provides the HTTP handlers that mount BatteryFi views per
// request and return their rendered state together with the notifications
// raised while serving it.
//
// Every view is mounted fresh for each request; nothing is cached here.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/batteryfi/batteryfi/internal/dashboard"
	"github.com/batteryfi/batteryfi/internal/marketplace"
	"github.com/batteryfi/batteryfi/internal/notify"
	"github.com/batteryfi/batteryfi/internal/pools"
	"github.com/batteryfi/batteryfi/internal/session"
	"github.com/batteryfi/batteryfi/internal/shell"
	"github.com/batteryfi/batteryfi/internal/store"
	"github.com/batteryfi/batteryfi/internal/wallet"
)

// Service serves the view endpoints.
type Service struct {
	store    store.Store
	sessions *session.Provider
	wallets  *wallet.Registry
	sim      *dashboard.Simulator
	shell    *shell.Shell
}

// NewService creates the handler set. sim may be nil, in which case the
// dashboard shows the initial state of charge.
func NewService(st store.Store, sessions *session.Provider, wallets *wallet.Registry, sim *dashboard.Simulator) *Service {
	return &Service{
		store:    st,
		sessions: sessions,
		wallets:  wallets,
		sim:      sim,
		shell:    shell.New(st, sim),
	}
}

// Routes mounts every view endpoint on r.
func (s *Service) Routes(r chi.Router) {
	r.Get("/shell/{tab}", s.Navigate)

	r.Get("/dashboard", s.GetDashboard)

	r.Get("/marketplace", s.GetMarketplace)
	r.Post("/marketplace/listings", s.CreateListing)
	r.Post("/marketplace/listings/{listingID}/purchase", s.Purchase)

	r.Get("/pools", s.GetPools)
	r.Post("/pools/{poolID}/stake", s.Stake)

	r.Post("/auth/signup", s.SignUp)
	r.Post("/auth/signin", s.SignIn)
	r.Post("/auth/signout", s.SignOut)

	r.Get("/wallet", s.GetWallet)
	r.Post("/wallet", s.ConnectWallet)
	r.Delete("/wallet", s.DisconnectWallet)
}

// --- Request/Response types ---

// Response wraps every view response.
type Response struct {
	Data          any                   `json:"data,omitempty"`
	Notifications []notify.Notification `json:"notifications"`
}

// StakeRequest is the JSON body for POST /pools/{poolID}/stake. Amount is
// kept as typed so unparseable input can be ignored rather than rejected.
type StakeRequest struct {
	Amount string `json:"amount"`
}

// SignInRequest is the JSON body for POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Shell ---

// Navigate handles GET /api/v1/shell/{tab}
func (s *Service) Navigate(w http.ResponseWriter, r *http.Request) {
	rec := notify.NewRecorder()
	page := s.shell.Navigate(r.Context(), chi.URLParam(r, "tab"), session.FromContext(r.Context()), rec)
	writeView(w, page, rec)
}

// --- Dashboard ---

// GetDashboard handles GET /api/v1/dashboard
func (s *Service) GetDashboard(w http.ResponseWriter, r *http.Request) {
	v := dashboard.NewView(s.sim, session.FromContext(r.Context()))
	v.Mount(r.Context())
	writeView(w, v.Snapshot(), notify.NewRecorder())
}

// --- Marketplace ---

func (s *Service) mountMarketplace(r *http.Request, rec *notify.Recorder) *marketplace.View {
	v := marketplace.NewView(s.store, session.FromContext(r.Context()), rec)
	q := r.URL.Query()
	v.SetSearch(q.Get("search"))
	v.SetFilter(q.Get("type"))
	v.SetSort(q.Get("sort"))
	v.Mount(r.Context())
	return v
}

// GetMarketplace handles GET /api/v1/marketplace?search=&type=&sort=
func (s *Service) GetMarketplace(w http.ResponseWriter, r *http.Request) {
	rec := notify.NewRecorder()
	v := s.mountMarketplace(r, rec)
	writeView(w, v.Snapshot(), rec)
}

// CreateListing handles POST /api/v1/marketplace/listings
func (s *Service) CreateListing(w http.ResponseWriter, r *http.Request) {
	var draft marketplace.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec := notify.NewRecorder()
	v := s.mountMarketplace(r, rec)
	v.SetDraft(draft)
	if err := v.SubmitDraft(r.Context()); err != nil && !errors.Is(err, marketplace.ErrAuthRequired) {
		slog.Error("submit listing failed", "err", err)
	}
	writeView(w, v.Snapshot(), rec)
}

// Purchase handles POST /api/v1/marketplace/listings/{listingID}/purchase
func (s *Service) Purchase(w http.ResponseWriter, r *http.Request) {
	rec := notify.NewRecorder()
	v := s.mountMarketplace(r, rec)

	l, ok := v.Find(chi.URLParam(r, "listingID"))
	if !ok {
		writeError(w, "listing not found", http.StatusNotFound)
		return
	}
	v.Purchase(l)
	writeView(w, v.Snapshot(), rec)
}

// --- Pools ---

// GetPools handles GET /api/v1/pools
func (s *Service) GetPools(w http.ResponseWriter, r *http.Request) {
	rec := notify.NewRecorder()
	v := pools.NewView(s.store, session.FromContext(r.Context()), rec)
	v.Mount(r.Context())
	writeView(w, v.Snapshot(), rec)
}

// Stake handles POST /api/v1/pools/{poolID}/stake
func (s *Service) Stake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec := notify.NewRecorder()
	v := pools.NewView(s.store, session.FromContext(r.Context()), rec)
	v.Mount(r.Context())

	err := v.Stake(r.Context(), chi.URLParam(r, "poolID"), req.Amount)
	switch {
	case err == nil:
	case errors.Is(err, pools.ErrInsufficientStake), errors.Is(err, pools.ErrInsufficientBalance):
	case errors.Is(err, pools.ErrIncomplete):
		slog.Debug("stake ignored", "pool", chi.URLParam(r, "poolID"))
	default:
		slog.Error("stake failed", "err", err)
	}
	writeView(w, v.Snapshot(), rec)
}

// --- Auth ---

// SignUp handles POST /api/v1/auth/signup
func (s *Service) SignUp(w http.ResponseWriter, r *http.Request) {
	var form session.SignUpForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec := notify.NewRecorder()
	s.sessions.SignUp(r.Context(), rec, form)
	writeView(w, nil, rec)
}

// SignIn handles POST /api/v1/auth/signin
func (s *Service) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec := notify.NewRecorder()
	sess, err := s.sessions.SignIn(r.Context(), rec, req.Email, req.Password)
	if err != nil {
		writeView(w, nil, rec)
		return
	}
	writeView(w, sess, rec)
}

// SignOut handles POST /api/v1/auth/signout
func (s *Service) SignOut(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	s.sessions.SignOut(r.Context(), sess)
	// Signing out drops the wallet without its own toast.
	s.wallets.For(clientKey(r, sess)).Disconnect(notify.NewRecorder())
	writeView(w, nil, notify.NewRecorder())
}

// --- Wallet ---

// GetWallet handles GET /api/v1/wallet
func (s *Service) GetWallet(w http.ResponseWriter, r *http.Request) {
	wl := s.wallets.For(clientKey(r, session.FromContext(r.Context())))
	writeView(w, wl.Status(), notify.NewRecorder())
}

// ConnectWallet handles POST /api/v1/wallet
func (s *Service) ConnectWallet(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	wl := s.wallets.For(clientKey(r, sess))

	rec := notify.NewRecorder()
	if err := wl.Connect(r.Context(), sess, rec); err != nil {
		slog.Warn("wallet connect failed", "err", err)
	}
	writeView(w, wl.Status(), rec)
}

// DisconnectWallet handles DELETE /api/v1/wallet
func (s *Service) DisconnectWallet(w http.ResponseWriter, r *http.Request) {
	wl := s.wallets.For(clientKey(r, session.FromContext(r.Context())))
	rec := notify.NewRecorder()
	wl.Disconnect(rec)
	writeView(w, wl.Status(), rec)
}

// --- Helpers ---

// ClientHeader lets anonymous callers keep a stable wallet across requests.
const ClientHeader = "X-Client-ID"

// clientKey selects the caller's wallet: the signed-in user, then the client
// header, then the remote host. Rate limiting uses limitKey instead.
func clientKey(r *http.Request, sess *session.Session) string {
	if sess != nil {
		return "user:" + sess.UserID
	}
	if id := r.Header.Get(ClientHeader); id != "" {
		return "client:" + id
	}
	return "ip:" + remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeView(w http.ResponseWriter, data any, rec *notify.Recorder) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{Data: data, Notifications: rec.All()})
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
