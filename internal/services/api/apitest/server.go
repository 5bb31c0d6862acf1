// Package apitest is an in-memory entries service for tests and local demos.
// It speaks the same envelope and routes as the real service and enforces
// first-write-wins on exit updates.
package apitest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/services/printer"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/weighment"
)

// VarianceTolerance is the relative gap between declared packed weight and
// measured net weight above which a packed sale is flagged.
const VarianceTolerance = 0.02

type account struct {
	password string
	user     models.User
}

type failure struct {
	status  int
	message string
}

// Server wraps the mux router and the in-memory state
type Server struct {
	*mux.Router

	secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time

	mu        sync.Mutex
	accounts  map[string]account
	entries   []models.Entry
	vendors   []models.Vendor
	vehicles  []models.Vehicle
	materials []models.Material
	plants    []models.Plant
	failNext  map[string]failure
	exitCalls map[string]int
	seq       int
}

// NewServer creates a server with seeded reference data and three accounts:
// operator@k2.test, supervisor@k2.test and admin@k2.test, password "secret".
func NewServer() *Server {
	s := &Server{
		Router:    mux.NewRouter(),
		secret:    []byte(uuid.NewString()),
		TokenTTL:  8 * time.Hour,
		Now:       time.Now,
		accounts:  map[string]account{},
		failNext:  map[string]failure{},
		exitCalls: map[string]int{},
	}
	s.seed()

	api := s.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", s.login).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/entries", s.listEntries).Methods("GET")
	protected.HandleFunc("/entries", s.createEntry).Methods("POST")
	protected.HandleFunc("/entries/{id}/exit", s.updateExit).Methods("PATCH")
	protected.HandleFunc("/entries/{id}/receipt", s.receipt).Methods("GET")
	protected.HandleFunc("/vendors", s.listVendors).Methods("GET")
	protected.HandleFunc("/vehicles", s.listVehicles).Methods("GET")
	protected.HandleFunc("/materials", s.listMaterials).Methods("GET")
	protected.HandleFunc("/plants", s.listPlants).Methods("GET")

	return s
}

func (s *Server) seed() {
	for _, u := range []models.User{
		{ID: "u-op", Name: "Ravi Operator", Email: "operator@k2.test", Role: models.RoleOperator, Plant: "p1"},
		{ID: "u-sup", Name: "Sunita Supervisor", Email: "supervisor@k2.test", Role: models.RoleSupervisor, Plant: "p1"},
		{ID: "u-admin", Name: "Arjun Admin", Email: "admin@k2.test", Role: models.RoleAdmin},
	} {
		s.accounts[u.Email] = account{password: "secret", user: u}
	}
	s.vendors = []models.Vendor{
		{ID: "v1", Name: "Shakti Agro", Code: "VEN-001", IsActive: true},
		{ID: "v2", Name: "Bharat Fuels", Code: "VEN-002", IsActive: true},
	}
	s.vehicles = []models.Vehicle{
		{ID: "vh1", VehicleNumber: "MH12AB1234", VehicleType: "truck", Capacity: 20000, IsActive: true},
		{ID: "vh2", VehicleNumber: "GJ05CD5678", VehicleType: "trailer", Capacity: 30000, IsActive: true},
	}
	s.materials = []models.Material{
		{ID: "m1", Name: "Rice Husk", Code: "RH", IsActive: true},
		{ID: "m2", Name: "Groundnut Shell", Code: "GS", IsActive: true},
	}
	s.plants = []models.Plant{{ID: "p1", Name: "Pune Plant", Code: "PUN", IsActive: true}}
}

// FailNext makes the next call to the named route answer with status and message.
// Route names: login, list, create, exit, receipt, vendors, vehicles, materials, plants.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[route] = failure{status: status, message: message}
}

// ExitCalls reports how many exit updates reached the server for an entry.
func (s *Server) ExitCalls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCalls[id]
}

// Entry returns the stored entry.
func (s *Server) Entry(id string) (models.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return models.Entry{}, false
}

// MintToken signs a token for a seeded account, expiring after ttl.
func (s *Server) MintToken(email string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	acc, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown account %s", email)
	}
	claims := jwt.MapClaims{
		"id":    acc.user.ID,
		"email": acc.user.Email,
		"role":  string(acc.user.Role),
		"exp":   s.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// takeFailure pops an injected failure for route.
func (s *Server) takeFailure(w http.ResponseWriter, route string) bool {
	s.mu.Lock()
	f, ok := s.failNext[route]
	delete(s.failNext, route)
	s.mu.Unlock()
	if ok {
		respondError(w, f.status, f.message)
	}
	return ok
}

type contextKey string

const claimsKey contextKey = "claims"

// authMiddleware verifies bearer tokens
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.Header.Get("Authorization"), " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(s.Now))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithClaims(r, claims)))
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.takeFailure(w, "login") {
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || acc.password != req.Password {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.MintToken(acc.user.Email, s.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	respondData(w, http.StatusOK, map[string]any{"token": token, "user": acc.user})
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	if s.takeFailure(w, "list") {
		return
	}
	q := r.URL.Query()

	filter := weighment.Filter{
		Search:       q.Get("search"),
		EntryType:    models.EntryType(q.Get("entryType")),
		VarianceFlag: parseBool(q.Get("varianceFlag")),
	}
	reviewed := parseBool(q.Get("isReviewed"))
	from, to := parseTime(q.Get("from")), parseTime(q.Get("to"))

	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, s.expand(e))
	}

	matched := weighment.FilterEntries(all, filter)
	kept := matched[:0]
	for _, e := range matched {
		if reviewed != nil && e.IsReviewed != *reviewed {
			continue
		}
		if from != nil && e.EntryDate.Before(*from) {
			continue
		}
		if to != nil && e.EntryDate.After(*to) {
			continue
		}
		kept = append(kept, e)
	}
	weighment.SortEntries(kept, weighment.SortByEntryDate, true)

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	items, _ := weighment.Paginate(kept, page, limit)

	views := make([]map[string]any, 0, len(items))
	for _, e := range items {
		views = append(views, s.entryView(e))
	}
	respondData(w, http.StatusOK, map[string]any{"entries": views, "total": len(kept)})
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	if !canWeigh(r) {
		respondError(w, http.StatusForbidden, "Only operators can record weighments")
		return
	}
	if s.takeFailure(w, "create") {
		return
	}

	var p models.CreateEntryPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entryDate, err := time.Parse(models.ISOLayout, p.EntryDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "entryDate must be an ISO-8601 timestamp")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.knownVendor(p.Vendor) || !s.knownVehicle(p.Vehicle) {
		respondError(w, http.StatusBadRequest, "Unknown vendor or vehicle")
		return
	}

	now := s.Now().UTC()
	s.seq++
	e := models.Entry{
		ID:           uuid.NewString(),
		EntryNumber:  fmt.Sprintf("ENT-%05d", s.seq),
		EntryType:    p.EntryType,
		Vendor:       models.Reference(p.Vendor),
		Vehicle:      models.Reference(p.Vehicle),
		DriverName:   p.DriverName,
		DriverPhone:  p.DriverPhone,
		EntryWeight:  p.EntryWeight,
		EntryDate:    entryDate,
		ManualWeight: p.ManualWeight,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.MaterialType != "" {
		m := models.Reference(p.MaterialType)
		e.MaterialType = &m
	}
	if err := e.Validate(); err != nil {
		s.seq--
		respondError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), models.ErrInvalidEntry.Error()+": "))
		return
	}

	s.entries = append(s.entries, e)
	respondData(w, http.StatusCreated, s.entryView(e))
}

func (s *Server) updateExit(w http.ResponseWriter, r *http.Request) {
	if !canWeigh(r) {
		respondError(w, http.StatusForbidden, "Only operators can record weighments")
		return
	}
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	s.exitCalls[id]++
	s.mu.Unlock()

	if s.takeFailure(w, "exit") {
		return
	}

	var p models.ExitPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		respondError(w, http.StatusNotFound, "Entry not found")
		return
	}
	e := s.entries[idx]
	if e.HasExit() {
		respondError(w, http.StatusConflict, weighment.MsgExitRecorded)
		return
	}

	now := s.Now().UTC()
	exit := p.ExitWeight
	e.ExitWeight = &exit
	e.ExitDate = &now
	e.UpdatedAt = now
	switch e.EntryType {
	case models.EntryTypePurchase:
		e.Moisture, e.Dust = p.Moisture, p.Dust
	case models.EntryTypeSale:
		e.PalletteType, e.NoOfBags, e.WeightPerBag = p.PalletteType, p.NoOfBags, p.WeightPerBag
	}
	if err := e.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), models.ErrInvalidEntry.Error()+": "))
		return
	}
	computeWeights(&e)

	s.entries[idx] = e
	respondData(w, http.StatusOK, s.entryView(e))
}

// computeWeights fills the fields the real service derives after an exit.
func computeWeights(e *models.Entry) {
	net := e.NetWeight()
	computed := net
	flag := false

	switch e.EntryType {
	case models.EntryTypePurchase:
		impurity := 0.0
		if e.Moisture != nil {
			impurity += *e.Moisture
		}
		if e.Dust != nil {
			impurity += *e.Dust
		}
		computed = net * (1 - impurity/100)
	case models.EntryTypeSale:
		if packed, ok := weighment.PackedWeight(e); ok {
			e.PackedWeight = &packed
			flag = net == 0 || math.Abs(net-packed)/net > VarianceTolerance
		}
	}

	computed = math.Round(computed*100) / 100
	final := computed
	e.ComputedWeight = &computed
	e.FinalWeight = &final
	e.VarianceFlag = &flag
}

func (s *Server) receipt(w http.ResponseWriter, r *http.Request) {
	if s.takeFailure(w, "receipt") {
		return
	}
	e, ok := s.Entry(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Entry not found")
		return
	}
	if !e.HasExit() || e.VarianceFailed() {
		respondError(w, http.StatusBadRequest, "Receipt is not available for this entry")
		return
	}

	s.mu.Lock()
	e = s.expand(e)
	s.mu.Unlock()

	pdf, err := printer.GenerateSlipPDF(e, printer.SlipOptions{Title: "Weighment Receipt", Plant: "Pune Plant"})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to render receipt")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	if s.takeFailure(w, "vendors") {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	respondData(w, http.StatusOK, filterOptions(s.vendors, r.URL.Query().Get("search"), func(v models.Vendor) string { return v.Name + " " + v.Code }))
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	if s.takeFailure(w, "vehicles") {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	respondData(w, http.StatusOK, filterOptions(s.vehicles, r.URL.Query().Get("search"), func(v models.Vehicle) string { return v.VehicleNumber }))
}

func (s *Server) listMaterials(w http.ResponseWriter, r *http.Request) {
	if s.takeFailure(w, "materials") {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	respondData(w, http.StatusOK, filterOptions(s.materials, r.URL.Query().Get("search"), func(m models.Material) string { return m.Name + " " + m.Code }))
}

func (s *Server) listPlants(w http.ResponseWriter, r *http.Request) {
	if s.takeFailure(w, "plants") {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	respondData(w, http.StatusOK, filterOptions(s.plants, r.URL.Query().Get("search"), func(p models.Plant) string { return p.Name + " " + p.Code }))
}
