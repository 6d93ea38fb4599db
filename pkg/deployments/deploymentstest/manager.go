// Package deploymentstest provides an in-memory deployment manager for
// tests.
package deploymentstest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/auth"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/deployments"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/httputil"
)

// Manager is a fake deployment manager served over httptest.
type Manager struct {
	*httptest.Server

	mu          sync.Mutex
	deployments map[string]*deployments.Deployment
	tasks       map[string][]deployments.Task
	vaults      map[string]deployments.VaultBalance
	requests    map[string]int
	total       int
	nextID      int

	// VerifyAuth rejects requests whose auth headers do not verify.
	VerifyAuth bool
	// StartFailures makes that many start calls fail with 402.
	StartFailures int
	// WithdrawTx is returned by the withdraw endpoint when set.
	WithdrawTx string
	// WithdrawError makes the withdraw endpoint fail with this message.
	WithdrawError string
	// AlterCreated, when set, edits the create response before it is sent.
	// The stored deployment is unchanged.
	AlterCreated func(d *deployments.Deployment)
	// Now stamps createdAt/updatedAt.
	Now func() time.Time
}

// NewManager starts a fake manager. Call Close when done.
func NewManager() *Manager {
	m := &Manager{
		deployments: make(map[string]*deployments.Deployment),
		tasks:       make(map[string][]deployments.Task),
		vaults:      make(map[string]deployments.VaultBalance),
		requests:    make(map[string]int),
		VerifyAuth:  true,
		Now:         time.Now,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(m.authenticate)

	router.Post("/api/deployment/create", m.create)
	router.Get("/api/deployments", m.list)
	router.Get("/api/deployment/{id}", m.get)
	router.Get("/api/deployment/{id}/tasks", m.getTasks)
	router.Post("/api/deployment/{id}/start", m.lifecycle(deployments.StatusRunning))
	router.Post("/api/deployment/{id}/stop", m.lifecycle(deployments.StatusStopped))
	router.Patch("/api/deployment/{id}/archive", m.lifecycle(deployments.StatusArchived))
	router.Patch("/api/deployment/{id}/update-replica-count", m.updateReplicas)
	router.Patch("/api/deployment/{id}/update-timeout", m.updateTimeout)
	router.Get("/api/vaults", m.listVaults)
	router.Patch("/api/vault/{id}/update-balance", m.vaultBalance)
	router.Post("/api/vault/{id}/withdraw", m.withdraw)

	m.Server = httptest.NewServer(router)
	return m
}

// Requests returns how many requests hit "METHOD /path".
func (m *Manager) Requests(route string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[route]
}

// TotalRequests returns the number of requests received.
func (m *Manager) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// AddVault registers a vault with a balance.
func (m *Manager) AddVault(address string, balance deployments.VaultBalance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vaults[address] = balance
}

// SetTasks sets the tasks returned for a deployment.
func (m *Manager) SetTasks(id string, tasks []deployments.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[id] = tasks
}

// SetStatus overrides a deployment's status.
func (m *Manager) SetStatus(id string, s deployments.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deployments[id]; ok {
		d.Status = s
	}
}

func (m *Manager) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		m.mu.Lock()
		m.total++
		m.requests[r.Method+" "+r.URL.Path]++
		verify := m.VerifyAuth
		m.mu.Unlock()

		if verify {
			if err := auth.VerifyHeaders(r.Header, r.Method, r.URL.RequestURI(), body, time.Now()); err != nil {
				httputil.WriteError(w, http.StatusUnauthorized, "Unauthorized: "+err.Error())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) create(w http.ResponseWriter, r *http.Request) {
	var req deployments.CreateRequest
	if err := httputil.DecodeJSONStrict(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}

	m.mu.Lock()
	m.nextID++
	now := m.Now().UTC()
	d := &deployments.Deployment{
		ID:                 fmt.Sprintf("dep-%d", m.nextID),
		Name:               req.Name,
		Vault:              solana.NewWallet().PublicKey().String(),
		Market:             req.Market,
		Owner:              httputil.ExtractHeader(r, auth.HeaderUserID),
		Status:             deployments.StatusDraft,
		Strategy:           req.Strategy,
		Schedule:           req.Schedule,
		IPFSDefinitionHash: req.IPFSDefinitionHash,
		Replicas:           req.Replicas,
		Timeout:            req.Timeout,
		Jobs:               []deployments.Job{},
		Events:             []deployments.Event{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.deployments[d.ID] = d
	out := *d
	alter := m.AlterCreated
	m.mu.Unlock()

	if alter != nil {
		alter(&out)
	}

	httputil.WriteJSON(w, http.StatusCreated, out)
}

func (m *Manager) list(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	out := make([]deployments.Deployment, 0, len(m.deployments))
	for _, d := range m.deployments {
		out = append(out, *d)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (m *Manager) lookup(w http.ResponseWriter, r *http.Request) (*deployments.Deployment, bool) {
	d, ok := m.deployments[chi.URLParam(r, "id")]
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "Deployment not found")
	}
	return d, ok
}

func (m *Manager) get(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	d, ok := m.lookup(w, r)
	var out deployments.Deployment
	if ok {
		out = *d
	}
	m.mu.Unlock()
	if ok {
		httputil.WriteJSON(w, http.StatusOK, out)
	}
}

func (m *Manager) getTasks(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	_, ok := m.lookup(w, r)
	tasks := append([]deployments.Task{}, m.tasks[chi.URLParam(r, "id")]...)
	m.mu.Unlock()
	if ok {
		httputil.WriteJSON(w, http.StatusOK, tasks)
	}
}

func (m *Manager) lifecycle(to deployments.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		d, ok := m.lookup(w, r)
		if !ok {
			return
		}
		if d.Status == deployments.StatusArchived {
			httputil.WriteError(w, http.StatusBadRequest, "Deployment is archived")
			return
		}
		if to == deployments.StatusRunning && m.StartFailures > 0 {
			m.StartFailures--
			httputil.WriteError(w, http.StatusPaymentRequired, "Insufficient funds in vault")
			return
		}
		d.Status = to
		d.UpdatedAt = m.Now().UTC()
		httputil.WriteJSON(w, http.StatusOK, deployments.StatusUpdate{Status: d.Status, UpdatedAt: d.UpdatedAt})
	}
}

func (m *Manager) updateReplicas(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Replicas int `json:"replicas"`
	}
	if err := httputil.DecodeJSONStrict(r, &body); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.lookup(w, r)
	if !ok {
		return
	}
	if d.Status == deployments.StatusArchived {
		httputil.WriteError(w, http.StatusBadRequest, "Deployment is archived")
		return
	}
	d.Replicas = body.Replicas
	d.UpdatedAt = m.Now().UTC()
	httputil.WriteJSON(w, http.StatusOK, deployments.ReplicaUpdate{Replicas: d.Replicas, UpdatedAt: d.UpdatedAt})
}

func (m *Manager) updateTimeout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Timeout int `json:"timeout"`
	}
	if err := httputil.DecodeJSONStrict(r, &body); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.lookup(w, r)
	if !ok {
		return
	}
	if d.Status == deployments.StatusArchived {
		httputil.WriteError(w, http.StatusBadRequest, "Deployment is archived")
		return
	}
	d.Timeout = body.Timeout
	d.UpdatedAt = m.Now().UTC()
	httputil.WriteJSON(w, http.StatusOK, deployments.TimeoutUpdate{Timeout: d.Timeout, UpdatedAt: d.UpdatedAt})
}

func (m *Manager) listVaults(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	out := make([]deployments.VaultSummary, 0, len(m.vaults))
	for addr := range m.vaults {
		out = append(out, deployments.VaultSummary{Address: addr})
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (m *Manager) vaultBalance(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	b, ok := m.vaults[chi.URLParam(r, "id")]
	m.mu.Unlock()
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "Vault not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (m *Manager) withdraw(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	tx, msg := m.WithdrawTx, m.WithdrawError
	m.mu.Unlock()
	switch {
	case msg != "":
		httputil.WriteError(w, http.StatusInternalServerError, msg)
	case tx == "":
		httputil.WriteError(w, http.StatusNotFound, "Vault not found")
	default:
		httputil.WriteJSON(w, http.StatusOK, deployments.WithdrawTransaction{Transaction: tx})
	}
}
