// Package monitoring exposes a running network over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/disim/monitoring/web"
	"github.com/sarchlab/disim/sim"
)

// Monitor turns a network into a server that allows external monitoring and
// control.
type Monitor struct {
	network         *sim.Network
	portNumber      int
	profileDuration time.Duration
	logger          *slog.Logger
	idGen           sim.IDGenerator

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
	url    string
}

// NewMonitor creates a new Monitor for a network.
func NewMonitor(network *sim.Network) *Monitor {
	return &Monitor{
		network:         network,
		profileDuration: time.Second,
		logger:          slog.Default(),
		idGen:           sim.NewParallelIDGenerator(),
	}
}

// WithPortNumber sets the port number of the monitor. Port numbers below 1000
// are not allowed; a random port is used instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		m.logger.Warn("monitor port not allowed, using a random port",
			"port", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// WithProfileDuration sets how long the CPU is profiled on /api/profile.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(m.idGen.Generate(), name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler of all the routes of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseNetwork).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.continueNetwork).Methods(http.MethodPost)
	r.HandleFunc("/api/reset", m.resetNetwork).Methods(http.MethodPost)
	r.HandleFunc("/api/list_elements", m.listElements)
	r.HandleFunc("/api/element/{name}", m.listElementDetails)
	r.HandleFunc("/api/wires", m.listWires)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.Assets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitor.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitor: %w", err)
	}

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor stopped", "error", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.url)

	return m.url, nil
}

// URL returns the address the server listens on, or an empty string if the
// server is not started.
func (m *Monitor) URL() string {
	return m.url
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pauseNetwork(w http.ResponseWriter, _ *http.Request) {
	m.network.Pause()
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) continueNetwork(w http.ResponseWriter, _ *http.Request) {
	m.network.Resume()
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) resetNetwork(w http.ResponseWriter, _ *http.Request) {
	err := m.network.Reset()
	if errors.Is(err, sim.ErrNotLoaded) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type elementRsp struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Paused     bool   `json:"paused"`
	Processing bool   `json:"processing"`
	State      string `json:"state,omitempty"`
}

type processingElement interface {
	IsProcessing() bool
}

func describeElement(e sim.Element) elementRsp {
	rsp := elementRsp{
		Name:   e.Name(),
		Paused: e.IsPaused(),
	}

	if p, ok := e.(processingElement); ok {
		rsp.Processing = p.IsProcessing()
	}

	switch e := e.(type) {
	case *sim.Wire:
		rsp.Kind = "wire"
		rsp.Processing = false
	case *sim.Merge:
		rsp.Kind = "merge"
	case *sim.Fork:
		rsp.Kind = "fork"
	case *sim.Join:
		rsp.Kind = "join"
	case *sim.ConflictElement:
		rsp.Kind = "conflict"
		if e.IsSynchronized() {
			rsp.Kind = "synchronized_conflict"
		}

		rsp.State = e.State().String()
	default:
		rsp.Kind = "unknown"
	}

	return rsp
}

func (m *Monitor) listElements(w http.ResponseWriter, _ *http.Request) {
	elements := m.network.Elements()

	rsp := make([]elementRsp, 0, len(elements))
	for _, e := range elements {
		rsp = append(rsp, describeElement(e))
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) listElementDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	element, found := m.network.ElementByName(name)
	if !found {
		http.Error(w, "Element not found", http.StatusNotFound)
		return
	}

	buf := bytes.NewBuffer(nil)

	serializer := goseth.NewSerializer()
	serializer.SetRoot(snapshotElement(element))
	serializer.SetMaxDepth(3)

	if err := serializer.Serialize(buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	m.write(w, buf.Bytes())
}

type wireRsp struct {
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Arrived  bool   `json:"arrived"`
	Progress int    `json:"progress"`
}

func (m *Monitor) listWires(w http.ResponseWriter, _ *http.Request) {
	wires := m.network.Wires()

	rsp := make([]wireRsp, 0, len(wires))
	for _, wire := range wires {
		rsp = append(rsp, wireRsp{
			Name:     wire.Name(),
			Active:   wire.IsActive(),
			Arrived:  wire.HasArrived(),
			Progress: wire.Progress(),
		})
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	now := time.Now()
	bars := make([]progressReport, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.report(now))
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	m.write(w, data)
}

func (m *Monitor) write(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		m.logger.Warn("failed to write response", "error", err)
	}
}
