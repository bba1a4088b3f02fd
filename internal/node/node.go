package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// State is the node lifecycle from the node's own perspective.
type State int

const (
	StateDisconnected State = iota
	StateBootstrapping
	StateOperating
)

// Sampler reads the local sensors for one port.
type Sampler interface {
	Sample(port int) domain.TelemetrySample
}

// Relay drives the physical relay for one port.
type Relay interface {
	Set(port int, on bool)
}

type Config struct {
	ServerURL         string
	Ports             int
	TelemetryEvery    time.Duration
	PollEvery         time.Duration
	SafetyEvery       time.Duration
	BootstrapAttempts int
	DefaultLimits     domain.SafetyLimits
}

// Node is an embedded controller: it pushes telemetry at one cadence,
// polls for relay intent at a shorter one, and runs a local safety check
// that is never gated by either. The server owns relay intent; the node
// owns relay fact once applied.
type Node struct {
	cfg     Config
	httpc   *http.Client
	sampler Sampler
	relay   Relay

	mu      sync.Mutex
	state   State
	limits  domain.SafetyLimits
	relayOn map[int]bool
	last    map[int]domain.TelemetrySample
	tripped map[int]bool
}

func New(cfg Config, sampler Sampler, relay Relay) *Node {
	if cfg.Ports <= 0 {
		cfg.Ports = 4
	}
	if cfg.TelemetryEvery <= 0 {
		cfg.TelemetryEvery = time.Minute
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 5 * time.Second
	}
	if cfg.SafetyEvery <= 0 {
		cfg.SafetyEvery = time.Second
	}
	if cfg.BootstrapAttempts <= 0 {
		cfg.BootstrapAttempts = 3
	}
	if cfg.DefaultLimits == (domain.SafetyLimits{}) {
		cfg.DefaultLimits = domain.SafetyLimits{MaxVoltage: 250, MaxCurrent: 16, MaxPower: 3500}
	}
	return &Node{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		sampler: sampler,
		relay:   relay,
		limits:  cfg.DefaultLimits,
		relayOn: make(map[int]bool),
		last:    make(map[int]domain.TelemetrySample),
		tripped: make(map[int]bool),
	}
}

func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Node) Limits() domain.SafetyLimits {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.limits
}

func (n *Node) RelayOn(port int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.relayOn[port]
}

// Run bootstraps safety limits and then drives the three independent
// periodic actions until the context is cancelled.
func (n *Node) Run(ctx context.Context) {
	n.setState(StateBootstrapping)
	n.bootstrap(ctx)
	n.setState(StateOperating)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); n.loop(ctx, n.cfg.TelemetryEvery, n.pushTelemetry) }()
	go func() { defer wg.Done(); n.loop(ctx, n.cfg.PollEvery, n.pollControl) }()
	go func() { defer wg.Done(); n.loop(ctx, n.cfg.SafetyEvery, n.checkSafety) }()
	wg.Wait()
	n.setState(StateDisconnected)
}

func (n *Node) setState(s State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

func (n *Node) loop(ctx context.Context, every time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// bootstrap fetches safety limits with a bounded retry budget and falls
// back to the built-in defaults; limits never block operation forever.
func (n *Node) bootstrap(ctx context.Context) {
	for attempt := 1; attempt <= n.cfg.BootstrapAttempts; attempt++ {
		limits, err := n.fetchLimits(ctx)
		if err == nil {
			n.mu.Lock()
			n.limits = limits
			n.mu.Unlock()
			log.Info().Float64("max_power", limits.MaxPower).Msg("safety limits loaded")
			return
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("limits fetch failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
	log.Warn().Msg("proceeding with built-in safety limits")
}

func (n *Node) fetchLimits(ctx context.Context) (domain.SafetyLimits, error) {
	var limits domain.SafetyLimits
	if err := n.getJSON(ctx, "/api/limits", &limits); err != nil {
		return domain.SafetyLimits{}, err
	}
	return limits, nil
}

// pushTelemetry samples every port and pushes the readings. A port whose
// relay is off reads as zeros, which is also how a successful push
// re-asserts reality after a local safety cutoff.
func (n *Node) pushTelemetry(ctx context.Context) {
	for port := 1; port <= n.cfg.Ports; port++ {
		sample := n.sampler.Sample(port)
		n.mu.Lock()
		n.last[port] = sample
		n.mu.Unlock()
		if err := n.postJSON(ctx, "/api/telemetry", sample, nil); err != nil {
			log.Warn().Err(err).Int("port", port).Msg("telemetry push failed")
		}
	}
}

type controlResponse struct {
	Relays        map[string]string `json:"relays"`
	MasterEnabled bool              `json:"master_enabled"`
}

// pollControl fetches desired relay state and applies any difference to
// the physical relay immediately.
func (n *Node) pollControl(ctx context.Context) {
	var resp controlResponse
	if err := n.getJSON(ctx, "/api/control", &resp); err != nil {
		log.Warn().Err(err).Msg("control poll failed")
		return
	}
	for port := 1; port <= n.cfg.Ports; port++ {
		raw, ok := resp.Relays[fmt.Sprintf("%d", port)]
		if !ok {
			continue
		}
		desired := domain.ParseRelayState(raw).On() && resp.MasterEnabled
		n.mu.Lock()
		current := n.relayOn[port]
		if desired != current {
			n.relayOn[port] = desired
		}
		n.mu.Unlock()
		if desired != current {
			n.relay.Set(port, desired)
			log.Info().Int("port", port).Bool("on", desired).Msg("relay applied")
		}
	}
}

// checkSafety evaluates local limits against the most recent sample on
// every cycle, independent of the poll cadence. A breach forces the relay
// OFF and pushes a one-shot emergency alert; the flag re-arms once the
// port reads back inside limits.
func (n *Node) checkSafety(ctx context.Context) {
	n.mu.Lock()
	limits := n.limits
	n.mu.Unlock()

	for port := 1; port <= n.cfg.Ports; port++ {
		n.mu.Lock()
		sample, ok := n.last[port]
		n.mu.Unlock()
		if !ok {
			continue
		}
		if !limits.Exceeded(sample) {
			n.mu.Lock()
			n.tripped[port] = false
			n.mu.Unlock()
			continue
		}

		n.mu.Lock()
		already := n.tripped[port]
		n.tripped[port] = true
		wasOn := n.relayOn[port]
		n.relayOn[port] = false
		n.mu.Unlock()

		if wasOn {
			n.relay.Set(port, false)
		}
		if already {
			continue
		}
		report := domain.EmergencyReport{
			Port:      port,
			Reason:    "local safety limit exceeded",
			Voltage:   sample.Voltage,
			Current:   sample.Current,
			Power:     sample.Power,
			Timestamp: time.Now(),
		}
		if err := n.postJSON(ctx, "/api/alert/emergency", report, nil); err != nil {
			log.Error().Err(err).Int("port", port).Msg("emergency push failed")
		} else {
			log.Warn().Int("port", port).Float64("power", sample.Power).Msg("safety cutoff")
		}
	}
}

func (n *Node) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.ServerURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := n.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (n *Node) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.ServerURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
