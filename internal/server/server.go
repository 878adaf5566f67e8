// Package server orchestrates all components: COMMS client, journal, registry, dispatcher, HTTP status.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intentwire/intents-bridge/internal/config"
	"github.com/intentwire/intents-bridge/internal/monitoring"
	"github.com/intentwire/intents-bridge/pkg/channel"
	"github.com/intentwire/intents-bridge/pkg/dispatcher"
	"github.com/intentwire/intents-bridge/pkg/events"
	"github.com/intentwire/intents-bridge/pkg/intent"
	"github.com/intentwire/intents-bridge/pkg/manifest"
	"github.com/intentwire/intents-bridge/pkg/platform"
	"github.com/intentwire/intents-bridge/pkg/registry"
	"github.com/intentwire/intents-bridge/pkg/store"
)

const logPrefix = "server:server"

// registryForServer is the registry surface the HTTP status pages read.
type registryForServer interface {
	List() []intent.Descriptor
	BindingStates() []events.BindingState
	Describe(identifier string) (*registry.DescribeOutput, *intent.Error)
}

// bridgeHealth reports dependency health for /health and the home page.
type bridgeHealth interface {
	Health(ctx context.Context) *dispatcher.HealthOutput
}

// donationLog is the journal surface the home page reads. Nil when the bridge
// runs without a database.
type donationLog interface {
	RecentDonations(ctx context.Context, limit int) ([]store.Donation, error)
}

// Server is the intents-bridge orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	httpServer *http.Server
	reg        registryForServer
	disp       bridgeHealth
	journal    donationLog
}

// descriptorSource resolves identifiers back to their full registration so
// binding snapshots can persist the descriptor alongside the state.
type descriptorSource interface {
	Lookup(identifier string) (registry.Registration, bool)
}

// bridgeSyncer fans each shortcut change out to the wire publisher, the
// journal's binding snapshot table, and the registered-intents gauge. Snapshot
// failures are logged and swallowed; the publish result is what the registry
// sees.
type bridgeSyncer struct {
	publisher events.ShortcutSyncer
	repo      *store.Repository
	metrics   *monitoring.Metrics
	// source is attached right after the registry is built, before any
	// registration can trigger a sync.
	source descriptorSource
}

func (b *bridgeSyncer) PublishShortcutsChanged(ctx context.Context, event *events.ShortcutsChangedEvent) error {
	if b.metrics != nil {
		b.metrics.SetRegisteredIntents(len(event.Bindings))
	}
	err := b.publisher.PublishShortcutsChanged(ctx, event)
	if b.repo != nil {
		bindings := make([]store.IntentBinding, 0, len(event.Bindings))
		for _, state := range event.Bindings {
			binding := store.IntentBinding{
				Identifier:   state.Identifier,
				Title:        state.Title,
				Descriptor:   map[string]any{"identifier": state.Identifier},
				Discoverable: state.Discoverable,
				Reason:       state.Reason,
			}
			if b.source != nil {
				if reg, ok := b.source.Lookup(state.Identifier); ok {
					binding.Descriptor = reg.Descriptor.ToMap()
				}
			}
			bindings = append(bindings, binding)
		}
		if serr := b.repo.SaveBindingSnapshot(ctx, bindings); serr != nil {
			slog.Warn(fmt.Sprintf("%s - binding snapshot save failed: %v", logPrefix, serr))
		}
	}
	return err
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	// Setup structured logging
	var logLevel slog.Level
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info(fmt.Sprintf("%s - Starting intents-bridge", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}

	// Step 1: Load compiled-intent manifest and resolve effective event
	// subjects (config overrides manifest, manifest overrides defaults).
	manifestCfg, err := manifest.LoadManifestConfig(cfg.ManifestFile)
	if err != nil {
		return fmt.Errorf("%s - failed to load intent manifest: %w", logPrefix, err)
	}
	if manifestCfg.Events.Donation == "" {
		manifestCfg.Events.Donation = channel.SubjectDonation
	}
	if manifestCfg.Events.Shortcuts == "" {
		manifestCfg.Events.Shortcuts = channel.SubjectShortcuts
	}
	if manifestCfg.Events.Pattern == "" {
		manifestCfg.Events.Pattern = channel.SubjectDonation + ".{identifier}"
	}
	if cfg.DonationSubject != "" {
		manifestCfg.Events.Donation = cfg.DonationSubject
	}
	if cfg.ShortcutsSubject != "" {
		manifestCfg.Events.Shortcuts = cfg.ShortcutsSubject
	}
	resolved := manifest.CreateResolvedManifest(manifestCfg)

	// Determine dispatch subjects
	invokeSubject := cfg.InvokeSubject
	if invokeSubject == "" {
		invokeSubject = channel.SubjectInvoke
	}
	controlSubject := cfg.ControlSubject
	if controlSubject == "" {
		controlSubject = channel.SubjectControl
	}
	slog.Info(fmt.Sprintf("%s - Invoke subject: %s, control subject: %s", logPrefix, invokeSubject, controlSubject))

	// Step 2: Platform gate. An unsupported host fails startup once, here.
	host, err := platform.NewHost(cfg.HostOS, cfg.HostOSVersion)
	if err != nil {
		return fmt.Errorf("%s - invalid host platform: %w", logPrefix, err)
	}
	if err := host.Validate(); err != nil {
		return fmt.Errorf("%s - host platform rejected: %w", logPrefix, err)
	}
	if host != nil {
		slog.Info(fmt.Sprintf("%s - Host platform: %s %s", logPrefix, host.OS, host.Version))
	}

	// Step 3: Connect to COMMS
	nc, err := channel.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	s.nc = nc

	// Step 4: Connect to the donation journal. An empty DATABASE_URL runs the
	// bridge journalless: no suggestions, no binding snapshots.
	var repo *store.Repository
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			nc.Close()
			return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool

		// Step 4b: Run migrations if enabled
		if cfg.RunMigrations {
			migrationSQL, err := store.LoadMigrationFiles(cfg.MigrationPath)
			if err != nil {
				pool.Close()
				nc.Close()
				return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := store.RunMigrations(ctx, pool, migrationSQL); err != nil {
				pool.Close()
				nc.Close()
				return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
		repo = store.NewRepository(pool)
	} else {
		slog.Info(fmt.Sprintf("%s - DATABASE_URL empty, journal disabled", logPrefix))
	}

	// Step 5: Publisher, metrics, registry with reconciliation
	metrics := monitoring.NewMetrics()
	publisher := events.NewCommsPublisher(nc, &events.CommsPublisherOpts{
		DonationSubject:  manifestCfg.Events.Donation,
		ShortcutsSubject: manifestCfg.Events.Shortcuts,
	})
	syncer := &bridgeSyncer{publisher: publisher, repo: repo, metrics: metrics}
	reg := registry.NewRegistry(registry.NewRegistryParams{
		Syncer:   syncer,
		Manifest: resolved,
		Host:     host,
	})
	syncer.source = reg
	s.reg = reg

	// Step 5b: Dispatcher
	var journal dispatcher.Journal
	if repo != nil {
		journal = repo
		s.journal = repo
	}
	disp := dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Registry: reg,
		Conn:     nc,
		Donor:    publisher,
		Journal:  journal,
		Metrics:  metrics,
	})
	s.disp = disp

	// Step 6: Subscribe to the invoke and control subjects
	requestTimeout := cfg.RequestTimeout
	invokeSub, err := nc.Subscribe(invokeSubject, func(msg *comms.Msg) {
		var req dispatcher.InvocationRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode invocation request: %v", logPrefix, err))
			resp := &dispatcher.InvocationResponse{
				Code:   "INVALID_REQUEST",
				Result: intent.Failure("failed to decode invocation request").ToMap(),
			}
			data, _ := json.Marshal(resp)
			msg.Respond(data)
			return
		}

		// The bridge owns the default per-request deadline; the dispatcher
		// tightens it when the caller supplied an explicit one.
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		resp := disp.Invoke(reqCtx, &req)

		data, err := json.Marshal(resp)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to encode invocation response: %v", logPrefix, err))
			return
		}
		msg.Respond(data)
	})
	if err != nil {
		if s.pool != nil {
			s.pool.Close()
		}
		nc.Close()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, invokeSubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, invokeSubject))

	controlSub, err := nc.Subscribe(controlSubject, func(msg *comms.Msg) {
		var req dispatcher.ControlRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode control request: %v", logPrefix, err))
			resp := &dispatcher.ControlResponse{
				Ok: false,
				Error: &dispatcher.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "Failed to decode request",
				},
			}
			data, _ := json.Marshal(resp)
			msg.Respond(data)
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		resp := disp.Control(reqCtx, &req)

		data, err := json.Marshal(resp)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to encode control response: %v", logPrefix, err))
			return
		}
		msg.Respond(data)
	})
	if err != nil {
		invokeSub.Unsubscribe()
		if s.pool != nil {
			s.pool.Close()
		}
		nc.Close()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, controlSubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, controlSubject))

	// Step 6b: Subscribe to the static manifest subject (returns the resolved
	// compiled-intent manifest, with effective event subjects filled in).
	manifestSub, err := nc.Subscribe(channel.SubjectManifest, func(msg *comms.Msg) {
		data, err := json.Marshal(manifestCfg)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - manifest response encode: %v", logPrefix, err))
			return
		}
		msg.Respond(data)
	})
	if err != nil {
		controlSub.Unsubscribe()
		invokeSub.Unsubscribe()
		if s.pool != nil {
			s.pool.Close()
		}
		nc.Close()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, channel.SubjectManifest, err)
	}
	defer manifestSub.Unsubscribe()
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, channel.SubjectManifest))

	// Step 7: Start HTTP status server
	healthTimeout := cfg.HealthCheckTimeout
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/intent/", s.handleIntentDetail())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		healthCtx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		h := disp.Health(healthCtx)
		w.Header().Set("Content-Type", "application/json")
		if h.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = fmt.Sprintf(":%d", cfg.HTTPPort)
	}
	s.httpServer = &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP status server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Intents bridge is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	invokeSub.Unsubscribe()
	controlSub.Unsubscribe()
	s.httpServer.Shutdown(ctx)
	nc.Drain()
	if s.pool != nil {
		s.pool.Close()
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// homePageTemplate is the HTML for the bridge home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Intents Bridge</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>Intents Bridge</h1>
  <p class="meta">Bridge health, registered intents, and recent donations.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Channel: {{if .Health.Checks.Channel}}<span class="stat">OK</span>{{else}}<span class="error">Failed</span>{{end}}</p>
    <p>Journal: {{if .Health.Checks.Journal}}<span class="stat">OK</span>{{else}}{{if .HasJournal}}<span class="error">Failed</span>{{else}}Disabled{{end}}{{end}}</p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Statistics</h2>
    <p>Registered intents: <span class="stat">{{.Health.RegisteredIntents}}</span></p>
    <p>Discoverable: <span class="stat">{{.Discoverable}}</span></p>
  </section>

  <section>
    <h2>Registered intents</h2>
    {{if not .Intents}}
    <p>No intents registered.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Intent</th><th>Title</th><th>Parameters</th><th>Search</th><th>Prediction</th><th>Discoverable</th></tr>
      </thead>
      <tbody>
        {{range .Intents}}
        <tr>
          <td><a href="/intent/{{.Identifier}}">{{.Identifier}}</a></td>
          <td>{{.Title}}</td>
          <td>{{.Parameters}}</td>
          <td>{{if .Search}}yes{{else}}no{{end}}</td>
          <td>{{if .Prediction}}yes{{else}}no{{end}}</td>
          <td>{{if .Discoverable}}yes{{else}}no ({{.Reason}}){{end}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>

  <section>
    <h2>Recent donations</h2>
    {{if not .HasJournal}}
    <p>Journal disabled; donation history unavailable.</p>
    {{else if .DonationsError}}
    <p class="error">Could not load donations: {{.DonationsError}}</p>
    {{else if not .Donations}}
    <p>No donations recorded.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Intent</th><th>Source</th><th>Donated at</th></tr>
      </thead>
      <tbody>
        {{range .Donations}}
        <tr>
          <td><a href="/intent/{{.Intent}}">{{.Intent}}</a></td>
          <td>{{.Source}}</td>
          <td>{{.DonatedAt}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

// intentDetailPageTemplate is the HTML for a single intent detail page (describe output).
const intentDetailPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Identifier}} - Intents Bridge</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; width: 160px; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 0.5rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
    pre { background: #f5f5f5; padding: 0.75rem; overflow-x: auto; font-size: 0.85rem; margin: 0.25rem 0; border: 1px solid #eee; }
    .back { margin-bottom: 1rem; }
    .actions { margin: 1rem 0; }
    .btn { display: inline-block; padding: 0.5rem 1rem; background: #0066cc; color: #fff; text-decoration: none; border-radius: 4px; }
    .btn:hover { background: #0052a3; }
  </style>
</head>
<body>
  <p class="back"><a href="/">&larr; Back to bridge</a></p>
  {{if .DescribeError}}
  <p class="error">Could not load intent: {{.DescribeError}}</p>
  {{else}}
  <h1>{{.Identifier}}</h1>
  {{if .Description}}<p class="meta">{{.Description}}</p>{{end}}
  <p class="actions"><a href="/intent/{{.Identifier}}/docs" class="btn">View API (Swagger)</a></p>

  <section>
    <h2>Details</h2>
    <table>
      <tr><th>Identifier</th><td>{{.Identifier}}</td></tr>
      <tr><th>Title</th><td>{{.Title}}</td></tr>
      {{if .AuthPolicy}}<tr><th>Authentication</th><td>{{.AuthPolicy}}</td></tr>{{end}}
      {{if .MinimumOSVersion}}<tr><th>Minimum OS</th><td>{{.MinimumOSVersion}}</td></tr>{{end}}
      <tr><th>Search</th><td>{{if .Search}}yes{{else}}no{{end}}</td></tr>
      <tr><th>Prediction</th><td>{{if .Prediction}}yes{{else}}no{{end}}</td></tr>
      <tr><th>Compiled</th><td>{{if .Compiled}}yes{{else}}no{{end}}</td></tr>
      <tr><th>Discoverable</th><td>{{if .Discoverable}}yes{{else}}no ({{.Reason}}){{end}}</td></tr>
    </table>
  </section>

  <section>
    <h2>Parameters</h2>
    {{if not .Params}}
    <p>No parameters declared.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Name</th><th>Title</th><th>Type</th><th>Required</th><th>Default</th><th>Description</th></tr>
      </thead>
      <tbody>
        {{range .Params}}
        <tr>
          <td>{{.Name}}</td>
          <td>{{.Title}}</td>
          <td>{{.Type}}</td>
          <td>{{if .Optional}}no{{else}}yes{{end}}</td>
          <td>{{if .Default}}<pre>{{.Default}}</pre>{{end}}</td>
          <td>{{.Description}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
  {{end}}
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Health         *dispatcher.HealthOutput
	Intents        []intentRow
	Discoverable   int
	HasJournal     bool
	Donations      []store.Donation
	DonationsError string
}

// intentRow is one row of the home page intents table.
type intentRow struct {
	Identifier   string
	Title        string
	Parameters   int
	Search       bool
	Prediction   bool
	Discoverable bool
	Reason       string
}

// handleHome returns an HTTP handler for the bridge home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{Health: s.disp.Health(ctx)}

		descs := s.reg.List()
		states := s.reg.BindingStates()
		for i, desc := range descs {
			row := intentRow{
				Identifier: desc.Identifier,
				Title:      desc.Title,
				Parameters: len(desc.Parameters),
				Search:     desc.IsEligibleForSearch,
				Prediction: desc.IsEligibleForPrediction,
			}
			if i < len(states) {
				row.Discoverable = states[i].Discoverable
				row.Reason = states[i].Reason
			}
			if row.Discoverable {
				data.Discoverable++
			}
			data.Intents = append(data.Intents, row)
		}

		if s.journal != nil {
			data.HasJournal = true
			donations, err := s.journal.RecentDonations(ctx, 10)
			if err != nil {
				data.DonationsError = err.Error()
			} else {
				data.Donations = donations
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// intentDetailData is the data passed to the intent detail page template.
type intentDetailData struct {
	Identifier       string
	Title            string
	Description      string
	AuthPolicy       string
	MinimumOSVersion string
	Search           bool
	Prediction       bool
	Compiled         bool
	Discoverable     bool
	Reason           string
	Params           []paramRow
	DescribeError    string
}

// paramRow is one row of the detail page parameter table.
type paramRow struct {
	Name        string
	Title       string
	Type        string
	Optional    bool
	Default     string
	Description string
}

func detailDataFor(out *registry.DescribeOutput) intentDetailData {
	desc := out.Descriptor
	data := intentDetailData{
		Identifier:       desc.Identifier,
		Title:            desc.Title,
		Description:      desc.Description,
		AuthPolicy:       string(desc.AuthenticationPolicy),
		MinimumOSVersion: desc.MinimumOSVersion,
		Search:           desc.IsEligibleForSearch,
		Prediction:       desc.IsEligibleForPrediction,
		Compiled:         out.Compiled,
		Discoverable:     out.Discoverable,
		Reason:           out.Reason,
	}
	for _, p := range desc.Parameters {
		row := paramRow{
			Name:        p.Name,
			Title:       p.Title,
			Type:        string(p.Type),
			Optional:    p.IsOptional,
			Description: p.Description,
		}
		if p.DefaultValue != nil {
			if b, err := json.Marshal(p.DefaultValue); err == nil {
				row.Default = string(b)
			} else {
				row.Default = fmt.Sprintf("%v", p.DefaultValue)
			}
		}
		data.Params = append(data.Params, row)
	}
	return data
}

// openAPI3 types for generating specs from intent descriptors.
type openAPI3Spec struct {
	OpenAPI string                      `json:"openapi"`
	Info    openAPI3Info                `json:"info"`
	Paths   map[string]openAPI3PathItem `json:"paths"`
}

type openAPI3Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type openAPI3PathItem struct {
	Post *openAPI3Operation `json:"post,omitempty"`
}

type openAPI3Operation struct {
	Summary     string                      `json:"summary"`
	Description string                      `json:"description,omitempty"`
	OperationID string                      `json:"operationId"`
	RequestBody *openAPI3RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]openAPI3Response `json:"responses"`
}

type openAPI3RequestBody struct {
	Content map[string]openAPI3MediaType `json:"content"`
}

type openAPI3Response struct {
	Description string                       `json:"description"`
	Content     map[string]openAPI3MediaType `json:"content,omitempty"`
}

type openAPI3MediaType struct {
	Schema map[string]any `json:"schema,omitempty"`
}

// parameterSchema maps one parameter declaration to a JSON schema fragment.
func parameterSchema(p intent.Parameter) map[string]any {
	schema := map[string]any{}
	switch p.Type {
	case intent.TypeInteger:
		schema["type"] = "integer"
	case intent.TypeDouble:
		schema["type"] = "number"
	case intent.TypeBoolean:
		schema["type"] = "boolean"
	case intent.TypeDate:
		schema["type"] = "string"
		schema["format"] = "date-time"
	case intent.TypeURL:
		schema["type"] = "string"
		schema["format"] = "uri"
	case intent.TypeEntity:
		schema["type"] = "object"
		schema["properties"] = map[string]any{
			"id":       map[string]any{"type": "string"},
			"title":    map[string]any{"type": "string"},
			"subtitle": map[string]any{"type": "string"},
		}
	default:
		schema["type"] = "string"
	}
	if p.Description != "" {
		schema["description"] = p.Description
	}
	if p.DefaultValue != nil {
		schema["default"] = p.DefaultValue
	}
	return schema
}

// resultSchema is the response shape every invocation returns.
func resultSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success":              map[string]any{"type": "boolean"},
			"value":                map[string]any{},
			"error":                map[string]any{"type": "string"},
			"needsToContinueInApp": map[string]any{"type": "boolean"},
			"opensIntent":          map[string]any{"type": "string"},
		},
	}
}

// buildOpenAPISpec builds an OpenAPI 3.0 spec from an intent descriptor (one
// invoke path, parameters as the request body schema).
func buildOpenAPISpec(out *registry.DescribeOutput) *openAPI3Spec {
	desc := out.Descriptor

	properties := make(map[string]any, len(desc.Parameters))
	required := make([]string, 0, len(desc.Parameters))
	for _, p := range desc.Parameters {
		properties[p.Name] = parameterSchema(p)
		if !p.IsOptional {
			required = append(required, p.Name)
		}
	}
	inputSchema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	summary := desc.Title
	if summary == "" {
		summary = desc.Identifier
	}
	paths := map[string]openAPI3PathItem{
		"/" + desc.Identifier: {
			Post: &openAPI3Operation{
				Summary:     summary,
				Description: desc.Description,
				OperationID: desc.Identifier,
				RequestBody: &openAPI3RequestBody{
					Content: map[string]openAPI3MediaType{
						"application/json": {Schema: inputSchema},
					},
				},
				Responses: map[string]openAPI3Response{
					"200": {
						Description: "Invocation result",
						Content: map[string]openAPI3MediaType{
							"application/json": {Schema: resultSchema()},
						},
					},
				},
			},
		},
	}

	info := desc.Description
	if info == "" {
		info = "Intent " + desc.Identifier
	}
	return &openAPI3Spec{
		OpenAPI: "3.0.0",
		Info: openAPI3Info{
			Title:       desc.Identifier,
			Description: info,
			Version:     "1.0.0",
		},
		Paths: paths,
	}
}

// swaggerUIPage is the HTML that embeds Swagger UI from CDN and loads the OpenAPI spec.
const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>API - {{.Identifier}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      SwaggerUIBundle({
        url: "{{.SpecURL}}",
        dom_id: "#swagger-ui",
        presets: [
          SwaggerUIBundle.presets.apis,
          SwaggerUIBundle.SwaggerUIStandalonePreset
        ]
      });
    };
  </script>
</body>
</html>
`

// handleIntentDetail returns an HTTP handler for the intent detail page
// (describe), OpenAPI spec, and Swagger docs.
func (s *Server) handleIntentDetail() http.HandlerFunc {
	tmpl := template.Must(template.New("intentDetail").Parse(intentDetailPageTemplate))
	swaggerTmpl := template.Must(template.New("swagger").Parse(swaggerUIPage))
	return func(w http.ResponseWriter, r *http.Request) {
		pathIntent := strings.TrimPrefix(r.URL.Path, "/intent/")
		if pathIntent == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		identifier := pathIntent
		suffix := ""
		if idx := strings.Index(pathIntent, "/"); idx >= 0 {
			identifier = pathIntent[:idx]
			suffix = pathIntent[idx+1:]
		}
		identifier, err := url.PathUnescape(identifier)
		if err != nil {
			identifier = pathIntent
			if idx := strings.Index(identifier, "/"); idx >= 0 {
				identifier = identifier[:idx]
			}
		}

		describe, derr := s.reg.Describe(identifier)
		if derr != nil {
			if derr.Code == intent.CodeUnknownIntent {
				http.NotFound(w, r)
				return
			}
			if suffix == "" {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				tmpl.Execute(w, intentDetailData{DescribeError: derr.Message})
			} else {
				http.Error(w, derr.Message, http.StatusInternalServerError)
			}
			return
		}

		switch suffix {
		case "openapi.json":
			spec := buildOpenAPISpec(describe)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "public, max-age=60")
			if err := json.NewEncoder(w).Encode(spec); err != nil {
				slog.Error(fmt.Sprintf("%s - openapi json encode: %v", logPrefix, err))
			}
			return
		case "docs":
			// Build absolute spec URL from request host so Swagger UI can fetch it
			specURL := "https://" + r.Host + "/intent/" + url.PathEscape(identifier) + "/openapi.json"
			if r.TLS == nil {
				specURL = "http://" + r.Host + "/intent/" + url.PathEscape(identifier) + "/openapi.json"
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			swaggerTmpl.Execute(w, map[string]string{"Identifier": identifier, "SpecURL": specURL})
			return
		case "":
			// fall through to detail page
		default:
			http.NotFound(w, r)
			return
		}

		data := detailDataFor(describe)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - intent detail template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
