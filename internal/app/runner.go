package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/samvad-hq/oddsapi-go/internal/config"
	"github.com/samvad-hq/oddsapi-go/internal/credential"
	"github.com/samvad-hq/oddsapi-go/internal/logger"
	"github.com/samvad-hq/oddsapi-go/internal/metrics"
	"github.com/samvad-hq/oddsapi-go/internal/profiles"
	"github.com/samvad-hq/oddsapi-go/pkg/httpclient"
	"github.com/samvad-hq/oddsapi-go/pkg/oddsapi"
	"github.com/samvad-hq/oddsapi-go/pkg/publishers"
)

// Request selects one operation and its parameters. Empty fields fall back to
// the configured defaults.
type Request struct {
	Operation  oddsapi.Operation
	Sport      string
	Regions    string
	Markets    string
	OddsFormat string
	DateFormat string
	DaysFrom   *int
	All        *bool
}

// RequestFromProfile converts a stored preset into a Request.
func RequestFromProfile(p profiles.Profile) Request {
	return Request{
		Operation:  p.Operation,
		Sport:      p.Sport,
		Regions:    p.Regions,
		Markets:    p.Markets,
		OddsFormat: p.OddsFormat,
		DateFormat: p.DateFormat,
		DaysFrom:   p.DaysFrom,
		All:        p.All,
	}
}

// Result is what one successful operation produced.
type Result struct {
	Operation oddsapi.Operation
	SportKey  string
	Payload   json.RawMessage
	Usage     *oddsapi.Usage
	FetchedAt time.Time
	Published int
}

// Options carries the runner's injectable collaborators. Zero values pick the
// production implementations.
type Options struct {
	Out        io.Writer
	Clock      clockwork.Clock
	HTTPClient httpclient.Client
	Publishers publishers.Registry
}

// Runner executes single API operations for the CLI: it calls the client,
// prints the payload, fans the result out to publishers and records metrics.
type Runner struct {
	cfg     *config.Config
	client  *oddsapi.Client
	fanout  *publishers.Fanout
	metrics *metrics.Recorder
	clock   clockwork.Clock
	out     io.Writer
	log     logger.Logger
}

// NewRunner builds a runner from configuration.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	apiKey, err := credential.Resolve(credential.FromConfig(cfg))
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			return nil, fmt.Errorf("load api key: %w", err)
		}
		log.WarnObj("no api key configured; calls will fail without one", "credential", map[string]any{
			"env":  credential.EnvAPIKey,
			"file": cfg.APIKeyFile,
		})
	}

	recorder := metrics.NewRecorder()

	clientOpts := []oddsapi.Option{
		oddsapi.WithBaseURL(cfg.BaseURL),
		oddsapi.WithTimeout(cfg.HTTPTimeout),
		oddsapi.WithLogger(log),
		oddsapi.WithObserver(recorder),
		oddsapi.WithDefaults(oddsapi.Defaults{
			SportKey:   cfg.DefaultSport,
			Regions:    cfg.DefaultRegions,
			Markets:    cfg.DefaultMarkets,
			OddsFormat: cfg.DefaultOddsFormat,
			DateFormat: cfg.DefaultDateFormat,
			DaysFrom:   oddsapi.Int(cfg.DefaultDaysFrom),
		}),
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, oddsapi.WithHTTPClient(opts.HTTPClient))
	}

	fanout, err := buildFanout(ctx, cfg, log, opts.Publishers)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:     cfg,
		client:  oddsapi.New(apiKey, clientOpts...),
		fanout:  fanout,
		metrics: recorder,
		clock:   opts.Clock,
		out:     opts.Out,
		log:     log,
	}, nil
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger, reg publishers.Registry) (*publishers.Fanout, error) {
	if strings.TrimSpace(cfg.PublishersFile) == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	if reg == nil {
		reg = publishers.DefaultRegistry()
	}
	pubClients, err := publishers.BuildAll(ctx, reg, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.DebugObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Client exposes the underlying API client.
func (r *Runner) Client() *oddsapi.Client { return r.client }

// Metrics exposes the request recorder.
func (r *Runner) Metrics() *metrics.Recorder { return r.metrics }

// Execute performs one operation. On an API error nothing is written to the
// output. A publish failure is returned after the payload has been written.
func (r *Runner) Execute(ctx context.Context, req Request) (Result, error) {
	if r == nil || r.client == nil {
		return Result{}, fmt.Errorf("runner is not initialized")
	}

	res, err := r.call(ctx, req)
	if err != nil {
		return Result{}, err
	}
	res.FetchedAt = r.clock.Now().UTC()

	if err := r.write(res.Payload); err != nil {
		return res, fmt.Errorf("write output: %w", err)
	}

	if r.fanout.Size() == 0 {
		return res, nil
	}
	evt := publishers.NewEvent(string(res.Operation), res.SportKey, res.Payload, res.FetchedAt)
	if res.Usage != nil {
		evt.Usage = res.Usage.Map()
	}
	n, err := r.fanout.Publish(ctx, evt)
	res.Published = n
	if err != nil {
		r.log.ErrorObj("publish failed", "publish_error", map[string]any{
			"event_id":  evt.ID,
			"operation": evt.Operation,
			"delivered": n,
			"error":     err.Error(),
		})
		return res, fmt.Errorf("publish result: %w", err)
	}
	r.log.DebugObj("result published", "publish_meta", map[string]any{
		"event_id":  evt.ID,
		"operation": evt.Operation,
		"delivered": n,
	})
	return res, nil
}

// ExecuteProfile loads the profiles file and runs the named preset.
func (r *Runner) ExecuteProfile(ctx context.Context, id string) (Result, error) {
	reg, err := profiles.LoadRegistry(r.cfg.ProfilesFile)
	if err != nil {
		return Result{}, fmt.Errorf("load profiles: %w", err)
	}
	p, ok := reg.ByID(id)
	if !ok {
		return Result{}, fmt.Errorf("unknown profile %q (available: %s)", id, strings.Join(reg.IDs(), ", "))
	}
	return r.Execute(ctx, RequestFromProfile(p))
}

func (r *Runner) call(ctx context.Context, req Request) (Result, error) {
	res := Result{Operation: req.Operation}
	sport := req.Sport
	if strings.TrimSpace(sport) == "" {
		sport = r.client.Defaults().SportKey
	}

	var err error
	switch req.Operation {
	case oddsapi.OpSports:
		res.Payload, err = r.client.ListSports(ctx, oddsapi.SportsParams{All: req.All})
	case oddsapi.OpOdds:
		res.SportKey = sport
		res.Payload, err = r.client.GetOdds(ctx, oddsapi.OddsParams{
			SportKey:   sport,
			Regions:    req.Regions,
			Markets:    req.Markets,
			OddsFormat: req.OddsFormat,
			DateFormat: req.DateFormat,
		})
	case oddsapi.OpScores:
		res.SportKey = sport
		res.Payload, err = r.client.GetScores(ctx, oddsapi.ScoresParams{
			SportKey:   sport,
			DaysFrom:   req.DaysFrom,
			DateFormat: req.DateFormat,
		})
	case oddsapi.OpUsage:
		var usage oddsapi.Usage
		usage, err = r.client.GetUsage(ctx, oddsapi.UsageParams{})
		if err == nil {
			res.Usage = &usage
			res.Payload, err = json.Marshal(usage.Map())
		}
	default:
		return Result{}, fmt.Errorf("unknown operation %q", req.Operation)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (r *Runner) write(payload json.RawMessage) error {
	out := []byte(payload)
	if r.cfg.OutputPretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, payload, "", "  "); err == nil {
			out = buf.Bytes()
		}
	}
	if _, err := r.out.Write(out); err != nil {
		return err
	}
	_, err := io.WriteString(r.out, "\n")
	return err
}

// Close pushes metrics when a gateway is configured and releases publishers.
func (r *Runner) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if url := strings.TrimSpace(r.cfg.PushgatewayURL); url != "" {
		pushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := r.metrics.Push(pushCtx, url, r.cfg.MetricsJob); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	return errors.Join(errs...)
}
