package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodecore/node/internal/api"
	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/engine"
	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/inbox"
	"github.com/nodecore/node/internal/job"
	"github.com/nodecore/node/internal/network"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/payments"
	"github.com/nodecore/node/internal/providers/anthropic"
	"github.com/nodecore/node/internal/providers/openai"
	"github.com/nodecore/node/internal/registration"
	"github.com/nodecore/node/internal/sheet"
	"github.com/nodecore/node/internal/store"
	"github.com/nodecore/node/internal/telemetry"
	"github.com/nodecore/node/internal/toolregistry"
	"github.com/nodecore/node/internal/toolrouter"
	"github.com/nodecore/node/internal/wire"
)

// node bundles every wired component a serve/registration/rotate
// subcommand needs, assembled once in newNode.
type node struct {
	nodeName   string
	store      store.Store
	secret     *fileSecretStore
	encKeyPair crypto.EncryptionKeyPair
	sigKeyPair crypto.SignatureKeyPair

	resolver   *identity.InMemoryResolver
	registrar  *registration.Registrar
	regStore   *registration.Store
	validator  *api.Validator
	jobs       *job.Registry
	jobEngine  engine.JobEngine
	dispatcher *network.Dispatcher
	apiServer  *api.Server

	tools  *toolregistry.Registry
	router *toolrouter.Router
	broker *payments.Broker
	sheets *sheet.Sheet

	logger  telemetry.Logger
	metrics *telemetry.PrometheusMetrics
}

// loggingWidgetPublisher stands in for the WS routing layer, which spec.md
// §1 treats as an out-of-scope external collaborator: instead of pushing a
// payments.Widget over a live socket, it logs the widget structurally so a
// payment prompt or timeout is still observable from the node's own log
// stream.
type loggingWidgetPublisher struct {
	logger telemetry.Logger
}

func (p loggingWidgetPublisher) Publish(ctx context.Context, w payments.Widget) error {
	p.logger.Info(ctx, "payment widget", "type", w.Type, "invoice_id", w.Invoice.UniqueID, "error", w.ErrorMessage)
	return nil
}

// buildInferenceProviders wires every LLM provider this deployment has
// credentials for (spec.md §4.3 step 4 / C14); a provider whose API key
// environment variable is unset is simply omitted rather than failing
// node startup, since jobs that never target it are unaffected.
func buildInferenceProviders() map[string]job.InferenceProvider {
	providers := map[string]job.InferenceProvider{}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		model := os.Getenv("ANTHROPIC_DEFAULT_MODEL")
		if model == "" {
			model = "claude-3-5-sonnet-latest"
		}
		if client, err := anthropic.NewFromAPIKey(apiKey, model); err == nil {
			providers["anthropic"] = client
		}
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		model := os.Getenv("OPENAI_DEFAULT_MODEL")
		if model == "" {
			model = "gpt-4o-mini"
		}
		if client, err := openai.NewFromAPIKey(apiKey, model); err == nil {
			providers["openai"] = client
		}
	}
	return providers
}

func newNode(secretPath, storePath, nodeNameFlag string) (*node, error) {
	secret := newFileSecretStore(secretPath)
	s, err := secret.loadOrCreate(nodeNameFlag)
	if err != nil {
		return nil, err
	}

	backend, err := store.OpenBoltStore(storePath)
	if err != nil {
		return nil, err
	}

	var encKP crypto.EncryptionKeyPair
	copy(encKP.Private[:], s.EncPrivateKey)
	copy(encKP.Public[:], s.EncPublicKey)
	sigKP := crypto.SignatureKeyPair{Private: s.SigPrivateKey, Public: s.SigPublicKey}

	resolver := identity.NewInMemoryResolver()
	resolver.Put(identity.NodeRecord{
		NodeName:         s.NodeName,
		NodeEncryptionPK: encKP.Public,
		NodeSignaturePK:  sigKP.Public,
	})

	regStore := registration.NewStore(backend)
	registrar := registration.NewRegistrar(regStore, false, nil)

	validator := api.NewValidator(s.NodeName, encKP, regStore)
	bearer := registration.NewBearerTokens(regStore, nil)

	inboxStore := inbox.NewStore(backend)
	jobs := job.NewRegistry(backend, inboxStore)
	pipeline := job.NewPipeline(jobs, inboxStore, buildInferenceProviders(), nil)
	jobEngine := engine.NewInMemEngine(pipeline)

	logger := telemetry.NewZerologLogger(zerolog.New(os.Stderr).With().Timestamp().Str("node", s.NodeName).Logger())
	metrics := telemetry.NewPrometheusMetrics()

	tools := toolregistry.NewRegistry(backend)
	sheets := sheet.NewSheet(backend)

	n := &node{
		nodeName:   s.NodeName,
		store:      backend,
		secret:     secret,
		encKeyPair: encKP,
		sigKeyPair: sigKP,
		resolver:   resolver,
		registrar:  registrar,
		regStore:   regStore,
		validator:  validator,
		jobs:       jobs,
		jobEngine:  jobEngine,
		tools:      tools,
		sheets:     sheets,
		logger:     logger,
		metrics:    metrics,
	}
	n.dispatcher = network.NewDispatcher(s.NodeName, encKP, sigKP, resolver, network.NewGRPCTransport(), n)

	n.broker = payments.NewBroker(
		backend,
		payments.NewHTTPBalanceFetcher(walletURL(), nil),
		network.NewDispatchInvoiceRequester(n.dispatcher),
		loggingWidgetPublisher{logger: logger},
	)
	n.router = toolrouter.NewRouter(tools, map[toolregistry.Variant]toolrouter.Executor{
		toolregistry.VariantNetwork: toolrouter.NewNetworkExecutor(n.broker),
	}, nil)

	n.apiServer = api.NewServer(validator, bearer, jobs, inboxStore, tools, n.router, sheets)
	return n, nil
}

// walletURL is the wallet/settlement service's base URL (spec.md §1: wallet
// and payment settlement is an external collaborator reached over HTTP).
func walletURL() string {
	if url := os.Getenv("WALLET_SERVICE_URL"); url != "" {
		return url
	}
	return "http://localhost:9552"
}

// HandleInbound implements network.InboundHandler: a peer-delivered
// envelope is validated like any other v1 job message and appended to the
// target job's conversation inbox, then handed to the job engine so the
// inference chain continues exactly as if the message had arrived over
// the local v1 API.
func (n *node) HandleInbound(ctx context.Context, env wire.Envelope) error {
	n.metrics.IncCounter("node_inbound_envelopes_total", 1, "sender", env.ExternalMetadata.SenderNode)

	validated, err := n.validator.Validate(ctx, env, wire.SchemaJobMessage)
	if err != nil {
		n.metrics.IncCounter("node_inbound_validation_failures_total", 1, "sender", env.ExternalMetadata.SenderNode)
		return err
	}
	var req struct {
		JobID   string `json:"job_id"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(validated.Body.MessageRawContent), &req); err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "decode inbound job message", err)
	}
	n.logger.Info(ctx, "inbound job message", "job_id", req.JobID, "sender", validated.SenderFullName)

	start := time.Now()
	err = n.jobEngine.RunJob(ctx, engine.JobRunRequest{
		JobID:             req.JobID,
		RequesterFullName: validated.SenderFullName,
		UserContent:       req.Content,
		Now:               time.Now(),
	})
	n.metrics.RecordTimer("node_inbound_job_run_duration", time.Since(start), "job_id", req.JobID)
	if err != nil {
		n.logger.Error(ctx, "inbound job run failed", "job_id", req.JobID, "error", err.Error())
	}
	return err
}

func (n *node) close() error {
	return n.store.Close()
}
