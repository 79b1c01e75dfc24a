// Package shell wires the calmchat services together and processes
// interactive chat input.
package shell

import (
	"fmt"

	"github.com/spf13/viper"

	"calmchat/internal/logger"
	"calmchat/internal/services"
	"calmchat/pkg/chattypes"
)

// Options controls how the service graph is assembled.
type Options struct {
	Viper    *viper.Viper
	TestMode bool

	// ConfigDir and WorkDir override where config.yaml and .env files are
	// looked up. Empty values use the user config dir and the working dir.
	ConfigDir string
	WorkDir   string

	// Catalog replaces the embedded provider catalog.
	Catalog *services.ProviderCatalogService

	// Backends replaces the client factory as the backend resolver.
	Backends services.BackendResolver
}

// Services is the initialized service graph.
type Services struct {
	Registry     *services.Registry
	Config       *services.ConfigurationService
	Catalog      *services.ProviderCatalogService
	Clients      *services.ClientFactoryService
	Traffic      *services.TrafficCaptureService
	Selection    *services.SelectionService
	Failover     *services.FailoverService
	QuickReplies *services.QuickReplyService
	Chat         *services.ChatService
	Instructions *services.InstructionService
	History      *services.HistoryService
	Markdown     *services.MarkdownService
	Render       *services.RenderService
}

// InitializeServices registers every service in dependency order,
// initializes them and applies configured timeouts.
func InitializeServices(opts Options) (*Services, error) {
	config := services.NewConfigurationService(opts.Viper)
	config.SetPaths(opts.ConfigDir, opts.WorkDir)

	catalog := opts.Catalog
	if catalog == nil {
		catalog = services.NewProviderCatalogService()
	}

	traffic := services.NewTrafficCaptureService()
	clients := services.NewClientFactoryService(config)
	clients.SetHTTPClientProvider(traffic)
	var backends services.BackendResolver = clients
	if opts.Backends != nil {
		backends = opts.Backends
	}

	selection := services.NewSelectionService(catalog)
	failover := services.NewFailoverService(catalog, selection, backends)
	quickReplies := services.NewQuickReplyService(catalog, backends)

	svc := &Services{
		Registry:     services.NewRegistry(),
		Config:       config,
		Catalog:      catalog,
		Clients:      clients,
		Traffic:      traffic,
		Selection:    selection,
		Failover:     failover,
		QuickReplies: quickReplies,
		Chat:         services.NewChatService(failover, quickReplies, selection),
		Instructions: services.NewInstructionService(),
		History:      services.NewHistoryService(opts.TestMode),
		Markdown:     services.NewMarkdownService(),
		Render:       services.NewRenderService(),
	}

	// Registration order is initialization order: configuration first,
	// then the catalog that selection and failover depend on.
	for _, service := range []chattypes.Service{
		svc.Config,
		svc.Catalog,
		svc.Traffic,
		svc.Clients,
		svc.Selection,
		svc.Failover,
		svc.QuickReplies,
		svc.Chat,
		svc.Instructions,
		svc.History,
		svc.Markdown,
		svc.Render,
	} {
		if err := svc.Registry.RegisterService(service); err != nil {
			return nil, err
		}
	}

	if err := svc.Registry.InitializeAll(); err != nil {
		return nil, err
	}

	catalog.ApplyDefaultMaxOutputTokens(config.MaxOutputTokens())
	failover.SetAttemptTimeout(config.AttemptTimeout())
	quickReplies.SetTimeout(config.QuickReplyTimeout())

	logger.Debug("Services initialized", "providers", catalog.Len())
	return svc, nil
}

// SelectStartingServer applies a 1-based server number from the CLI.
// Zero keeps the default.
func (s *Services) SelectStartingServer(number int) error {
	if number == 0 {
		return nil
	}
	if !s.Chat.SetAPIService(number - 1) {
		return fmt.Errorf("server %d does not exist (have %d)", number, s.Catalog.Len())
	}
	return nil
}
