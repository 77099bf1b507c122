// Package config binds the closed list of environment variables from
// spec.md §6 (plus the worker/timeout knobs from §5) into a typed Config
// struct using github.com/spf13/viper, the way rakunlabs-at and
// r3e-network-service_layer bind process configuration.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the set of environment variables bound through viper. Fields
// map 1:1 to the closed list in spec.md §6. cmd/node also reads a few
// variables directly with os.Getenv, outside this struct:
// ANTHROPIC_API_KEY, ANTHROPIC_DEFAULT_MODEL, OPENAI_API_KEY,
// OPENAI_DEFAULT_MODEL and WALLET_SERVICE_URL.
type Config struct {
	// InstallFolderPath is an optional local path scanned for tool/agent
	// archives at init.
	InstallFolderPath string
	// ToolsDirectoryURL is the remote tool directory sync source.
	ToolsDirectoryURL string
	// SkipImportFromDirectory disables remote directory sync entirely.
	SkipImportFromDirectory bool
	// AddTestingNetworkEcho injects a testing network-tool echo on init.
	AddTestingNetworkEcho bool
	// AddTestingExternalNetworkEcho injects a testing external network-tool
	// echo on init.
	AddTestingExternalNetworkEcho bool
	// OnlyTestingPrompts restricts the static prompt set to testing prompts.
	OnlyTestingPrompts bool
	// IsTesting selects the testing prompt/tool set more broadly.
	IsTesting bool
	// SubscriberManagerNetworkConcurrency bounds the network subscriber
	// worker pool size.
	SubscriberManagerNetworkConcurrency int
	// NetworkJobManagerThreads bounds the job manager worker pool size.
	NetworkJobManagerThreads int
	// SubscriptionProcessIntervalMinutes sets the federation/subscription
	// scheduler cadence (hook only; federation itself is out of scope).
	SubscriptionProcessIntervalMinutes int
	// DebugTiming enables duration logging for timing-sensitive operations.
	DebugTiming bool
	// LogAll enables verbose logging across every component.
	LogAll bool
	// WelcomeMessage controls whether default folders are created on
	// profile init.
	WelcomeMessage bool
}

const (
	keyInstallFolderPath                   = "INSTALL_FOLDER_PATH"
	keyToolsDirectoryURL                    = "SHINKAI_TOOLS_DIRECTORY_URL"
	keySkipImportFromDirectory              = "SKIP_IMPORT_FROM_DIRECTORY"
	keyAddTestingNetworkEcho                = "ADD_TESTING_NETWORK_ECHO"
	keyAddTestingExternalNetworkEcho        = "ADD_TESTING_EXTERNAL_NETWORK_ECHO"
	keyOnlyTestingPrompts                   = "ONLY_TESTING_PROMPTS"
	keyIsTesting                            = "IS_TESTING"
	keySubscriberManagerNetworkConcurrency  = "SUBSCRIBER_MANAGER_NETWORK_CONCURRENCY"
	keyNetworkJobManagerThreads             = "NETWORK_JOB_MANAGER_THREADS"
	keySubscriptionProcessIntervalMinutes   = "SUBSCRIPTION_PROCESS_INTERVAL_MINUTES"
	keyDebugTiming                          = "DEBUG_TIMING"
	keyLogAll                               = "LOG_ALL"
	keyWelcomeMessage                       = "WELCOME_MESSAGE"

	// DefaultToolsDirectoryURL is used when SHINKAI_TOOLS_DIRECTORY_URL is unset.
	DefaultToolsDirectoryURL = "https://store-api.shinkai.com/store/defaults"

	// InvoicePollInterval is the cadence for both invoice-request and
	// invoice-payment polling loops (spec §4.4, §5).
	InvoicePollInterval = 100 * time.Millisecond
	// InvoicePollTimeout is the hard ceiling for both polling loops.
	InvoicePollTimeout = 5 * time.Minute
)

// Load reads the closed list of environment variables into a Config,
// applying the documented defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyToolsDirectoryURL, DefaultToolsDirectoryURL)
	v.SetDefault(keySubscriberManagerNetworkConcurrency, 4)
	v.SetDefault(keyNetworkJobManagerThreads, 4)
	v.SetDefault(keySubscriptionProcessIntervalMinutes, 30)

	return &Config{
		InstallFolderPath:                   v.GetString(keyInstallFolderPath),
		ToolsDirectoryURL:                   v.GetString(keyToolsDirectoryURL),
		SkipImportFromDirectory:             v.GetBool(keySkipImportFromDirectory),
		AddTestingNetworkEcho:               v.GetBool(keyAddTestingNetworkEcho),
		AddTestingExternalNetworkEcho:       v.GetBool(keyAddTestingExternalNetworkEcho),
		OnlyTestingPrompts:                  v.GetBool(keyOnlyTestingPrompts),
		IsTesting:                           v.GetBool(keyIsTesting),
		SubscriberManagerNetworkConcurrency: v.GetInt(keySubscriberManagerNetworkConcurrency),
		NetworkJobManagerThreads:            v.GetInt(keyNetworkJobManagerThreads),
		SubscriptionProcessIntervalMinutes:  v.GetInt(keySubscriptionProcessIntervalMinutes),
		DebugTiming:                         v.GetBool(keyDebugTiming),
		LogAll:                              v.GetBool(keyLogAll),
		WelcomeMessage:                      v.GetBool(keyWelcomeMessage),
	}, nil
}
