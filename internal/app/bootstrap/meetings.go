package bootstrap

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/telecare-appointments/internal/appointments"
	appconfig "github.com/wolfman30/telecare-appointments/internal/config"
	"github.com/wolfman30/telecare-appointments/internal/meetings"
	"github.com/wolfman30/telecare-appointments/internal/observability/metrics"
	"github.com/wolfman30/telecare-appointments/pkg/logging"
)

// MeetingProvider is the provider chosen from configuration together with
// the mode reported on /health.
type MeetingProvider struct {
	Provider meetings.Provider
	Mode     string
}

// BuildMeetingProvider wires the meetings client. Simulated mode, or missing
// credentials, yields a SimulatedProvider that never touches the network.
// redisClient is optional and only shares the access token across replicas.
func BuildMeetingProvider(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger, m *metrics.ProvisioningMetrics) (MeetingProvider, error) {
	if cfg == nil {
		return MeetingProvider{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	simulated := meetings.NewSimulatedProvider(cfg.SimulatedMeetingBaseURL)
	if cfg.UseSimulatedMeetings() {
		if cfg.MeetingProvider != appconfig.MeetingProviderSimulated {
			logger.Warn("meeting provider credentials missing, using simulated meetings")
		}
		return MeetingProvider{Provider: simulated, Mode: appconfig.MeetingProviderSimulated}, nil
	}

	exchanger, err := meetings.NewClientCredentialsExchanger(meetings.ExchangerConfig{
		TokenURL:     cfg.MeetingTokenURL,
		ClientID:     cfg.MeetingClientID,
		ClientSecret: cfg.MeetingClientSecret,
		AccountID:    cfg.MeetingAccountID,
	})
	if err != nil {
		return MeetingProvider{}, fmt.Errorf("bootstrap: meeting token exchanger: %w", err)
	}

	cacheOpts := []meetings.CacheOption{
		meetings.WithSafetyMargin(cfg.TokenSafetyMargin),
		meetings.WithSimulatedTTL(cfg.SimulatedTokenTTL),
		meetings.WithCacheMetrics(m),
	}
	if redisClient != nil {
		cacheOpts = append(cacheOpts, meetings.WithTokenStore(meetings.NewRedisTokenStore(redisClient, "")))
		logger.Info("sharing meeting provider token via redis")
	}
	cache := meetings.NewCredentialCache(exchanger, logger, cacheOpts...)

	client, err := meetings.NewClient(meetings.ClientConfig{
		BaseURL:   cfg.MeetingAPIBaseURL,
		Timezone:  cfg.AppointmentTimezone,
		Timeout:   cfg.MeetingHTTPTimeout,
		RateLimit: cfg.MeetingRateLimitRPS,
		Burst:     cfg.MeetingRateLimitBurst,
	}, cache, simulated, logger, m)
	if err != nil {
		return MeetingProvider{}, fmt.Errorf("bootstrap: meetings client: %w", err)
	}
	return MeetingProvider{Provider: client, Mode: appconfig.MeetingProviderZoom}, nil
}

// BuildAppointmentStore constructs the store with the configured timezone
// and meeting length.
func BuildAppointmentStore(cfg *appconfig.Config, provider meetings.Provider, logger *logging.Logger, m *metrics.ProvisioningMetrics) *appointments.Store {
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location()
	if loc == time.UTC && cfg.AppointmentTimezone != "" && cfg.AppointmentTimezone != "UTC" {
		logger.Warn("unknown appointment timezone, using UTC", "timezone", cfg.AppointmentTimezone)
	}
	return appointments.NewStore(provider, logger,
		appointments.WithLocation(loc),
		appointments.WithMeetingDuration(cfg.MeetingDefaultDurationMins),
		appointments.WithMetrics(m),
	)
}
