package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hannes/pellucid-sanitizer/anonymizer"
	"github.com/hannes/pellucid-sanitizer/config"
	"github.com/hannes/pellucid-sanitizer/pii"
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
	"github.com/hannes/pellucid-sanitizer/sanitizer"
	"github.com/hannes/pellucid-sanitizer/store"
)

// components is everything a command needs to sanitize text
type components struct {
	local   *pii.LocalSanitizer
	client  *anonymizer.Client // nil when the remote is disabled
	service *sanitizer.Service
}

// buildCatalog returns the default catalog with the optional YAML overlay applied
func buildCatalog(c *config.Config) (*detectors.Catalog, error) {
	catalog := detectors.DefaultCatalog()
	if c.Sanitizer.CatalogPath == "" {
		return catalog, nil
	}
	catalog, err := catalog.WithOverlay(c.Sanitizer.CatalogPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", c.Sanitizer.CatalogPath).Msg("catalog overlay loaded")
	return catalog, nil
}

func buildComponents(c *config.Config) (*components, error) {
	catalog, err := buildCatalog(c)
	if err != nil {
		return nil, err
	}
	mode, err := pii.ParseMappingMode(c.Sanitizer.MappingMode)
	if err != nil {
		return nil, err
	}
	local := pii.NewLocalSanitizer(catalog, pii.WithMappingMode(mode))

	out := &components{local: local}
	if !c.Remote.Enabled {
		out.service = sanitizer.New(local, nil)
		return out, nil
	}

	timeout, err := c.RemoteTimeout()
	if err != nil {
		return nil, err
	}
	out.client = anonymizer.New(c.Remote.BaseURL,
		anonymizer.WithTimeout(timeout),
		anonymizer.WithRateLimit(c.Remote.RateLimit, c.Remote.Burst),
		anonymizer.WithCustomEntities(c.Remote.CustomEntities),
	)
	// the client is passed only when set: a typed nil would count as a remote
	out.service = sanitizer.New(local, out.client)
	return out, nil
}

func defaultOptions(c *config.Config) (sanitizer.Options, error) {
	level, err := c.DefaultPrivacyLevel()
	if err != nil {
		return sanitizer.Options{}, err
	}
	return sanitizer.Options{Level: level, PreserveContext: c.Sanitizer.PreserveContext}, nil
}

// buildStore opens Postgres when the database is enabled and falls back to
// memory otherwise
func buildStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if !c.Database.Enabled {
		log.Info().Msg("using in-memory submission storage")
		return store.NewMemoryStore(), nil
	}
	st, err := store.NewPostgresStore(ctx, store.DatabaseConfig{
		Host:         c.Database.Host,
		Port:         c.Database.Port,
		Database:     c.Database.Database,
		Username:     c.Database.Username,
		Password:     c.Database.Password,
		SSLMode:      c.Database.SSLMode,
		MaxOpenConns: c.Database.MaxOpenConns,
		MaxIdleConns: c.Database.MaxIdleConns,
		MaxLifetime:  time.Duration(c.Database.MaxLifetime) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	log.Info().Str("host", c.Database.Host).Str("database", c.Database.Database).Msg("database storage enabled")
	return st, nil
}
