package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hannes/pellucid-sanitizer/anonymizer"
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the local catalog and, when enabled, the remote anonymizer's stats",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

type levelInfo struct {
	Level       string                 `json:"level"`
	EntityTypes []detectors.EntityType `json:"entity_types"`
}

type statsOutput struct {
	EntityTypes []detectors.EntityType `json:"entity_types"`
	Levels      []levelInfo            `json:"levels"`
	MappingMode string                 `json:"mapping_mode"`
	Remote      *anonymizer.Stats      `json:"remote,omitempty"`
	RemoteURL   string                 `json:"remote_url,omitempty"`
	RemoteError string                 `json:"remote_error,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	catalog, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	out := statsOutput{
		EntityTypes: catalog.Types(),
		MappingMode: cfg.Sanitizer.MappingMode,
	}
	for _, level := range []detectors.PrivacyLevel{detectors.Standard, detectors.Enhanced, detectors.Maximum} {
		info := levelInfo{Level: level.String(), EntityTypes: []detectors.EntityType{}}
		for _, t := range out.EntityTypes {
			if level.Active(t) {
				info.EntityTypes = append(info.EntityTypes, t)
			}
		}
		out.Levels = append(out.Levels, info)
	}

	if cfg.Remote.Enabled {
		comps, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		out.RemoteURL = comps.client.BaseURL()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		stats, err := comps.client.Stats(ctx)
		if err != nil {
			out.RemoteError = err.Error()
		} else {
			out.Remote = &stats
		}
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
