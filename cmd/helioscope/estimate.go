package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"helioscope/internal/app/di"
	"helioscope/internal/config"
	"helioscope/internal/feature/estimation/transport/handler"
	"helioscope/internal/feature/estimation/usecase"
	imgentity "helioscope/internal/feature/imagery/domain/entity"
	jwtmw "helioscope/internal/platform/jwt"
)

// pipelineFlags は estimate と batch で共通のフラグです。
type pipelineFlags struct {
	location   string
	gsd        float64
	configPath string
	overrides  []string
	backend    string
	narrate    bool
	asJSON     bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.location, "location", "l", "", "Location name or id (e.g. \"Phoenix, AZ\")")
	cmd.Flags().Float64Var(&f.gsd, "gsd", 0, "Ground sample distance in meters per pixel (read from GeoTIFF tags when omitted)")
	cmd.Flags().StringVarP(&f.configPath, "config", "c", os.Getenv("HELIOSCOPE_CONFIG"), "Path to pipeline config YAML")
	cmd.Flags().StringArrayVar(&f.overrides, "set", nil, "Override a config key, e.g. --set panelEfficiency=0.22")
	cmd.Flags().StringVar(&f.backend, "backend", "", "Segmentation backend (remote, vision, spectral)")
	cmd.Flags().BoolVar(&f.narrate, "narrate", false, "Add a Gemini-generated summary")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the full result as JSON")
}

// pipelineConfig はファイル・環境変数・--set の順に設定を重ねます。
func (f *pipelineFlags) pipelineConfig() (*config.PipelineConfig, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	for _, kv := range f.overrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%w: --set %q must be key=value", config.ErrInvalidConfig, kv)
		}
		if err := cfg.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

func (f *pipelineFlags) components(ctx context.Context, cfg *config.PipelineConfig) (*di.Components, error) {
	return di.NewComponents(ctx, di.Options{Config: cfg, Backend: f.backend, Narrator: f.narrate})
}

func (f *pipelineFlags) estimateOptions() []usecase.EstimateOption {
	if f.narrate {
		return []usecase.EstimateOption{usecase.WithNarrative()}
	}
	return nil
}

func (f *pipelineFlags) source(path string) (imgentity.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return imgentity.Source{}, fmt.Errorf("failed to read image: %w", err)
	}
	return imgentity.Source{
		Data:     data,
		Filename: filepath.Base(path),
		Metadata: imgentity.Metadata{GSD: f.gsd, LocationID: f.location},
	}, nil
}

func estimateCmd() *cobra.Command {
	var f pipelineFlags

	cmd := &cobra.Command{
		Use:   "estimate [image]",
		Short: "Estimate solar potential for one aerial image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd.Context(), &f, args[0], cmd.OutOrStdout())
		},
	}
	f.register(cmd)
	return cmd
}

func runEstimate(ctx context.Context, f *pipelineFlags, path string, out io.Writer) error {
	cfg, err := f.pipelineConfig()
	if err != nil {
		return err
	}
	src, err := f.source(path)
	if err != nil {
		return err
	}
	c, err := f.components(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Pipeline.Estimate(ctx, src, f.location, cfg, f.estimateOptions()...)
	if err != nil {
		return errors.New(usecase.Describe(err))
	}
	resp := handler.ToEstimateResponse(res)
	if f.asJSON {
		return writeJSON(out, resp)
	}
	return writeSummary(out, path, resp)
}

func batchCmd() *cobra.Command {
	var f pipelineFlags

	cmd := &cobra.Command{
		Use:   "batch [images...]",
		Short: "Estimate several images concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.pipelineConfig()
			if err != nil {
				return err
			}
			jobs := make([]usecase.BatchJob, 0, len(args))
			for _, path := range args {
				src, err := f.source(path)
				if err != nil {
					return err
				}
				jobs = append(jobs, usecase.BatchJob{Source: src, LocationID: f.location})
			}
			c, err := f.components(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			results, err := c.Pipeline.EstimateBatch(cmd.Context(), jobs, cfg, f.estimateOptions()...)
			if err != nil {
				return err
			}
			return writeBatch(cmd.OutOrStdout(), args, results, f.asJSON)
		},
	}
	f.register(cmd)
	return cmd
}

func locationsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List supported locations and their defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := di.NewComponents(cmd.Context(), di.Options{Backend: di.BackendSpectral})
			if err != nil {
				return err
			}
			defer c.Close()

			sites, err := c.Sites.Locations(cmd.Context())
			if err != nil {
				return err
			}
			return writeLocations(cmd.OutOrStdout(), sites, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		scope   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv(jwtmw.EnvKeyJWTSecret)
			if secret == "" {
				return fmt.Errorf("%s is not set", jwtmw.EnvKeyJWTSecret)
			}
			token, err := jwtmw.NewGenerator(secret, ttl).GenerateToken(subject, scope)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Client identifier (sub claim)")
	cmd.Flags().StringVar(&scope, "scope", jwtmw.ScopeEstimates, "Space separated scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pipeline configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default pipeline config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			if err := config.DefaultPipelineConfig().SaveToFile(args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "List keys accepted by --set and HELIOSCOPE_* variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, k := range config.Keys {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", k, config.EnvName(k)); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}
