package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/adapters/contentsource"
	"github.com/khoahotran/profile-portal/internal/config"
	"github.com/khoahotran/profile-portal/internal/domain/content"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

const exportSourceTag = "portal-snapshot-export"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "snapshot",
		Short:        "Export and validate published content snapshots",
		SilenceUsage: true,
	}
	root.AddCommand(newExportCmd(), newValidateCmd())
	return root
}

type exportOptions struct {
	Output      string
	MediaDir    string
	MediaPrefix string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

func newExportCmd() *cobra.Command {
	var (
		opts    exportOptions
		apiBase string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch live content and media and write them as a snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if apiBase != "" {
				cfg.Content.APIBase = apiBase
			}
			log := logger.NewZapLogger(cfg.App.Env)
			defer log.Sync()

			opts.Timeout = cfg.Content.Timeout
			opts.HTTPClient = contentsource.NewTracedHTTPClient()
			return runExport(cmd.Context(), cfg.Endpoints(), opts, log)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "./public/published-content.json", "snapshot file to write")
	cmd.Flags().StringVar(&opts.MediaDir, "output-media-dir", "./public/published-media", "directory to copy referenced media into")
	cmd.Flags().StringVar(&opts.MediaPrefix, "media-prefix", "/media/", "URL path prefix of media served by the API")
	cmd.Flags().StringVar(&apiBase, "api-base", "", "content API base, overrides config")
	return cmd
}

func runExport(ctx context.Context, endpoints config.Endpoints, opts exportOptions, log logger.Logger) error {
	if !endpoints.HasAPIBase {
		return fmt.Errorf("no content API base configured")
	}
	url := endpoints.APIURL(config.ContentPath)
	src := contentsource.NewAPISource(url, log,
		contentsource.WithTimeout(opts.Timeout),
		contentsource.WithHTTPClient(opts.HTTPClient),
	)

	payload, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}

	media, err := newMediaExporter(endpoints.APIBase, opts.MediaPrefix, opts.MediaDir, opts.HTTPClient, log)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.MediaDir, 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}
	rewritten, err := json.Marshal(media.walk(ctx, raw))
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	doc, err := content.Normalize(rewritten)
	if err != nil {
		return fmt.Errorf("normalize content: %w", err)
	}
	doc.Meta = &content.Meta{GeneratedAt: time.Now().UTC(), Source: exportSourceTag}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	log.Info("Snapshot exported",
		zap.String("output", opts.Output),
		zap.String("media_dir", opts.MediaDir),
		zap.Int("posts", len(doc.Blogs.All)),
		zap.Int("media_files", len(media.copied)-media.missing),
		zap.Int("missing_media", media.missing),
	)
	return nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a snapshot file and print section counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			doc, err := content.Normalize(payload)
			if err != nil {
				return fmt.Errorf("invalid snapshot %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "profile: %s\n", doc.Profile.Name)
			if doc.Meta != nil {
				fmt.Fprintf(out, "generated: %s (%s)\n", doc.Meta.GeneratedAt.Format(time.RFC3339), doc.Meta.Source)
			}
			for _, section := range sectionCounts(doc) {
				fmt.Fprintf(out, "%-13s %d\n", section.name+":", section.count)
			}
			return nil
		},
	}
}

type sectionCount struct {
	name  string
	count int
}

func sectionCounts(doc content.Document) []sectionCount {
	return []sectionCount{
		{"posts", len(doc.Blogs.All)},
		{"stats", len(doc.Stats)},
		{"story", len(doc.Story)},
		{"experience", len(doc.Experience)},
		{"education", len(doc.Education)},
		{"programs", len(doc.Programs)},
		{"publications", len(doc.Publications)},
		{"ideas", len(doc.Ideas)},
		{"media", len(doc.Media.All)},
	}
}
