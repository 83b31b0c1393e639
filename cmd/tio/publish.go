package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/publish"
)

func publishCmd(flags *globalFlags) *cobra.Command {
	var (
		bucket  string
		prefix  string
		noBuild bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build and upload the public directory to S3",
		Long: `Run a production build and upload the public directory to S3.

Credentials are read from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
AWS_SESSION_TOKEN.

Examples:
  tio publish
  tio publish --bucket=my-site --prefix=v2
  tio publish --no-build`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, config.ModeBuild)
			if err != nil {
				return err
			}
			if bucket != "" {
				cfg.Publish.Bucket = bucket
			}
			if prefix != "" {
				cfg.Publish.Prefix = prefix
			}

			p, err := publish.New(cfg, publish.Options{Logger: newLogger(flags)})
			if err != nil {
				return err
			}

			if !noBuild {
				if _, err := runBuild(cmd.Context(), flags, cfg); err != nil {
					return err
				}
			}

			info("uploading %s to s3://%s/%s", cfg.PublicDir, cfg.Publish.Bucket, cfg.Publish.Prefix)
			result, err := p.Publish(cmd.Context(), cfg.PublicPath())
			if err != nil {
				return err
			}
			success("Published %d files (%s) in %s", result.Files, humanize.Bytes(uint64(result.Bytes)), result.Duration.Round(1000000))
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Destination bucket (default from tio.json)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix (default from tio.json)")
	cmd.Flags().BoolVar(&noBuild, "no-build", false, "Upload the public directory as is")

	return cmd
}
