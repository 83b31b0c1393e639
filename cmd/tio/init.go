package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/errors"
	"github.com/tio-dev/tio/internal/templates"
)

func initCmd(flags *globalFlags) *cobra.Command {
	var (
		yes      bool
		format   string
		template string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a tio configuration file",
		Long: `Write a configuration file with default settings to the project directory.

On a terminal the main settings are asked for interactively; pass --yes
to accept the defaults. Starter files from --template are written next
to the configuration; existing files are left alone.

Examples:
  tio init
  tio init --yes --format=yaml
  tio init --yes --template=component
  tio init --yes --template=none`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(flags)
			if err != nil {
				return err
			}
			if config.Exists(dir) {
				return errors.New("E150").WithDetail(dir)
			}
			if template != "none" {
				if _, err := templates.Get(template); err != nil {
					return err
				}
			}

			cfg := config.New()
			if !yes && term.IsTerminal(int(os.Stdin.Fd())) {
				if err := promptConfig(cfg, &template); err != nil {
					return err
				}
			}
			cfg.SetDir(dir)
			if err := cfg.Validate(); err != nil {
				return err
			}

			name := "tio.json"
			if format == "yaml" {
				name = "tio.yaml"
			}
			path := filepath.Join(dir, name)
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			success("Created %s", path)

			if template == "none" {
				return nil
			}
			return scaffold(dir, cfg, template)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().StringVar(&format, "format", "json", "Config file format: json or yaml")
	cmd.Flags().StringVarP(&template, "template", "t", "minimal", "Starter files: "+strings.Join(templates.List(), ", ")+" or none")

	return cmd
}

// scaffold writes the starter files of the named template.
func scaffold(dir string, cfg *config.Config, name string) error {
	tmpl, err := templates.Get(name)
	if err != nil {
		return err
	}
	entry := filepath.Base(cfg.Entry)
	written, err := tmpl.Create(dir, templates.Data{
		Name:       filepath.Base(dir),
		PublicDir:  cfg.PublicDir,
		SrcDir:     cfg.SrcDir,
		Entry:      filepath.ToSlash(cfg.Entry),
		ScriptName: strings.TrimSuffix(entry, filepath.Ext(entry)),
	})
	if err != nil {
		return err
	}
	for _, p := range written {
		info("wrote %s", p)
	}
	return nil
}

// promptConfig asks for the settings most projects change.
func promptConfig(cfg *config.Config, template *string) error {
	port := strconv.Itoa(cfg.Port)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Entry point").
				Value(&cfg.Entry),
			huh.NewInput().
				Title("Public directory").
				Value(&cfg.PublicDir),
			huh.NewInput().
				Title("Port").
				Value(&port).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 65535 {
						return fmt.Errorf("not a valid port: %q", s)
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Live reload protocol").
				Options(huh.NewOptions(config.ProtocolStructured, config.ProtocolCompact)...).
				Value(&cfg.LiveReload.Protocol),
			huh.NewSelect[string]().
				Title("Starter files").
				Options(huh.NewOptions(append(templates.List(), "none")...)...).
				Value(template),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	cfg.Port, _ = strconv.Atoi(port)
	if cfg.LiveReload.Protocol == config.ProtocolCompact {
		cfg.LiveReload.Swap = config.SwapAll
	}
	return nil
}
