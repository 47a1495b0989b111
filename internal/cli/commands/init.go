package commands

import (
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/airtable/internal/cli/ui"
	"github.com/conduit-lang/airtable/internal/config"
	"github.com/conduit-lang/airtable/pkg/transport"
)

func newInitCommand(a *app) *cobra.Command {
	var (
		cfg   = config.Config{BaseURL: transport.DefaultBaseURL, Timeout: 30 * time.Second}
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write airtable.yml",
		Long: `Write airtable.yml in --config-dir. Values not given as flags are
asked for interactively.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := promptMissing(&cfg); err != nil {
				return err
			}

			path, err := config.Write(a.configDir, &cfg, force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ui.WriteSuccess(out, "Wrote "+path, a.colorDisabled())
			if cfg.Cache.Backend == config.BackendMemory {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Info("The memory cache lasts for a single command, use file or redis to keep records between runs", a.colorDisabled()))
			}
			fmt.Fprintln(out)
			hint := color.New(color.FgCyan)
			if a.colorDisabled() {
				hint.DisableColor()
			}
			hint.Fprintln(out, "Try it:")
			fmt.Fprintln(out, "  airtable list <table>")
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.AppID, "app-id", "", "Base id, e.g. appXXXXXXXXXXXXXX")
	cmd.Flags().StringVar(&cfg.APIKey, "api-key", "", "Personal access token")
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", transport.DefaultBaseURL, "API root")
	cmd.Flags().StringVar(&cfg.Cache.Backend, "cache-backend", "", "Cache backend: file, memory or redis")
	cmd.Flags().StringVar(&cfg.Cache.Redis.Addr, "redis-addr", "", "Redis address when the backend is redis")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing airtable.yml")

	return cmd
}

// promptMissing asks for every required value that was not given as a flag
func promptMissing(cfg *config.Config) error {
	var questions []*survey.Question

	if cfg.AppID == "" {
		questions = append(questions, &survey.Question{
			Name:     "AppID",
			Prompt:   &survey.Input{Message: "Base id:", Help: "Shown in the API docs for your base, starts with app"},
			Validate: survey.Required,
		})
	}
	if cfg.APIKey == "" {
		questions = append(questions, &survey.Question{
			Name:     "APIKey",
			Prompt:   &survey.Password{Message: "API key:"},
			Validate: survey.Required,
		})
	}
	if cfg.Cache.Backend == "" {
		questions = append(questions, &survey.Question{
			Name: "Backend",
			Prompt: &survey.Select{
				Message: "Cache backend:",
				Options: []string{config.BackendFile, config.BackendMemory, config.BackendRedis},
				Default: config.BackendFile,
			},
		})
	}

	if len(questions) > 0 {
		answers := struct {
			AppID   string
			APIKey  string
			Backend string
		}{cfg.AppID, cfg.APIKey, cfg.Cache.Backend}
		if err := survey.Ask(questions, &answers); err != nil {
			return err
		}
		cfg.AppID, cfg.APIKey, cfg.Cache.Backend = answers.AppID, answers.APIKey, answers.Backend
	}

	if cfg.Cache.Backend == config.BackendRedis && cfg.Cache.Redis.Addr == "" {
		prompt := &survey.Input{Message: "Redis address:", Default: "localhost:6379"}
		if err := survey.AskOne(prompt, &cfg.Cache.Redis.Addr, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	return nil
}
