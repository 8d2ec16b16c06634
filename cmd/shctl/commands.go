package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nithronos/secheaders/pkg/secheaders"
)

func envArg(args []string, i int) (secheaders.Environment, error) {
	if len(args) <= i {
		return "", nil
	}
	return secheaders.ParseEnvironment(args[i])
}

func newDefaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults <environment>",
		Short: "Print the built-in defaults for an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envArg(args, 0)
			if err != nil {
				return err
			}
			return printJSON(secheaders.Defaults(env))
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <environment>",
		Short: "Show the active config of an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envArg(args, 0)
			if err != nil {
				return err
			}
			cfg, fromDefaults, err := apiClient().GetConfig(cmd.Context(), env)
			if err != nil {
				return err
			}
			if fromDefaults && !outputJSON {
				color.Yellow("# nothing stored for %s; showing defaults", env)
			}
			return printJSON(cfg)
		},
	}
}

func newPutCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "put <environment> -f <file>",
		Short: "Store a config document for an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envArg(args, 0)
			if err != nil {
				return err
			}
			cfg, err := loadDocument(file, env)
			if err != nil {
				return err
			}
			if v := secheaders.Validate(cfg); !v.IsValid && !outputJSON {
				printValidation(v)
			}
			saved, err := apiClient().PutConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(saved)
			}
			color.Green("✓ Saved %s config (updated by %s)", saved.Environment, saved.UpdatedBy)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON config document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newHeadersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "headers <environment>",
		Short: "Show the headers compiled from the active config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envArg(args, 0)
			if err != nil {
				return err
			}
			g, err := apiClient().Headers(cmd.Context(), env)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(g)
			}
			for _, name := range secheaders.HeaderOrder {
				if v, ok := g.Headers[name]; ok {
					fmt.Printf("%s: %s\n", color.CyanString(name), v)
				}
			}
			return nil
		},
	}
}

// resolve loads the config from -f when given, otherwise from the daemon.
func resolve(ctx context.Context, file string, args []string) (secheaders.Config, error) {
	env, err := envArg(args, 0)
	if err != nil {
		return secheaders.Config{}, err
	}
	if file != "" {
		return loadDocument(file, env)
	}
	if env == "" {
		return secheaders.Config{}, fmt.Errorf("an environment or -f is required")
	}
	cfg, _, err := apiClient().GetConfig(ctx, env)
	return cfg, err
}

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate [environment] [-f file]",
		Short: "Check a config for insecure patterns",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve(cmd.Context(), file, args)
			if err != nil {
				return err
			}
			v := secheaders.Validate(cfg)
			if outputJSON {
				return printJSON(v)
			}
			printValidation(v)
			if !v.IsValid {
				return fmt.Errorf("%d validation error(s)", len(v.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON config document")
	return cmd
}

func printValidation(v secheaders.ValidationResult) {
	if v.IsValid {
		color.Green("✓ Config is valid")
		return
	}
	for _, e := range v.Errors {
		color.Red("✗ %s", e)
	}
}

func newScoreCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "score [environment] [-f file]",
		Short: "Score the security posture of a config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve(cmd.Context(), file, args)
			if err != nil {
				return err
			}
			st := secheaders.Score(cfg)
			if outputJSON {
				return printJSON(st)
			}
			fmt.Printf("Environment:     %s\n", cfg.Environment)
			fmt.Printf("Enabled headers: %d\n", st.TotalHeaders)
			fmt.Printf("Security level:  %s\n", levelColor(st.SecurityLevel).Sprint(st.SecurityLevel))
			for i, v := range st.Vulnerabilities {
				fmt.Printf("  %s %s\n", color.RedString("✗"), v)
				fmt.Printf("    → %s\n", st.Recommendations[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON config document")
	return cmd
}

func levelColor(l secheaders.Level) *color.Color {
	switch l {
	case secheaders.LevelMaximum:
		return color.New(color.FgGreen, color.Bold)
	case secheaders.LevelHigh:
		return color.New(color.FgCyan)
	case secheaders.LevelMedium:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed, color.Bold)
}

func newExportCmd() *cobra.Command {
	var file, format, out string
	cmd := &cobra.Command{
		Use:   "export [environment] --format json|nginx|apache [-f file] [-o out]",
		Short: "Export compiled headers as JSON or a web server fragment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := secheaders.ParseFormat(format)
			if err != nil {
				return err
			}
			var body []byte
			if file != "" {
				cfg, err := resolve(cmd.Context(), file, args)
				if err != nil {
					return err
				}
				now := time.Now()
				if body, err = secheaders.Export(secheaders.Compile(cfg, now), f, now); err != nil {
					return err
				}
			} else {
				env, err := envArg(args, 0)
				if err != nil {
					return err
				}
				if env == "" {
					return fmt.Errorf("an environment or -f is required")
				}
				if body, err = apiClient().Export(cmd.Context(), env, f); err != nil {
					return err
				}
			}
			if out == "" {
				_, err = os.Stdout.Write(body)
				return err
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			color.Green("✓ Wrote %s", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON config document")
	cmd.Flags().StringVar(&format, "format", "json", "export format: json, nginx or apache")
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newPostureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "posture",
		Short: "Show the latest posture audit of every environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := apiClient().Posture(cmd.Context())
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(reports)
			}
			for _, r := range reports {
				fmt.Printf("%-12s %-9s %s  %d header(s), %d validation error(s)\n",
					r.Environment, r.Source,
					levelColor(r.Stats.SecurityLevel).Sprintf("%-8s", r.Stats.SecurityLevel),
					r.Stats.TotalHeaders, len(r.Validation.Errors))
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show shctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shctl version %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for shctl.

Bash:
  $ source <(shctl completion bash)

Zsh:
  $ shctl completion zsh > "${fpath[1]}/_shctl"

Fish:
  $ shctl completion fish | source
`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				return rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				return rootCmd.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
