package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/kir-gadjello/gemtutor/gemini"
	"github.com/kir-gadjello/gemtutor/history"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gemtutor [prompt...]",
		Short: "Multimodal Gemini tutor for the terminal",
		Long: `gemtutor is a chat client for Gemini tuned for step-by-step explanations.

Run without a prompt to open the interactive chat. With a prompt it sends a
single turn and prints the answer. Attach images, PDFs or text files with
-f, with @path inside the prompt, or by piping text on stdin.`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runChat,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringSliceP("files", "f", []string{}, "Images, PDFs or text files to attach (comma-separated or repeated)")
	rootCmd.Flags().BoolP("chat", "c", false, "Launch chat mode even when a prompt is given")
	rootCmd.Flags().StringP("api-base", "b", "", "Gemini API endpoint override (env "+apiBaseEnv+")")
	rootCmd.Flags().Int("timeout", 0, "API timeout in seconds (0 = wait for the answer)")
	rootCmd.Flags().BoolP("verbose", "v", false, "http & debug logging")
	rootCmd.Flags().String("log-file", "", "Log file for chat mode (default ~/"+configDirName+"/gemtutor.log)")
	rootCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	rootCmd.Flags().Bool("no-welcome", false, "Start the conversation without the greeting")
	rootCmd.Flags().Bool("preview", false, "Show attached images inline on capable terminals (one-shot mode)")
	rootCmd.Flags().Int("width", 0, "Render width (0 = terminal width)")

	rootCmd.AddCommand(newDoctorCmd())
	return rootCmd
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system capabilities and configuration",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "gemtutor doctor")
			fmt.Fprintln(out, "===============")

			dir := configDir()
			path := configPath(dir)
			if _, err := os.Stat(path); err == nil {
				if _, err := loadConfig(dir); err != nil {
					fmt.Fprintf(out, "❌ Configuration : %v\n", err)
				} else {
					fmt.Fprintf(out, "✅ Configuration : Found (%s)\n", path)
				}
			} else {
				fmt.Fprintf(out, "⚠️  Configuration : Missing (%s), defaults in use\n", path)
			}

			if _, from := gemini.LookupAPIKey(); from != "" {
				fmt.Fprintf(out, "✅ API key       : Set (%s)\n", from)
			} else {
				fmt.Fprintf(out, "⚠️  API key       : Not set (%s)\n", strings.Join(gemini.KeyEnvVars, ", "))
			}
			fmt.Fprintf(out, "ℹ️  Model         : %s\n", gemini.ModelName)

			if history.CheckFTS() {
				fmt.Fprintln(out, "✅ SQLite FTS5   : Enabled (full-text /search)")
			} else {
				fmt.Fprintln(out, "⚠️  SQLite FTS5   : Disabled, /search uses substring matching")
				fmt.Fprintln(out, "   -> FIX: Build with '-tags sqlite_fts5'")
			}

			if inlineImagesSupported() {
				fmt.Fprintln(out, "✅ Inline images : Supported (--preview)")
			} else {
				fmt.Fprintln(out, "ℹ️  Inline images : Not detected, --preview is ignored")
			}
		},
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	dir := configDir()
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	rc, err := getRunConfig(cmd, cfg, dir)
	if err != nil {
		return err
	}

	prompt := strings.Join(args, " ")
	stdinTTY := is_interactive(os.Stdin.Fd())
	tui := rc.Chat || (prompt == "" && len(rc.Files) == 0 && stdinTTY)

	logger, err := newLogger(rc, tui)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := gemini.New(gemini.Config{
		APIBase: rc.APIBase,
		Verbose: rc.Verbose,
		Timeout: rc.Timeout,
	}, logger.Named("gemini"))

	a, err := newApp(rc, client, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !tui {
		return runOnce(ctx, a, prompt, defaultOnceIO(rc))
	}

	if len(rc.Files) > 0 {
		if _, errs := a.attach(ctx, rc.Files); len(errs) > 0 {
			for _, err := range errs {
				fmt.Fprintf(os.Stderr, "Warning: skipped attachment: %v\n", err)
			}
		}
	}
	logger.Info("chat started", zap.String("model", gemini.ModelName), zap.Int("pending", a.pending.Len()))
	return runTUI(ctx, a, prompt)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
