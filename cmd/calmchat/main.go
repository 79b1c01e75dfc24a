// Package main provides the calmchat CLI entry point.
// calmchat is a terminal wellness companion that keeps answering when an
// assistant backend goes down by failing over to the next one.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"calmchat/internal/logger"
	"calmchat/internal/shell"
	"calmchat/internal/version"
)

var (
	logLevel  string
	logFile   string
	testMode  bool
	configDir string
	server    int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "calmchat",
	Short: "calmchat - a wellness companion in your terminal",
	Long: `calmchat is a supportive chat companion for the terminal.
Replies come from the selected server; if it fails, the next one answers.`,
	RunE:         runChat, // Default behavior is to start a conversation
	SilenceUsage: true,
}

// chatCmd is the explicit version of the default behavior
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE:  runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List the assistant servers in failover order",
	RunE:  runServers,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFormattedVersion())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	flags.StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	flags.BoolVar(&testMode, "test-mode", false, "Run in deterministic test mode")
	flags.StringVar(&configDir, "config-dir", "", "Directory holding config.yaml and .env [default: user config dir]/calmchat")
	flags.IntVar(&server, "server", 0, "Start with server N (1-based) instead of the first one")

	// Bind flags to viper
	for _, name := range []string{"log-level", "log-file", "test-mode"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", name, err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serversCmd)
	rootCmd.AddCommand(versionCmd)

	// Configure logger before any command execution
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if err := logger.Configure(logLevel, logFile, testMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

func initializeServices() (*shell.Services, error) {
	svc, err := shell.InitializeServices(shell.Options{
		Viper:     viper.GetViper(),
		TestMode:  testMode,
		ConfigDir: configDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := svc.SelectStartingServer(server); err != nil {
		return nil, err
	}
	return svc, nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	logger.Debug("Starting calmchat", "version", version.GetVersion())

	svc, err := initializeServices()
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "you> ",
		HistoryFile:       filepath.Join(svc.Config.ConfigDir(), "history"),
		AutoComplete:      commandCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "/exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start line editor: %w", err)
	}
	defer func() { _ = rl.Close() }()

	sh := shell.New(svc, rl.Stdout())
	fmt.Fprintln(rl.Stdout(), version.GetFormattedVersion()+" - type /help for commands, /exit to leave.")
	sh.Start()

	return chatLoop(contextOf(cmd), rl, sh)
}

// lineReader is the part of readline used by the chat loop.
type lineReader interface {
	Readline() (string, error)
}

// chatLoop reads lines until /exit, EOF or Ctrl-C on an empty line.
// Ctrl-C while a reply is pending cancels only that request.
func chatLoop(parent context.Context, in lineReader, sh *shell.Shell) error {
	for {
		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(parent, os.Interrupt)
		quit := sh.ProcessInput(ctx, line)
		stop()
		if quit {
			return nil
		}
	}
}

func commandCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("/next"),
		readline.PcItem("/server"),
		readline.PcItem("/servers"),
		readline.PcItem("/copy"),
		readline.PcItem("/debug"),
		readline.PcItem("/reset"),
		readline.PcItem("/help"),
		readline.PcItem("/exit"),
	)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := initializeServices()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer stop()

	sh := shell.New(svc, cmd.OutOrStdout())
	return sh.Send(ctx, strings.Join(args, " "))
}

func runServers(cmd *cobra.Command, _ []string) error {
	svc, err := initializeServices()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), svc.Render.ServerList(svc.Catalog.ListProviders(), svc.Chat.CurrentServerIndex()))
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
