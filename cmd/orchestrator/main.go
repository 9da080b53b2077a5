// Command orchestrator runs the turn loop that mediates between the Audio
// Host's local-stream connection and the external conversational agent
// subprocess (spec §4.6/§4.7).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spacecodeur/space-lt/internal/metrics"
	"github.com/spacecodeur/space-lt/pkg/agent"
	"github.com/spacecodeur/space-lt/pkg/logging"
	"github.com/spacecodeur/space-lt/pkg/orchestrator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "space-lt orchestrator",
	Long:  "Mediates between the Audio Host's local stream and the external conversational agent subprocess.",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("agent", "", "agent executable name or path")
	rootCmd.Flags().String("system-prompt", "", "system prompt file path, passed to the agent on every invocation")
	rootCmd.Flags().String("socket", "/tmp/space_lt_server.sock", "host's local-stream Unix socket path")
	rootCmd.Flags().Bool("debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "optional YAML config file")

	for _, name := range []string{"agent", "system-prompt", "socket", "debug"} {
		_ = viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}
	_ = rootCmd.MarkFlagRequired("agent")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "note: no .env file found, using system environment variables")
	}

	viper.SetEnvPrefix("SPACE_LT_ORCHESTRATOR")
	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	debug := viper.GetBool("debug")
	log := logging.Console("orchestrator", debug)

	shutdownMetrics, err := metrics.InitProvider()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("metrics shutdown failed", "error", err.Error())
		}
	}()

	cfg := orchestrator.DefaultConfig()
	cfg.SocketPath = viper.GetString("socket")
	cfg.AgentCommand = viper.GetString("agent")
	cfg.SystemPromptPath = viper.GetString("system-prompt")

	bridge := agent.NewBridge(cfg.AgentCommand, cfg.SystemPromptPath)

	dial := func(ctx context.Context) (net.Conn, error) {
		d := net.Dialer{Timeout: 5 * time.Second}
		return d.DialContext(ctx, "unix", cfg.SocketPath)
	}

	o := orchestrator.New(dial, bridge, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		cancel()
	}()

	log.Info("orchestrator starting", "socket", cfg.SocketPath, "agent", cfg.AgentCommand)
	if err := o.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("orchestrator run: %w", err)
	}
	return nil
}
