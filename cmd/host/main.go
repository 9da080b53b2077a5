// Command host runs the Audio Host: the dual-protocol router that owns the
// STT/TTS engines, accepts one Audio Client and one Orchestrator connection,
// and ferries frames between them (spec §4.2/§4.3).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spacecodeur/space-lt/internal/metrics"
	"github.com/spacecodeur/space-lt/pkg/host"
	"github.com/spacecodeur/space-lt/pkg/logging"
	"github.com/spacecodeur/space-lt/pkg/providers/mock"
	"github.com/spacecodeur/space-lt/pkg/providers/stt"
	"github.com/spacecodeur/space-lt/pkg/providers/tts"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "host",
	Short: "space-lt audio host",
	Long:  "Owns the STT/TTS engines and routes audio frames between the Audio Client and the Orchestrator.",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("model", "whisper-large-v3-turbo", "STT model name")
	rootCmd.Flags().String("tts-model", "", "TTS voice/model identifier")
	rootCmd.Flags().String("language", "en", "default language tag")
	rootCmd.Flags().Int("port", 9500, "TCP port for the Audio Client listener")
	rootCmd.Flags().String("socket-path", "/tmp/space_lt_server.sock", "Unix socket path for the Orchestrator listener")
	rootCmd.Flags().String("engine", "real", `engine set to load: "real" or "mock"`)
	rootCmd.Flags().Bool("debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "optional YAML config file")

	for _, name := range []string{"model", "tts-model", "language", "port", "socket-path", "engine", "debug"} {
		_ = viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}
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

	viper.SetEnvPrefix("SPACE_LT_HOST")
	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	debug := viper.GetBool("debug")
	log := logging.Console("host", debug)

	shutdownMetrics, err := metrics.InitProvider()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("metrics shutdown failed", "error", err.Error())
		}
	}()

	cfg := host.DefaultConfig()
	cfg.Port = viper.GetInt("port")
	cfg.SocketPath = viper.GetString("socket-path")
	cfg.DefaultLanguage = host.Language(viper.GetString("language"))
	if v := viper.GetString("tts-model"); v != "" {
		cfg.DefaultVoice = host.Voice(v)
	}

	sttEngine, ttsEngine, err := loadEngines(viper.GetString("engine"), viper.GetString("model"))
	if err != nil {
		return fmt.Errorf("engine load failed: %w", err)
	}

	h := host.New(cfg, sttEngine, ttsEngine, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		cancel()
	}()

	log.Info("host starting", "port", cfg.Port, "socket", cfg.SocketPath, "engine", viper.GetString("engine"))
	if err := h.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("host run: %w", err)
	}
	return nil
}

// loadEngines wires either the mock engines ("--engine mock", for local
// smoke-testing without network access) or the real Groq STT and
// websocket-based TTS adapters. Spec §4.2 makes a failed engine load a
// fatal startup error, not a degraded mode, so loadEngines checks the
// credentials both real adapters need before constructing them.
func loadEngines(engine, sttModel string) (host.STTProvider, host.TTSProvider, error) {
	if engine == "mock" {
		return &mock.STT{Transcript: "mock transcript"}, mock.New(), nil
	}

	groqKey := os.Getenv("GROQ_API_KEY")
	if groqKey == "" {
		return nil, nil, fmt.Errorf("GROQ_API_KEY is required for --engine real")
	}
	sttEngine := stt.NewGroqSTT(groqKey, sttModel)

	ttsKey := os.Getenv("LOKUTOR_API_KEY")
	ttsHost := os.Getenv("LOKUTOR_HOST")
	if ttsKey == "" || ttsHost == "" {
		return nil, nil, fmt.Errorf("LOKUTOR_API_KEY and LOKUTOR_HOST are required for --engine real")
	}
	ttsEngine := tts.NewWebSocketTTS(ttsKey, ttsHost)

	return sttEngine, ttsEngine, nil
}
