// Command client is the Audio Client: it owns the tablet's microphone and
// speaker, runs energy-VAD segmentation over the mic stream, uploads
// finalized segments to the Audio Host, and plays back synthesized replies
// as they stream in (spec §4.4/§4.5).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/joho/godotenv"
	"github.com/spacecodeur/space-lt/internal/metrics"
	"github.com/spacecodeur/space-lt/pkg/audio"
	"github.com/spacecodeur/space-lt/pkg/client"
	"github.com/spacecodeur/space-lt/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	sampleRate = 16000
	channels   = 1
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "client",
	Short: "space-lt audio client",
	Long:  "Captures microphone audio, segments it with energy VAD, and plays back synthesized replies from the Audio Host.",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("server", "localhost:9500", "Audio Host address (host:port)")
	rootCmd.Flags().Bool("debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "optional YAML config file")

	_ = viper.BindPFlag("server", rootCmd.Flags().Lookup("server"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
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

	viper.SetEnvPrefix("SPACE_LT_CLIENT")
	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	debug := viper.GetBool("debug")
	server := viper.GetString("server")
	log := logging.Console("client", debug)

	shutdownMetrics, err := metrics.InitProvider()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("metrics shutdown failed", "error", err.Error())
		}
	}()

	log.Info("dialing audio host", "server", server)
	conn, err := net.DialTimeout("tcp", server, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dial audio host: %w", err)
	}

	vadCfg := audio.DefaultVADConfig(sampleRate)
	sess := client.NewSession(conn, vadCfg, sampleRate*2 /* ~1s of i16 mono */, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sess.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("session reader stopped", "error", err.Error())
			cancel()
		}
	}()

	if err := sess.WaitReady(ctx); err != nil {
		return fmt.Errorf("waiting for Ready: %w", err)
	}
	log.Info("host ready, starting audio device")

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	defer mctx.Uninit()

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			if err := sess.Capture().Feed(ctx, pInput, time.Now()); err != nil && ctx.Err() == nil {
				log.Warn("capture feed failed", "error", err.Error())
			}
		}
		if pOutput != nil {
			n := sess.Playback().Drain(pOutput)
			for i := n; i < len(pOutput); i++ {
				pOutput[i] = 0
			}
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = channels
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = channels
	deviceConfig.SampleRate = sampleRate
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		return fmt.Errorf("init audio device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start audio device: %w", err)
	}
	defer device.Stop()

	log.Info("listening, press Ctrl+C to exit")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return sess.Close()
}
