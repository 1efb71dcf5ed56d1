// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/the-byte-bender/graphaudio/internal/build"
	"github.com/the-byte-bender/graphaudio/internal/config"
)

// ParseArgs builds a config.Config from command-line flags and returns
// it. The subcommand that was invoked is recorded in its Command field
// ("" for the bare root command, otherwise "list", "play", or "render").
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	options := config.NewConfig()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "A graph-based audio playback and rendering engine",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio output devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Open an output device and play a demo graph, or a file with --file",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "play"
		},
	}
	playCmd.Flags().StringVarP(&options.InputFile, "file", "f", "",
		"Decode and play this WAV/MP3/Ogg file instead of the demo tone")
	playCmd.Flags().Float64Var(&options.Frequency, "frequency", options.Frequency,
		"Demo tone frequency in Hz, ignored when --file is set")
	playCmd.Flags().BoolVar(&options.PickDevice, "pick", false,
		"Open an interactive device picker before starting playback")
	rootCmd.AddCommand(playCmd)

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render a demo graph, or a file with --file, to a WAV file with no device attached",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "render"
		},
	}
	renderCmd.Flags().StringVarP(&options.InputFile, "file", "f", "",
		"Decode and render this WAV/MP3/Ogg file instead of the demo tone")
	renderCmd.Flags().Float64Var(&options.Frequency, "frequency", options.Frequency,
		"Demo tone frequency in Hz, ignored when --file is set")
	renderCmd.Flags().Float64VarP(&options.Duration, "duration", "t", options.Duration,
		"Seconds of audio to render")
	rootCmd.AddCommand(renderCmd)

	// Audio device configuration, shared by every subcommand.
	rootCmd.PersistentFlags().IntVarP(&options.DeviceID, "device", "d", config.DefaultDeviceID,
		"Output device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&options.Channels, "channels", "c", config.DefaultChannels,
		"Number of output channels")
	rootCmd.PersistentFlags().Float64VarP(&options.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.FramesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per device callback period (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&options.LowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use the device's low-latency output mode")

	// Recording.
	rootCmd.PersistentFlags().BoolVarP(&options.RecordOnStart, "record", "r", false,
		"Start recording to --output as soon as playback begins")
	rootCmd.PersistentFlags().StringVarP(&options.OutputFile, "output", "o", "output.wav",
		"Output WAV file path for --record and for the render command")

	// Telemetry.
	rootCmd.PersistentFlags().BoolVar(&options.TelemetryEnabled, "telemetry", false,
		"Broadcast engine health stats over WebSocket and UDP")
	rootCmd.PersistentFlags().StringVar(&options.TelemetryWSAddr, "telemetry-ws", options.TelemetryWSAddr,
		"WebSocket listen address for telemetry")
	rootCmd.PersistentFlags().StringVar(&options.TelemetryUDPAddr, "telemetry-udp", options.TelemetryUDPAddr,
		"UDP target address for telemetry, empty disables the UDP sink")

	// Debug.
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", config.DefaultVerbosity,
		"Show verbose logging")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	return options, nil
}
