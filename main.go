// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/the-byte-bender/graphaudio/cmd"
	"github.com/the-byte-bender/graphaudio/internal/audio"
	"github.com/the-byte-bender/graphaudio/internal/build"
	"github.com/the-byte-bender/graphaudio/internal/config"
	"github.com/the-byte-bender/graphaudio/internal/decode"
	"github.com/the-byte-bender/graphaudio/internal/graph"
	"github.com/the-byte-bender/graphaudio/internal/log"
	"github.com/the-byte-bender/graphaudio/internal/nodes"
	"github.com/the-byte-bender/graphaudio/internal/record"
	"github.com/the-byte-bender/graphaudio/internal/telemetry"
	telemetryudp "github.com/the-byte-bender/graphaudio/internal/telemetry/udp"
	"github.com/the-byte-bender/graphaudio/internal/tui"
)

// main is the entry point. The program flow is divided into three
// distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments
//   - Initialize PortAudio (list and play only)
//
// 2. Concurrent Phase (Hot Path):
//   - Build the demo (or file-sourced) graph
//   - Start the audio engine and, for render, drive it offline
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop recording and telemetry if active
//   - Clean up resources
func main() {
	if err := build.Initialize(); err != nil {
		log.Fatalf("build: %v", err)
	}

	// Reserve one OS thread for the render path, one for everything else.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.Verbose {
		log.SetLevel(log.LevelDebug)
	}

	switch cfg.Command {
	case "list":
		runList()
	case "play":
		runPlay(cfg)
	case "render":
		runRender(cfg)
	default:
		fmt.Printf("%s --help for usage information.\n", build.GetBuildFlags().Name)
	}
}

func runList() {
	if err := audio.Initialize(); err != nil {
		log.Fatalf("audio: %v", err)
	}
	defer audio.Terminate()

	if err := audio.ListDevices(); err != nil {
		log.Fatalf("audio: %v", err)
	}
}

// buildDemoGraph wires either a decoded file or a sine oscillator through
// a gain stage and an analyser tap into ctx's destination, returning the
// analyser. play and render discard it; the telemetry publisher reports
// only context, pool, ring and driver stats.
func buildDemoGraph(ctx *graph.Context, cfg *config.Config) (*nodes.AnalyserNode, error) {
	var source *graph.Node

	if cfg.InputFile != "" {
		buf, err := decode.File(cfg.InputFile)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", cfg.InputFile, err)
		}
		bs := nodes.NewBufferSourceNode(ctx, buf, false)
		if err := bs.Start(0); err != nil {
			return nil, err
		}
		source = bs.Node()
	} else {
		osc := nodes.NewOscillatorNode(ctx, nodes.WaveSine)
		osc.Frequency().SetValue(cfg.Frequency)
		if err := osc.Start(0); err != nil {
			return nil, err
		}
		source = osc.Node()
	}

	gain := nodes.NewGainNode(ctx)
	gain.Gain().SetValue(0.5)
	if err := source.Connect(0, gain.Node(), 0); err != nil {
		return nil, err
	}

	analyser := nodes.NewAnalyserNode(ctx, cfg.FFTSize)
	if err := gain.Node().Connect(0, analyser.Node(), 0); err != nil {
		return nil, err
	}
	if err := analyser.Node().Connect(0, ctx.Destination(), 0); err != nil {
		return nil, err
	}

	return analyser, nil
}

func runPlay(cfg *config.Config) {
	if err := audio.Initialize(); err != nil {
		log.Fatalf("audio: %v", err)
	}
	defer audio.Terminate()

	if cfg.PickDevice {
		id, err := tui.StartDeviceListUI()
		if err != nil {
			log.Fatalf("tui: %v", err)
		}
		if id != nil {
			cfg.DeviceID = *id
		}
	}

	ctx := graph.NewContext(cfg.SampleRate)
	if _, err := buildDemoGraph(ctx, cfg); err != nil {
		log.Fatalf("graph: %v", err)
	}

	engine, err := audio.NewEngine(cfg, ctx)
	if err != nil {
		log.Fatalf("audio: %v", err)
	}
	if err := engine.Start(); err != nil {
		log.Fatalf("audio: %v", err)
	}

	if cfg.RecordOnStart {
		if err := engine.StartRecording(cfg.OutputFile); err != nil {
			log.Errorf("record: %v", err)
		}
	}

	pub := startTelemetry(cfg, ctx, engine)
	if pub != nil {
		defer pub.Stop()
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	if cfg.RecordOnStart {
		if err := engine.StopRecording(); err != nil {
			log.Errorf("record: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.OutputFile)
		}
	}
	if err := engine.Close(); err != nil {
		log.Errorf("audio: closing engine: %v", err)
	}
}

func runRender(cfg *config.Config) {
	ctx := graph.NewContext(cfg.SampleRate)
	if _, err := buildDemoGraph(ctx, cfg); err != nil {
		log.Fatalf("graph: %v", err)
	}

	w, err := record.NewWriter(cfg.OutputFile, int(cfg.SampleRate), cfg.Channels)
	if err != nil {
		log.Fatalf("record: %v", err)
	}

	frames := int(cfg.Duration * cfg.SampleRate)
	if err := w.WriteFrames(ctx, frames); err != nil {
		log.Fatalf("record: %v", err)
	}
	if err := w.Close(); err != nil {
		log.Fatalf("record: %v", err)
	}
	fmt.Printf("Rendered %.2fs to %s\n", cfg.Duration, cfg.OutputFile)
}

// startTelemetry wires up the WebSocket and UDP telemetry sinks
// requested in cfg and returns the running publisher, or nil if
// telemetry was not enabled.
func startTelemetry(cfg *config.Config, ctx *graph.Context, engine *audio.Engine) *telemetry.Publisher {
	if !cfg.TelemetryEnabled {
		return nil
	}

	src := telemetry.Source{Ctx: ctx, Ring: engine.Ring(), Driver: engine.Driver()}
	pub := telemetry.NewPublisher(src, cfg.TelemetryInterval)

	if cfg.TelemetryWSAddr != "" {
		pub.Attach(telemetry.NewBroadcaster(cfg.TelemetryWSAddr))
		log.Infof("telemetry: websocket stats at ws://%s/stats", cfg.TelemetryWSAddr)
	}
	if cfg.TelemetryUDPAddr != "" {
		sender, err := telemetryudp.NewSender(cfg.TelemetryUDPAddr)
		if err != nil {
			log.Errorf("telemetry: udp sender: %v", err)
		} else {
			pub.Attach(telemetryudp.NewPublisher(sender))
			log.Infof("telemetry: udp stats to %s", cfg.TelemetryUDPAddr)
		}
	}

	pub.Start()
	return pub
}
