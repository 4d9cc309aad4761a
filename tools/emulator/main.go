// FilePath: tools/emulator/main.go
// Device emulator: registers a device over the bus, then publishes
// randomized telemetry at a fixed interval until interrupted.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecohack/envhub/internal/ingest"
	"github.com/ecohack/envhub/internal/mqtt"
	nuts "github.com/vaudience/go-nuts"
)

type registerMessage struct {
	OwnerToken string    `json:"owner_token"`
	DeviceName string    `json:"device_name"`
	DeviceGeo  []float64 `json:"device_geo"`
}

type telemetryMessage struct {
	DeviceName    string  `json:"device_name"`
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	Radioactivity float64 `json:"radioactivity"`
	PM25          float64 `json:"pm25"`
	PM10          float64 `json:"pm10"`
	Noisiness     float64 `json:"noisiness"`
	Timestamp     string  `json:"timestamp"`
}

func main() {
	broker := flag.String("broker", "mqtt://localhost:1883", "broker URL")
	prefix := flag.String("prefix", "ecohack_kt315", "topic prefix")
	name := flag.String("name", fmt.Sprintf("emu-%d", time.Now().Unix()%100000), "device name")
	token := flag.String("token", "", "owner token (required to register)")
	lon := flag.Float64("lon", 30.31, "device longitude")
	lat := flag.Float64("lat", 59.94, "device latitude")
	interval := flag.Duration("interval", 10*time.Second, "telemetry interval")
	skipRegister := flag.Bool("skip-register", false, "publish telemetry without registering first")
	flag.Parse()

	if *token == "" && !*skipRegister {
		fmt.Fprintln(os.Stderr, "owner token is required (use -token, or -skip-register for an existing device)")
		os.Exit(1)
	}

	bus, err := mqtt.Connect(*broker, "envhub-emulator-"+*name)
	if err != nil {
		nuts.L.Fatalf("[Emulator] Failed to connect to %s: %v", *broker, err)
	}
	defer bus.Close()

	if !*skipRegister {
		payload, _ := json.Marshal(registerMessage{
			OwnerToken: *token,
			DeviceName: *name,
			DeviceGeo:  []float64{*lon, *lat},
		})
		if err := bus.Publish(*prefix+"/register/"+*name, payload); err != nil {
			nuts.L.Fatalf("[Emulator] Failed to publish registration: %v", err)
		}
		nuts.L.Infof("[Emulator] Registered %s at (%.4f, %.4f)", *name, *lon, *lat)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	nuts.L.Infof("[Emulator] Publishing telemetry for %s every %v", *name, *interval)
	for {
		select {
		case <-quit:
			nuts.L.Infof("[Emulator] Shutting down")
			return
		case <-ticker.C:
			payload, _ := json.Marshal(randomTelemetry(*name))
			if err := bus.Publish(*prefix+"/data/"+*name, payload); err != nil {
				nuts.L.Warnf("[Emulator] Failed to publish telemetry: %v", err)
				continue
			}
			nuts.L.Infof("[Emulator] Published telemetry for %s", *name)
		}
	}
}

func randomTelemetry(name string) telemetryMessage {
	return telemetryMessage{
		DeviceName:    name,
		Temperature:   jitter(21.0, 6.0),
		Humidity:      jitter(55.0, 20.0),
		Radioactivity: jitter(0.12, 0.05),
		PM25:          jitter(12.0, 8.0),
		PM10:          jitter(20.0, 10.0),
		Noisiness:     jitter(45.0, 15.0),
		Timestamp:     time.Now().UTC().Format(ingest.TimestampLayout),
	}
}

func jitter(base, spread float64) float64 {
	return base + (rand.Float64()-0.5)*spread
}
