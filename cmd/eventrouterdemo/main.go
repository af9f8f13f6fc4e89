// Command eventrouterdemo wires the sensorpublisher, datalogger, and
// datauploader modules onto a single CooperativeRouter and drives its loop
// until interrupted.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linkmonitor/eventrouter"
	"github.com/linkmonitor/eventrouter/modules/datalogger"
	"github.com/linkmonitor/eventrouter/modules/datauploader"
	"github.com/linkmonitor/eventrouter/modules/sensorpublisher"
)

const (
	moduleSensor eventrouter.ModuleHandle = iota
	moduleLogger
	moduleUploader
)

// slogLogger adapts the standard library's slog.Logger to the router's
// Logger interface, the same adapter shape logger.go's example documents.
type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }

func main() {
	logger := slogLogger{slog.New(slog.NewTextHandler(os.Stdout, nil))}

	sensor := sensorpublisher.New(moduleSensor, nil /* set below */, logger, time.Now().UnixNano())
	dataLogger := datalogger.New(logger)
	uploader := datauploader.New(logger)

	router, err := eventrouter.NewCooperativeRouter(eventrouter.Options{
		EventTypeFirst: sensorpublisher.EventTypeSensorData,
		EventTypeLast:  sensorpublisher.EventTypeSensorData,
		Logger:         logger,
		Tasks: []eventrouter.TaskConfig{
			{
				Name: "main",
				Modules: []eventrouter.ModuleConfig{
					{Name: "sensorpublisher", Handler: sensor.Handler},
					{Name: "datalogger", Handler: dataLogger.Handler},
					{Name: "datauploader", Handler: uploader.Handler},
				},
			},
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "eventrouterdemo: init failed:", err)
		os.Exit(1)
	}

	// sensorpublisher.New needed a fully constructed router to send
	// through; wire it in now that one exists.
	sensor.SetSender(router)

	if err := dataLogger.Init(router, moduleLogger, 0); err != nil {
		fmt.Fprintln(os.Stderr, "eventrouterdemo: datalogger subscribe failed:", err)
		os.Exit(1)
	}
	if err := uploader.Init(router, moduleUploader, 0); err != nil {
		fmt.Fprintln(os.Stderr, "eventrouterdemo: datauploader subscribe failed:", err)
		os.Exit(1)
	}
	if err := sensor.Start("@every 2s"); err != nil {
		fmt.Fprintln(os.Stderr, "eventrouterdemo: sensor schedule failed:", err)
		os.Exit(1)
	}
	defer sensor.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	// Everything below runs on this one goroutine: the cooperative backend
	// has no internal synchronization, so cron ticks are drained here and
	// turned into Publish calls rather than letting the cron goroutine call
	// Send itself.
	for {
		select {
		case <-sigCh:
			_ = router.Deinit()
			return
		case <-sensor.Ticks():
			sensor.Publish()
		case <-ticker.C:
			router.NewLoop()
			for {
				e, ok := router.GetEventToDeliver()
				if !ok {
					break
				}
				if err := router.CallHandlers(e); err != nil {
					logger.Error("call handlers failed", "error", err)
				}
			}
		}
	}
}
