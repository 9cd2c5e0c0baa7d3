package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/engine"
	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Serve the simulator web API over a workbook",
	Long: `Serve the simulator web API.

Without a file argument, the current directory is searched for a
workbook, preferring the configured file names. The workbook is re-read
on every request, so edits to the file on disk take effect immediately;
compiled models are reused while the bytes are unchanged.

Endpoints:
  GET  /api/inputs   discovered input cells
  POST /api/calc     apply edits, return output values
  GET  /api/session  websocket: edit batches in, output snapshots out`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8793", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		path, err = engine.FindWorkbook(".", cfg.Preferred())
		if err != nil {
			return err
		}
	}
	// Fail now on an unreadable workbook or a missing sheet rather than on
	// the first request.
	wb, err := openMain(path, cfg)
	if err != nil {
		return err
	}
	wb.Close()

	srv := server.New(path, engine.SessionOptions{
		Sheet:  cfg.Sheet(),
		Inputs: inputOptions(cfg),
	}, cfg.OutputList())

	httpSrv := &http.Server{
		Addr:              serveAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- httpSrv.ListenAndServe()
	}()
	fmt.Fprintf(os.Stderr, "serving %s on http://%s\n", path, serveAddr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
