package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

var serveChangefeedAddr string

var serveChangefeedCmd = &cobra.Command{
	Use:   "serve-changefeed",
	Short: "Serve the changefeed as an SSE stream over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		mux := http.NewServeMux()
		mux.HandleFunc("/changefeed", handleChangefeedStream)

		srv := &http.Server{Addr: serveChangefeedAddr, Handler: mux}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		cmd.Printf("serving changefeed on %s/changefeed\n", serveChangefeedAddr)
		select {
		case <-ctx.Done():
			return srv.Shutdown(context.Background())
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}
	},
}

func handleChangefeedStream(w http.ResponseWriter, r *http.Request) {
	fromSeq := uint64(0)
	if q := r.URL.Query().Get("from_seq"); q != "" {
		if v, err := strconv.ParseUint(q, 10, 64); err == nil {
			fromSeq = v
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := eng.Changefeed.WriteStream(r.Context(), flushWriter{w}, fromSeq); err != nil {
		slog.Default().With("component", "themisd").Info("changefeed stream ended", "err", err)
	}
}

// flushWriter flushes the response after every Write so SSE events reach
// the client as they're produced rather than buffering.
type flushWriter struct{ w http.ResponseWriter }

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if flusher, ok := f.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return n, err
}

func init() {
	serveChangefeedCmd.Flags().StringVar(&serveChangefeedAddr, "addr", ":8089", "HTTP listen address")
}
