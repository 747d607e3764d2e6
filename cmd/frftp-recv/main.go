// Command frftp-recv is the receiver-side CLI.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/frftp-project/frftp/frftp"
	"github.com/frftp-project/frftp/ioadapt"
	"github.com/frftp-project/frftp/netconn"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("frftp-recv", flag.ContinueOnError)
	port := fs.Int("port", frftp.DefaultPort, "listen UDP port")
	mtu := fs.Int("mtu", frftp.DefaultMTU, "path MTU, governs payload size")
	rtoMs := fs.Int("rto_ms", frftp.DefaultRTOMs, "receive/retransmission timeout in ms")
	retries := fs.Int("retries", frftp.DefaultRetries, "per-segment retry cap")
	win := fs.Int("win", frftp.DefaultWindow, "outstanding-segment window")
	fs.Float64("rtt", 0, "ignored: legacy flag, channel emulation is external")
	fs.Float64("loss", 0, "ignored: legacy flag, channel emulation is external")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s <output_file> [flags]\n", fs.Name())
		return 2
	}
	outPath := fs.Arg(0)

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg := frftp.Config{
		BindPort: *port,
		MTU:      *mtu,
		RTOMs:    *rtoMs,
		Retries:  *retries,
		Window:   *win,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if cfg.Window != *win {
		sugar.Warnw("window out of range, clamped to default", "requested", *win, "used", cfg.Window)
	}

	sink, err := ioadapt.CreateFileSink(outPath)
	if err != nil {
		sugar.Errorw("create output", "err", err)
		return 2
	}
	defer sink.Close()

	conn, err := netconn.Listen(cfg.BindPort, false)
	if err != nil {
		sugar.Errorw("listen", "err", err)
		return 2
	}
	defer conn.Close()

	recv, err := frftp.NewReceiver(conn, sink, cfg, sugar)
	if err != nil {
		sugar.Errorw("new receiver", "err", err)
		return 2
	}

	start := time.Now()
	err = recv.Run()
	secs := time.Since(start).Seconds()

	var sizeMismatch *frftp.SizeMismatch
	if errors.As(err, &sizeMismatch) {
		sugar.Errorw("size mismatch", "err", sizeMismatch)
		return 1
	}
	if err != nil {
		sugar.Errorw("transfer failed", "err", err)
		return 1
	}

	var bytes int64
	if st, err := os.Stat(outPath); err == nil {
		bytes = st.Size()
	}
	mbps := 0.0
	if secs > 0 {
		mbps = float64(bytes) * 8 / 1e6 / secs
	}
	sugar.Infow("receiver done", "bytes", bytes, "seconds", secs, "mbps", mbps)
	return 0
}
