// Command frftp-send is the sender-side CLI: argument parsing and I/O
// wiring live here, outside the core transport engine, per spec §1's
// scope note ("argument parsing and CLI surface" is an external
// collaborator, not part of the core).
package main

import (
	"flag"
	"fmt"
	"net"
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
	fs := flag.NewFlagSet("frftp-send", flag.ContinueOnError)
	port := fs.Int("port", frftp.DefaultPort, "destination UDP port")
	mtu := fs.Int("mtu", frftp.DefaultMTU, "path MTU, governs payload size")
	rtoMs := fs.Int("rto_ms", frftp.DefaultRTOMs, "retransmission timeout in ms")
	retries := fs.Int("retries", frftp.DefaultRetries, "per-segment retry cap")
	win := fs.Int("win", frftp.DefaultWindow, "outstanding-segment window")
	zerocopy := fs.Int("zerocopy", 1, "prefer zero-copy send (1/0); silently disabled if unsupported")
	// Legacy flags accepted and ignored for compatibility with scripts
	// written against the original reference tool: channel
	// characteristics come from an external link emulator, not the
	// endpoint itself.
	fs.Float64("rtt", 0, "ignored: legacy flag, channel emulation is external")
	fs.Float64("loss", 0, "ignored: legacy flag, channel emulation is external")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <server_ip> <input_file> [flags]\n", fs.Name())
		return 2
	}
	serverIP := fs.Arg(0)
	inPath := fs.Arg(1)

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	peer := &net.UDPAddr{IP: net.ParseIP(serverIP), Port: *port}
	if peer.IP == nil {
		fmt.Fprintf(os.Stderr, "bad server ip: %s\n", serverIP)
		return 2
	}

	cfg := frftp.Config{
		PeerAddr: peer,
		MTU:      *mtu,
		RTOMs:    *rtoMs,
		Retries:  *retries,
		Window:   *win,
		ZeroCopy: *zerocopy != 0,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if cfg.Window != *win {
		sugar.Warnw("window out of range, clamped to default", "requested", *win, "used", cfg.Window)
	}

	src, err := ioadapt.OpenFileSource(inPath)
	if err != nil {
		sugar.Errorw("open input", "err", err)
		return 2
	}
	defer src.Close()

	conn, err := netconn.Dial(peer, cfg.ZeroCopy)
	if err != nil {
		sugar.Errorw("dial", "err", err)
		return 2
	}
	defer conn.Close()

	sender, err := frftp.NewSender(conn, peer, src, cfg, sugar)
	if err != nil {
		sugar.Errorw("new sender", "err", err)
		return 2
	}

	start := time.Now()
	if err := sender.Run(); err != nil {
		sugar.Errorw("transfer failed", "err", err)
		return 1
	}
	secs := time.Since(start).Seconds()
	bits := float64(src.Size()) * 8
	mbps := 0.0
	if secs > 0 {
		mbps = bits / 1e6 / secs
	}
	sugar.Infow("sender done", "bytes", src.Size(), "seconds", secs, "mbps", mbps)
	return 0
}
