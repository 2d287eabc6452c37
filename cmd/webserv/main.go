/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Command webserv runs the HTTP/1.1 origin server described by a single
// configuration file argument.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nabbar/golib/internal/cgi"
	"github.com/nabbar/golib/internal/config"
	"github.com/nabbar/golib/internal/dispatch"
	"github.com/nabbar/golib/internal/monitor"
	"github.com/nabbar/golib/internal/server"
	"github.com/nabbar/golib/internal/session"
	"github.com/nabbar/golib/logger"
	logcfg "github.com/nabbar/golib/logger/config"
)

const drainGracePeriod = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	var monitorAddr string

	cmd := &cobra.Command{
		Use:           "webserv <config-file>",
		Short:         "a configurable HTTP/1.1 origin server",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVar(&monitorAddr, "monitor-addr", "", "optional diagnostics listen address (e.g. 127.0.0.1:9090)")

	exitCode := 0

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		exitCode = serve(args[0], monitorAddr)
		if exitCode != 0 {
			return fmt.Errorf("exit code %d", exitCode)
		}
		return nil
	}

	if err := cmd.Execute(); err != nil && exitCode == 0 {
		exitCode = 1
	}

	return exitCode
}

func serve(configPath, monitorAddr string) int {
	log := logger.New(context.Background())
	_ = log.SetOptions(&logcfg.Options{Stdout: &logcfg.OptionsStd{}})

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("configuration error: %v", err))
		return 1
	}

	fs := afero.NewOsFs()
	invoker := cgi.New(1)
	disp := dispatch.New(fs, invoker)
	sessions := session.New()

	srv, err := server.New(cfg, disp, sessions, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("startup error: %v", err))
		return 1
	}
	defer srv.Close()

	if monitorAddr != "" {
		mon := monitor.New()
		srv.AttachMonitor(mon)
		go func() {
			if err := mon.ListenAndServe(monitorAddr); err != nil {
				log.Warning("monitor server stopped", err)
			}
		}()
	}

	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runLoop(ctx, srv, log)
}

func runLoop(ctx context.Context, srv *server.Server, log logger.Logger) int {
	for {
		select {
		case <-ctx.Done():
			return drain(srv, log)
		default:
		}

		if err := srv.RunOnce(ctx, 1000); err != nil {
			log.Error("event loop iteration failed", err)
			return 1
		}
	}
}

func drain(srv *server.Server, log logger.Logger) int {
	log.Info("shutting down, draining connections", nil)

	deadline := time.Now().Add(drainGracePeriod)
	for time.Now().Before(deadline) {
		if srv.ConnectionCount() == 0 {
			return 1
		}
		if err := srv.RunOnce(context.Background(), 100); err != nil {
			return 1
		}
	}

	return 1
}

func printBanner(cfg *config.Config) {
	banner := color.New(color.FgGreen, color.Bold)
	banner.Println("webserv starting")
	for _, s := range cfg.Servers {
		fmt.Printf("  listening on %s\n", s.HostPort())
	}
}
