// 程序入口：解析命令行、装配存储与区域索引并执行子命令；业务逻辑位于 internal 下各包
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"track-spatial/internal/config"
	"track-spatial/internal/logger"
	"track-spatial/internal/metrics"
)

// 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

func main() {
	config.LoadDotEnv()
	logger.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	root := newRootCommand(a)
	root.SetArgs(defaultToImport(root, os.Args[1:]))
	err := root.ExecuteContext(ctx)

	if a.cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(a.cfg.MetricsFile); werr != nil {
			a.logger().Error("metrics_write_error", "file", a.cfg.MetricsFile, "err", werr)
		}
	}
	if err != nil {
		a.logger().Error("command_failed", "err", err)
		stop()
		os.Exit(1)
	}
}
