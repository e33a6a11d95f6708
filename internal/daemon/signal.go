package daemon

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// NotifyContext 返回收到SIGINT/SIGTERM时取消的context
func NotifyContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("收到信号 %v，正在优雅关闭...", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
