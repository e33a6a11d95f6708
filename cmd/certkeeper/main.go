package main

import (
	"fmt"
	"log"
	"os"

	"certkeeper/internal/config"
	"certkeeper/internal/core"
	"certkeeper/internal/daemon"
	"certkeeper/internal/model"
)

func printUsage() {
	fmt.Println(`证书生命周期自动管理工具 (ACME DNS-01)

用法:
  certkeeper [config.yaml]                                  # 扫描并续期到期证书（单次运行）
  certkeeper [config.yaml] start                            # 启动守护进程（后台运行）
  certkeeper [config.yaml] stop                             # 停止守护进程
  certkeeper [config.yaml] restart                          # 重启守护进程
  certkeeper [config.yaml] status                           # 查看运行状态
  certkeeper [config.yaml] daemon                           # 前台守护进程模式（调试用）
  certkeeper [config.yaml] issue <用户ID> <邮箱> <绑定ID> <域名>...  # 申请新证书
  certkeeper [config.yaml] renew <订单ID>                   # 手动续期指定订单
  certkeeper [config.yaml] check <域名>                     # 探测线上证书有效期

支持的DNS服务商:
  cloudflare digitalocean awsroute53 hetzner namecheap godaddy
  dnsmadeeasy porkbun gandi cloudnsnet dreamhost vultr linode
  duckdns aliyun tencentcloud huawei

配置文件示例:
  bindings:
    - id: "cf-main"
      user_id: "u-1001"
      name: "主账号Cloudflare"
      provider: "cloudflare"
      api_key: "xxx"
      ttl: 600
      default: true

  store_path: "records.json"
  output_dir: "./certs"
  notice_days: 30
  scan_minutes: 5
  validity_days: 90
  post_command: "nginx -s reload"`)
}

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		if os.Args[1] == "-h" || os.Args[1] == "--help" {
			printUsage()
			return
		}
		configPath = os.Args[1]
	}

	command := ""
	if len(os.Args) > 2 {
		command = os.Args[2]
	}

	switch command {
	case "start":
		handleStart(configPath)
	case "stop":
		handleStop(configPath)
	case "restart":
		handleRestart(configPath)
	case "status":
		handleStatus(configPath)
	case "daemon":
		runDaemonForeground(configPath)
	case "issue":
		handleIssue(configPath)
	case "renew":
		handleRenew(configPath)
	case "check":
		handleCheck(configPath)
	default:
		runOnce(configPath)
	}
}

func newManager(configPath string) *core.Manager {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	manager, err := core.NewManager(cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	return manager
}

func handleStart(configPath string) {
	d := daemon.New(configPath)

	// 非后台进程会fork出子进程后返回，子进程继续执行守护逻辑
	if err := d.Start(); err != nil {
		log.Fatalf("启动失败: %v", err)
	}

	if daemon.IsDaemonized() {
		runDaemonBackground(configPath, d)
	}
}

func handleStop(configPath string) {
	if err := daemon.New(configPath).Stop(); err != nil {
		log.Fatalf("停止失败: %v", err)
	}
}

func handleRestart(configPath string) {
	if err := daemon.New(configPath).Restart(); err != nil {
		log.Fatalf("重启失败: %v", err)
	}
}

func handleStatus(configPath string) {
	daemon.New(configPath).Status()
}

func runDaemonBackground(configPath string, d *daemon.Daemon) {
	if err := d.WritePid(); err != nil {
		log.Fatalf("写入PID失败: %v", err)
	}
	defer d.RemovePid()

	manager := newManager(configPath)

	ctx, cancel := daemon.NotifyContext()
	defer cancel()

	log.Printf("守护进程已启动，PID: %d", os.Getpid())
	manager.RunLoop(ctx)
	log.Println("守护进程正在退出...")
}

func runDaemonForeground(configPath string) {
	manager := newManager(configPath)

	ctx, cancel := daemon.NotifyContext()
	defer cancel()

	log.Println("启动前台守护进程模式")
	manager.RunLoop(ctx)
	log.Println("收到退出信号，正在退出...")
}

func handleIssue(configPath string) {
	if len(os.Args) < 7 {
		log.Fatalf("用法: certkeeper [config.yaml] issue <用户ID> <邮箱> <绑定ID> <域名>...")
	}

	userID := os.Args[3]
	email := os.Args[4]
	bindingID := os.Args[5]
	domains := os.Args[6:]

	manager := newManager(configPath)

	ctx, cancel := daemon.NotifyContext()
	defer cancel()

	record, err := manager.Issue(ctx, userID, email, bindingID, domains, true)
	if err != nil {
		log.Fatalf("申请证书失败: %v", err)
	}
	log.Printf("申请成功，订单ID: %s", record.OrderID)
}

func handleRenew(configPath string) {
	if len(os.Args) < 4 {
		log.Fatalf("用法: certkeeper [config.yaml] renew <订单ID>")
	}
	orderID := os.Args[3]

	manager := newManager(configPath)

	ctx, cancel := daemon.NotifyContext()
	defer cancel()

	outcome, err := manager.RenewOrder(ctx, orderID)
	if err != nil {
		log.Fatalf("续期失败: %v", err)
	}
	if outcome == model.RenewalSuccess {
		log.Printf("订单 %s 续期成功", orderID)
	}
}

func handleCheck(configPath string) {
	if len(os.Args) < 4 {
		log.Fatalf("用法: certkeeper [config.yaml] check <域名>")
	}
	domain := os.Args[3]

	manager := newManager(configPath)
	if err := manager.CheckDomain(domain); err != nil {
		log.Fatalf("探测失败: %v", err)
	}
}

func runOnce(configPath string) {
	manager := newManager(configPath)

	ctx, cancel := daemon.NotifyContext()
	defer cancel()

	if err := manager.Run(ctx); err != nil {
		log.Fatalf("运行出错: %v", err)
	}
}
