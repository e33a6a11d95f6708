package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// EnvDaemonized 标记进程已后台化，子进程据此跳过二次fork
const EnvDaemonized = "CERTKEEPER_DAEMONIZED"

// Daemon 守护进程控制器
// PID文件和日志文件放在配置文件所在目录
type Daemon struct {
	PidFile    string
	LogFile    string
	ConfigPath string
}

// New 创建守护进程控制器
func New(configPath string) *Daemon {
	dir := filepath.Dir(configPath)
	if dir == "." {
		dir, _ = os.Getwd()
	}

	return &Daemon{
		PidFile:    filepath.Join(dir, "certkeeper.pid"),
		LogFile:    filepath.Join(dir, "certkeeper.log"),
		ConfigPath: configPath,
	}
}

// IsDaemonized 判断当前进程是否已是后台进程
func IsDaemonized() bool {
	return os.Getenv(EnvDaemonized) == "1"
}

// Start 启动守护进程
// 父进程fork出带新会话的子进程后返回，子进程检测到环境变量后直接返回nil继续业务逻辑
func (d *Daemon) Start() error {
	if pid, running := d.IsRunning(); running {
		return fmt.Errorf("守护进程已在运行，PID: %d", pid)
	}

	if IsDaemonized() {
		return nil
	}

	return d.spawn()
}

func (d *Daemon) spawn() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("获取可执行文件路径失败: %w", err)
	}

	logFile, err := os.OpenFile(d.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("无法打开日志文件 %s: %w", d.LogFile, err)
	}
	defer logFile.Close()

	cmd := exec.Command(executable, d.ConfigPath, "start")
	cmd.Env = append(os.Environ(), EnvDaemonized+"=1")
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("启动守护进程失败: %w", err)
	}

	fmt.Printf("守护进程已启动，PID: %d\n", cmd.Process.Pid)
	fmt.Printf("日志文件: %s\n", d.LogFile)
	fmt.Printf("PID文件: %s\n", d.PidFile)
	return nil
}

// Stop 停止守护进程，先SIGTERM等待，超时后SIGKILL
func (d *Daemon) Stop() error {
	pid, running := d.IsRunning()
	if !running {
		return fmt.Errorf("守护进程未运行")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("找不到进程 %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("发送停止信号失败: %w", err)
	}
	fmt.Printf("已发送停止信号到进程 %d\n", pid)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		if _, running := d.IsRunning(); !running {
			fmt.Println("守护进程已停止")
			return nil
		}
	}

	fmt.Println("进程未响应，尝试强制终止...")
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("强制终止失败: %w", err)
	}

	d.RemovePid()
	fmt.Println("守护进程已强制停止")
	return nil
}

// Restart 重启守护进程
func (d *Daemon) Restart() error {
	if _, running := d.IsRunning(); running {
		if err := d.Stop(); err != nil {
			return fmt.Errorf("停止守护进程失败: %w", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
	return d.Start()
}

// Status 打印守护进程状态
func (d *Daemon) Status() {
	if pid, running := d.IsRunning(); running {
		fmt.Printf("守护进程运行中，PID: %d\n", pid)
		fmt.Printf("PID文件: %s\n", d.PidFile)
		fmt.Printf("日志文件: %s\n", d.LogFile)
		return
	}
	fmt.Println("守护进程未运行")
}

// IsRunning 通过PID文件和信号0检查守护进程是否存活
func (d *Daemon) IsRunning() (int, bool) {
	data, err := os.ReadFile(d.PidFile)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}

	return pid, process.Signal(syscall.Signal(0)) == nil
}

// WritePid 写入当前进程PID
func (d *Daemon) WritePid() error {
	return os.WriteFile(d.PidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// RemovePid 删除PID文件
func (d *Daemon) RemovePid() {
	os.Remove(d.PidFile)
}
