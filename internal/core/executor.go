package core

import (
	"fmt"
	"log"
	"os"
	"os/exec"
)

// Executor 后置命令执行器
// 续期成功后运行用户配置的命令（如重载nginx）
type Executor struct{}

// NewExecutor 创建执行器
func NewExecutor() *Executor {
	return &Executor{}
}

// RunPostCommand 执行后置命令，命令中的 ${VAR} 占位符会被替换
func (e *Executor) RunPostCommand(command string, vars map[string]string) error {
	if command == "" {
		return nil
	}

	expanded := os.Expand(command, func(key string) string {
		return vars[key]
	})

	log.Printf("执行后置命令: %s", expanded)

	cmd := exec.Command("sh", "-c", expanded)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("执行后置命令失败: %w", err)
	}

	log.Println("后置命令执行成功")
	return nil
}

// BuildVars 构建占位符变量
func (e *Executor) BuildVars(domain, certDir, certFile, keyFile, fullchainFile string) map[string]string {
	return map[string]string{
		"DOMAIN":         domain,
		"CERT_DIR":       certDir,
		"CERT_FILE":      certFile,
		"KEY_FILE":       keyFile,
		"FULLCHAIN_FILE": fullchainFile,
	}
}
