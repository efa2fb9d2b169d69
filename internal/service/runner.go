package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// RunResult 是一次代码执行请求的结果。不支持的语言通过
// exitCode=1 加说明性 stderr 表达，而不是 HTTP 错误。
type RunResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// RunnerService 为编辑器提供"运行"按钮语义。没有真实的沙箱运行时，
// JS/TS 做 console.log 静态提取，Python/HTML 给出预览说明。
type RunnerService struct{}

func NewRunnerService() *RunnerService {
	return &RunnerService{}
}

// Run 处理一次运行请求。永不返回业务错误：所有失败都体现在结果里。
func (s *RunnerService) Run(ctx context.Context, filename, content, language string) *RunResult {
	logrus.WithFields(logrus.Fields{"filename": filename, "language": language}).Info("Running code")

	switch language {
	case "js", "jsx", "ts", "tsx":
		return runJavaScript(content)
	case "py":
		return previewPython(filename, content)
	case "html":
		return previewHTML(content)
	default:
		return &RunResult{
			Stderr: fmt.Sprintf("Language '%s' execution is not fully supported yet.\n", language) +
				"Supported languages with execution: JavaScript, TypeScript\n" +
				"Supported languages with preview: Python, HTML",
			ExitCode: 1,
		}
	}
}

// runJavaScript 静态提取顶层 console.log/error/warn/info 的字符串字面量参数。
// 这覆盖了起始模板和教学示例的典型输出，不求值任意表达式。
func runJavaScript(content string) *RunResult {
	var logs, errs []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "console.log("):
			if arg, ok := literalArg(trimmed, "console.log("); ok {
				logs = append(logs, arg)
			}
		case strings.HasPrefix(trimmed, "console.error("):
			if arg, ok := literalArg(trimmed, "console.error("); ok {
				errs = append(errs, arg)
			}
		case strings.HasPrefix(trimmed, "console.warn("):
			if arg, ok := literalArg(trimmed, "console.warn("); ok {
				logs = append(logs, "[warn] "+arg)
			}
		case strings.HasPrefix(trimmed, "console.info("):
			if arg, ok := literalArg(trimmed, "console.info("); ok {
				logs = append(logs, "[info] "+arg)
			}
		}
	}
	if len(logs) == 0 && len(errs) == 0 {
		logs = append(logs, "(no console output detected)")
	}
	return &RunResult{
		Stdout: strings.Join(logs, "\n"),
		Stderr: strings.Join(errs, "\n"),
	}
}

// literalArg 取出 console 调用里的单个字符串字面量参数。
// 非字面量参数 (变量、表达式) 原样返回供参考。
func literalArg(line, prefix string) (string, bool) {
	rest := strings.TrimPrefix(line, prefix)
	end := strings.LastIndex(rest, ")")
	if end < 0 {
		return "", false
	}
	arg := strings.TrimSpace(rest[:end])
	arg = strings.TrimSuffix(arg, ";")
	if len(arg) >= 2 {
		first, last := arg[0], arg[len(arg)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') || (first == '`' && last == '`') {
			return arg[1 : len(arg)-1], true
		}
	}
	if arg == "" {
		return "", false
	}
	return arg, true
}

func previewPython(filename, content string) *RunResult {
	stdout := "[Python simulation]\n" +
		"Would execute:\n" +
		fmt.Sprintf("$ python %s\n\n", filename) +
		"Note: Full Python execution requires a Python runtime.\n" +
		"The code appears to be valid Python."
	if strings.Contains(content, "def ") || strings.Contains(content, "class ") || strings.Contains(content, "import ") {
		stdout += "\n\nDetected Python constructs in your code."
	}
	return &RunResult{Stdout: stdout}
}

func previewHTML(content string) *RunResult {
	return &RunResult{
		Stdout: "[HTML Preview]\n" +
			fmt.Sprintf("Your HTML file contains %d characters.\n", len(content)) +
			"Open in browser to view the rendered output.",
	}
}
