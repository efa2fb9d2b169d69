package service_test

import (
	"context"
	"testing"

	"collaborative-workspace/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestRunnerService_Run_JavaScriptConsoleExtraction(t *testing.T) {
	svc := service.NewRunnerService()

	content := `const x = 1;
console.log('Hello, World!');
  console.log("double quoted");
console.warn('careful');
console.info('fyi');
console.error('boom');
`
	result := svc.Run(context.Background(), "main.js", content, "js")

	assert.Equal(t, "Hello, World!\ndouble quoted\n[warn] careful\n[info] fyi", result.Stdout)
	assert.Equal(t, "boom", result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunnerService_Run_JavaScriptNoConsoleOutput(t *testing.T) {
	svc := service.NewRunnerService()

	result := svc.Run(context.Background(), "quiet.ts", "const sum = (a, b) => a + b;", "ts")

	assert.Equal(t, "(no console output detected)", result.Stdout)
	assert.Empty(t, result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunnerService_Run_JavaScriptNonLiteralArg(t *testing.T) {
	svc := service.NewRunnerService()

	// 变量参数原样返回供参考
	result := svc.Run(context.Background(), "vars.js", "console.log(total);", "js")
	assert.Equal(t, "total", result.Stdout)
}

func TestRunnerService_Run_PythonPreview(t *testing.T) {
	svc := service.NewRunnerService()

	result := svc.Run(context.Background(), "main.py", "def main():\n    print('hi')\n", "py")

	assert.Contains(t, result.Stdout, "[Python simulation]")
	assert.Contains(t, result.Stdout, "$ python main.py")
	assert.Contains(t, result.Stdout, "Detected Python constructs in your code.")
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunnerService_Run_PythonPreviewWithoutConstructs(t *testing.T) {
	svc := service.NewRunnerService()

	result := svc.Run(context.Background(), "plain.py", "x = 1", "py")
	assert.NotContains(t, result.Stdout, "Detected Python constructs")
}

func TestRunnerService_Run_HTMLPreview(t *testing.T) {
	svc := service.NewRunnerService()

	result := svc.Run(context.Background(), "index.html", "<p>hi</p>", "html")

	assert.Contains(t, result.Stdout, "[HTML Preview]")
	assert.Contains(t, result.Stdout, "Your HTML file contains 9 characters.")
}

func TestRunnerService_Run_UnsupportedLanguage(t *testing.T) {
	svc := service.NewRunnerService()

	result := svc.Run(context.Background(), "main.rs", "fn main() {}", "rs")

	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "Language 'rs' execution is not fully supported yet.")
	assert.Contains(t, result.Stderr, "Supported languages with execution: JavaScript, TypeScript")
}
