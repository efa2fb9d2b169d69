package domain

import "strings"

// languageByExt 文件扩展名到编辑器语言标签的映射。
var languageByExt = map[string]string{
	"js": "javascript", "jsx": "javascript", "mjs": "javascript", "cjs": "javascript",
	"ts": "typescript", "tsx": "typescript", "mts": "typescript", "cts": "typescript",
	"html": "html", "htm": "html",
	"css": "css", "scss": "scss", "sass": "scss", "less": "less",
	"json": "json", "yaml": "yaml", "yml": "yaml", "toml": "ini", "xml": "xml",
	"py": "python", "pyw": "python",
	"java": "java", "c": "c", "cpp": "cpp", "h": "c", "hpp": "cpp",
	"cs": "csharp", "go": "go", "rs": "rust", "rb": "ruby", "php": "php",
	"swift": "swift", "kt": "kotlin",
	"sh": "shell", "bash": "shell", "zsh": "shell",
	"ps1": "powershell", "bat": "bat", "cmd": "bat",
	"sql": "sql",
	"md":  "markdown", "mdx": "markdown", "txt": "plaintext",
	"env": "ini", "gitignore": "ignore", "dockerignore": "ignore",
}

// LanguageForFilename 根据文件名推断语言标签，未知扩展名返回 "plaintext"。
func LanguageForFilename(name string) string {
	ext := fileExt(name)
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return "plaintext"
}

// fileTemplates 按扩展名提供新建文件的起始内容。
// 仅在文件创建时查询，不参与任何运行时契约。
var fileTemplates = map[string]string{
	"ts": `// TypeScript file

export const main = () => {
  console.log('Hello, World!');
};
`,
	"js": `// JavaScript file

function main() {
  console.log('Hello, World!');
}

main();
`,
	"html": `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Document</title>
</head>
<body>

</body>
</html>
`,
	"css": `/* Styles */

* {
  margin: 0;
  padding: 0;
  box-sizing: border-box;
}
`,
	"py": `#!/usr/bin/env python3
"""
Python script
"""

def main():
    print("Hello, World!")

if __name__ == "__main__":
    main()
`,
	"json": `{

}
`,
	"md": `# Title

## Description

`,
	"sql": `-- SQL Query

SELECT * FROM table_name;
`,
	"yaml": `# YAML Configuration

name: config
version: 1.0.0
`,
}

// TemplateForFilename 返回文件名对应的起始内容，无模板时返回空串。
func TemplateForFilename(name string) string {
	return fileTemplates[fileExt(name)]
}

func fileExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
