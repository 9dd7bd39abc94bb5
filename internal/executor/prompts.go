package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskmill/taskmill/internal/llm"
	"github.com/taskmill/taskmill/internal/scheduler"
	"github.com/taskmill/taskmill/pkg/models"
)

// systemPrompt frames the model as a specific role with instructions.
func systemPrompt(role, instructions string) string {
	return fmt.Sprintf(`You are a %s assistant. Your task is to help developers with code-related work.

%s

Always be precise, clear, and actionable in your responses. Use code blocks for code examples.
Format your response in markdown when appropriate.`, role, instructions)
}

// sharedContextSection prepends batch-level context to a prompt when
// present.
func sharedContextSection(shared string) string {
	if shared == "" {
		return ""
	}
	return fmt.Sprintf("Shared context for this batch of tasks:\n%s\n\n", shared)
}

// debugExecutor debugs code in any language. Input keys: code
// (required), language, error_message.
type debugExecutor struct {
	client llm.Client
}

func (e *debugExecutor) Execute(ctx context.Context, task models.TaskDescriptor, shared string) (scheduler.Result, error) {
	code := task.Input["code"]
	if code == "" {
		return scheduler.Result{}, fmt.Errorf("debug task %s: no code provided", task.ID)
	}
	language := task.Input["language"]
	if language == "" {
		language = "unknown"
	}

	var b strings.Builder
	b.WriteString(sharedContextSection(shared))
	fmt.Fprintf(&b, "I need help debugging this %s code:\n\n```%s\n%s\n```\n\n", language, language, code)
	if errMsg := task.Input["error_message"]; errMsg != "" {
		fmt.Fprintf(&b, "Error message: %s\n\n", errMsg)
	}
	b.WriteString(`Please provide:
1. **Issue Identification**: What specific issues exist in the code?
2. **Root Cause Analysis**: Why do these issues occur?
3. **Detailed Solution**: How to fix each issue (provide corrected code)
4. **Prevention Tips**: How to avoid similar issues in the future
5. **Testing Suggestions**: How to verify the fixes work

Format your response with clear sections and code blocks.`)

	system := systemPrompt("Professional Code Debugger",
		"You are an expert debugger proficient in multiple programming languages. "+
			"Analyze code, identify bugs, and provide clear, actionable solutions.")

	return generate(ctx, e.client, system, b.String(), 2048, 0.3)
}

// analyzeExecutor reviews code for quality, security, or performance.
// Input keys: code (required), language, analysis_type (defaults to
// comprehensive).
type analyzeExecutor struct {
	client llm.Client
}

func (e *analyzeExecutor) Execute(ctx context.Context, task models.TaskDescriptor, shared string) (scheduler.Result, error) {
	code := task.Input["code"]
	if code == "" {
		return scheduler.Result{}, fmt.Errorf("analyze task %s: no code provided", task.ID)
	}
	language := task.Input["language"]
	if language == "" {
		language = "unknown"
	}
	analysisType := task.Input["analysis_type"]
	if analysisType == "" {
		analysisType = "comprehensive"
	}

	var b strings.Builder
	b.WriteString(sharedContextSection(shared))
	fmt.Fprintf(&b, "Analyze this %s code:\n\n```%s\n%s\n```\n\n", language, language, code)

	switch analysisType {
	case "security":
		b.WriteString(`Perform a security analysis focusing on:
1. **Vulnerability Detection**: Identify potential security vulnerabilities
2. **Data Handling**: Check for proper data validation and sanitization
3. **Risk Assessment**: Rate severity of each issue
4. **Mitigation Strategies**: Provide specific fixes for each vulnerability
5. **Security Best Practices**: Recommend industry-standard practices`)
	case "performance":
		b.WriteString(`Perform a performance analysis focusing on:
1. **Bottleneck Identification**: Find performance-critical sections
2. **Complexity Analysis**: Evaluate algorithm complexity
3. **Resource Usage**: Check for memory leaks or inefficient resource usage
4. **Optimization Opportunities**: Suggest concrete improvements
5. **Scalability**: Assess how code handles increased load`)
	case "quality":
		b.WriteString(`Perform a quality analysis focusing on:
1. **Code Structure**: Evaluate organization and modularity
2. **Readability**: Check naming conventions and documentation
3. **Best Practices**: Identify violations of language conventions
4. **Refactoring Suggestions**: Provide specific refactoring opportunities
5. **Maintainability**: Rate how easy it is to maintain and extend`)
	default:
		b.WriteString(`Perform a comprehensive analysis covering:
1. **Code Structure & Organization**: How well is the code organized?
2. **Readability & Maintainability**: Is it easy to understand and modify?
3. **Security Concerns**: Are there potential security issues?
4. **Performance Implications**: Are there optimization opportunities?
5. **Best Practices Alignment**: Does it follow language conventions?
6. **Overall Quality Score**: Rate on scale 1-10 with justification`)
	}
	b.WriteString("\n\nProvide detailed, actionable feedback with specific examples and code snippets where applicable.")

	system := systemPrompt("Code Analysis Expert",
		fmt.Sprintf("You are an expert code reviewer and analyst. "+
			"Perform %s analysis with actionable insights.", analysisType))

	return generate(ctx, e.client, system, b.String(), 3000, 0.5)
}

// docExecutor generates documentation for code. Input keys: code
// (required), language, doc_type (function, api, readme; defaults to
// function), style (defaults to google).
type docExecutor struct {
	client llm.Client
}

func (e *docExecutor) Execute(ctx context.Context, task models.TaskDescriptor, shared string) (scheduler.Result, error) {
	code := task.Input["code"]
	if code == "" {
		return scheduler.Result{}, fmt.Errorf("doc-generate task %s: no code provided", task.ID)
	}
	language := task.Input["language"]
	if language == "" {
		language = "unknown"
	}
	docType := task.Input["doc_type"]
	if docType == "" {
		docType = "function"
	}
	style := task.Input["style"]
	if style == "" {
		style = "google"
	}

	var b strings.Builder
	b.WriteString(sharedContextSection(shared))
	fmt.Fprintf(&b, "Generate %s documentation for this %s code, following the %s documentation style:\n\n```%s\n%s\n```\n\n", docType, language, style, language, code)
	b.WriteString(`Please provide:
1. **Documentation**: Complete, ready-to-use documentation for the code
2. **Usage Examples**: Short examples showing how the code is used
3. **Parameter Descriptions**: Purpose and expected values of each parameter
4. **Return Values**: What the code returns and under which conditions
5. **Edge Cases**: Notable caveats or error conditions worth documenting`)

	system := systemPrompt("Technical Documentation Writer",
		"You are an expert technical writer who produces clear, accurate developer documentation. "+
			"Write documentation that matches the requested style guide exactly.")

	return generate(ctx, e.client, system, b.String(), 3000, 0.4)
}
