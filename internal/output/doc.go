// Package output provides styled terminal output for the quill CLI.
//
// # Usage
//
//	output.Success("Generated 4 providers")
//	output.Info("Next steps:")
//	output.Step("go build ./...")
//	output.Error("com.acme.Greeting: resource not found")
//
// # Verbose Mode
//
//	output.SetVerbose(true)
//	output.Verbose("Scanning internal/ for //quill:resource directives")
//
// # Tables
//
// Table renders rows with lipgloss/table, sized to the terminal when stdout
// is one:
//
//	output.Table([]string{"Target", "Status"}, rows)
//
// # Styling
//
//   - Success: 🔥 green bold
//   - Error: ❌ red bold
//   - Warn: ⚠️ yellow
//   - Info: ℹ️ cyan
//   - Step: indented gray
//   - Verbose: 🔍 gray (when enabled)
package output
