package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dyluth/nextpost/internal/agent"
	"github.com/dyluth/nextpost/internal/extract"
	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects normal and error output. Commands point it at cobra's writers.
func SetOutput(out, errOut io.Writer) {
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(stdout, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(stdout, format, a...)
}

// Warning prints a warning message in yellow
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(stdout, msg)
}

// Step prints a progress line for multi-step operations
func Step(format string, a ...any) {
	cyan.Fprintf(stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a title, explanation and suggestions to stderr and returns an error
// carrying only the title, for Cobra (which runs with SilenceErrors).
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details printed between the explanation
// and the suggestions. Keys are printed in sorted order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(stderr, "\n")
		for _, k := range keys {
			fmt.Fprintf(stderr, "  %s: %s\n", k, context[k])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// Recommendation prints the extracted recommendation. An empty recommendation is
// reported as an inconclusive discussion, not as an error.
func Recommendation(rec extract.Recommendation, concluded bool) {
	bold.Fprintf(stdout, "\n🎯 YOUR NEXT POSTS\n")
	fmt.Fprintf(stdout, "%s\n\n", strings.Repeat("=", 50))

	if rec.IsEmpty() {
		Warning("The agents finished without an actionable recommendation.\n")
		fmt.Fprintf(stdout, "Try again with more context (--context) or add more posts.\n")
		return
	}

	if rec.Strategy != "" {
		cyan.Fprintf(stdout, "COORDINATED STRATEGY:\n")
		fmt.Fprintf(stdout, "%s\n\n", rec.Strategy)
	} else if !concluded {
		Warning("The coordinator did not reach a final recommendation within the round limit.\n\n")
	}

	if story := rec.Specialist(agent.RoleStorySpecialist); story != "" {
		cyan.Fprintf(stdout, "STORY RECOMMENDATION:\n")
		fmt.Fprintf(stdout, "%s\n\n", story)
	}

	if feed := rec.Specialist(agent.RoleFeedSpecialist); feed != "" {
		cyan.Fprintf(stdout, "FEED POST RECOMMENDATION:\n")
		fmt.Fprintf(stdout, "%s\n\n", feed)
	}

	green.Fprintf(stdout, "Ready to create your next posts!\n")
}
