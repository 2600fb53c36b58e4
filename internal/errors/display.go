package errors

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// DisplayError writes err to w, with colour unless noColor is set.
func DisplayError(w io.Writer, err error, noColor bool) {
	color.NoColor = noColor

	e, ok := As(err)
	if !ok {
		fmt.Fprintf(w, "%s %v\n", color.RedString("Error:"), err)
		return
	}

	colorFunc := getErrorStyle(e.Type)

	fmt.Fprintf(w, "\n%s\n", colorFunc(e.Message))

	if e.Path != "" {
		fmt.Fprintf(w, "   %s %s\n", color.CyanString("Path:"), e.Path)
	}
	if e.Cause != "" {
		fmt.Fprintf(w, "   %s %s\n", color.YellowString("Cause:"), color.HiBlackString(e.Cause))
	}

	if len(e.Solutions) > 0 {
		fmt.Fprintf(w, "\n   %s\n", color.GreenString("Solutions:"))
		for i, solution := range e.Solutions {
			fmt.Fprintf(w, "   %s %s\n", color.HiBlackString(fmt.Sprintf("%d.", i+1)), solution)
		}
	}

	fmt.Fprintln(w)
}

// DisplayWarning shows a warning message
func DisplayWarning(w io.Writer, message string, noColor bool) {
	color.NoColor = noColor
	fmt.Fprintf(w, "Warning: %s\n", color.YellowString(message))
}

// getErrorStyle returns the appropriate color function for an error type
func getErrorStyle(errType ErrorType) func(format string, a ...interface{}) string {
	switch errType {
	case ErrorTypeConfiguration, ErrorTypeValidation, ErrorTypeRenderEncodingUnsupported:
		return color.YellowString
	case ErrorTypeSourceUnavailable, ErrorTypeVerificationInconclusive:
		return color.CyanString
	case ErrorTypeArtifactWriteFailed:
		return color.MagentaString
	default:
		return color.RedString
	}
}
