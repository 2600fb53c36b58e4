package errors

import (
	"fmt"
	"strings"
)

// SourceUnavailable reports a failed or timed-out adapter fetch
func SourceUnavailable(component Component, cause error) *Error {
	err := New(ErrorTypeSourceUnavailable, component, fmt.Sprintf("%s inventory source unavailable", component)).
		WithCause(cause)

	switch component {
	case ComponentRemote:
		err.WithSolutions(
			"Check netbox.url and that the NetBox API is reachable",
			"Set NETBOX_TOKEN to a valid API token",
		)
	case ComponentLocal:
		err.WithSolutions(
			"Check local.path points at a readable devices.yaml",
		)
	}
	return err
}

// VerificationInconclusive reports a live check that could not reach a device
func VerificationInconclusive(device string, cause error) *Error {
	err := New(ErrorTypeVerificationInconclusive, ComponentVerifier,
		fmt.Sprintf("identity check for %s was inconclusive", device)).
		WithCause(cause)

	if cause != nil && strings.Contains(strings.ToLower(cause.Error()), "auth") {
		err.WithSolutions("Check ssh.username/ssh.password and telnet.username/telnet.password")
	}
	return err
}

// NoIntentMatched marks a router fallback
func NoIntentMatched(utterance string) *Error {
	return New(ErrorTypeNoIntentMatched, ComponentRouter,
		fmt.Sprintf("no intent matched %q, answering with summary", utterance))
}

// RenderEncodingUnsupported rejects an unknown output encoding
func RenderEncodingUnsupported(encoding string, supported []string) *Error {
	return New(ErrorTypeRenderEncodingUnsupported, ComponentRenderer,
		fmt.Sprintf("unsupported encoding %q", encoding)).
		WithSolutions(fmt.Sprintf("Use one of: %s", strings.Join(supported, ", ")))
}

// ArtifactWriteFailed reports an export that could not be written to path
func ArtifactWriteFailed(path string, cause error) *Error {
	return New(ErrorTypeArtifactWriteFailed, ComponentExport, "failed to write report artifact").
		WithPath(path).
		WithCause(cause).
		WithSolutions("Check that export.dir exists and is writable")
}

// ConfigurationError reports invalid settings
func ConfigurationError(message string) *Error {
	return New(ErrorTypeConfiguration, ComponentConfig, message).
		WithSolutions("Check $HOME/.netpilot/config.yaml or NETPILOT_* environment variables")
}

// InvalidRequest rejects a malformed query, filter or tool argument
func InvalidRequest(component Component, message string) *Error {
	return New(ErrorTypeValidation, component, message)
}

// NoSourceAvailable reports that neither inventory produced any data
func NoSourceAvailable(causes ...string) *Error {
	return New(ErrorTypeSourceUnavailable, ComponentPipeline, "no inventory source produced data").
		WithCause(fmt.Errorf("%s", strings.Join(causes, "; "))).
		WithSolutions(
			"Check local.path points at a readable devices.yaml",
			"Check netbox.url and NETBOX_TOKEN, or netbox.sample_path",
		)
}
