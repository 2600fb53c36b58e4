package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: stderrors.New("boom"), want: 1},
		{name: "configuration", err: ConfigurationError("bad threshold"), want: 78},
		{name: "source unavailable", err: SourceUnavailable(ComponentRemote, stderrors.New("timeout")), want: 69},
		{name: "artifact", err: ArtifactWriteFailed("/tmp/x.md", stderrors.New("read-only")), want: 73},
		{name: "encoding", err: RenderEncodingUnsupported("pdf", []string{"table"}), want: 64},
		{name: "wrapped", err: fmt.Errorf("render: %w", RenderEncodingUnsupported("pdf", nil)), want: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestArtifactWriteFailed_CarriesPath(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := ArtifactWriteFailed("/reports/inventory.html", cause)

	assert.Equal(t, "/reports/inventory.html", err.Path)
	assert.Contains(t, err.Error(), "/reports/inventory.html")
	assert.Contains(t, err.Error(), "permission denied")
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, IsType(err, ErrorTypeArtifactWriteFailed))
}

func TestErrorType_Fatal(t *testing.T) {
	assert.False(t, ErrorTypeSourceUnavailable.Fatal())
	assert.False(t, ErrorTypeVerificationInconclusive.Fatal())
	assert.False(t, ErrorTypeNoIntentMatched.Fatal())
	assert.True(t, ErrorTypeRenderEncodingUnsupported.Fatal())
	assert.True(t, ErrorTypeArtifactWriteFailed.Fatal())
}

func TestVerificationInconclusive_AuthHint(t *testing.T) {
	err := VerificationInconclusive("leaf-01", stderrors.New("ssh: unable to authenticate"))
	require.NotEmpty(t, err.Solutions)

	err = VerificationInconclusive("leaf-01", stderrors.New("i/o timeout"))
	assert.Empty(t, err.Solutions)
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, SourceUnavailable(ComponentRemote, stderrors.New("connection refused")), true)

	output := buf.String()
	assert.Contains(t, output, "remote inventory source unavailable")
	assert.Contains(t, output, "connection refused")
	assert.Contains(t, output, "Solutions:")
	assert.Contains(t, output, "NETBOX_TOKEN")
}

func TestDisplayError_Plain(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, stderrors.New("something broke"), true)
	assert.Contains(t, buf.String(), "Error: something broke")
}

func TestFormat_Verbose(t *testing.T) {
	err := NoIntentMatched("what is up")
	assert.Contains(t, fmt.Sprintf("%+v", err), "[NoIntentMatched/router]")
}
