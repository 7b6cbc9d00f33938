package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/indexsync/internal/store"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(PauseResult{Index: "master_index", Paused: true}))

	var env struct {
		Status string      `json:"status"`
		Data   PauseResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "ok", env.Status)
	assert.Equal(t, PauseResult{Index: "master_index", Paused: true}, env.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"path": "index.crawlers"}
	require.NoError(t, f.Error(ErrCodeConfig, "config invalid", details))

	var env Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeConfig, env.Error.Code)
	assert.Equal(t, "config invalid", env.Error.Message)
	assert.NotNil(t, env.Error.Details)
	assert.Nil(t, env.Data)
}

func TestOutputFormatter_TextUsesRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success(PauseResult{Index: "web_index"}))
	assert.Equal(t, "Indexing resumed for web_index\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Success("plain value"))
	assert.Equal(t, "plain value\n", buf.String())
}

func TestOutputFormatter_TextErrorGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}

	require.NoError(t, f.Error(ErrCodeStorage, "index store locked", map[string]int{"retries": 3}))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [E_STORAGE]: index store locked")
	assert.NotContains(t, errOut.String(), "Details:")

	errOut.Reset()
	f.Verbose = true
	require.NoError(t, f.Error(ErrCodeStorage, "index store locked", map[string]int{"retries": 3}))
	assert.Contains(t, errOut.String(), "Details: map[retries:3]")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	cause := errors.New("no such table: journal")

	err := f.Fail(ExitCommandError, ErrCodeStorage, "failed to read journal", cause, nil)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var env Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "failed to read journal: no such table: journal", env.Error.Message)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: tt.verbose}

			f.VerboseLog("Applying %d step(s)", 3)

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Equal(t, "Applying 3 step(s)\n", errOut.String())
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestApplyResultText(t *testing.T) {
	buf := &bytes.Buffer{}
	r := ApplyResult{
		Index: "master_index",
		Steps: 2,
		Writes: []store.JournalRecord{
			{Seq: 4, Op: "upsert", ItemID: "home", Ref: "master:home/en/1"},
			{Seq: 5, Op: "delete-item", ItemID: "old"},
		},
		Entries: 7,
	}
	require.NoError(t, r.renderText(buf))
	assert.Equal(t, "Applied 2 step(s) to master_index: 2 write(s), 7 entries\n"+
		"  [4] upsert master:home/en/1\n"+
		"  [5] delete-item old\n", buf.String())
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open index store", cause)

	assert.Equal(t, "failed to open index store: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("apply: %w", err)))

	assert.Equal(t, "2 scenario(s) failed", NewExitError(ExitFailure, "2 scenario(s) failed").Error())
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "x")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown flag: --bogus")))
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}
