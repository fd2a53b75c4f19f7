package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "  ", want: nil},
		{name: "disabled", input: `# wl-copy --trim-newline`, want: nil},
		{name: "words", input: "wtype -d 4 -", want: []string{"wtype", "-d", "4", "-"}},
		{name: "double quotes", input: `wl-copy --type "text/plain;charset=utf-8"`, want: []string{"wl-copy", "--type", "text/plain;charset=utf-8"}},
		{name: "single quotes keep backslash", input: `printf 'a\nb'`, want: []string{"printf", `a\nb`}},
		{name: "escaped space", input: `/opt/my\ tools/wtype -`, want: []string{"/opt/my tools/wtype", "-"}},
		{name: "empty quoted argument", input: `ydotool type ""`, want: []string{"ydotool", "type", ""}},
		{name: "unterminated quote", input: `wl-copy "oops`, wantErr: `unterminated " quote`},
		{name: "dangling backslash", input: `wtype hello\`, wantErr: "dangling backslash"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := splitCommand(tc.input)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSplitCommandExpandsHomeOnProgramOnly(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := splitCommand(`~/bin/wtype ~/notes.txt`)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(home, "bin", "wtype"), "~/notes.txt"}, got)

	got, err = splitCommand(`"~/bin/wtype"`)
	require.NoError(t, err)
	require.Equal(t, []string{"~/bin/wtype"}, got)
}

func TestCommandOfPanicsOnInvalidLiteral(t *testing.T) {
	require.Panics(t, func() {
		_ = commandOf(`wl-copy "unterminated`)
	})
	require.Equal(t, []string{"wl-paste", "--no-newline"}, commandOf("wl-paste --no-newline").Argv)
}
