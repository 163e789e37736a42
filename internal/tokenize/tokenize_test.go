package tokenize_test

import (
	"strings"
	"testing"

	"github.com/CZERTAINLY/Launcher/internal/tokenize"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		given    string
		then     []string
	}{
		{"empty", "", []string{}},
		{"blank", " \t\n ", []string{}},
		{"single word", "echo", []string{"echo"}},
		{"whitespace runs", "  a \t b\nc  ", []string{"a", "b", "c"}},
		{"quoted spans", `a 'b c' "d e"`, []string{"a", "b c", "d e"}},
		{"double inside single", `x 'y "z"' w`, []string{"x", `y "z"`, "w"}},
		{"single inside double", `x "it's" w`, []string{"x", "it's", "w"}},
		{"mixing quotes", `this 'is "an example"' of mixing quotes`, []string{"this", `is "an example"`, "of", "mixing", "quotes"}},
		{"quoted program path", `"C:\Program Files\Java\bin\java.exe" -version`, []string{`C:\Program Files\Java\bin\java.exe`, "-version"}},
		{"empty quotes", `a "" b`, []string{"a", "", "b"}},
		{"adjacent quote splits word", `a"b c"d`, []string{"a", "b c", "d"}},
		{"no backslash escaping", `"a\" b"`, []string{`a\`, "b"}},
		{"unpaired quote dropped", `it's`, []string{"it", "s"}},
		{"sh script", `-c 'echo hello; exit 3'`, []string{"-c", "echo hello; exit 3"}},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.then, tokenize.Tokenize(tc.given))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	lists := [][]string{
		{},
		{"a"},
		{"/bin/sh", "-c", "true"},
		{"--flag=value", "x,y,z", "ünïcode", "$HOME", "*.go"},
	}
	for _, args := range lists {
		require.Equal(t, args, tokenize.Tokenize(strings.Join(args, " ")))
		require.Equal(t, args, tokenize.Tokenize(tokenize.Join(args)))
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()
	args := []string{"sh", "-c", `echo "hello world"`, "it's here", ""}
	joined := tokenize.Join(args)
	require.Equal(t, `sh -c 'echo "hello world"' "it's here" ""`, joined)
	require.Equal(t, args, tokenize.Tokenize(joined))
}
