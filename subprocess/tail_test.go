package subprocess

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTailKeepsLastLines(t *testing.T) {
	tail := &Tail{MaxLines: 3}
	for i := 0; i < 10; i++ {
		fmt.Fprintf(tail, "line %d\n", i)
	}
	require.Equal(t, "line 7\nline 8\nline 9", tail.String())
}

func TestTailPartialWrites(t *testing.T) {
	tail := &Tail{MaxLines: 10}
	_, err := io.Copy(tail, strings.NewReader("split "))
	require.NoError(t, err)
	_, err = io.Copy(tail, strings.NewReader("line\ntrailing"))
	require.NoError(t, err)
	require.Equal(t, "split line\ntrailing", tail.String())
}

func TestTailEmpty(t *testing.T) {
	tail := &Tail{}
	require.Equal(t, "", tail.String())
}
