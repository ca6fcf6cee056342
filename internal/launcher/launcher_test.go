package launcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForDevtoolsLine_Match(t *testing.T) {
	r := strings.NewReader("some banner\nDevTools listening on ws://127.0.0.1:9222/devtools/browser/abc\nmore noise\n")
	err := waitForDevtoolsLine(r)
	require.NoError(t, err)
}

func TestWaitForDevtoolsLine_BindError(t *testing.T) {
	r := strings.NewReader("[ERROR] bind() returned an error, errno=98\n")
	err := waitForDevtoolsLine(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bindErrorMarker)
}

func TestWaitForDevtoolsLine_LineBudgetExhausted(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < maxStartupLines+5; i++ {
		sb.WriteString("noise\n")
	}
	err := waitForDevtoolsLine(strings.NewReader(sb.String()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "devtools listening line not observed")
}
