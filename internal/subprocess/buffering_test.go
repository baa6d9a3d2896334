package subprocess

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// mockChunkReader delivers data in controlled chunks to simulate various buffering scenarios.
type mockChunkReader struct {
	chunks [][]byte
	index  int
}

func newMockChunkReader(chunks ...string) *mockChunkReader {
	byteChunks := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		byteChunks[i] = []byte(chunk)
	}

	return &mockChunkReader{chunks: byteChunks}
}

func (r *mockChunkReader) Read(p []byte) (int, error) {
	if r.index >= len(r.chunks) {
		return 0, io.EOF
	}

	chunk := r.chunks[r.index]

	n := copy(p, chunk)
	if n < len(chunk) {
		r.chunks[r.index] = chunk[n:]
	} else {
		r.index++
	}

	return n, nil
}

// TestScanLines_MultipleObjectsInOneRead tests splitting when several
// responses arrive in a single read.
func TestScanLines_MultipleObjectsInOneRead(t *testing.T) {
	reader := newMockChunkReader(`{"id":1,"result":"a"}` + "\n" + `{"id":2,"result":"b"}` + "\n")
	messages := collectJSONLines(t, reader, maxScanTokenSize)

	require.Len(t, messages, 2)
	require.InDelta(t, 1, messages[0]["id"], 0)
	require.InDelta(t, 2, messages[1]["id"], 0)
}

// TestScanLines_EmbeddedNewlines tests that escaped newlines inside JSON
// strings do not split a record.
func TestScanLines_EmbeddedNewlines(t *testing.T) {
	obj := map[string]any{"id": 1, "result": map[string]any{"reply": "Line 1\nLine 2\nLine 3"}}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	reader := newMockChunkReader(string(data) + "\n")
	messages := collectJSONLines(t, reader, maxScanTokenSize)

	require.Len(t, messages, 1)

	result, ok := messages[0]["result"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Line 1\nLine 2\nLine 3", result["reply"])
}

// TestScanLines_SkipsBlankLines tests that blank and whitespace-only lines
// between records are dropped.
func TestScanLines_SkipsBlankLines(t *testing.T) {
	reader := newMockChunkReader(`{"id":1}` + "\n\n  \n\r\n" + `{"id":2}` + "\n")
	messages := collectJSONLines(t, reader, maxScanTokenSize)

	require.Len(t, messages, 2)
}

// TestScanLines_SplitAcrossReads tests a record split across several reads.
func TestScanLines_SplitAcrossReads(t *testing.T) {
	obj := map[string]any{
		"id": 3,
		"result": map[string]any{
			"steps": []any{
				map[string]any{"description": strings.Repeat("x", 1000), "command": "ipconfig /flushdns"},
			},
		},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	full := string(data) + "\n"
	third := len(full) / 3
	reader := newMockChunkReader(full[:third], full[third:2*third], full[2*third:])

	messages := collectJSONLines(t, reader, maxScanTokenSize)

	require.Len(t, messages, 1)
	require.InDelta(t, 3, messages[0]["id"], 0)
}

// TestScanLines_LargeRecord tests a record larger than the initial scanner
// buffer delivered in 64KB chunks, like a screenshot payload.
func TestScanLines_LargeRecord(t *testing.T) {
	obj := map[string]any{
		"id":     9,
		"result": map[string]any{"image": strings.Repeat("A", 300*1024)},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	data = append(data, '\n')

	chunkSize := 64 * 1024

	var chunks []string

	for i := 0; i < len(data); i += chunkSize {
		end := min(i+chunkSize, len(data))
		chunks = append(chunks, string(data[i:end]))
	}

	messages := collectJSONLines(t, newMockChunkReader(chunks...), maxScanTokenSize)

	require.Len(t, messages, 1)
	require.InDelta(t, 9, messages[0]["id"], 0)
}

// TestScanLines_OversizeRecordSkipped tests that a record over the limit is
// dropped up to its newline and scanning carries on.
func TestScanLines_OversizeRecordSkipped(t *testing.T) {
	garbage := strings.Repeat("x", 2_000_000)
	reader := newMockChunkReader(`{"id":1}`+"\n", garbage[:700_000], garbage[700_000:]+"\n", `{"id":2}`+"\n")

	var (
		seen    []string
		dropped []int
	)

	err := scanLines(reader, maxScanTokenSize, func(line []byte) bool {
		seen = append(seen, string(line))

		return true
	}, func(size int) {
		dropped = append(dropped, size)
	})

	require.NoError(t, err)
	require.Equal(t, []string{`{"id":1}`, `{"id":2}`}, seen)
	require.Equal(t, []int{len(garbage)}, dropped)
}

// TestScanLines_SmallLimit tests that limits below the read buffer size are
// enforced.
func TestScanLines_SmallLimit(t *testing.T) {
	customLimit := 1024
	long := `{"data": "` + strings.Repeat("x", customLimit+100) + `"}`
	exact := strings.Repeat("y", customLimit)

	var (
		seen    []string
		dropped int
	)

	err := scanLines(strings.NewReader(long+"\n"+exact+"\n"+`{"id":3}`), customLimit, func(line []byte) bool {
		seen = append(seen, string(line))

		return true
	}, func(int) {
		dropped++
	})

	require.NoError(t, err)
	require.Equal(t, 1, dropped)
	require.Equal(t, []string{exact, `{"id":3}`}, seen)
}

// TestScanLines_OversizeFinalRecord tests an oversize record cut off by EOF.
func TestScanLines_OversizeFinalRecord(t *testing.T) {
	var dropped []int

	err := scanLines(strings.NewReader("ok\n"+strings.Repeat("z", 64)), 32, func([]byte) bool {
		return true
	}, func(size int) {
		dropped = append(dropped, size)
	})

	require.NoError(t, err)
	require.Equal(t, []int{64}, dropped)
}

// TestScanLines_KeepsIndentation tests that leading whitespace survives and
// trailing whitespace is trimmed.
func TestScanLines_KeepsIndentation(t *testing.T) {
	var seen []string

	err := scanLines(strings.NewReader("Traceback:\r\n  File \"main.py\", line 3  \n"), maxScanTokenSize, func(line []byte) bool {
		seen = append(seen, string(line))

		return true
	}, nil)

	require.NoError(t, err)
	require.Equal(t, []string{"Traceback:", `  File "main.py", line 3`}, seen)
}

// TestScanLines_StopsWhenEmitRefuses tests early termination.
func TestScanLines_StopsWhenEmitRefuses(t *testing.T) {
	reader := strings.NewReader("one\ntwo\nthree\n")

	var seen []string

	err := scanLines(reader, maxScanTokenSize, func(line []byte) bool {
		seen = append(seen, string(line))

		return len(seen) < 2
	}, nil)

	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, seen)
}

// TestScanLines_RecordsAreCopied tests that emitted records survive later reads.
func TestScanLines_RecordsAreCopied(t *testing.T) {
	reader := newMockChunkReader("first\n", "second\n", "third\n")

	var kept [][]byte

	err := scanLines(reader, maxScanTokenSize, func(line []byte) bool {
		kept = append(kept, line)

		return true
	}, nil)

	require.NoError(t, err)
	require.Equal(t, "first", string(kept[0]))
	require.Equal(t, "second", string(kept[1]))
	require.Equal(t, "third", string(kept[2]))
}

// collectJSONLines runs scanLines and decodes every record.
func collectJSONLines(t *testing.T, reader io.Reader, limit int) []map[string]any {
	t.Helper()

	var messages []map[string]any

	err := scanLines(reader, limit, func(line []byte) bool {
		var msg map[string]any
		if err := json.Unmarshal(line, &msg); err != nil {
			t.Fatalf("Failed to unmarshal JSON: %v, line: %s", err, string(line))
		}

		messages = append(messages, msg)

		return true
	}, nil)
	require.NoError(t, err)

	return messages
}
