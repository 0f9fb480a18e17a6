package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/go-kvlog/core"
	"github.com/0xRadioAc7iv/go-kvlog/internal/server"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func kvs(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	var out, errOut bytes.Buffer
	code := Run(args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// storeDir returns an empty store directory and moves into another empty
// directory so no kvs.yaml is picked up.
func storeDir(t *testing.T) string {
	t.Helper()

	t.Chdir(t.TempDir())
	return t.TempDir()
}

func TestScenario(t *testing.T) {
	dir := storeDir(t)

	res := kvs(t, "", "set", "key1", "value1", "--dir", dir)
	require.Equal(t, ExitOK, res.code, res.stderr)
	res = kvs(t, "", "set", "key1", "value2", "--dir", dir)
	require.Equal(t, ExitOK, res.code, res.stderr)

	res = kvs(t, "", "get", "key1", "--dir", dir)
	assert.Equal(t, ExitOK, res.code)
	assert.Equal(t, "value2\n", res.stdout)

	res = kvs(t, "", "rm", "key1", "--dir", dir)
	assert.Equal(t, ExitOK, res.code)
	assert.Empty(t, res.stdout)

	res = kvs(t, "", "get", "key1", "--dir", dir)
	assert.Equal(t, ExitOK, res.code)
	assert.Equal(t, "Key not found\n", res.stdout)

	res = kvs(t, "", "rm", "key1", "--dir", dir)
	assert.Equal(t, ExitNotFound, res.code)
	assert.Equal(t, "Key not found\n", res.stdout)
	assert.Empty(t, res.stderr)
}

func TestDirFromEnvironment(t *testing.T) {
	dir := storeDir(t)
	t.Setenv("KVS_DIR", dir)

	require.Equal(t, ExitOK, kvs(t, "", "set", "k", "v").code)
	assert.Equal(t, "v\n", kvs(t, "", "get", "k").stdout)

	_, err := os.Stat(filepath.Join(dir, core.LogFileName))
	assert.NoError(t, err)
}

func TestErrors(t *testing.T) {
	dir := storeDir(t)

	tests := map[string][]string{
		"missing directory":    {"get", "k", "--dir", filepath.Join(dir, "missing")},
		"wrong argument count": {"set", "only-key", "--dir", dir},
		"unknown command":      {"frobnicate"},
		"negative threshold":   {"get", "k", "--dir", dir, "--compact-threshold", "-5"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			res := kvs(t, "", args...)
			assert.Equal(t, ExitError, res.code)
			assert.True(t, strings.HasPrefix(res.stderr, "error: "), res.stderr)
		})
	}
}

func TestCompact(t *testing.T) {
	dir := storeDir(t)

	for i := 0; i < 5; i++ {
		require.Equal(t, ExitOK, kvs(t, "", "set", "k", strconv.Itoa(i), "--dir", dir).code)
	}

	res := kvs(t, "", "compact", "--dir", dir)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "compacted")
	assert.Contains(t, res.stdout, "(1 keys)")

	assert.Equal(t, "4\n", kvs(t, "", "get", "k", "--dir", dir).stdout)
}

func TestDump(t *testing.T) {
	dir := storeDir(t)

	// a directory without a log dumps nothing
	res := kvs(t, "", "dump", "--dir", dir)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Empty(t, res.stdout)

	kvs(t, "", "set", "a", "1", "--dir", dir)
	kvs(t, "", "rm", "a", "--dir", dir)

	res = kvs(t, "", "dump", "--dir", dir)
	require.Equal(t, ExitOK, res.code, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)

	var set, rm map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &set))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rm))

	assert.Equal(t, "Set", set["op"])
	assert.Equal(t, "a", set["key"])
	assert.Equal(t, "1", set["value"])
	assert.EqualValues(t, 0, set["offset"])

	assert.Equal(t, "Rm", rm["op"])
	assert.NotContains(t, rm, "value")

	res = kvs(t, "", "dump", "--pretty", "--dir", dir)
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "\n  \"op\": \"Set\"")
}

func TestDumpBinaryData(t *testing.T) {
	dir := storeDir(t)
	key := []byte{0xff, 0x00, 'k'}
	value := []byte{0xde, 0xad, 0xbe, 0xef}

	s, err := core.Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(key, value))
	require.NoError(t, s.Set([]byte("text"), []byte("")))
	require.NoError(t, s.Close())

	res := kvs(t, "", "dump", "--dir", dir)
	require.Equal(t, ExitOK, res.code, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)

	var binary, text struct {
		Key      *string `json:"key"`
		KeyB64   []byte  `json:"key_b64"`
		Value    *string `json:"value"`
		ValueB64 []byte  `json:"value_b64"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &binary))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &text))

	assert.Nil(t, binary.Key)
	assert.Equal(t, key, binary.KeyB64)
	assert.Nil(t, binary.Value)
	assert.Equal(t, value, binary.ValueB64)

	require.NotNil(t, text.Key)
	assert.Equal(t, "text", *text.Key)
	assert.Nil(t, text.KeyB64)
	require.NotNil(t, text.Value, "an empty value is still written")
	assert.Equal(t, "", *text.Value)
}

func TestDumpReportsTornTail(t *testing.T) {
	dir := storeDir(t)
	kvs(t, "", "set", "a", "1", "--dir", dir)

	f, err := os.OpenFile(filepath.Join(dir, core.LogFileName), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res := kvs(t, "", "dump", "--dir", dir)
	require.Equal(t, ExitOK, res.code)
	assert.Equal(t, 1, strings.Count(res.stdout, "\n"))
	assert.Contains(t, res.stderr, "torn record")
}

func TestShell(t *testing.T) {
	storeDir(t)

	s, err := core.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ln, err := server.Listen("127.0.0.1", 0)
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(ctx, ln, server.NewHandler(s))
	}()
	defer func() {
		cancel()
		<-done
	}()

	input := strings.Join([]string{
		`set city "new york"`,
		`get city`,
		`get town`,
		`rm town`,
		`set "unbalanced`,
		`frobnicate`,
		`exit`,
		`get city`,
	}, "\n")

	res := kvs(t, input, "shell", "--host", "127.0.0.1", "--port", strconv.Itoa(port))
	require.Equal(t, ExitOK, res.code, res.stderr)

	out := res.stdout
	assert.Contains(t, out, "Connected to 127.0.0.1:"+strconv.Itoa(port))
	assert.Contains(t, out, "> ok\n")
	assert.Contains(t, out, "> new york\n")
	assert.Equal(t, 2, strings.Count(out, "Key not found"))
	assert.Contains(t, out, "parse error:")
	assert.Contains(t, out, "error: invalid command")
	// nothing after exit is sent
	assert.Equal(t, 1, strings.Count(out, "new york"))

	value, ok := s.Get([]byte("city"))
	require.True(t, ok)
	assert.Equal(t, "new york", string(value))
}
