package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		cmd     string
		key     string
		value   string
		wantErr bool
	}{
		{"bare command", "PING", "ping", "", "", false},
		{"one argument", "get foo", "get", "foo", "", false},
		{"two arguments", "set foo bar", "set", "foo", "bar", false},
		{"quoted value", `set city "new york"`, "set", "city", "new york", false},
		{"single quotes", `set k 'a "b" c'`, "set", "k", `a "b" c`, false},
		{"escaped space", `set k a\ b`, "set", "k", "a b", false},
		{"unterminated quote", `set k "oops`, "", "", "", true},
		{"too many arguments", "set a b c", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, key, value, err := SplitCommandLine(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got cmd=%q key=%q value=%q", cmd, key, value)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd != tt.cmd || key != tt.key || value != tt.value {
				t.Errorf("got (%q, %q, %q), want (%q, %q, %q)", cmd, key, value, tt.cmd, tt.key, tt.value)
			}
		})
	}

	if _, _, _, err := SplitCommandLine("   "); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("blank line: got %v, want ErrEmptyCommand", err)
	}
}

func TestTruncateAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := TruncateAt(f, 5); err != nil {
		t.Fatalf("TruncateAt: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "hello" {
		t.Fatalf("got %q after truncate", got)
	}
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if ok, err := IsDir(dir); err != nil || !ok {
		t.Errorf("IsDir(dir) = %v, %v", ok, err)
	}
	if ok, err := IsDir(file); err != nil || ok {
		t.Errorf("IsDir(file) = %v, %v", ok, err)
	}
	if _, err := IsDir(filepath.Join(dir, "missing")); !os.IsNotExist(err) {
		t.Errorf("IsDir(missing) err = %v", err)
	}
}
