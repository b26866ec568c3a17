package iocli

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStdio(t *testing.T) {
	assert.NotNil(t, NewStdio())
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stdio := New(strings.NewReader(""), &out)

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")

	assert.Equal(t, "hello world\ntest 1 abc", out.String())
}

func TestReadInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "line", input: "alice@example.com\n", want: "alice@example.com"},
		{name: "trims spaces", input: "  bob  \n", want: "bob"},
		{name: "no trailing newline", input: "carol", want: "carol"},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			stdio := New(strings.NewReader(tt.input), &out)

			got, err := stdio.ReadInput("Email: ")
			if tt.wantErr {
				assert.ErrorIs(t, err, io.EOF)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Email: ", out.String())
		})
	}
}

// Pipe не терминал: пароль читается строкой
func TestReadPassword_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	go func() {
		_, _ = w.Write([]byte("password123\n"))
		_ = w.Close()
	}()
	defer func() { _ = r.Close() }()

	var out bytes.Buffer
	stdio := New(r, &out)

	got, err := stdio.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "password123", got)
	assert.Equal(t, "Password: ", out.String())
}

// Последовательные чтения используют общий буфер
func TestReadSequence(t *testing.T) {
	stdio := New(strings.NewReader("first\nsecond\n"), io.Discard)

	a, err := stdio.ReadInput("")
	require.NoError(t, err)
	b, err := stdio.ReadPassword("")
	require.NoError(t, err)

	assert.Equal(t, "first", a)
	assert.Equal(t, "second", b)
}
