package printer

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{""}, Wrap("", 10))
	assert.Equal(t, []string{"Complete", "Blood", "Count"}, Wrap("Complete Blood Count", 8))
	assert.Equal(t, []string{"Lipid", "Profile"}, Wrap("Lipid Profile", 10))
	assert.Equal(t, []string{"ABCDE", "FGH"}, Wrap("ABCDEFGH", 5))
}

func TestDocument_PairAndItem(t *testing.T) {
	doc := NewDocument(20)
	doc.Pair("Total", "56.70").Item("Erythrocyte Sedimentation Rate", "8.00")

	out := doc.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte{ESC, '@'}))
	assert.Contains(t, string(out), "Total          56.70\n")

	lines := bytes.Split(bytes.TrimPrefix(out, []byte{ESC, '@'}), []byte{LF})
	last := string(lines[len(lines)-2])
	assert.Len(t, last, 20)
	assert.True(t, bytes.HasSuffix([]byte(last), []byte("8.00")))
}

func TestDocument_PlainText(t *testing.T) {
	doc := NewDocument(10)
	doc.Align(AlignCenter).Bold(true).Text("LAB").Bold(false).
		Align(AlignLeft).Rule('-').Pair("Paid", "5.00").Feed(1).Cut()

	assert.Equal(t, "   LAB\n----------\nPaid  5.00\n\n", doc.PlainText())
	assert.NotContains(t, doc.PlainText(), string([]byte{ESC}))
}

func TestNew(t *testing.T) {
	p, err := New("none", "", "")
	require.NoError(t, err)
	assert.Equal(t, "none", p.Kind())
	assert.False(t, p.Ready(context.Background()))

	_, err = New("usb", "", "")
	assert.Error(t, err)
	_, err = New("network", "", "")
	assert.Error(t, err)
	_, err = New("bluetooth", "", "")
	assert.Error(t, err)
}

func TestUSBPrinter_WritesToDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lp0")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	p := NewUSBPrinter(path)
	assert.True(t, p.Ready(context.Background()))
	require.NoError(t, p.Print(context.Background(), []byte("receipt")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "receipt", string(got))
}

func TestNetworkPrinter_SendsBytes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	p := NewNetworkPrinter(ln.Addr().String())
	require.NoError(t, p.Print(context.Background(), []byte("hello")))
	assert.Equal(t, "hello", string(<-received))
}
