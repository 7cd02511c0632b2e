package scale

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/xtding233/scale-backend/internal/confignode"
)

// logBuffer collects log output for assertions.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *logBuffer) {
	b := &logBuffer{}
	return slog.New(slog.NewTextHandler(b, &slog.HandlerOptions{Level: slog.LevelDebug})), b
}

func assertLogged(t *testing.T, b *logBuffer, substr string) {
	t.Helper()
	if !strings.Contains(b.String(), substr) {
		t.Fatalf("log missing %q:\n%s", substr, b.String())
	}
}

func record(t *testing.T, doc string) *confignode.Node {
	t.Helper()
	root, err := confignode.Parse("test", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	return root
}

type memDB []*confignode.Node

func (m memDB) Records(kind string) []*confignode.Node {
	var out []*confignode.Node
	for _, n := range m {
		out = append(out, n.GetNodes(kind)...)
	}
	return out
}
