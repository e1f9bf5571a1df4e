package persist

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-farmlink/internal/market"
)

// Memory keeps the encoded snapshot in process. It goes through the same
// codec as the real backends so round trips behave identically.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(context.Context) (*market.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return Decode(m.data)
}

func (m *Memory) Save(_ context.Context, st market.State) error {
	b, err := Encode(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = b
	m.mu.Unlock()
	return nil
}

// Raw replaces the stored bytes as-is.
func (m *Memory) Raw(b []byte) {
	m.mu.Lock()
	m.data = append([]byte(nil), b...)
	m.mu.Unlock()
}
