package events

import "sync"

const defaultInboxSize = 10000

// Inbox remembers recently handled event ids so redelivered messages are skipped.
// The oldest id is forgotten once size is reached.
type Inbox struct {
	mu    sync.Mutex
	size  int
	ids   map[string]struct{}
	order []string
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = defaultInboxSize
	}
	return &Inbox{size: size, ids: make(map[string]struct{}, size)}
}

// Record reports whether id is new. Empty ids are always treated as new.
func (in *Inbox) Record(id string) bool {
	if id == "" {
		return true
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	if _, ok := in.ids[id]; ok {
		return false
	}
	if len(in.order) >= in.size {
		oldest := in.order[0]
		in.order = in.order[1:]
		delete(in.ids, oldest)
	}
	in.ids[id] = struct{}{}
	in.order = append(in.order, id)
	return true
}
